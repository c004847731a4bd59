package repository

import (
	"context"

	"github.com/fjod/oil_storefront/internal/domain"
	"github.com/fjod/oil_storefront/internal/kv"
)

// Keys of the persisted state layout. Each collection lives under one key
// and is rewritten in full on every change.
const (
	ProductsKey    = "products"
	CustomersKey   = "customers"
	OrdersKey      = "orders"
	CurrentUserKey = "currentUser"
	cartKeyPrefix  = "cart_"
)

func CartKey(userID string) string {
	return cartKeyPrefix + userID
}

// Collection is a JSON array of T stored under a single key.
type Collection[T any] struct {
	store kv.Store
	key   string
}

func NewCollection[T any](store kv.Store, key string) *Collection[T] {
	return &Collection[T]{store: store, key: key}
}

// Load returns every element; a missing key reads as an empty collection.
func (c *Collection[T]) Load(ctx context.Context) ([]T, error) {
	return kv.LoadJSON[[]T](ctx, c.store, c.key)
}

// Save replaces the whole collection.
func (c *Collection[T]) Save(ctx context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	return kv.SaveJSON(ctx, c.store, c.key, items)
}

func NewProductRepository(store kv.Store) *Collection[domain.Product] {
	return NewCollection[domain.Product](store, ProductsKey)
}

func NewCustomerRepository(store kv.Store) *Collection[domain.Customer] {
	return NewCollection[domain.Customer](store, CustomersKey)
}

func NewOrderRepository(store kv.Store) *Collection[domain.Order] {
	return NewCollection[domain.Order](store, OrdersKey)
}
