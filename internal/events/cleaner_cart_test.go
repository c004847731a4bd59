package events

import (
	"context"
	"testing"
	"time"

	"github.com/fjod/oil_storefront/internal/cart"
	"github.com/fjod/oil_storefront/internal/domain"
	"github.com/fjod/oil_storefront/internal/kv"
	"github.com/fjod/oil_storefront/internal/repository"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func crude(id, price string) domain.Product {
	return domain.Product{ID: id, Name: id, Quantity: 100, Price: decimal.RequireFromString(price), Unit: domain.UnitBarrel}
}

func placedEvent(t *testing.T, items []domain.CartItem) kafka.Message {
	order := domain.Order{
		ID:          "order-1",
		CustomerID:  "customer-1",
		Products:    items,
		TotalAmount: domain.CartTotal(items),
		Status:      domain.OrderStatusPending,
	}
	return message(t, NewOrderEvent(OrderPlaced, order, time.Now()))
}

func TestCartCleaner_LateEventKeepsItemsAddedAfterCheckout(t *testing.T) {
	carts := cart.NewService(repository.NewCartRepository(kv.NewMemoryStore()), nil)
	ctx := context.Background()

	require.NoError(t, carts.Add(ctx, "customer-1", crude("product-brent", "72.15"), 1))
	ordered, err := carts.Items(ctx, "customer-1")
	require.NoError(t, err)

	// checkout cleared the cart, then the customer kept shopping
	require.NoError(t, carts.Clear(ctx, "customer-1"))
	require.NoError(t, carts.Add(ctx, "customer-1", crude("product-wti", "68.40"), 2))

	cleaner := &CartCleaner{carts: carts, reader: &fakeReader{msgs: []kafka.Message{placedEvent(t, ordered)}}}
	cleaner.processMessage(ctx)

	items, err := carts.Items(ctx, "customer-1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "product-wti", items[0].Product.ID)
	assert.Equal(t, 2, items[0].Quantity)
}

func TestCartCleaner_ClearsCartLeftBehindByCheckout(t *testing.T) {
	carts := cart.NewService(repository.NewCartRepository(kv.NewMemoryStore()), nil)
	ctx := context.Background()

	require.NoError(t, carts.Add(ctx, "customer-1", crude("product-brent", "72.15"), 3))
	require.NoError(t, carts.Add(ctx, "customer-1", crude("product-wti", "68.40"), 1))
	ordered, err := carts.Items(ctx, "customer-1")
	require.NoError(t, err)

	// checkout placed the order but never cleared the cart
	cleaner := &CartCleaner{carts: carts, reader: &fakeReader{msgs: []kafka.Message{placedEvent(t, ordered)}}}
	cleaner.processMessage(ctx)

	items, err := carts.Items(ctx, "customer-1")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCartCleaner_ChangedQuantityIsLeftAlone(t *testing.T) {
	carts := cart.NewService(repository.NewCartRepository(kv.NewMemoryStore()), nil)
	ctx := context.Background()

	require.NoError(t, carts.Add(ctx, "customer-1", crude("product-brent", "72.15"), 3))
	ordered, err := carts.Items(ctx, "customer-1")
	require.NoError(t, err)
	require.NoError(t, carts.SetQuantity(ctx, "customer-1", "product-brent", 5))

	require.NoError(t, (&CartCleaner{carts: carts}).handle(ctx, placedEvent(t, ordered)))

	count, err := carts.Count(ctx, "customer-1")
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}
