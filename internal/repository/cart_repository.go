package repository

import (
	"context"

	"github.com/fjod/oil_storefront/internal/domain"
	"github.com/fjod/oil_storefront/internal/kv"
)

// CartRepository stores one cart per user under cart_<userID>.
type CartRepository struct {
	store kv.Store
}

func NewCartRepository(store kv.Store) *CartRepository {
	return &CartRepository{store: store}
}

func (r *CartRepository) GetCart(ctx context.Context, userID string) ([]domain.CartItem, error) {
	return kv.LoadJSON[[]domain.CartItem](ctx, r.store, CartKey(userID))
}

func (r *CartRepository) SaveCart(ctx context.Context, userID string, items []domain.CartItem) error {
	if items == nil {
		items = []domain.CartItem{}
	}
	return kv.SaveJSON(ctx, r.store, CartKey(userID), items)
}

// DeleteCart writes an empty cart rather than dropping the key, matching how
// the storefront has always cleared carts.
func (r *CartRepository) DeleteCart(ctx context.Context, userID string) error {
	return r.SaveCart(ctx, userID, nil)
}
