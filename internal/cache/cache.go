package cache

import (
	"context"
	"errors"

	"github.com/fjod/oil_storefront/internal/domain"
)

type CartCache interface {
	Get(ctx context.Context, userID string) ([]domain.CartItem, error)
	Set(ctx context.Context, userID string, items []domain.CartItem) error
	Delete(ctx context.Context, userID string) error
}

var ErrCacheMiss = errors.New("cache miss")

// Noop never holds anything; every Get is a miss.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]domain.CartItem, error) {
	return nil, ErrCacheMiss
}

func (Noop) Set(context.Context, string, []domain.CartItem) error {
	return nil
}

func (Noop) Delete(context.Context, string) error {
	return nil
}
