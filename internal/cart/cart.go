package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fjod/oil_storefront/internal/cache"
	"github.com/fjod/oil_storefront/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrOutOfStock      = errors.New("product is out of stock")
)

var tracer = otel.Tracer("github.com/fjod/oil_storefront/internal/cart")

type Repository interface {
	GetCart(ctx context.Context, userID string) ([]domain.CartItem, error)
	SaveCart(ctx context.Context, userID string, items []domain.CartItem) error
	DeleteCart(ctx context.Context, userID string) error
}

type Service struct {
	repo  Repository
	cache cache.CartCache
	sfg   singleflight.Group // Prevents cache stampede
	mu    sync.Mutex
}

// NewService builds a cart service. A nil cache disables caching.
func NewService(repo Repository, c cache.CartCache) *Service {
	if c == nil {
		c = cache.Noop{}
	}
	return &Service{
		repo:  repo,
		cache: c,
	}
}

// Items returns the user's cart lines in insertion order.
func (s *Service) Items(ctx context.Context, userID string) ([]domain.CartItem, error) {
	ctx, span := tracer.Start(ctx, "cart.Items", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {
		items, err := s.cache.Get(ctx, userID)
		if err == nil {
			return items, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Warn().Ctx(ctx).Err(err).Str("user_id", userID).Msg("cart cache get failed")
		}

		// Held across load and fill so a concurrent mutation cannot
		// invalidate between the two and leave a stale entry behind.
		s.mu.Lock()
		defer s.mu.Unlock()

		items, err = s.repo.GetCart(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to load cart: %w", err)
		}

		if errSet := s.cache.Set(ctx, userID, items); errSet != nil {
			log.Warn().Ctx(ctx).Err(errSet).Str("user_id", userID).Msg("cart cache set failed")
		}
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return domain.CopyItems(v.([]domain.CartItem)), nil
}

// Add puts quantity units of product into the cart. A product already in the
// cart keeps its original snapshot and only its quantity grows.
func (s *Service) Add(ctx context.Context, userID string, product domain.Product, quantity int) error {
	ctx, span := tracer.Start(ctx, "cart.Add", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.String("product.id", product.ID),
	))
	defer span.End()

	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if product.Quantity == 0 {
		return ErrOutOfStock
	}

	return s.mutate(ctx, userID, func(items []domain.CartItem) []domain.CartItem {
		for i := range items {
			if items[i].Product.ID == product.ID {
				items[i].Quantity += quantity
				return items
			}
		}
		return append(items, domain.CartItem{Product: product, Quantity: quantity})
	})
}

// SetQuantity overwrites the line quantity; zero or less removes the line.
func (s *Service) SetQuantity(ctx context.Context, userID, productID string, quantity int) error {
	if quantity <= 0 {
		return s.Remove(ctx, userID, productID)
	}
	return s.mutate(ctx, userID, func(items []domain.CartItem) []domain.CartItem {
		for i := range items {
			if items[i].Product.ID == productID {
				items[i].Quantity = quantity
			}
		}
		return items
	})
}

func (s *Service) Remove(ctx context.Context, userID, productID string) error {
	return s.mutate(ctx, userID, func(items []domain.CartItem) []domain.CartItem {
		kept := items[:0]
		for _, item := range items {
			if item.Product.ID != productID {
				kept = append(kept, item)
			}
		}
		return kept
	})
}

// Total is recomputed from the stored lines on every call.
func (s *Service) Total(ctx context.Context, userID string) (decimal.Decimal, error) {
	items, err := s.Items(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return domain.CartTotal(items), nil
}

// Count is the number of units across all lines.
func (s *Service) Count(ctx context.Context, userID string) (int, error) {
	items, err := s.Items(ctx, userID)
	if err != nil {
		return 0, err
	}
	return domain.CartCount(items), nil
}

func (s *Service) Clear(ctx context.Context, userID string) error {
	ctx, span := tracer.Start(ctx, "cart.Clear", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.clearLocked(ctx, userID)
}

// ClearIfMatch empties the cart only when match accepts its current lines,
// and reports whether it did. The check and the clear happen under the same
// lock as every other cart mutation.
func (s *Service) ClearIfMatch(ctx context.Context, userID string, match func([]domain.CartItem) bool) (bool, error) {
	ctx, span := tracer.Start(ctx, "cart.ClearIfMatch", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.repo.GetCart(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to load cart: %w", err)
	}
	if !match(domain.CopyItems(items)) {
		span.SetAttributes(attribute.Bool("cart.cleared", false))
		return false, nil
	}
	if err := s.clearLocked(ctx, userID); err != nil {
		return false, err
	}
	span.SetAttributes(attribute.Bool("cart.cleared", true))
	return true, nil
}

func (s *Service) clearLocked(ctx context.Context, userID string) error {
	if err := s.repo.DeleteCart(ctx, userID); err != nil {
		log.Error().Ctx(ctx).Err(err).Str("user_id", userID).Msg("cart delete failed")
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	s.invalidate(ctx, userID)
	return nil
}

func (s *Service) mutate(ctx context.Context, userID string, fn func([]domain.CartItem) []domain.CartItem) error {
	ctx, span := tracer.Start(ctx, "cart.save", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.repo.GetCart(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load cart: %w", err)
	}
	if err := s.repo.SaveCart(ctx, userID, fn(items)); err != nil {
		log.Error().Ctx(ctx).Err(err).Str("user_id", userID).Msg("cart save failed")
		return fmt.Errorf("failed to save cart: %w", err)
	}
	s.invalidate(ctx, userID)
	return nil
}

// invalidate drops the cached cart even when the caller's ctx is already done.
func (s *Service) invalidate(ctx context.Context, userID string) {
	delCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := s.cache.Delete(delCtx, userID); err != nil {
		log.Warn().Ctx(ctx).Err(err).Str("user_id", userID).Msg("cart cache invalidate failed")
	}
}
