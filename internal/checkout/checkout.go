package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/oil_storefront/internal/domain"
	"github.com/fjod/oil_storefront/internal/ledger"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrCartNotCleared means the order was recorded but the cart still holds
// its items.
var ErrCartNotCleared = errors.New("order placed but cart was not cleared")

var tracer = otel.Tracer("github.com/fjod/oil_storefront/internal/checkout")

type Carts interface {
	Items(ctx context.Context, userID string) ([]domain.CartItem, error)
	Clear(ctx context.Context, userID string) error
}

type Orders interface {
	Place(ctx context.Context, req ledger.PlaceRequest) (domain.Order, error)
}

type Service struct {
	carts  Carts
	orders Orders
}

func NewService(carts Carts, orders Orders) *Service {
	return &Service{carts: carts, orders: orders}
}

// Checkout turns the user's cart into a pending order and empties the cart.
// The two writes are not atomic: when clearing fails the placed order is
// still returned, together with an error wrapping ErrCartNotCleared.
func (s *Service) Checkout(ctx context.Context, user domain.AuthUser, notes string) (domain.Order, error) {
	ctx, span := tracer.Start(ctx, "checkout.Checkout", trace.WithAttributes(attribute.String("user.id", user.ID)))
	defer span.End()

	items, err := s.carts.Items(ctx, user.ID)
	if err != nil {
		return domain.Order{}, err
	}

	order, err := s.orders.Place(ctx, ledger.PlaceRequest{
		Items:        items,
		CustomerID:   user.ID,
		CustomerName: user.Name,
		Notes:        notes,
	})
	if err != nil {
		return domain.Order{}, err
	}

	if err := s.carts.Clear(ctx, user.ID); err != nil {
		log.Error().Ctx(ctx).Err(err).Str("order_id", order.ID).Str("user_id", user.ID).Msg("cart not cleared after checkout")
		return order, fmt.Errorf("%w: %w", ErrCartNotCleared, err)
	}
	return order, nil
}
