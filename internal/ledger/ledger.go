package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fjod/oil_storefront/internal/domain"
	"github.com/fjod/oil_storefront/internal/events"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrEmptyCart         = errors.New("cannot place an order with an empty cart")
	ErrOrderNotFound     = fmt.Errorf("order %w", domain.ErrNotFound)
	ErrInvalidStatus     = errors.New("status must be approved or rejected")
	ErrIllegalTransition = errors.New("illegal status transition")
)

var tracer = otel.Tracer("github.com/fjod/oil_storefront/internal/ledger")

type OrderRepository interface {
	Load(ctx context.Context) ([]domain.Order, error)
	Save(ctx context.Context, orders []domain.Order) error
}

type PlaceRequest struct {
	Items        []domain.CartItem
	CustomerID   string
	CustomerName string
	Notes        string
}

type Option func(*Ledger)

// WithPublisher sends an event after every successful mutation.
func WithPublisher(p events.Publisher) Option {
	return func(l *Ledger) {
		l.publisher = p
	}
}

// WithStrictTransitions refuses to change an order that is already approved
// or rejected.
func WithStrictTransitions() Option {
	return func(l *Ledger) {
		l.strict = true
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// Ledger is the append-only list of orders. Orders are never deleted; only
// their status changes after placement.
type Ledger struct {
	repo      OrderRepository
	publisher events.Publisher
	strict    bool
	now       func() time.Time
	mu        sync.Mutex
}

func New(repo OrderRepository, opts ...Option) *Ledger {
	l := &Ledger{
		repo:      repo,
		publisher: events.LogPublisher{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Place records a pending order from a copy of items. The caller owns
// clearing the cart afterwards.
func (l *Ledger) Place(ctx context.Context, req PlaceRequest) (domain.Order, error) {
	ctx, span := tracer.Start(ctx, "ledger.Place", trace.WithAttributes(attribute.String("customer.id", req.CustomerID)))
	defer span.End()

	if len(req.Items) == 0 {
		return domain.Order{}, ErrEmptyCart
	}

	items := domain.CopyItems(req.Items)
	order := domain.Order{
		ID:           "order-" + uuid.NewString(),
		CustomerID:   req.CustomerID,
		CustomerName: req.CustomerName,
		Products:     items,
		TotalAmount:  domain.CartTotal(items),
		Status:       domain.OrderStatusPending,
		OrderDate:    l.now().UTC(),
		Notes:        req.Notes,
	}

	l.mu.Lock()
	orders, err := l.repo.Load(ctx)
	if err == nil {
		err = l.repo.Save(ctx, append(orders, order))
	}
	l.mu.Unlock()
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return domain.Order{}, fmt.Errorf("failed to record order: %w", err)
	}

	span.SetAttributes(attribute.String("order.id", order.ID))
	log.Info().Ctx(ctx).
		Str("order_id", order.ID).
		Str("customer_id", order.CustomerID).
		Str("total_amount", order.TotalAmount.String()).
		Msg("order placed")

	l.publish(ctx, events.OrderPlaced, order)
	return order, nil
}

func (l *Ledger) ListAll(ctx context.Context) ([]domain.Order, error) {
	orders, err := l.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}
	return orders, nil
}

// ListFor returns the orders of one customer in placement order.
func (l *Ledger) ListFor(ctx context.Context, customerID string) ([]domain.Order, error) {
	orders, err := l.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	mine := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		if o.CustomerID == customerID {
			mine = append(mine, o)
		}
	}
	return mine, nil
}

func (l *Ledger) Get(ctx context.Context, orderID string) (domain.Order, error) {
	orders, err := l.ListAll(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	for _, o := range orders {
		if o.ID == orderID {
			return o, nil
		}
	}
	return domain.Order{}, ErrOrderNotFound
}

// SetStatus decides an order. By default a decided order can be decided
// again and the last call wins; strict mode rejects that.
func (l *Ledger) SetStatus(ctx context.Context, orderID string, status domain.OrderStatus) (domain.Order, error) {
	ctx, span := tracer.Start(ctx, "ledger.SetStatus", trace.WithAttributes(
		attribute.String("order.id", orderID),
		attribute.String("order.status", status.String()),
	))
	defer span.End()

	if status != domain.OrderStatusApproved && status != domain.OrderStatusRejected {
		return domain.Order{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	orders, err := l.repo.Load(ctx)
	if err != nil {
		return domain.Order{}, fmt.Errorf("failed to load orders: %w", err)
	}

	idx := -1
	for i := range orders {
		if orders[i].ID == orderID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.Order{}, ErrOrderNotFound
	}

	from := orders[idx].Status
	if l.strict && !domain.CanTransitionTo(from, status) {
		return domain.Order{}, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, status)
	}
	orders[idx].Status = status

	if err := l.repo.Save(ctx, orders); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return domain.Order{}, fmt.Errorf("failed to save orders: %w", err)
	}

	log.Info().Ctx(ctx).
		Str("order_id", orderID).
		Str("from", from.String()).
		Str("to", status.String()).
		Msg("order status changed")

	l.publish(ctx, events.OrderStatusChanged, orders[idx])
	return orders[idx], nil
}

func (l *Ledger) Approve(ctx context.Context, orderID string) (domain.Order, error) {
	return l.SetStatus(ctx, orderID, domain.OrderStatusApproved)
}

func (l *Ledger) Reject(ctx context.Context, orderID string) (domain.Order, error) {
	return l.SetStatus(ctx, orderID, domain.OrderStatusRejected)
}

// CountByStatus tallies orders, optionally restricted to one customer when
// customerID is not empty.
func (l *Ledger) CountByStatus(ctx context.Context, customerID string) (map[domain.OrderStatus]int, error) {
	var (
		orders []domain.Order
		err    error
	)
	if customerID == "" {
		orders, err = l.ListAll(ctx)
	} else {
		orders, err = l.ListFor(ctx, customerID)
	}
	if err != nil {
		return nil, err
	}

	counts := map[domain.OrderStatus]int{
		domain.OrderStatusPending:  0,
		domain.OrderStatusApproved: 0,
		domain.OrderStatusRejected: 0,
	}
	for _, o := range orders {
		counts[o.Status]++
	}
	return counts, nil
}

func (l *Ledger) publish(ctx context.Context, t events.EventType, order domain.Order) {
	if err := l.publisher.Publish(ctx, events.NewOrderEvent(t, order, l.now())); err != nil {
		log.Error().Ctx(ctx).Err(err).Str("order_id", order.ID).Str("event_type", string(t)).Msg("failed to publish order event")
	}
}
