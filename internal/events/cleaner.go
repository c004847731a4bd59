package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fjod/oil_storefront/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/fjod/oil_storefront/internal/events")

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// CartClearer empties a cart only when match accepts its current lines.
type CartClearer interface {
	ClearIfMatch(ctx context.Context, userID string, match func([]domain.CartItem) bool) (bool, error)
}

// CartCleaner consumes order events and empties the customer's cart when it
// still holds exactly the lines of the placed order. It covers the case where
// checkout recorded the order but failed to clear the cart; a cart that was
// already cleared or refilled since is left alone.
type CartCleaner struct {
	carts  CartClearer
	reader messageReader
}

func NewCartCleaner(carts CartClearer, topic string, brokers ...string) *CartCleaner {
	if topic == "" {
		topic = DefaultTopic
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     "storefront-cart-cleaner",
		StartOffset: kafka.LastOffset, // a new group must not replay old orders
		MaxBytes:    10e6,             // 10MB
	})
	return &CartCleaner{carts: carts, reader: reader}
}

func (c *CartCleaner) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *CartCleaner) Close() {
	if err := c.reader.Close(); err != nil {
		log.Error().Err(err).Msg("error closing kafka reader")
	}
}

func (c *CartCleaner) processMessage(ctx context.Context) {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		log.Error().Err(err).Msg("error reading message")
		return
	}

	if err := c.handle(ctx, m); err != nil {
		log.Warn().Err(err).Int64("offset", m.Offset).Msg("order event skipped")
	}
}

func (c *CartCleaner) handle(ctx context.Context, m kafka.Message) error {
	var event OrderEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		return fmt.Errorf("parse message: %w", err)
	}
	if event.Type != OrderPlaced {
		return nil
	}

	ctx, span := tracer.Start(ctx, "events.CartCleaner.handle", trace.WithAttributes(
		attribute.String("order.id", event.OrderID),
		attribute.String("customer.id", event.CustomerID),
	))
	defer span.End()

	if event.CustomerID == "" {
		return errors.New("missing customerId")
	}
	if len(event.Items) == 0 {
		return errors.New("order event carries no items")
	}

	cleared, err := c.carts.ClearIfMatch(ctx, event.CustomerID, func(items []domain.CartItem) bool {
		return sameLines(items, event.Items)
	})
	if err != nil {
		return fmt.Errorf("clear cart of %s: %w", event.CustomerID, err)
	}
	log.Debug().Ctx(ctx).
		Str("order_id", event.OrderID).
		Str("customer_id", event.CustomerID).
		Bool("cleared", cleared).
		Msg("order placed event handled")
	return nil
}

// sameLines reports whether the cart holds exactly the ordered lines, in order.
func sameLines(items []domain.CartItem, lines []LineItem) bool {
	if len(items) != len(lines) {
		return false
	}
	for i := range items {
		if items[i].Product.ID != lines[i].ProductID || items[i].Quantity != lines[i].Quantity {
			return false
		}
	}
	return true
}
