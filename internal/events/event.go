package events

import (
	"context"
	"time"

	"github.com/fjod/oil_storefront/internal/domain"
	"github.com/shopspring/decimal"
)

type EventType string

const (
	OrderPlaced        EventType = "order.placed"
	OrderStatusChanged EventType = "order.status_changed"
)

const DefaultTopic = "order-events"

// LineItem is one ordered product line, enough to recognise the cart it
// came from.
type LineItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type OrderEvent struct {
	Type         EventType          `json:"type"`
	OrderID      string             `json:"orderId"`
	CustomerID   string             `json:"customerId"`
	CustomerName string             `json:"customerName"`
	Status       domain.OrderStatus `json:"status"`
	TotalAmount  decimal.Decimal    `json:"totalAmount"`
	OccurredAt   time.Time          `json:"occurredAt"`
	Items        []LineItem         `json:"items,omitempty"`
}

// NewOrderEvent describes order as it stands after a ledger mutation.
func NewOrderEvent(t EventType, order domain.Order, at time.Time) OrderEvent {
	items := make([]LineItem, 0, len(order.Products))
	for _, p := range order.Products {
		items = append(items, LineItem{ProductID: p.Product.ID, Quantity: p.Quantity})
	}
	return OrderEvent{
		Type:         t,
		OrderID:      order.ID,
		CustomerID:   order.CustomerID,
		CustomerName: order.CustomerName,
		Status:       order.Status,
		TotalAmount:  order.TotalAmount,
		OccurredAt:   at.UTC(),
		Items:        items,
	}
}

type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error
	Close() error
}
