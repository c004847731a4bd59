package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fjod/oil_storefront/internal/domain"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

type fakeReader struct {
	msgs []kafka.Message
	err  error
}

func (r *fakeReader) ReadMessage(context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		if r.err != nil {
			return kafka.Message{}, r.err
		}
		return kafka.Message{}, context.Canceled
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *fakeReader) Close() error {
	return nil
}

type fakeCarts struct {
	mu      sync.Mutex
	items   map[string][]domain.CartItem
	cleared []string
	err     error
}

func (c *fakeCarts) ClearIfMatch(_ context.Context, userID string, match func([]domain.CartItem) bool) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return false, c.err
	}
	if !match(c.items[userID]) {
		return false, nil
	}
	delete(c.items, userID)
	c.cleared = append(c.cleared, userID)
	return true, nil
}

func orderLines() []domain.CartItem {
	return []domain.CartItem{
		{Product: domain.Product{ID: "product-brent", Price: decimal.RequireFromString("72.15")}, Quantity: 3},
	}
}

// cartsHolding returns fake carts where customer-1 still holds the ordered lines.
func cartsHolding() *fakeCarts {
	return &fakeCarts{items: map[string][]domain.CartItem{"customer-1": orderLines()}}
}

func sampleOrder() domain.Order {
	return domain.Order{
		ID:           "order-1",
		CustomerID:   "customer-1",
		CustomerName: "Jane Trader",
		Products:     orderLines(),
		TotalAmount:  decimal.RequireFromString("216.45"),
		Status:       domain.OrderStatusPending,
	}
}

func message(t *testing.T, event OrderEvent) kafka.Message {
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Key: []byte(event.OrderID), Value: payload}
}

func TestKafkaPublisher_WritesKeyedMessage(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w}
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	err := p.Publish(context.Background(), NewOrderEvent(OrderPlaced, sampleOrder(), at))
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "order-1", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, "order.placed", string(msg.Headers[0].Value))

	var decoded OrderEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "customer-1", decoded.CustomerID)
	assert.Equal(t, domain.OrderStatusPending, decoded.Status)
	assert.True(t, decimal.RequireFromString("216.45").Equal(decoded.TotalAmount))
	assert.True(t, at.Equal(decoded.OccurredAt))
	assert.Equal(t, []LineItem{{ProductID: "product-brent", Quantity: 3}}, decoded.Items)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	p := &KafkaPublisher{writer: &fakeWriter{err: errors.New("broker unavailable")}}

	err := p.Publish(context.Background(), NewOrderEvent(OrderStatusChanged, sampleOrder(), time.Now()))
	assert.ErrorContains(t, err, "broker unavailable")
	assert.ErrorContains(t, err, "order.status_changed")
}

func TestLogPublisher(t *testing.T) {
	var p Publisher = LogPublisher{}
	assert.NoError(t, p.Publish(context.Background(), NewOrderEvent(OrderPlaced, sampleOrder(), time.Now())))
	assert.NoError(t, p.Close())
}

func TestCartCleaner_ClearsOnOrderPlaced(t *testing.T) {
	carts := cartsHolding()
	reader := &fakeReader{msgs: []kafka.Message{
		message(t, NewOrderEvent(OrderPlaced, sampleOrder(), time.Now())),
	}}
	cleaner := &CartCleaner{carts: carts, reader: reader}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cleaner.processMessage(ctx)

	assert.Equal(t, []string{"customer-1"}, carts.cleared)
}

func TestCartCleaner_IgnoresOtherEvents(t *testing.T) {
	carts := cartsHolding()
	cleaner := &CartCleaner{carts: carts}

	order := sampleOrder()
	order.Status = domain.OrderStatusApproved
	err := cleaner.handle(context.Background(), message(t, NewOrderEvent(OrderStatusChanged, order, time.Now())))
	require.NoError(t, err)
	assert.Empty(t, carts.cleared)
}

func TestCartCleaner_MalformedMessages(t *testing.T) {
	carts := &fakeCarts{}
	cleaner := &CartCleaner{carts: carts}

	err := cleaner.handle(context.Background(), kafka.Message{Value: []byte("not json")})
	assert.ErrorContains(t, err, "parse message")

	err = cleaner.handle(context.Background(), kafka.Message{Value: []byte(`{"type":"order.placed","orderId":"order-1"}`)})
	assert.ErrorContains(t, err, "missing customerId")

	err = cleaner.handle(context.Background(), kafka.Message{Value: []byte(`{"type":"order.placed","orderId":"order-1","customerId":"customer-1"}`)})
	assert.ErrorContains(t, err, "no items")

	assert.Empty(t, carts.cleared)
}

func TestCartCleaner_ClearError(t *testing.T) {
	carts := &fakeCarts{err: errors.New("store down")}
	cleaner := &CartCleaner{carts: carts}

	err := cleaner.handle(context.Background(), message(t, NewOrderEvent(OrderPlaced, sampleOrder(), time.Now())))
	assert.ErrorContains(t, err, "store down")
}

func TestCartCleaner_RunStopsOnCancel(t *testing.T) {
	carts := cartsHolding()
	reader := &fakeReader{msgs: []kafka.Message{
		{Value: []byte("garbage")},
		message(t, NewOrderEvent(OrderPlaced, sampleOrder(), time.Now())),
	}}
	cleaner := &CartCleaner{carts: carts, reader: reader}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		cleaner.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		carts.mu.Lock()
		defer carts.mu.Unlock()
		return len(carts.cleared) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleaner did not stop after cancel")
	}
	cleaner.Close()
}
