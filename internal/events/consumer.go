package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

// CartClearer empties a server-side cart once its order is confirmed.
type CartClearer interface {
	ClearCart(ctx context.Context, sessionID string) error
}

// Reader is the slice of kafka.Reader the consumer needs.
type Reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// Consumer drains order-confirmed events and clears the mirrored cart for the
// session that just bought it.
type Consumer struct {
	carts  CartClearer
	reader Reader
	log    *slog.Logger
}

func NewConsumer(carts CartClearer, log *slog.Logger, brokers ...string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    TopicOrderConfirmed,
		GroupID:  "storefront-cart-clearer",
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{carts: carts, reader: reader, log: log}
}

func NewConsumerWithReader(carts CartClearer, reader Reader, log *slog.Logger) *Consumer {
	return &Consumer{carts: carts, reader: reader, log: log}
}

func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *Consumer) Close() {
	if r, ok := c.reader.(*kafka.Reader); ok {
		if err := r.Close(); err != nil {
			c.log.Warn("error closing kafka reader", "error", err)
		}
	}
}

func (c *Consumer) processMessage(ctx context.Context) {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		c.log.Warn("error reading message", "error", err)
		return
	}

	var event OrderConfirmedEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		c.log.Warn("error parsing message", "error", err)
		return
	}
	if event.SessionID == "" {
		c.log.Warn("order event missing session id", "order_id", event.OrderID)
		return
	}

	if err := c.carts.ClearCart(ctx, event.SessionID); err != nil {
		c.log.Warn("failed to clear mirrored cart", "session_id", event.SessionID, "error", err)
	}
}
