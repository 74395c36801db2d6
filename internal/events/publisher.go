// Package events carries order confirmations over Kafka so interested parties
// (the cart mirror, fulfilment) can react without coupling to checkout.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/oakmart/storefront/internal/domain"
)

const TopicOrderConfirmed = "order-confirmed"

// Writer is the slice of kafka.Writer the publisher needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type OrderConfirmedEvent struct {
	OrderID     string             `json:"order_id"`
	SessionID   string             `json:"session_id"`
	Items       []domain.OrderItem `json:"items"`
	TotalAmount float64            `json:"total_amount"`
	Currency    string             `json:"currency"`
	ConfirmedAt time.Time          `json:"confirmed_at"`
}

type Publisher struct {
	writer Writer
}

func NewPublisher(brokers ...string) *Publisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  TopicOrderConfirmed,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: w}
}

func NewPublisherWithWriter(w Writer) *Publisher {
	return &Publisher{writer: w}
}

func (p *Publisher) PublishOrderConfirmed(ctx context.Context, order *domain.Order) error {
	event := OrderConfirmedEvent{
		OrderID:     order.ID.String(),
		SessionID:   order.SessionID,
		Items:       order.Items,
		TotalAmount: order.Total,
		Currency:    order.Currency,
		ConfirmedAt: order.CreatedAt,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(order.SessionID),
		Value: payload,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish order event: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	if w, ok := p.writer.(*kafka.Writer); ok {
		return w.Close()
	}
	return nil
}
