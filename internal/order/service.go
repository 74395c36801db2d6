// Package order persists confirmed orders and announces them to the rest of
// the system.
package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/oakmart/storefront/internal/domain"
)

// Publisher announces a confirmed order. Best-effort: a publish failure is
// logged, never returned to the buyer.
type Publisher interface {
	PublishOrderConfirmed(ctx context.Context, order *domain.Order) error
}

type Service struct {
	repo      OrderRepository
	publisher Publisher
	log       *slog.Logger
}

func NewService(repo OrderRepository, publisher Publisher, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		log:       log,
	}
}

// CreateOrder records an order from a successful payment and the checkout
// draft. A repeated payment reference means the order already exists; the
// existing record is returned rather than an error.
func (s *Service) CreateOrder(ctx context.Context, payment *domain.PaymentResponse, draft *domain.OrderDraft) (*domain.Order, error) {
	if payment == nil || !payment.Success {
		return nil, fmt.Errorf("order requires a successful payment")
	}
	if draft == nil || len(draft.Items) == 0 {
		return nil, fmt.Errorf("order requires at least one item")
	}

	order := &domain.Order{
		ID:              uuid.New(),
		SessionID:       draft.SessionID,
		Email:           draft.Email,
		PaymentRef:      payment.TransactionID,
		Items:           draft.Items,
		Subtotal:        draft.Subtotal,
		ShippingCost:    draft.ShippingCost,
		Tax:             draft.Tax,
		Total:           draft.Total,
		Currency:        draft.Currency,
		Status:          domain.OrderStatusConfirmed,
		ShippingAddress: draft.ShippingAddress,
		BillingAddress:  draft.BillingAddress,
	}

	if err := s.repo.CreateOrder(ctx, order); err != nil {
		if errors.Is(err, ErrDuplicatePayment) {
			s.log.Info("duplicate order creation for payment", "payment_ref", payment.TransactionID)
			return s.findByPaymentRef(ctx, draft.SessionID, payment.TransactionID)
		}
		return nil, fmt.Errorf("create order: %w", err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishOrderConfirmed(ctx, order); err != nil {
			s.log.Warn("failed to publish order confirmation", "order_id", order.ID, "error", err)
		}
	}

	return order, nil
}

func (s *Service) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.repo.GetOrderByID(ctx, id)
}

func (s *Service) ListOrders(ctx context.Context, sessionID string) ([]*domain.Order, error) {
	return s.repo.ListOrdersBySession(ctx, sessionID)
}

func (s *Service) findByPaymentRef(ctx context.Context, sessionID, paymentRef string) (*domain.Order, error) {
	orders, err := s.repo.ListOrdersBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("lookup existing order: %w", err)
	}
	for _, o := range orders {
		if o.PaymentRef == paymentRef {
			return o, nil
		}
	}
	return nil, ErrOrderNotFound
}
