package order

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/oakmart/storefront/internal/domain"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	// ErrDuplicatePayment maps the unique payment-reference constraint: one
	// payment can only ever produce one order.
	ErrDuplicatePayment = errors.New("order already exists for payment reference")
)

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListOrdersBySession(ctx context.Context, sessionID string) ([]*domain.Order, error)
}
