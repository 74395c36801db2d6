package client

import (
	"context"
	"time"

	"github.com/oakmart/storefront/internal/domain"
)

// OrderClient creates orders through the order API. It implements the
// checkout.OrderCreator contract.
type OrderClient struct {
	*baseClient
}

func NewOrderClient(baseURL string, timeout time.Duration) *OrderClient {
	return &OrderClient{baseClient: newBaseClient(baseURL, "order-service", timeout)}
}

type createOrderRequest struct {
	Payment *domain.PaymentResponse `json:"payment"`
	Draft   *domain.OrderDraft      `json:"draft"`
}

func (c *OrderClient) CreateOrder(ctx context.Context, payment *domain.PaymentResponse, draft *domain.OrderDraft) (*domain.Order, error) {
	var order domain.Order
	req := createOrderRequest{Payment: payment, Draft: draft}
	if err := c.doJSON(ctx, "POST", "/api/v1/orders", nil, req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}
