package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/oakmart/storefront/internal/domain"
	"github.com/oakmart/storefront/internal/order"
)

type OrderService interface {
	CreateOrder(ctx context.Context, payment *domain.PaymentResponse, draft *domain.OrderDraft) (*domain.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListOrders(ctx context.Context, sessionID string) ([]*domain.Order, error)
}

type OrdersHandler struct {
	orders  OrderService
	timeout time.Duration
}

func NewOrdersHandler(orders OrderService, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		orders:  orders,
		timeout: timeout,
	}
}

type createOrderRequestDTO struct {
	Payment *domain.PaymentResponse `json:"payment"`
	Draft   *domain.OrderDraft      `json:"draft"`
}

func (h *OrdersHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req createOrderRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Payment == nil || !req.Payment.Success {
		respondError(w, http.StatusBadRequest, "invalid_payment", "a successful payment is required")
		return
	}
	if req.Draft == nil || len(req.Draft.Items) == 0 {
		respondError(w, http.StatusBadRequest, "invalid_order", "order must have at least one item")
		return
	}

	created, err := h.orders.CreateOrder(ctx, req.Payment, req.Draft)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to create order")
		return
	}

	respondJSON(w, http.StatusCreated, created)
}

func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, err := uuid.Parse(chi.URLParam(r, "order_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order_id must be a UUID")
		return
	}

	found, err := h.orders.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "order not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load order")
		return
	}

	respondJSON(w, http.StatusOK, found)
}

func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := sessionFromContext(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	orders, err := h.orders.ListOrders(ctx, sessionID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list orders")
		return
	}

	respondJSON(w, http.StatusOK, orders)
}
