package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/oakmart/storefront/internal/domain"
	"github.com/oakmart/storefront/internal/payment"
)

// Processor matches payment.Processor; the handler hosts the mock gateway.
type Processor interface {
	ProcessPayment(ctx context.Context, req *domain.PaymentRequest) (*domain.PaymentResponse, error)
}

type PaymentHandler struct {
	proc    Processor
	timeout time.Duration
}

func NewPaymentHandler(proc Processor, timeout time.Duration) *PaymentHandler {
	return &PaymentHandler{
		proc:    proc,
		timeout: timeout,
	}
}

// ProcessPayment validates and charges. Validation failures never reach the
// processor and come back with a VALIDATION_ERROR code.
func (h *PaymentHandler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req domain.PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if err := payment.ValidateRequest(&req, time.Now()); err != nil {
		respondJSON(w, http.StatusUnprocessableEntity, domain.PaymentResponse{
			Success:   false,
			Error:     err.Error(),
			ErrorCode: domain.ErrCodeValidation,
		})
		return
	}

	resp, err := h.proc.ProcessPayment(ctx, &req)
	if err != nil {
		respondError(w, http.StatusBadGateway, "processor_error", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, resp)
}
