package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakmart/storefront/internal/domain"
	"github.com/oakmart/storefront/internal/payment"
)

func paymentRequest(cardNumber string) domain.PaymentRequest {
	return domain.PaymentRequest{
		Amount:   2000,
		Currency: "USD",
		Method:   domain.PaymentMethodCard,
		Card: &domain.CardData{
			Number: cardNumber,
			Expiry: "12/30",
			CVV:    "123",
		},
	}
}

func postPayment(t *testing.T, h *PaymentHandler, req domain.PaymentRequest) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(req))
	r := httptest.NewRequest(http.MethodPost, "/api/v1/payments", &buf)
	rec := httptest.NewRecorder()
	h.ProcessPayment(rec, r)
	return rec
}

func TestPaymentHandler_Success(t *testing.T) {
	h := NewPaymentHandler(payment.NewMockProcessor(nil), 5*time.Second)

	rec := postPayment(t, h, paymentRequest(payment.TestCardSuccess))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp domain.PaymentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.TransactionID)
}

func TestPaymentHandler_DeclinedCard(t *testing.T) {
	h := NewPaymentHandler(payment.NewMockProcessor(nil), 5*time.Second)

	rec := postPayment(t, h, paymentRequest(payment.TestCardDeclined))

	require.Equal(t, http.StatusOK, rec.Code, "processor declines are payloads, not transport errors")
	var resp domain.PaymentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, domain.ErrCodeCardDeclined, resp.ErrorCode)
}

func TestPaymentHandler_ValidationShortCircuits(t *testing.T) {
	h := NewPaymentHandler(payment.NewMockProcessor(nil), 5*time.Second)

	req := paymentRequest(payment.TestCardSuccess)
	req.Card.Expiry = "01/20"
	rec := postPayment(t, h, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp domain.PaymentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, domain.ErrCodeValidation, resp.ErrorCode)
	assert.Equal(t, "card expired", resp.Error)
}

func TestPaymentHandler_ZeroAmount(t *testing.T) {
	h := NewPaymentHandler(payment.NewMockProcessor(nil), 5*time.Second)

	req := paymentRequest(payment.TestCardSuccess)
	req.Amount = 0
	rec := postPayment(t, h, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestPaymentHandler_BadJSON(t *testing.T) {
	h := NewPaymentHandler(payment.NewMockProcessor(nil), 5*time.Second)

	r := httptest.NewRequest(http.MethodPost, "/api/v1/payments", bytes.NewBufferString("{broken"))
	rec := httptest.NewRecorder()
	h.ProcessPayment(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
