package payment

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakmart/storefront/internal/domain"
)

type fixedRoll int

func (r fixedRoll) Roll() int { return int(r) }

func processCard(t *testing.T, sut *MockProcessor, number string) *domain.PaymentResponse {
	t.Helper()
	card := validCard()
	card.Number = number
	resp, err := sut.ProcessPayment(context.Background(), cardRequest(card))
	require.NoError(t, err)
	return resp
}

func TestMockProcessor_LiteralCardsAreDeterministic(t *testing.T) {
	// The roll would force a network error; literal cards must ignore it.
	sut := NewMockProcessor(fixedRoll(99))

	tests := []struct {
		number      string
		wantSuccess bool
		wantCode    string
	}{
		{TestCardSuccess, true, ""},
		{TestCardForcedSuccess, true, ""},
		{TestCardDeclined, false, domain.ErrCodeCardDeclined},
		{TestCardInsufficient, false, domain.ErrCodeInsufficientFunds},
		{TestCardExpired, false, domain.ErrCodeExpiredCard},
		{TestCardInvalidCVV, false, domain.ErrCodeInvalidCVV},
		{TestCardNetworkError, false, domain.ErrCodeNetworkError},
	}

	for _, tt := range tests {
		resp := processCard(t, sut, tt.number)
		assert.Equal(t, tt.wantSuccess, resp.Success, "card %s", tt.number)
		assert.Equal(t, tt.wantCode, resp.ErrorCode, "card %s", tt.number)
	}
}

func TestMockProcessor_SuccessMintsIdentifiers(t *testing.T) {
	sut := NewMockProcessor(fixedRoll(0))

	resp := processCard(t, sut, TestCardSuccess)

	assert.True(t, resp.Success)
	assert.True(t, strings.HasPrefix(resp.TransactionID, "TXN-"))
	assert.True(t, strings.HasPrefix(resp.OrderID, "PAY-"))
}

func TestMockProcessor_RolledOutcomes(t *testing.T) {
	// A syntactically valid number that is not in the literal table.
	const otherCard = "4111111111111111"

	tests := []struct {
		name        string
		roll        int
		wantSuccess bool
		wantCode    string
	}{
		{"roll 0 succeeds", 0, true, ""},
		{"roll 79 succeeds", 79, true, ""},
		{"roll 80 declines", 80, false, domain.ErrCodeCardDeclined},
		{"roll 89 declines", 89, false, domain.ErrCodeCardDeclined},
		{"roll 90 network error", 90, false, domain.ErrCodeNetworkError},
		{"roll 99 network error", 99, false, domain.ErrCodeNetworkError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sut := NewMockProcessor(fixedRoll(tt.roll))
			resp := processCard(t, sut, otherCard)
			assert.Equal(t, tt.wantSuccess, resp.Success)
			assert.Equal(t, tt.wantCode, resp.ErrorCode)
		})
	}
}

func TestMockProcessor_NonCardMethodUsesRoll(t *testing.T) {
	sut := NewMockProcessor(fixedRoll(85))

	req := &domain.PaymentRequest{
		Amount:   1000,
		Currency: "USD",
		Method:   domain.PaymentMethodPaypal,
	}
	resp, err := sut.ProcessPayment(context.Background(), req)

	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, domain.ErrCodeCardDeclined, resp.ErrorCode)
}

func TestMockProcessor_NilSourceDefaultsToRandom(t *testing.T) {
	sut := NewMockProcessor(nil)
	resp := processCard(t, sut, TestCardSuccess)
	assert.True(t, resp.Success)
}
