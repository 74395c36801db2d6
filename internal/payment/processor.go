package payment

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/oakmart/storefront/internal/domain"
)

// Literal test cards with deterministic outcomes. Any other syntactically
// valid number resolves through the OutcomeSource roll.
const (
	TestCardSuccess       = "4242424242424242"
	TestCardDeclined      = "4000000000000002"
	TestCardInsufficient  = "4000000000009995"
	TestCardExpired       = "4000000000000069"
	TestCardInvalidCVV    = "4000000000000127"
	TestCardNetworkError  = "4000000000000119"
	TestCardForcedSuccess = "5555555555554444"
)

// OutcomeSource supplies the roll deciding non-literal card outcomes.
type OutcomeSource interface {
	Roll() int // 0..99
}

type RandomOutcome struct{}

func (RandomOutcome) Roll() int {
	return rand.Intn(100)
}

// MockProcessor stands in for the real payment gateway. Outcome selection is
// reproduced exactly for testability: listed literal cards are deterministic,
// everything else is 80% success, 10% decline, 10% network error.
type MockProcessor struct {
	source OutcomeSource
}

func NewMockProcessor(source OutcomeSource) *MockProcessor {
	if source == nil {
		source = RandomOutcome{}
	}
	return &MockProcessor{source: source}
}

func (p *MockProcessor) ProcessPayment(_ context.Context, req *domain.PaymentRequest) (*domain.PaymentResponse, error) {
	if req.Method.IsCardBased() && req.Card != nil {
		if resp, ok := literalOutcome(req.Card.Number); ok {
			return resp, nil
		}
	}
	return rolledOutcome(p.source.Roll()), nil
}

func literalOutcome(number string) (*domain.PaymentResponse, bool) {
	switch number {
	case TestCardSuccess, TestCardForcedSuccess:
		return successResponse(), true
	case TestCardDeclined:
		return failureResponse(domain.ErrCodeCardDeclined, "card declined"), true
	case TestCardInsufficient:
		return failureResponse(domain.ErrCodeInsufficientFunds, "insufficient funds"), true
	case TestCardExpired:
		return failureResponse(domain.ErrCodeExpiredCard, "card expired"), true
	case TestCardInvalidCVV:
		return failureResponse(domain.ErrCodeInvalidCVV, "invalid CVV"), true
	case TestCardNetworkError:
		return failureResponse(domain.ErrCodeNetworkError, "payment network unavailable"), true
	}
	return nil, false
}

func rolledOutcome(roll int) *domain.PaymentResponse {
	switch {
	case roll < 80:
		return successResponse()
	case roll < 90:
		return failureResponse(domain.ErrCodeCardDeclined, "card declined")
	default:
		return failureResponse(domain.ErrCodeNetworkError, "payment network unavailable")
	}
}

func successResponse() *domain.PaymentResponse {
	return &domain.PaymentResponse{
		Success:       true,
		TransactionID: fmt.Sprintf("TXN-%d-%s", time.Now().Unix(), uuid.NewString()[:8]),
		OrderID:       "PAY-" + uuid.NewString()[:8],
	}
}

func failureResponse(code, message string) *domain.PaymentResponse {
	return &domain.PaymentResponse{
		Success:   false,
		Error:     message,
		ErrorCode: code,
	}
}
