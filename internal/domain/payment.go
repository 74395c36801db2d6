package domain

type PaymentStatus string

const (
	PaymentStatusIdle       PaymentStatus = "IDLE"
	PaymentStatusProcessing PaymentStatus = "PROCESSING"
	PaymentStatusSuccess    PaymentStatus = "SUCCESS"
	PaymentStatusFailed     PaymentStatus = "FAILED"
	PaymentStatusCancelled  PaymentStatus = "CANCELLED"
)

// allowedTransitions maps a status to the statuses it may advance to.
// Reset is not listed: any status may return to IDLE through it.
var allowedTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusIdle:       {PaymentStatusProcessing, PaymentStatusCancelled},
	PaymentStatusProcessing: {PaymentStatusSuccess, PaymentStatusFailed, PaymentStatusCancelled},
	PaymentStatusFailed:     {PaymentStatusProcessing, PaymentStatusCancelled},
	PaymentStatusSuccess:    {},
	PaymentStatusCancelled:  {},
}

func (s PaymentStatus) CanTransitionTo(to PaymentStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusSuccess || s == PaymentStatusFailed || s == PaymentStatusCancelled
}

func (s PaymentStatus) String() string {
	return string(s)
}

type PaymentMethod string

const (
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodPaypal PaymentMethod = "paypal"
)

// IsCardBased reports whether the method requires card data.
func (m PaymentMethod) IsCardBased() bool {
	return m == PaymentMethodCard
}

// Error codes surfaced on payment responses for UI branching.
const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeCardDeclined      = "CARD_DECLINED"
	ErrCodeInsufficientFunds = "INSUFFICIENT_FUNDS"
	ErrCodeExpiredCard       = "EXPIRED_CARD"
	ErrCodeInvalidCVV        = "INVALID_CVV"
	ErrCodeNetworkError      = "NETWORK_ERROR"
)

// CardData carries raw card input. Expiry is "MM/YY".
type CardData struct {
	Number     string `json:"number"`
	Expiry     string `json:"expiry"`
	CVV        string `json:"cvv"`
	HolderName string `json:"holder_name,omitempty"`
}

// PaymentRequest is the processor contract. Amount is in minor currency
// units (cents).
type PaymentRequest struct {
	Amount         int64             `json:"amount"`
	Currency       string            `json:"currency"`
	Method         PaymentMethod     `json:"payment_method"`
	Card           *CardData         `json:"card_data,omitempty"`
	BillingAddress *Address          `json:"billing_address,omitempty"`
	OrderData      *OrderDraft       `json:"order_data,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

type PaymentResponse struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transaction_id,omitempty"`
	OrderID       string `json:"order_id,omitempty"`
	Error         string `json:"error,omitempty"`
	ErrorCode     string `json:"error_code,omitempty"`
}
