package payment

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/oakmart/storefront/internal/domain"
)

// ValidationError is returned before any processor call when the request
// cannot possibly succeed. Its code is always VALIDATION_ERROR.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErrf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ValidateRequest checks a payment request synchronously. Any failure
// short-circuits the attempt; the network is never reached.
func ValidateRequest(req *domain.PaymentRequest, now time.Time) error {
	if req == nil {
		return validationErrf("payment request is required")
	}
	if req.Amount <= 0 {
		return validationErrf("amount must be greater than zero")
	}
	if req.Currency == "" {
		return validationErrf("currency is required")
	}
	if req.Method.IsCardBased() {
		return ValidateCard(req.Card, now)
	}
	return nil
}

// ValidateCard checks card data: Luhn on the number, a strictly-future MM/YY
// expiry and a 3-4 digit CVV.
func ValidateCard(card *domain.CardData, now time.Time) error {
	if card == nil {
		return validationErrf("card data is required")
	}
	number := strings.ReplaceAll(card.Number, " ", "")
	if !luhnValid(number) {
		return validationErrf("invalid card number")
	}
	month, year, err := parseExpiry(card.Expiry)
	if err != nil {
		return err
	}
	if year < now.Year() || (year == now.Year() && month <= int(now.Month())) {
		return validationErrf("card expired")
	}
	if !cvvValid(card.CVV) {
		return validationErrf("invalid CVV")
	}
	return nil
}

func luhnValid(number string) bool {
	if len(number) < 12 || len(number) > 19 {
		return false
	}
	var sum int
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		c := number[i]
		if c < '0' || c > '9' {
			return false
		}
		digit := int(c - '0')
		if double {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		double = !double
	}
	return sum%10 == 0
}

// parseExpiry parses "MM/YY" into a month and a four-digit year.
func parseExpiry(expiry string) (int, int, error) {
	parts := strings.Split(expiry, "/")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, 0, validationErrf("expiry must be MM/YY")
	}
	month, err := strconv.Atoi(parts[0])
	if err != nil || month < 1 || month > 12 {
		return 0, 0, validationErrf("expiry must be MM/YY")
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, validationErrf("expiry must be MM/YY")
	}
	return month, 2000 + year, nil
}

func cvvValid(cvv string) bool {
	if len(cvv) < 3 || len(cvv) > 4 {
		return false
	}
	for _, c := range cvv {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
