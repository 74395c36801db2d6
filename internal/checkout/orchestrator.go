// Package checkout sequences shipping -> payment -> review -> confirmation
// over the cart, auth and payment state machines.
package checkout

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/oakmart/storefront/internal/auth"
	"github.com/oakmart/storefront/internal/cart"
	"github.com/oakmart/storefront/internal/domain"
	"github.com/oakmart/storefront/internal/payment"
)

type Step string

const (
	StepShipping     Step = "SHIPPING"
	StepPayment      Step = "PAYMENT"
	StepReview       Step = "REVIEW"
	StepConfirmation Step = "CONFIRMATION"
)

const (
	TaxRate               = 0.08
	ShippingFlatRate      = 5.99
	FreeShippingThreshold = 50.00
	Currency              = "USD"
)

// timeNow is swapped in tests to pin expiry validation.
var timeNow = time.Now

var (
	ErrEmptyCart        = errors.New("cart is empty, nothing to checkout")
	ErrNotStarted       = errors.New("checkout has not been started")
	ErrGuestDataMissing = errors.New("guest checkout data is required")
	ErrShippingMissing  = errors.New("shipping address is required")
	ErrMethodMissing    = errors.New("payment method is required")
	ErrStepLocked       = errors.New("step is not reachable yet")
	ErrInvalidGuestData = errors.New("invalid guest checkout data")
)

// OrderCreator is the external order collaborator. Its failure must never
// retroactively fail a payment.
type OrderCreator interface {
	CreateOrder(ctx context.Context, payment *domain.PaymentResponse, draft *domain.OrderDraft) (*domain.Order, error)
}

// Totals are the figures shown on the review screen.
type Totals struct {
	Subtotal     float64 `json:"subtotal"`
	ShippingCost float64 `json:"shipping_cost"`
	Tax          float64 `json:"tax"`
	Total        float64 `json:"total"`
}

type Orchestrator struct {
	mu     sync.Mutex
	cart   *cart.Manager
	auth   *auth.Manager
	pay    *payment.Machine
	orders OrderCreator
	log    *slog.Logger

	started   bool
	step      Step
	guestData *domain.GuestCheckoutData
	shipping  *domain.Address
	card      *domain.CardData
	order     *domain.Order
}

func NewOrchestrator(c *cart.Manager, a *auth.Manager, p *payment.Machine, orders OrderCreator, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		cart:   c,
		auth:   a,
		pay:    p,
		orders: orders,
		log:    log,
	}
}

// Begin enters the checkout flow. An empty cart is refused outright and the
// payment machine is reset to a fresh idle state.
func (o *Orchestrator) Begin() error {
	if !o.cart.CanCheckout() {
		return ErrEmptyCart
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = true
	o.step = StepShipping
	o.guestData = nil
	o.shipping = nil
	o.card = nil
	o.order = nil
	o.pay.Reset()
	return nil
}

// NeedsGuestData reports whether guest checkout data must still be collected
// before shipping and payment unlock.
func (o *Orchestrator) NeedsGuestData() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.auth.IsGuest() && o.guestData == nil
}

// SetGuestCheckoutData records the guest identity for this checkout session.
func (o *Orchestrator) SetGuestCheckoutData(data domain.GuestCheckoutData) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.started {
		return ErrNotStarted
	}
	if !strings.Contains(data.Email, "@") || data.ShippingAddress.Street == "" ||
		data.ShippingAddress.City == "" || data.ShippingAddress.Zip == "" {
		return ErrInvalidGuestData
	}
	copied := data
	o.guestData = &copied
	if o.shipping == nil {
		addr := data.ShippingAddress
		o.shipping = &addr
	}
	return nil
}

func (o *Orchestrator) SetShippingAddress(addr domain.Address) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.started {
		return ErrNotStarted
	}
	o.shipping = &addr
	return nil
}

// Ready reports whether checkout can proceed past identity collection:
// a non-empty cart and either an authenticated user or completed guest data.
// Authentication itself is never required.
func (o *Orchestrator) Ready() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.started || !o.cart.CanCheckout() {
		return false
	}
	return o.auth.IsAuthenticated() || o.guestData != nil
}

// SelectPaymentMethod gates the payment details step: card methods must carry
// card data that passes validation before the step unlocks.
func (o *Orchestrator) SelectPaymentMethod(method domain.PaymentMethod, card *domain.CardData) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.started {
		return ErrNotStarted
	}
	if o.step != StepShipping && o.step != StepPayment {
		return ErrStepLocked
	}
	if o.auth.IsGuest() && o.guestData == nil {
		return ErrGuestDataMissing
	}
	if o.shipping == nil {
		return ErrShippingMissing
	}
	if method.IsCardBased() {
		if err := payment.ValidateCard(card, timeNow()); err != nil {
			return err
		}
		o.card = card
	}
	o.pay.SelectMethod(method)
	o.step = StepPayment
	return nil
}

// AdvanceToReview moves to the review step once a method is in place.
func (o *Orchestrator) AdvanceToReview() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.started {
		return ErrNotStarted
	}
	if o.step != StepPayment {
		return ErrStepLocked
	}
	if o.pay.Method() == "" {
		return ErrMethodMissing
	}
	o.step = StepReview
	return nil
}

// ReviewTotals computes the figures displayed on the review screen:
// subtotal, flat-rate shipping (free above the threshold) and 8% tax.
func (o *Orchestrator) ReviewTotals() Totals {
	subtotal := o.cart.Total()
	shipping := ShippingFlatRate
	if subtotal >= FreeShippingThreshold {
		shipping = 0
	}
	tax := roundCents(subtotal * TaxRate)
	return Totals{
		Subtotal:     roundCents(subtotal),
		ShippingCost: shipping,
		Tax:          tax,
		Total:        roundCents(subtotal + shipping + tax),
	}
}

// SubmitPayment drives the payment attempt and, on success, creates the order
// best-effort. The charged amount is the subtotal in minor units only; the
// shipping and tax shown on review are not part of the charge. That
// divergence is long-standing observed behavior and is kept intact.
func (o *Orchestrator) SubmitPayment(ctx context.Context) (*domain.PaymentResponse, error) {
	o.mu.Lock()
	if !o.started {
		o.mu.Unlock()
		return nil, ErrNotStarted
	}
	if o.step != StepReview {
		o.mu.Unlock()
		return nil, ErrStepLocked
	}
	req := o.buildRequestLocked()
	o.mu.Unlock()

	resp, err := o.pay.Submit(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.Success {
		o.completeOrder(ctx, resp, req.OrderData)
	}
	return resp, nil
}

// RetryPayment replays a failed attempt through the payment machine's bounded
// retry.
func (o *Orchestrator) RetryPayment(ctx context.Context) (*domain.PaymentResponse, error) {
	resp, err := o.pay.Retry(ctx)
	if err != nil {
		return nil, err
	}
	if resp.Success {
		o.mu.Lock()
		draft := o.draftLocked()
		o.mu.Unlock()
		o.completeOrder(ctx, resp, draft)
	}
	return resp, nil
}

// completeOrder records the order after a successful payment. Order creation
// is best-effort: a failure is logged and the checkout still confirms.
func (o *Orchestrator) completeOrder(ctx context.Context, resp *domain.PaymentResponse, draft *domain.OrderDraft) {
	order, err := o.orders.CreateOrder(ctx, resp, draft)
	if err != nil {
		o.log.Error("order creation failed after successful payment",
			"transaction_id", resp.TransactionID, "error", err)
	}

	o.mu.Lock()
	o.order = order
	o.step = StepConfirmation
	o.mu.Unlock()
}

func (o *Orchestrator) buildRequestLocked() *domain.PaymentRequest {
	subtotal := o.cart.Total()
	return &domain.PaymentRequest{
		Amount:         int64(math.Round(subtotal * 100)),
		Currency:       Currency,
		Method:         o.pay.Method(),
		Card:           o.card,
		BillingAddress: o.shipping,
		OrderData:      o.draftLocked(),
	}
}

func (o *Orchestrator) draftLocked() *domain.OrderDraft {
	totals := o.ReviewTotals()
	items := o.cart.Items()
	orderItems := make([]domain.OrderItem, len(items))
	for i, item := range items {
		orderItems[i] = domain.OrderItem{
			ProductID:   item.ProductID,
			ProductName: item.Name,
			Quantity:    item.Quantity,
			Price:       item.Price,
		}
	}

	email := ""
	if user := o.auth.CurrentUser(); user != nil {
		email = user.Email
	} else if o.guestData != nil {
		email = o.guestData.Email
	}

	var addr domain.Address
	if o.shipping != nil {
		addr = *o.shipping
	}
	return &domain.OrderDraft{
		SessionID:       o.auth.SessionID(),
		Email:           email,
		Items:           orderItems,
		Subtotal:        totals.Subtotal,
		ShippingCost:    totals.ShippingCost,
		Tax:             totals.Tax,
		Total:           totals.Total,
		Currency:        Currency,
		ShippingAddress: addr,
		BillingAddress:  addr,
	}
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

func (o *Orchestrator) CurrentStep() Step {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.step
}

func (o *Orchestrator) Order() *domain.Order {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.order
}
