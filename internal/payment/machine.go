// Package payment drives a single payment attempt through
// idle -> processing -> success|failed, with bounded retry.
package payment

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/oakmart/storefront/internal/domain"
)

// MaxRetries bounds how many times a failed attempt may be replayed.
const MaxRetries = 3

var (
	// ErrAlreadyProcessing is returned when a submit arrives while an
	// attempt is in flight. The processor is not invoked.
	ErrAlreadyProcessing = errors.New("payment already processing")
	// ErrRetryLimit is returned once the retry cap is reached.
	ErrRetryLimit = errors.New("payment retry limit reached")
	// ErrNotRetryable is returned when retry is requested outside the
	// failed state.
	ErrNotRetryable = errors.New("payment is not in a retryable state")
	// ErrIllegalTransition guards the status table.
	ErrIllegalTransition = errors.New("illegal payment status transition")
)

// Processor is the external payment collaborator.
type Processor interface {
	ProcessPayment(ctx context.Context, req *domain.PaymentRequest) (*domain.PaymentResponse, error)
}

type Machine struct {
	mu   sync.Mutex
	proc Processor
	log  *slog.Logger
	now  func() time.Time

	status   domain.PaymentStatus
	method   domain.PaymentMethod
	lastReq  *domain.PaymentRequest
	lastResp *domain.PaymentResponse
	errMsg   string
	errCode  string
	retries  int
}

func NewMachine(proc Processor, log *slog.Logger) *Machine {
	return &Machine{
		proc:   proc,
		log:    log,
		now:    time.Now,
		status: domain.PaymentStatusIdle,
	}
}

// SelectMethod stores the payment method. The status does not change.
func (m *Machine) SelectMethod(method domain.PaymentMethod) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.method = method
}

// Submit validates the request synchronously, then drives one attempt to a
// terminal state. Validation failures never reach the processor. A submit
// while an attempt is processing is rejected outright.
func (m *Machine) Submit(ctx context.Context, req *domain.PaymentRequest) (*domain.PaymentResponse, error) {
	m.mu.Lock()
	if m.status == domain.PaymentStatusProcessing {
		m.mu.Unlock()
		return nil, ErrAlreadyProcessing
	}

	if err := ValidateRequest(req, m.now()); err != nil {
		m.errMsg = err.Error()
		m.errCode = domain.ErrCodeValidation
		m.mu.Unlock()
		return nil, err
	}

	if !m.status.CanTransitionTo(domain.PaymentStatusProcessing) {
		m.mu.Unlock()
		return nil, ErrIllegalTransition
	}
	m.status = domain.PaymentStatusProcessing
	m.lastReq = req
	m.mu.Unlock()

	return m.process(ctx, req)
}

// Retry replays the last failed request. The cap is enforced here, not in
// the UI: past MaxRetries the processor is never invoked.
func (m *Machine) Retry(ctx context.Context) (*domain.PaymentResponse, error) {
	m.mu.Lock()
	if m.status != domain.PaymentStatusFailed {
		m.mu.Unlock()
		return nil, ErrNotRetryable
	}
	if m.retries >= MaxRetries {
		m.mu.Unlock()
		return nil, ErrRetryLimit
	}
	m.retries++
	m.status = domain.PaymentStatusProcessing
	req := m.lastReq
	m.mu.Unlock()

	return m.process(ctx, req)
}

func (m *Machine) process(ctx context.Context, req *domain.PaymentRequest) (*domain.PaymentResponse, error) {
	resp, err := m.proc.ProcessPayment(ctx, req)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		m.status = domain.PaymentStatusFailed
		m.errMsg = err.Error()
		m.errCode = domain.ErrCodeNetworkError
		m.log.Warn("payment attempt failed", "error", err)
		return nil, err
	}

	m.lastResp = resp
	if resp.Success {
		m.status = domain.PaymentStatusSuccess
		m.errMsg = ""
		m.errCode = ""
		m.retries = 0
	} else {
		m.status = domain.PaymentStatusFailed
		m.errMsg = resp.Error
		m.errCode = resp.ErrorCode
	}
	return resp, nil
}

// Cancel abandons the current attempt.
func (m *Machine) Cancel() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.status.CanTransitionTo(domain.PaymentStatusCancelled) {
		return ErrIllegalTransition
	}
	m.status = domain.PaymentStatusCancelled
	return nil
}

// Reset returns the machine to a fresh idle state. Used when re-entering
// checkout.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = domain.PaymentStatusIdle
	m.method = ""
	m.lastReq = nil
	m.lastResp = nil
	m.errMsg = ""
	m.errCode = ""
	m.retries = 0
}

// CanRetry is true only while the attempt is failed and the cap has not been
// reached.
func (m *Machine) CanRetry() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status == domain.PaymentStatusFailed && m.retries < MaxRetries
}

func (m *Machine) Status() domain.PaymentStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *Machine) Method() domain.PaymentMethod {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.method
}

func (m *Machine) Response() *domain.PaymentResponse {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastResp
}

func (m *Machine) RetryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.retries
}

func (m *Machine) ErrorMessage() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errMsg
}

func (m *Machine) ErrorCode() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errCode
}
