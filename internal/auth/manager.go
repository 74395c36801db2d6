// Package auth tracks who is checking out: an authenticated user or a guest
// session. Authentication is a convenience, never a checkout gate.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/oakmart/storefront/internal/domain"
	"github.com/oakmart/storefront/internal/storage"
)

// RequireAuthForCheckout is deliberately hard-coded false: guest checkout is
// always permitted.
const RequireAuthForCheckout = false

// Service is the external auth collaborator.
type Service interface {
	Login(ctx context.Context, email, password string) (*domain.User, string, error)
	Register(ctx context.Context, email, password, name string) (*domain.User, string, error)
	GetProfile(ctx context.Context, token string) (*domain.User, error)
}

type State string

const (
	StateLoading       State = "LOADING"
	StateGuest         State = "GUEST"
	StateAuthenticated State = "AUTHENTICATED"
)

type Manager struct {
	mu    sync.Mutex
	store storage.Store
	svc   Service
	log   *slog.Logger

	state   State
	user    *domain.User
	token   string
	guestID string
	lastErr string
}

func NewManager(store storage.Store, svc Service, log *slog.Logger) *Manager {
	return &Manager{
		store: store,
		svc:   svc,
		log:   log,
		state: StateLoading,
	}
}

// Initialize validates any stored token by fetching the profile. Absence or
// failure demotes to guest; the guest session id is generated once and reused
// across restarts.
func (m *Manager) Initialize(ctx context.Context) {
	token, err := m.store.Get(storage.KeyToken)
	if err == nil && len(token) > 0 {
		user, profErr := m.svc.GetProfile(ctx, string(token))
		if profErr == nil {
			m.mu.Lock()
			m.state = StateAuthenticated
			m.user = user
			m.token = string(token)
			m.mu.Unlock()
			return
		}
		m.log.Info("stored token rejected, falling back to guest", "error", profErr)
		_ = m.store.Delete(storage.KeyToken)
		_ = m.store.Delete(storage.KeyUser)
	}
	m.becomeGuest(false)
}

// becomeGuest enters the guest state. With regenerate false an existing
// persisted session id is reused, keeping startup idempotent across reloads.
func (m *Manager) becomeGuest(regenerate bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = StateGuest
	m.user = nil
	m.token = ""

	if !regenerate {
		if data, err := m.store.Get(storage.KeyGuestSession); err == nil && len(data) > 0 {
			m.guestID = string(data)
			return
		}
	}
	m.guestID = "guest_" + uuid.NewString()
	if err := m.store.Set(storage.KeyGuestSession, []byte(m.guestID)); err != nil {
		m.log.Warn("failed to persist guest session", "error", err)
	}
}

// Login authenticates via the external service. Failure leaves the current
// state fully intact.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	user, token, err := m.svc.Login(ctx, email, password)
	if err != nil {
		m.mu.Lock()
		m.lastErr = err.Error()
		m.mu.Unlock()
		return fmt.Errorf("login failed: %w", err)
	}
	m.promote(user, token)
	return nil
}

// Register creates an account and behaves like a completed login on success.
func (m *Manager) Register(ctx context.Context, email, password, name string) error {
	user, token, err := m.svc.Register(ctx, email, password, name)
	if err != nil {
		m.mu.Lock()
		m.lastErr = err.Error()
		m.mu.Unlock()
		return fmt.Errorf("registration failed: %w", err)
	}
	m.promote(user, token)
	return nil
}

// ConvertGuestToUser registers an account from the current guest session.
func (m *Manager) ConvertGuestToUser(ctx context.Context, data domain.GuestCheckoutData, password, name string) error {
	return m.Register(ctx, data.Email, password, name)
}

// Logout clears authenticated state and re-enters guest with a fresh session.
func (m *Manager) Logout() {
	_ = m.store.Delete(storage.KeyToken)
	_ = m.store.Delete(storage.KeyUser)
	m.becomeGuest(true)
}

func (m *Manager) promote(user *domain.User, token string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = StateAuthenticated
	m.user = user
	m.token = token
	m.guestID = ""
	m.lastErr = ""

	if err := m.store.Set(storage.KeyToken, []byte(token)); err != nil {
		m.log.Warn("failed to persist token", "error", err)
	}
	if data, err := json.Marshal(user); err == nil {
		if err := m.store.Set(storage.KeyUser, data); err != nil {
			m.log.Warn("failed to persist user", "error", err)
		}
	}
	_ = m.store.Delete(storage.KeyGuestSession)
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) IsAuthenticated() bool {
	return m.State() == StateAuthenticated
}

func (m *Manager) IsGuest() bool {
	return m.State() == StateGuest
}

func (m *Manager) CurrentUser() *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user
}

// SessionID is the checkout identity: the user id when authenticated, the
// guest session id otherwise.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user != nil {
		return m.user.ID
	}
	return m.guestID
}

func (m *Manager) GuestSessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.guestID
}

// Token returns the current auth token, empty for guests.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

func (m *Manager) Err() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}
