// Package cart holds the local-first cart state machine. Local state is
// authoritative: every mutation applies locally, persists to local storage,
// and is mirrored to the remote cart on a best-effort basis. A failed mirror
// never rolls the local mutation back.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oakmart/storefront/internal/domain"
	"github.com/oakmart/storefront/internal/storage"
)

// Mirror is the remote cart collaborator. Best-effort, never authoritative.
type Mirror interface {
	GetCart(ctx context.Context) ([]domain.CartItem, error)
	AddItem(ctx context.Context, item domain.CartItem) error
	UpdateQuantity(ctx context.Context, productID int64, quantity int) error
	RemoveItem(ctx context.Context, productID int64) error
	Clear(ctx context.Context) error
}

// Manager maintains the shopper's cart. All mutations are synchronous on
// local state; mirror writes run in the background when an auth token is
// present.
type Manager struct {
	mu     sync.Mutex
	store  storage.Store
	mirror Mirror
	token  func() string
	log    *slog.Logger

	items   []domain.CartItem
	syncing bool
	lastErr string
}

func NewManager(store storage.Store, mirror Mirror, token func() string, log *slog.Logger) *Manager {
	m := &Manager{
		store:  store,
		mirror: mirror,
		token:  token,
		log:    log,
	}
	m.hydrate()
	return m
}

// hydrate loads the persisted line items. A malformed blob surfaces as an
// error flag, never a panic; the cart starts empty in that case.
func (m *Manager) hydrate() {
	data, err := m.store.Get(storage.KeyCart)
	if errors.Is(err, storage.ErrNotFound) {
		return
	}
	if err != nil {
		m.lastErr = fmt.Sprintf("failed to load cart: %v", err)
		return
	}
	var items []domain.CartItem
	if err := json.Unmarshal(data, &items); err != nil {
		m.lastErr = fmt.Sprintf("failed to load cart: %v", err)
		return
	}
	m.items = items
}

// AddToCart merges into an existing line by product id (quantities summed) or
// inserts a new line with the price snapshotted from the product passed in.
func (m *Manager) AddToCart(product domain.Product, quantity int) {
	if quantity < 1 {
		quantity = 1
	}

	m.mu.Lock()
	var line domain.CartItem
	if idx := m.indexOf(product.ID); idx >= 0 {
		m.items[idx].Quantity += quantity
		line = m.items[idx]
	} else {
		line = domain.CartItem{
			ID:        uuid.NewString(),
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  quantity,
			Image:     product.ImageURL,
			AddedAt:   time.Now(),
		}
		m.items = append(m.items, line)
	}
	m.persistLocked()
	m.mu.Unlock()

	m.mirrorAsync("add item", func(ctx context.Context) error {
		return m.mirror.AddItem(ctx, line)
	})
}

// UpdateQuantity replaces a line's quantity. Zero or negative removes the
// line; quantity is never persisted as 0.
func (m *Manager) UpdateQuantity(productID int64, quantity int) {
	if quantity <= 0 {
		m.RemoveFromCart(productID)
		return
	}

	m.mu.Lock()
	idx := m.indexOf(productID)
	if idx < 0 {
		m.mu.Unlock()
		return
	}
	m.items[idx].Quantity = quantity
	m.persistLocked()
	m.mu.Unlock()

	m.mirrorAsync("update quantity", func(ctx context.Context) error {
		return m.mirror.UpdateQuantity(ctx, productID, quantity)
	})
}

func (m *Manager) RemoveFromCart(productID int64) {
	m.mu.Lock()
	idx := m.indexOf(productID)
	if idx < 0 {
		m.mu.Unlock()
		return
	}
	m.items = append(m.items[:idx], m.items[idx+1:]...)
	m.persistLocked()
	m.mu.Unlock()

	m.mirrorAsync("remove item", func(ctx context.Context) error {
		return m.mirror.RemoveItem(ctx, productID)
	})
}

func (m *Manager) ClearCart() {
	m.mu.Lock()
	m.items = nil
	m.persistLocked()
	m.mu.Unlock()

	m.mirrorAsync("clear cart", func(ctx context.Context) error {
		return m.mirror.Clear(ctx)
	})
}

// SyncWithServer fetches the remote cart and merges it by product id with
// local lines taking precedence: remote-only lines are appended, conflicting
// lines keep the local values. A fetch failure leaves local state untouched
// and records the error.
func (m *Manager) SyncWithServer(ctx context.Context) error {
	m.mu.Lock()
	m.syncing = true
	m.mu.Unlock()

	remote, err := m.mirror.GetCart(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncing = false
	if err != nil {
		m.lastErr = fmt.Sprintf("cart sync failed: %v", err)
		m.log.Warn("cart sync failed", "error", err)
		return fmt.Errorf("cart sync failed: %w", err)
	}

	for _, item := range remote {
		if m.indexOf(item.ProductID) >= 0 {
			continue // local wins
		}
		m.items = append(m.items, item)
	}
	m.persistLocked()
	m.lastErr = ""
	return nil
}

func (m *Manager) GetItemQuantity(productID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if idx := m.indexOf(productID); idx >= 0 {
		return m.items[idx].Quantity
	}
	return 0
}

func (m *Manager) IsInCart(productID int64) bool {
	return m.GetItemQuantity(productID) > 0
}

// Items returns a copy of the current lines in insertion order.
func (m *Manager) Items() []domain.CartItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.CartItem, len(m.items))
	copy(out, m.items)
	return out
}

func (m *Manager) Total() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total float64
	for _, item := range m.items {
		total += item.Price * float64(item.Quantity)
	}
	return total
}

func (m *Manager) ItemCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int
	for _, item := range m.items {
		count += item.Quantity
	}
	return count
}

// CanCheckout reports whether the cart can enter the checkout flow.
func (m *Manager) CanCheckout() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items) > 0
}

func (m *Manager) Syncing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.syncing
}

// Err returns the last non-fatal error, empty when none.
func (m *Manager) Err() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

func (m *Manager) indexOf(productID int64) int {
	for i := range m.items {
		if m.items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func (m *Manager) persistLocked() {
	data, err := json.Marshal(m.items)
	if err != nil {
		m.lastErr = fmt.Sprintf("failed to persist cart: %v", err)
		return
	}
	if err := m.store.Set(storage.KeyCart, data); err != nil {
		m.lastErr = fmt.Sprintf("failed to persist cart: %v", err)
	}
}

// mirrorAsync runs a best-effort remote write. Skipped entirely for guests;
// failures only set the error flag.
func (m *Manager) mirrorAsync(op string, fn func(ctx context.Context) error) {
	if m.mirror == nil || m.token() == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := fn(ctx); err != nil {
			m.log.Warn("cart mirror failed", "op", op, "error", err)
			m.mu.Lock()
			m.lastErr = fmt.Sprintf("cart mirror failed: %v", err)
			m.mu.Unlock()
		}
	}()
}
