package auth

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakmart/storefront/internal/domain"
	"github.com/oakmart/storefront/internal/storage"
)

type mockService struct {
	m          sync.Mutex
	user       *domain.User
	token      string
	loginErr   error
	profileErr error
}

func (s *mockService) Login(_ context.Context, email, _ string) (*domain.User, string, error) {
	s.m.Lock()
	defer s.m.Unlock()
	if s.loginErr != nil {
		return nil, "", s.loginErr
	}
	if s.user == nil {
		s.user = &domain.User{ID: "user-1", Email: email, Name: "Test User"}
	}
	return s.user, s.token, nil
}

func (s *mockService) Register(_ context.Context, email, _, name string) (*domain.User, string, error) {
	s.m.Lock()
	defer s.m.Unlock()
	if s.loginErr != nil {
		return nil, "", s.loginErr
	}
	s.user = &domain.User{ID: "user-new", Email: email, Name: name}
	return s.user, s.token, nil
}

func (s *mockService) GetProfile(context.Context, string) (*domain.User, error) {
	s.m.Lock()
	defer s.m.Unlock()
	if s.profileErr != nil {
		return nil, s.profileErr
	}
	return s.user, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestInitialize_NoTokenBecomesGuest(t *testing.T) {
	store := storage.NewMemoryStore()
	sut := NewManager(store, &mockService{}, testLogger())

	sut.Initialize(context.Background())

	assert.Equal(t, StateGuest, sut.State())
	assert.True(t, sut.IsGuest())
	assert.True(t, strings.HasPrefix(sut.GuestSessionID(), "guest_"))
	assert.Empty(t, sut.Token())
}

func TestInitialize_GuestSessionIdempotentAcrossRestarts(t *testing.T) {
	store := storage.NewMemoryStore()

	first := NewManager(store, &mockService{}, testLogger())
	first.Initialize(context.Background())
	sessionID := first.GuestSessionID()
	require.NotEmpty(t, sessionID)

	// Same store, fresh manager: the persisted guest id is reused.
	second := NewManager(store, &mockService{}, testLogger())
	second.Initialize(context.Background())

	assert.Equal(t, sessionID, second.GuestSessionID())
}

func TestInitialize_ValidTokenRestoresSession(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := &mockService{user: &domain.User{ID: "user-1", Email: "a@b.com"}, token: "tok-1"}
	require.NoError(t, store.Set(storage.KeyToken, []byte("tok-1")))

	sut := NewManager(store, svc, testLogger())
	sut.Initialize(context.Background())

	assert.Equal(t, StateAuthenticated, sut.State())
	assert.Equal(t, "tok-1", sut.Token())
	assert.Equal(t, "user-1", sut.SessionID())
}

func TestInitialize_RejectedTokenFallsBackToGuest(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := &mockService{profileErr: fmt.Errorf("token expired")}
	require.NoError(t, store.Set(storage.KeyToken, []byte("stale")))

	sut := NewManager(store, svc, testLogger())
	sut.Initialize(context.Background())

	assert.Equal(t, StateGuest, sut.State())
	_, err := store.Get(storage.KeyToken)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLogin_Success(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := &mockService{token: "tok-9"}
	sut := NewManager(store, svc, testLogger())
	sut.Initialize(context.Background())

	require.NoError(t, sut.Login(context.Background(), "a@b.com", "pw"))

	assert.True(t, sut.IsAuthenticated())
	assert.Equal(t, "tok-9", sut.Token())
	require.NotNil(t, sut.CurrentUser())
	assert.Equal(t, "a@b.com", sut.CurrentUser().Email)

	tok, err := store.Get(storage.KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "tok-9", string(tok))

	// The guest session is discarded on promotion.
	_, err = store.Get(storage.KeyGuestSession)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLogin_FailureLeavesStateIntact(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := &mockService{loginErr: fmt.Errorf("invalid credentials")}
	sut := NewManager(store, svc, testLogger())
	sut.Initialize(context.Background())
	guestID := sut.GuestSessionID()

	err := sut.Login(context.Background(), "a@b.com", "wrong")

	require.Error(t, err)
	assert.True(t, sut.IsGuest())
	assert.Equal(t, guestID, sut.GuestSessionID())
	assert.Equal(t, guestID, sut.SessionID())
	assert.NotEmpty(t, sut.Err())
}

func TestRegister_BehavesLikeLogin(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := &mockService{token: "tok-reg"}
	sut := NewManager(store, svc, testLogger())
	sut.Initialize(context.Background())

	require.NoError(t, sut.Register(context.Background(), "new@b.com", "pw", "New User"))

	assert.True(t, sut.IsAuthenticated())
	assert.Equal(t, "user-new", sut.SessionID())
}

func TestLogout_RegeneratesGuestSession(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := &mockService{token: "tok-1"}
	sut := NewManager(store, svc, testLogger())
	sut.Initialize(context.Background())
	firstGuestID := sut.GuestSessionID()

	require.NoError(t, sut.Login(context.Background(), "a@b.com", "pw"))
	sut.Logout()

	assert.True(t, sut.IsGuest())
	assert.Empty(t, sut.Token())
	assert.Nil(t, sut.CurrentUser())
	assert.NotEmpty(t, sut.GuestSessionID())
	assert.NotEqual(t, firstGuestID, sut.GuestSessionID(), "logout must mint a fresh guest session")

	_, err := store.Get(storage.KeyToken)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestConvertGuestToUser(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := &mockService{token: "tok-conv"}
	sut := NewManager(store, svc, testLogger())
	sut.Initialize(context.Background())

	data := domain.GuestCheckoutData{Email: "guest@b.com"}
	require.NoError(t, sut.ConvertGuestToUser(context.Background(), data, "pw", "Converted"))

	assert.True(t, sut.IsAuthenticated())
	assert.Equal(t, "guest@b.com", sut.CurrentUser().Email)
}

func TestCheckoutNeverRequiresAuth(t *testing.T) {
	assert.False(t, RequireAuthForCheckout)
}
