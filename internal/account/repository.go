package account

import (
	"context"
	"errors"
	"time"

	"github.com/oakmart/storefront/internal/domain"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrSessionNotFound = errors.New("session not found")
	// ErrEmailTaken maps the unique email constraint: one account per address.
	ErrEmailTaken = errors.New("email already registered")
)

// Session is an opaque bearer token bound to a user for a limited time.
type Session struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
}

type Repository interface {
	CreateUser(ctx context.Context, user *domain.User, passwordHash string) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, string, error)
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, token string) (*Session, *domain.User, error)
	DeleteSession(ctx context.Context, token string) error
}
