// Package account hosts the server side of authentication: user records,
// password verification and opaque session tokens. Clients never see the
// password hash; they hold only the token and refresh their profile with it.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/oakmart/storefront/internal/domain"
)

const sessionTTL = 7 * 24 * time.Hour

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrInvalidEmail       = errors.New("a valid email is required")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
)

type Service struct {
	repo Repository
	log  *slog.Logger
	now  func() time.Time
}

func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
		now:  time.Now,
	}
}

// Register creates the account and signs it in, returning the fresh session
// token alongside the user.
func (s *Service) Register(ctx context.Context, email, password, name string) (*domain.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !strings.Contains(email, "@") {
		return nil, "", ErrInvalidEmail
	}
	if len(password) < 8 {
		return nil, "", ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      strings.TrimSpace(name),
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.CreateUser(ctx, user, string(hash)); err != nil {
		return nil, "", err
	}

	token, err := s.issueSession(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}

	s.log.Info("account registered", "user_id", user.ID)
	return user, token, nil
}

// Login verifies the password and issues a session token. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, hash, err := s.repo.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", fmt.Errorf("look up user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.issueSession(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// GetProfile resolves a session token back to its user. Expired sessions are
// reaped on sight.
func (s *Service) GetProfile(ctx context.Context, token string) (*domain.User, error) {
	session, user, err := s.repo.GetSession(ctx, token)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("look up session: %w", err)
	}

	if s.now().After(session.ExpiresAt) {
		if err := s.repo.DeleteSession(ctx, token); err != nil {
			s.log.Warn("failed to delete expired session", "error", err)
		}
		return nil, ErrInvalidToken
	}
	return user, nil
}

// Logout invalidates the token. Unknown tokens are a no-op: the outcome the
// caller wanted already holds.
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.repo.DeleteSession(ctx, token); err != nil && !errors.Is(err, ErrSessionNotFound) {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *Service) issueSession(ctx context.Context, userID string) (string, error) {
	session := &Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		ExpiresAt: s.now().UTC().Add(sessionTTL),
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return session.Token, nil
}
