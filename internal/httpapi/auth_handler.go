package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/oakmart/storefront/internal/account"
	"github.com/oakmart/storefront/internal/domain"
)

type AuthService interface {
	Register(ctx context.Context, email, password, name string) (*domain.User, string, error)
	Login(ctx context.Context, email, password string) (*domain.User, string, error)
	GetProfile(ctx context.Context, token string) (*domain.User, error)
	Logout(ctx context.Context, token string) error
}

type AuthHandler struct {
	auth    AuthService
	timeout time.Duration
}

func NewAuthHandler(auth AuthService, timeout time.Duration) *AuthHandler {
	return &AuthHandler{
		auth:    auth,
		timeout: timeout,
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

type sessionResponse struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	user, token, err := h.auth.Register(ctx, req.Email, req.Password, req.Name)
	switch {
	case errors.Is(err, account.ErrInvalidEmail) || errors.Is(err, account.ErrPasswordTooShort):
		respondError(w, http.StatusUnprocessableEntity, "invalid_credentials_format", err.Error())
		return
	case errors.Is(err, account.ErrEmailTaken):
		respondError(w, http.StatusConflict, "email_taken", err.Error())
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to register")
		return
	}

	respondJSON(w, http.StatusCreated, sessionResponse{User: user, Token: token})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	user, token, err := h.auth.Login(ctx, req.Email, req.Password)
	if errors.Is(err, account.ErrInvalidCredentials) {
		respondError(w, http.StatusUnauthorized, "invalid_credentials", err.Error())
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to log in")
		return
	}

	respondJSON(w, http.StatusOK, sessionResponse{User: user, Token: token})
}

func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	token := bearerToken(r)
	if token == "" {
		respondError(w, http.StatusUnauthorized, "missing_token", "bearer token required")
		return
	}

	user, err := h.auth.GetProfile(ctx, token)
	if errors.Is(err, account.ErrInvalidToken) {
		respondError(w, http.StatusUnauthorized, "invalid_token", err.Error())
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load profile")
		return
	}

	respondJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	token := bearerToken(r)
	if token == "" {
		respondError(w, http.StatusUnauthorized, "missing_token", "bearer token required")
		return
	}

	if err := h.auth.Logout(ctx, token); err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to log out")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(auth, "Bearer ")
}
