package client

import (
	"context"
	"time"

	"github.com/oakmart/storefront/internal/domain"
)

// AuthClient talks to the external auth service. Token issuance and
// verification live there; this side only stores the opaque token.
type AuthClient struct {
	*baseClient
}

func NewAuthClient(baseURL string, timeout time.Duration) *AuthClient {
	return &AuthClient{baseClient: newBaseClient(baseURL, "auth-service", timeout)}
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

func (c *AuthClient) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	var resp sessionResponse
	err := c.doJSON(ctx, "POST", "/api/v1/auth/login", nil, credentialsRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return nil, "", err
	}
	return resp.User, resp.Token, nil
}

func (c *AuthClient) Register(ctx context.Context, email, password, name string) (*domain.User, string, error) {
	var resp sessionResponse
	err := c.doJSON(ctx, "POST", "/api/v1/auth/register", nil, credentialsRequest{Email: email, Password: password, Name: name}, &resp)
	if err != nil {
		return nil, "", err
	}
	return resp.User, resp.Token, nil
}

func (c *AuthClient) GetProfile(ctx context.Context, token string) (*domain.User, error) {
	var user domain.User
	headers := map[string]string{"Authorization": "Bearer " + token}
	if err := c.doJSON(ctx, "GET", "/api/v1/auth/profile", headers, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
