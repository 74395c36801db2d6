package client

import (
	"context"
	"fmt"
	"time"

	"github.com/oakmart/storefront/internal/domain"
)

// CartClient mirrors local cart mutations to the remote cart API. It
// implements the cart.Mirror contract.
type CartClient struct {
	*baseClient
	session func() string
	token   func() string
}

func NewCartClient(baseURL string, timeout time.Duration, session, token func() string) *CartClient {
	return &CartClient{
		baseClient: newBaseClient(baseURL, "cart-mirror", timeout),
		session:    session,
		token:      token,
	}
}

func (c *CartClient) headers() map[string]string {
	h := map[string]string{"X-Session-ID": c.session()}
	if t := c.token(); t != "" {
		h["Authorization"] = "Bearer " + t
	}
	return h
}

func (c *CartClient) GetCart(ctx context.Context) ([]domain.CartItem, error) {
	var cart domain.Cart
	if err := c.doJSON(ctx, "GET", "/api/v1/cart", c.headers(), nil, &cart); err != nil {
		return nil, err
	}
	return cart.Items, nil
}

func (c *CartClient) AddItem(ctx context.Context, item domain.CartItem) error {
	return c.doJSON(ctx, "POST", "/api/v1/cart/items", c.headers(), item, nil)
}

func (c *CartClient) UpdateQuantity(ctx context.Context, productID int64, quantity int) error {
	path := fmt.Sprintf("/api/v1/cart/items/%d", productID)
	body := map[string]int{"quantity": quantity}
	return c.doJSON(ctx, "PUT", path, c.headers(), body, nil)
}

func (c *CartClient) RemoveItem(ctx context.Context, productID int64) error {
	path := fmt.Sprintf("/api/v1/cart/items/%d", productID)
	return c.doJSON(ctx, "DELETE", path, c.headers(), nil, nil)
}

func (c *CartClient) Clear(ctx context.Context) error {
	return c.doJSON(ctx, "DELETE", "/api/v1/cart", c.headers(), nil, nil)
}
