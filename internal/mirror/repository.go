package mirror

import (
	"context"
	"errors"

	"github.com/oakmart/storefront/internal/domain"
)

var (
	ErrCartNotFound = errors.New("cart not found")
	ErrItemNotFound = errors.New("item not found in cart")
)

// CartRepository defines the persistence contract for server-side carts.
// Consumers define this interface, not the MongoDB implementation.
type CartRepository interface {
	GetCart(ctx context.Context, sessionID string) (*domain.Cart, error)
	UpsertCart(ctx context.Context, cart *domain.Cart) error
	AddItem(ctx context.Context, sessionID string, item domain.CartItem) error
	UpdateItemQuantity(ctx context.Context, sessionID string, productID int64, quantity int) error
	RemoveItem(ctx context.Context, sessionID string, productID int64) error
	DeleteCart(ctx context.Context, sessionID string) error
}
