package domain

import "time"

// CartItem is one line in a cart, uniquely keyed by ProductID. Price is
// snapshotted when the line is created and is not re-fetched afterwards.
type CartItem struct {
	ID        string    `json:"id" bson:"id"`
	ProductID int64     `json:"productId" bson:"product_id"`
	Name      string    `json:"name" bson:"name"`
	Price     float64   `json:"price" bson:"price"`
	Quantity  int       `json:"quantity" bson:"quantity"`
	Image     string    `json:"image,omitempty" bson:"image,omitempty"`
	AddedAt   time.Time `json:"addedAt" bson:"added_at"`
}

// Cart is the server-side view of a shopper's cart, keyed by session id
// (guest session or user id).
type Cart struct {
	ID        string     `json:"id,omitempty" bson:"_id,omitempty"`
	SessionID string     `json:"session_id" bson:"session_id"`
	Items     []CartItem `json:"items" bson:"items"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" bson:"updated_at"`
}

// Total is the sum of price*quantity over all lines.
func (c *Cart) Total() float64 {
	var total float64
	for _, item := range c.Items {
		total += item.Price * float64(item.Quantity)
	}
	return total
}

// ItemCount is the sum of quantities over all lines.
func (c *Cart) ItemCount() int {
	var count int
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}
