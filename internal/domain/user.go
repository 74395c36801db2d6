package domain

import "time"

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Address is a shipping or billing address.
type Address struct {
	Street    string `json:"street"`
	Apartment string `json:"apartment,omitempty"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip"`
	Country   string `json:"country"`
}

// GuestCheckoutData identifies an unauthenticated shopper for the duration of
// a single checkout. It is not persisted beyond the checkout session unless
// the shopper converts to a registered account.
type GuestCheckoutData struct {
	Email           string  `json:"email"`
	Phone           string  `json:"phone,omitempty"`
	ShippingAddress Address `json:"shipping_address"`
}
