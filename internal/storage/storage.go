// Package storage is the shopper-local durable state: the cart blob, the
// guest session id and the auth token/user survive restarts through it.
package storage

import "errors"

// Keys under which client state is persisted. The layout is load-bearing:
// existing state written by earlier versions must keep round-tripping.
const (
	KeyCart         = "cart"
	KeyGuestSession = "guestSessionId"
	KeyToken        = "token"
	KeyUser         = "user"
)

var ErrNotFound = errors.New("storage: key not found")

type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
}
