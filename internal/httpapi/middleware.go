package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type contextKey string

const (
	ctxKeySession   contextKey = "session_id"
	ctxKeyRequestID contextKey = "request_id"
)

// SessionMiddleware resolves the caller's session: the X-Session-ID header
// carries the guest session, a bearer token identifies an authenticated user.
// Carts are keyed by whichever is present.
func SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := r.Header.Get("X-Session-ID")
		if auth := r.Header.Get("Authorization"); session == "" && strings.HasPrefix(auth, "Bearer ") {
			// Token verification is the auth service's job; the token value
			// itself keys the cart here.
			session = strings.TrimPrefix(auth, "Bearer ")
		}

		ctx := context.WithValue(r.Context(), ctxKeySession, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDMiddleware adds a unique request ID to each request.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = fmt.Sprintf("req-%d", time.Now().UnixNano())
		}

		ctx := context.WithValue(r.Context(), ctxKeyRequestID, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFromContext(ctx context.Context) string {
	if session, ok := ctx.Value(ctxKeySession).(string); ok {
		return session
	}
	return ""
}
