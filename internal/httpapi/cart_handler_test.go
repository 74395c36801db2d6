package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakmart/storefront/internal/domain"
	"github.com/oakmart/storefront/internal/mirror"
)

type mockCartService struct {
	m     sync.Mutex
	carts map[string]*domain.Cart
	err   error
}

func newMockCartService() *mockCartService {
	return &mockCartService{carts: make(map[string]*domain.Cart)}
}

func (s *mockCartService) GetCart(_ context.Context, sessionID string) (*domain.Cart, error) {
	s.m.Lock()
	defer s.m.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	cart, ok := s.carts[sessionID]
	if !ok {
		return &domain.Cart{SessionID: sessionID}, nil
	}
	return cart, nil
}

func (s *mockCartService) AddItem(_ context.Context, sessionID string, item domain.CartItem) error {
	s.m.Lock()
	defer s.m.Unlock()
	if s.err != nil {
		return s.err
	}
	cart, ok := s.carts[sessionID]
	if !ok {
		cart = &domain.Cart{SessionID: sessionID}
		s.carts[sessionID] = cart
	}
	cart.Items = append(cart.Items, item)
	return nil
}

func (s *mockCartService) UpdateQuantity(_ context.Context, sessionID string, productID int64, quantity int) error {
	s.m.Lock()
	defer s.m.Unlock()
	if s.err != nil {
		return s.err
	}
	cart, ok := s.carts[sessionID]
	if !ok {
		return mirror.ErrCartNotFound
	}
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			cart.Items[i].Quantity = quantity
			return nil
		}
	}
	return mirror.ErrItemNotFound
}

func (s *mockCartService) RemoveItem(_ context.Context, sessionID string, productID int64) error {
	s.m.Lock()
	defer s.m.Unlock()
	if s.err != nil {
		return s.err
	}
	cart, ok := s.carts[sessionID]
	if !ok {
		return mirror.ErrCartNotFound
	}
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			return nil
		}
	}
	return mirror.ErrItemNotFound
}

func (s *mockCartService) ClearCart(_ context.Context, sessionID string) error {
	s.m.Lock()
	defer s.m.Unlock()
	if s.err != nil {
		return s.err
	}
	delete(s.carts, sessionID)
	return nil
}

func cartRouter(svc CartService) http.Handler {
	h := NewCartHandler(svc, 5*time.Second)
	r := chi.NewRouter()
	r.Use(SessionMiddleware)
	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Get("/", h.GetCart)
		r.Delete("/", h.ClearCart)
		r.Post("/items", h.AddItem)
		r.Put("/items/{product_id}", h.UpdateQuantity)
		r.Delete("/items/{product_id}", h.RemoveItem)
	})
	return r
}

func doRequest(t *testing.T, handler http.Handler, method, path string, body any, session string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if session != "" {
		req.Header.Set("X-Session-ID", session)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestCartHandler_GetCart(t *testing.T) {
	svc := newMockCartService()
	svc.carts["sess-1"] = &domain.Cart{
		SessionID: "sess-1",
		Items:     []domain.CartItem{{ID: "line-1", ProductID: 1, Quantity: 2, Price: 10}},
	}
	router := cartRouter(svc)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/cart/", nil, "sess-1")

	require.Equal(t, http.StatusOK, rec.Code)
	var cart domain.Cart
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cart))
	assert.Equal(t, "sess-1", cart.SessionID)
	assert.Len(t, cart.Items, 1)
}

func TestCartHandler_MissingSession(t *testing.T) {
	router := cartRouter(newMockCartService())

	rec := doRequest(t, router, http.MethodGet, "/api/v1/cart/", nil, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCartHandler_BearerTokenActsAsSession(t *testing.T) {
	svc := newMockCartService()
	router := cartRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart/", nil)
	req.Header.Set("Authorization", "Bearer tok-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var cart domain.Cart
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cart))
	assert.Equal(t, "tok-1", cart.SessionID)
}

func TestCartHandler_AddItem(t *testing.T) {
	svc := newMockCartService()
	router := cartRouter(svc)

	item := domain.CartItem{ID: "line-1", ProductID: 1, Name: "Product 1", Price: 10, Quantity: 2}
	rec := doRequest(t, router, http.MethodPost, "/api/v1/cart/items", item, "sess-1")

	require.Equal(t, http.StatusCreated, rec.Code)
	var cart domain.Cart
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cart))
	assert.Len(t, cart.Items, 1)
}

func TestCartHandler_AddItem_Validation(t *testing.T) {
	router := cartRouter(newMockCartService())

	tests := []struct {
		name     string
		item     domain.CartItem
		wantCode string
	}{
		{"zero product id", domain.CartItem{ProductID: 0, Quantity: 1}, "invalid_product_id"},
		{"zero quantity", domain.CartItem{ProductID: 1, Quantity: 0}, "invalid_quantity"},
		{"quantity over cap", domain.CartItem{ProductID: 1, Quantity: 100}, "invalid_quantity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodPost, "/api/v1/cart/items", tt.item, "sess-1")

			require.Equal(t, http.StatusBadRequest, rec.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp.Code)
		})
	}
}

func TestCartHandler_AddItem_BadJSON(t *testing.T) {
	router := cartRouter(newMockCartService())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", bytes.NewBufferString("{broken"))
	req.Header.Set("X-Session-ID", "sess-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCartHandler_UpdateQuantity(t *testing.T) {
	svc := newMockCartService()
	svc.carts["sess-1"] = &domain.Cart{
		SessionID: "sess-1",
		Items:     []domain.CartItem{{ID: "line-1", ProductID: 1, Quantity: 1}},
	}
	router := cartRouter(svc)

	rec := doRequest(t, router, http.MethodPut, "/api/v1/cart/items/1", UpdateQuantityRequestDTO{Quantity: 5}, "sess-1")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, svc.carts["sess-1"].Items[0].Quantity)
}

func TestCartHandler_UpdateQuantity_UnknownItem(t *testing.T) {
	svc := newMockCartService()
	svc.carts["sess-1"] = &domain.Cart{SessionID: "sess-1"}
	router := cartRouter(svc)

	rec := doRequest(t, router, http.MethodPut, "/api/v1/cart/items/42", UpdateQuantityRequestDTO{Quantity: 2}, "sess-1")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCartHandler_UpdateQuantity_BadProductID(t *testing.T) {
	router := cartRouter(newMockCartService())

	rec := doRequest(t, router, http.MethodPut, "/api/v1/cart/items/abc", UpdateQuantityRequestDTO{Quantity: 2}, "sess-1")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCartHandler_RemoveItem(t *testing.T) {
	svc := newMockCartService()
	svc.carts["sess-1"] = &domain.Cart{
		SessionID: "sess-1",
		Items:     []domain.CartItem{{ID: "line-1", ProductID: 1, Quantity: 1}},
	}
	router := cartRouter(svc)

	rec := doRequest(t, router, http.MethodDelete, "/api/v1/cart/items/1", nil, "sess-1")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, svc.carts["sess-1"].Items)
}

func TestCartHandler_ClearCart(t *testing.T) {
	svc := newMockCartService()
	svc.carts["sess-1"] = &domain.Cart{SessionID: "sess-1"}
	router := cartRouter(svc)

	rec := doRequest(t, router, http.MethodDelete, "/api/v1/cart/", nil, "sess-1")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, svc.carts, "sess-1")
}

func TestCartHandler_ServiceError(t *testing.T) {
	svc := newMockCartService()
	svc.err = fmt.Errorf("mongo down")
	router := cartRouter(svc)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/cart/", nil, "sess-1")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
