package order

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakmart/storefront/internal/domain"
)

type mockRepository struct {
	m      sync.Mutex
	orders []*domain.Order
	err    error
}

func (r *mockRepository) CreateOrder(_ context.Context, order *domain.Order) error {
	r.m.Lock()
	defer r.m.Unlock()
	if r.err != nil {
		return r.err
	}
	for _, existing := range r.orders {
		if existing.PaymentRef == order.PaymentRef {
			return ErrDuplicatePayment
		}
	}
	r.orders = append(r.orders, order)
	return nil
}

func (r *mockRepository) GetOrderByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	r.m.Lock()
	defer r.m.Unlock()
	for _, order := range r.orders {
		if order.ID == id {
			return order, nil
		}
	}
	return nil, ErrOrderNotFound
}

func (r *mockRepository) ListOrdersBySession(_ context.Context, sessionID string) ([]*domain.Order, error) {
	r.m.Lock()
	defer r.m.Unlock()
	var out []*domain.Order
	for _, order := range r.orders {
		if order.SessionID == sessionID {
			out = append(out, order)
		}
	}
	return out, nil
}

type mockPublisher struct {
	m         sync.Mutex
	err       error
	published []*domain.Order
}

func (p *mockPublisher) PublishOrderConfirmed(_ context.Context, order *domain.Order) error {
	p.m.Lock()
	defer p.m.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, order)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func successPayment() *domain.PaymentResponse {
	return &domain.PaymentResponse{Success: true, TransactionID: "TXN-1"}
}

func testDraft() *domain.OrderDraft {
	return &domain.OrderDraft{
		SessionID: "sess-1",
		Email:     "a@b.com",
		Items: []domain.OrderItem{
			{ProductID: 1, ProductName: "Product 1", Quantity: 2, Price: 10},
		},
		Subtotal:     20,
		ShippingCost: 5.99,
		Tax:          1.60,
		Total:        27.59,
		Currency:     "USD",
	}
}

func TestCreateOrder(t *testing.T) {
	repo := &mockRepository{}
	pub := &mockPublisher{}
	sut := NewService(repo, pub, testLogger())

	order, err := sut.CreateOrder(context.Background(), successPayment(), testDraft())

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, order.ID)
	assert.Equal(t, "TXN-1", order.PaymentRef)
	assert.Equal(t, domain.OrderStatusConfirmed, order.Status)
	assert.Equal(t, 27.59, order.Total)
	require.Len(t, pub.published, 1)
	assert.Equal(t, order.ID, pub.published[0].ID)
}

func TestCreateOrder_RequiresSuccessfulPayment(t *testing.T) {
	sut := NewService(&mockRepository{}, nil, testLogger())

	_, err := sut.CreateOrder(context.Background(), &domain.PaymentResponse{Success: false}, testDraft())
	assert.Error(t, err)

	_, err = sut.CreateOrder(context.Background(), nil, testDraft())
	assert.Error(t, err)
}

func TestCreateOrder_RequiresItems(t *testing.T) {
	sut := NewService(&mockRepository{}, nil, testLogger())

	draft := testDraft()
	draft.Items = nil
	_, err := sut.CreateOrder(context.Background(), successPayment(), draft)
	assert.Error(t, err)

	_, err = sut.CreateOrder(context.Background(), successPayment(), nil)
	assert.Error(t, err)
}

func TestCreateOrder_DuplicatePaymentReturnsExisting(t *testing.T) {
	repo := &mockRepository{}
	pub := &mockPublisher{}
	sut := NewService(repo, pub, testLogger())

	first, err := sut.CreateOrder(context.Background(), successPayment(), testDraft())
	require.NoError(t, err)

	second, err := sut.CreateOrder(context.Background(), successPayment(), testDraft())
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "replayed payment must not create a second order")
	assert.Len(t, repo.orders, 1)
	assert.Len(t, pub.published, 1, "duplicate must not republish")
}

func TestCreateOrder_PublishFailureIsBestEffort(t *testing.T) {
	repo := &mockRepository{}
	pub := &mockPublisher{err: fmt.Errorf("broker down")}
	sut := NewService(repo, pub, testLogger())

	order, err := sut.CreateOrder(context.Background(), successPayment(), testDraft())

	require.NoError(t, err, "publish failure must not fail the order")
	assert.NotNil(t, order)
	assert.Len(t, repo.orders, 1)
}

func TestCreateOrder_NilPublisher(t *testing.T) {
	sut := NewService(&mockRepository{}, nil, testLogger())

	order, err := sut.CreateOrder(context.Background(), successPayment(), testDraft())

	require.NoError(t, err)
	assert.NotNil(t, order)
}

func TestGetOrder(t *testing.T) {
	repo := &mockRepository{}
	sut := NewService(repo, nil, testLogger())

	created, err := sut.CreateOrder(context.Background(), successPayment(), testDraft())
	require.NoError(t, err)

	got, err := sut.GetOrder(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = sut.GetOrder(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestListOrders(t *testing.T) {
	repo := &mockRepository{}
	sut := NewService(repo, nil, testLogger())

	_, err := sut.CreateOrder(context.Background(), successPayment(), testDraft())
	require.NoError(t, err)

	other := testDraft()
	other.SessionID = "sess-2"
	_, err = sut.CreateOrder(context.Background(), &domain.PaymentResponse{Success: true, TransactionID: "TXN-2"}, other)
	require.NoError(t, err)

	orders, err := sut.ListOrders(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}
