package order_test

import (
	"context"
	"errors"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/greenbasket/greenbasket/internal/order"
)

type mockOrderRepository struct {
	commitFunc       func(ctx context.Context, userID int64, expectedTotal *decimal.Decimal, paymentReference *string) (*order.Order, error)
	getByIDFunc      func(ctx context.Context, id uuid.UUID) (*order.Order, error)
	getByRefFunc     func(ctx context.Context, reference string) (*order.Order, error)
	listByUserFunc   func(ctx context.Context, userID int64, limit uint64) ([]order.Summary, error)
	listFunc         func(ctx context.Context, filter order.ListFilter) ([]order.Summary, error)
	updateStatusFunc func(ctx context.Context, id uuid.UUID, status order.Status) error
}

func (m *mockOrderRepository) Commit(ctx context.Context, userID int64, expectedTotal *decimal.Decimal, paymentReference *string) (*order.Order, error) {
	return m.commitFunc(ctx, userID, expectedTotal, paymentReference)
}

func (m *mockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockOrderRepository) GetByPaymentReference(ctx context.Context, reference string) (*order.Order, error) {
	return m.getByRefFunc(ctx, reference)
}

func (m *mockOrderRepository) ListByUser(ctx context.Context, userID int64, limit uint64) ([]order.Summary, error) {
	return m.listByUserFunc(ctx, userID, limit)
}

func (m *mockOrderRepository) List(ctx context.Context, filter order.ListFilter) ([]order.Summary, error) {
	return m.listFunc(ctx, filter)
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status order.Status) error {
	return m.updateStatusFunc(ctx, id, status)
}

func TestOrderService_Checkout(t *testing.T) {
	committed := &order.Order{
		ID:          uuid.Must(uuid.FromString("550e8400-e29b-41d4-a716-446655440000")),
		UserID:      42,
		TotalAmount: decimal.RequireFromString("150.00"),
		Status:      order.StatusCompleted,
	}

	tests := []struct {
		name        string
		commitFunc  func(ctx context.Context, userID int64, expectedTotal *decimal.Decimal, paymentReference *string) (*order.Order, error)
		wantOrder   *order.Order
		wantErr     bool
		wantErrIs   error
		wantCommits int
	}{
		{
			name: "success",
			commitFunc: func(ctx context.Context, userID int64, expectedTotal *decimal.Decimal, paymentReference *string) (*order.Order, error) {
				return committed, nil
			},
			wantOrder:   committed,
			wantCommits: 1,
		},
		{
			name: "empty_cart_not_retried",
			commitFunc: func(ctx context.Context, userID int64, expectedTotal *decimal.Decimal, paymentReference *string) (*order.Order, error) {
				return nil, order.ErrEmptyCart
			},
			wantErr:     true,
			wantErrIs:   order.ErrEmptyCart,
			wantCommits: 1,
		},
		{
			name: "insufficient_stock_not_retried",
			commitFunc: func(ctx context.Context, userID int64, expectedTotal *decimal.Decimal, paymentReference *string) (*order.Order, error) {
				return nil, &order.InsufficientStockError{Product: "Tomatoes"}
			},
			wantErr:     true,
			wantCommits: 1,
		},
		{
			name: "conflict_exhausts_retries",
			commitFunc: func(ctx context.Context, userID int64, expectedTotal *decimal.Decimal, paymentReference *string) (*order.Order, error) {
				return nil, order.ErrTxConflict
			},
			wantErr:     true,
			wantErrIs:   order.ErrTxConflict,
			wantCommits: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			commits := 0
			mockRepo := &mockOrderRepository{
				commitFunc: func(ctx context.Context, userID int64, expectedTotal *decimal.Decimal, paymentReference *string) (*order.Order, error) {
					commits++
					return tt.commitFunc(ctx, userID, expectedTotal, paymentReference)
				},
			}
			svc := order.NewService(mockRepo)

			ord, err := svc.Checkout(context.Background(), 42)
			if tt.wantErr {
				assert.Error(t, err)
				if tt.wantErrIs != nil {
					assert.True(t, errors.Is(err, tt.wantErrIs))
				}
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.wantOrder, ord)
			}
			assert.Equal(t, tt.wantCommits, commits)
		})
	}
}

func TestOrderService_Checkout_RetriesThenSucceeds(t *testing.T) {
	committed := &order.Order{UserID: 42, Status: order.StatusCompleted}

	commits := 0
	mockRepo := &mockOrderRepository{
		commitFunc: func(ctx context.Context, userID int64, expectedTotal *decimal.Decimal, paymentReference *string) (*order.Order, error) {
			commits++
			if commits == 1 {
				return nil, order.ErrTxConflict
			}
			return committed, nil
		},
	}
	svc := order.NewService(mockRepo)

	ord, err := svc.Checkout(context.Background(), 42)
	assert.NoError(t, err)
	assert.Equal(t, committed, ord)
	assert.Equal(t, 2, commits)
}

func TestOrderService_CommitWithPayment_PassesAmountAndReference(t *testing.T) {
	var gotTotal *decimal.Decimal
	var gotReference *string

	mockRepo := &mockOrderRepository{
		commitFunc: func(ctx context.Context, userID int64, expectedTotal *decimal.Decimal, paymentReference *string) (*order.Order, error) {
			gotTotal = expectedTotal
			gotReference = paymentReference
			return &order.Order{UserID: userID, Status: order.StatusCompleted}, nil
		},
	}
	svc := order.NewService(mockRepo)

	_, err := svc.CommitWithPayment(context.Background(), 7, decimal.RequireFromString("950.00"), "ps_ref_123")
	assert.NoError(t, err)
	if assert.NotNil(t, gotTotal) {
		assert.True(t, gotTotal.Equal(decimal.RequireFromString("950.00")))
	}
	if assert.NotNil(t, gotReference) {
		assert.Equal(t, "ps_ref_123", *gotReference)
	}
}

func TestOrderService_UpdateStatus(t *testing.T) {
	orderID := uuid.Must(uuid.FromString("550e8400-e29b-41d4-a716-446655440000"))

	tests := []struct {
		name             string
		status           order.Status
		updateStatusFunc func(ctx context.Context, id uuid.UUID, status order.Status) error
		wantErrIs        error
	}{
		{
			name:   "success",
			status: order.StatusCancelled,
			updateStatusFunc: func(ctx context.Context, id uuid.UUID, status order.Status) error {
				return nil
			},
		},
		{
			name:      "invalid_status",
			status:    order.Status("shipped"),
			wantErrIs: order.ErrInvalidStatus,
		},
		{
			name:   "not_found",
			status: order.StatusCompleted,
			updateStatusFunc: func(ctx context.Context, id uuid.UUID, status order.Status) error {
				return order.ErrOrderNotFound
			},
			wantErrIs: order.ErrOrderNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &mockOrderRepository{
				updateStatusFunc: tt.updateStatusFunc,
				getByIDFunc: func(ctx context.Context, id uuid.UUID) (*order.Order, error) {
					return &order.Order{ID: id, Status: tt.status}, nil
				},
			}
			svc := order.NewService(mockRepo)

			ord, err := svc.UpdateStatus(context.Background(), orderID, tt.status)
			if tt.wantErrIs != nil {
				assert.True(t, errors.Is(err, tt.wantErrIs))
				assert.Nil(t, ord)
			} else {
				assert.NoError(t, err)
				if assert.NotNil(t, ord) {
					assert.Equal(t, tt.status, ord.Status)
				}
			}
		})
	}
}
