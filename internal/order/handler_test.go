package order_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/greenbasket/greenbasket/internal/auth"
	"github.com/greenbasket/greenbasket/internal/order"
)

type mockOrderService struct {
	checkoutFunc          func(ctx context.Context, userID int64) (*order.Order, error)
	commitWithPaymentFunc func(ctx context.Context, userID int64, expectedTotal decimal.Decimal, reference string) (*order.Order, error)
	getOrderFunc          func(ctx context.Context, id uuid.UUID) (*order.Order, error)
	getByReferenceFunc    func(ctx context.Context, reference string) (*order.Order, error)
	listForUserFunc       func(ctx context.Context, userID int64, limit uint64) ([]order.Summary, error)
	listAllFunc           func(ctx context.Context, filter order.ListFilter) ([]order.Summary, error)
	updateStatusFunc      func(ctx context.Context, id uuid.UUID, status order.Status) (*order.Order, error)
}

func (m *mockOrderService) Checkout(ctx context.Context, userID int64) (*order.Order, error) {
	return m.checkoutFunc(ctx, userID)
}

func (m *mockOrderService) CommitWithPayment(ctx context.Context, userID int64, expectedTotal decimal.Decimal, reference string) (*order.Order, error) {
	return m.commitWithPaymentFunc(ctx, userID, expectedTotal, reference)
}

func (m *mockOrderService) GetOrder(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return m.getOrderFunc(ctx, id)
}

func (m *mockOrderService) GetOrderByReference(ctx context.Context, reference string) (*order.Order, error) {
	return m.getByReferenceFunc(ctx, reference)
}

func (m *mockOrderService) ListForUser(ctx context.Context, userID int64, limit uint64) ([]order.Summary, error) {
	return m.listForUserFunc(ctx, userID, limit)
}

func (m *mockOrderService) ListAll(ctx context.Context, filter order.ListFilter) ([]order.Summary, error) {
	return m.listAllFunc(ctx, filter)
}

func (m *mockOrderService) UpdateStatus(ctx context.Context, id uuid.UUID, status order.Status) (*order.Order, error) {
	return m.updateStatusFunc(ctx, id, status)
}

func newTestRouter(svc order.Service) *chi.Mux {
	h := order.NewHandler(svc)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	h.RegisterAdminRoutes(r)
	return r
}

func requestAs(identity *auth.Identity, method, target, body string) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if identity != nil {
		req = req.WithContext(auth.NewContext(req.Context(), *identity))
	}
	return req
}

func TestOrderHandler_Checkout(t *testing.T) {
	customer := &auth.Identity{UserID: 42, Role: auth.RoleCustomer}

	tests := []struct {
		name           string
		identity       *auth.Identity
		checkoutFunc   func(ctx context.Context, userID int64) (*order.Order, error)
		expectedStatus int
		expectedError  string
	}{
		{
			name:     "success",
			identity: customer,
			checkoutFunc: func(ctx context.Context, userID int64) (*order.Order, error) {
				return &order.Order{UserID: userID, Status: order.StatusCompleted, TotalAmount: decimal.RequireFromString("25.50")}, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "unauthorized",
			identity:       nil,
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "Unauthorized",
		},
		{
			name:     "empty_cart",
			identity: customer,
			checkoutFunc: func(ctx context.Context, userID int64) (*order.Order, error) {
				return nil, order.ErrEmptyCart
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Cart is empty",
		},
		{
			name:     "insufficient_stock",
			identity: customer,
			checkoutFunc: func(ctx context.Context, userID int64) (*order.Order, error) {
				return nil, &order.InsufficientStockError{Product: "Yams"}
			},
			expectedStatus: http.StatusConflict,
			expectedError:  "Insufficient quantity for Yams",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&mockOrderService{checkoutFunc: tt.checkoutFunc})

			req := requestAs(tt.identity, http.MethodPost, "/checkout", "")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedError != "" {
				var body map[string]string
				assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, tt.expectedError, body["error"])
			}
		})
	}
}

func TestOrderHandler_GetByID_OwnershipFilter(t *testing.T) {
	orderID := uuid.Must(uuid.FromString("550e8400-e29b-41d4-a716-446655440000"))
	stored := &order.Order{ID: orderID, UserID: 42, Status: order.StatusCompleted}

	svc := &mockOrderService{
		getOrderFunc: func(ctx context.Context, id uuid.UUID) (*order.Order, error) {
			return stored, nil
		},
	}
	router := newTestRouter(svc)

	// Owner sees the order.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, requestAs(&auth.Identity{UserID: 42, Role: auth.RoleCustomer}, http.MethodGet, "/orders/"+orderID.String(), ""))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Another customer gets a 404, not a 403 leaking existence.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, requestAs(&auth.Identity{UserID: 7, Role: auth.RoleCustomer}, http.MethodGet, "/orders/"+orderID.String(), ""))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Admin sees everything.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, requestAs(&auth.Identity{UserID: 1, Role: auth.RoleAdmin}, http.MethodGet, "/orders/"+orderID.String(), ""))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOrderHandler_UpdateStatus(t *testing.T) {
	orderID := uuid.Must(uuid.FromString("550e8400-e29b-41d4-a716-446655440000"))
	admin := &auth.Identity{UserID: 1, Role: auth.RoleAdmin}

	tests := []struct {
		name           string
		body           string
		updateFunc     func(ctx context.Context, id uuid.UUID, status order.Status) (*order.Order, error)
		expectedStatus int
	}{
		{
			name: "success",
			body: `{"status":"cancelled"}`,
			updateFunc: func(ctx context.Context, id uuid.UUID, status order.Status) (*order.Order, error) {
				return &order.Order{ID: id, Status: status}, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "invalid_status_value",
			body:           `{"status":"shipped"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "not_found",
			body: `{"status":"completed"}`,
			updateFunc: func(ctx context.Context, id uuid.UUID, status order.Status) (*order.Order, error) {
				return nil, order.ErrOrderNotFound
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&mockOrderService{updateStatusFunc: tt.updateFunc})

			req := requestAs(admin, http.MethodPut, "/orders/"+orderID.String(), tt.body)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
		})
	}
}
