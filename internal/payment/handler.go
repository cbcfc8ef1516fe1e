package payment

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/greenbasket/greenbasket/internal/auth"
	"github.com/greenbasket/greenbasket/internal/httputil"
	"github.com/greenbasket/greenbasket/internal/order"
)

type InitializeRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
	Email  string          `json:"email" validate:"required,email"`
}

type VerifyRequest struct {
	Reference string `json:"reference" validate:"required"`
}

type VerifyResponse struct {
	Message     string          `json:"message"`
	Order       *order.Order    `json:"order"`
	PaymentData json.RawMessage `json:"payment_data,omitempty"`
}

type Handler struct {
	reconciler Reconciler
	validate   *validator.Validate
}

func NewHandler(reconciler Reconciler) *Handler {
	return &Handler{reconciler: reconciler, validate: validator.New()}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Post("/payment/initialize", h.handleInitialize)
	router.Post("/payment/verify", h.handleVerify)
}

func (h *Handler) handleInitialize(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req InitializeRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httputil.RespondValidationError(w, err)
		return
	}
	if !req.Amount.IsPositive() {
		httputil.RespondWithError(w, http.StatusBadRequest, "Amount must be positive")
		return
	}

	result, err := h.reconciler.Initialize(r.Context(), id.UserID, req.Amount, req.Email)
	if err != nil {
		if errors.Is(err, ErrGateway) {
			httputil.RespondWithError(w, http.StatusBadGateway, "Payment initialization failed")
			return
		}
		log.Error().Err(err).Int64("user_id", id.UserID).Msg("Payment initialization failed")
		httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, result)
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req VerifyRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Payment reference is required")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httputil.RespondValidationError(w, err)
		return
	}

	outcome, err := h.reconciler.Verify(r.Context(), id.UserID, req.Reference)
	if err != nil {
		h.respondVerifyError(w, err, id.UserID)
		return
	}

	message := "Payment verified and order created successfully"
	if outcome.AlreadyHandled {
		message = "Payment already processed"
	}

	resp := VerifyResponse{Message: message, Order: outcome.Order}
	if outcome.Gateway != nil {
		resp.PaymentData = outcome.Gateway.Raw
	}

	httputil.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *Handler) respondVerifyError(w http.ResponseWriter, err error, userID int64) {
	var stockErr *order.InsufficientStockError
	switch {
	case errors.Is(err, ErrPaymentNotConfirmed):
		httputil.RespondWithError(w, http.StatusBadRequest, "Payment verification failed")
	case errors.Is(err, ErrGateway):
		httputil.RespondWithError(w, http.StatusBadGateway, "Payment verification failed")
	case errors.Is(err, order.ErrEmptyCart):
		httputil.RespondWithError(w, http.StatusBadRequest, "Cart is empty")
	case errors.As(err, &stockErr):
		httputil.RespondWithError(w, http.StatusConflict, "Insufficient quantity for "+stockErr.Product)
	case errors.Is(err, order.ErrAmountMismatch):
		httputil.RespondWithError(w, http.StatusBadRequest, "Payment amount mismatch")
	case errors.Is(err, order.ErrOrderNotFound):
		httputil.RespondWithError(w, http.StatusNotFound, "Order not found")
	default:
		log.Error().Err(err).Int64("user_id", userID).Msg("Payment verification failed")
		httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
