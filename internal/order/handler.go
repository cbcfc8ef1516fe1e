package order

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/greenbasket/greenbasket/internal/auth"
	"github.com/greenbasket/greenbasket/internal/httputil"
)

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending completed cancelled"`
}

type CheckoutResponse struct {
	Message string `json:"message"`
	Order   *Order `json:"order"`
}

type Handler struct {
	service  Service
	validate *validator.Validate
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service, validate: validator.New()}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Post("/checkout", h.handleCheckout)
	router.Get("/orders/customer", h.handleListForCustomer)
	router.Get("/orders/{id}", h.handleGetByID)
}

func (h *Handler) RegisterAdminRoutes(router chi.Router) {
	router.Get("/orders", h.handleListAll)
	router.Put("/orders/{id}", h.handleUpdateStatus)
}

func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	ord, err := h.service.Checkout(r.Context(), id.UserID)
	if err != nil {
		respondCommitError(w, err, id.UserID)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, CheckoutResponse{
		Message: "Order placed successfully",
		Order:   ord,
	})
}

// respondCommitError maps commit failures for both the direct checkout
// and the payment verification path.
func respondCommitError(w http.ResponseWriter, err error, userID int64) {
	var stockErr *InsufficientStockError
	switch {
	case errors.Is(err, ErrEmptyCart):
		httputil.RespondWithError(w, http.StatusBadRequest, "Cart is empty")
	case errors.As(err, &stockErr):
		httputil.RespondWithError(w, http.StatusConflict, "Insufficient quantity for "+stockErr.Product)
	case errors.Is(err, ErrAmountMismatch):
		httputil.RespondWithError(w, http.StatusBadRequest, "Payment amount mismatch")
	default:
		log.Error().Err(err).Int64("user_id", userID).Msg("Checkout failed")
		httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (h *Handler) handleGetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	orderID, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	ord, err := h.service.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			httputil.RespondWithError(w, http.StatusNotFound, "Order not found")
			return
		}
		log.Error().Err(err).Stringer("order_id", orderID).Msg("Failed to get order")
		httputil.RespondWithError(w, http.StatusInternalServerError, "Failed to get order")
		return
	}

	// Customers only see their own receipts; admins see everything.
	if !id.IsAdmin() && ord.UserID != id.UserID {
		httputil.RespondWithError(w, http.StatusNotFound, "Order not found")
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, ord)
}

func (h *Handler) handleListForCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	summaries, err := h.service.ListForUser(r.Context(), id.UserID, parseLimit(r))
	if err != nil {
		log.Error().Err(err).Int64("user_id", id.UserID).Msg("Failed to list customer orders")
		httputil.RespondWithError(w, http.StatusInternalServerError, "Failed to list orders")
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, summaries)
}

func (h *Handler) handleListAll(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		Status: r.URL.Query().Get("status"),
		Limit:  parseLimit(r),
	}

	summaries, err := h.service.ListAll(r.Context(), filter)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list orders")
		httputil.RespondWithError(w, http.StatusInternalServerError, "Failed to list orders")
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, summaries)
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	var req UpdateStatusRequest
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

	ord, err := h.service.UpdateStatus(r.Context(), orderID, Status(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, ErrOrderNotFound):
			httputil.RespondWithError(w, http.StatusNotFound, "Order not found")
		case errors.Is(err, ErrInvalidStatus):
			httputil.RespondWithError(w, http.StatusBadRequest, "Invalid status")
		default:
			log.Error().Err(err).Stringer("order_id", orderID).Msg("Failed to update order status")
			httputil.RespondWithError(w, http.StatusInternalServerError, "Failed to update order")
		}
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, ord)
}

func parseLimit(r *http.Request) uint64 {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return limit
}
