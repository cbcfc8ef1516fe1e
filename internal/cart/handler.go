package cart

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/greenbasket/greenbasket/internal/auth"
	"github.com/greenbasket/greenbasket/internal/httputil"
	"github.com/greenbasket/greenbasket/internal/product"
)

type AddItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gte=1"`
}

type UpdateItemRequest struct {
	CartItemID int64 `json:"cart_item_id" validate:"required,gt=0"`
	Quantity   int   `json:"quantity" validate:"required,gte=1"`
}

type Handler struct {
	service  Service
	validate *validator.Validate
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service, validate: validator.New()}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/cart", h.handleGetCart)
	router.Post("/cart", h.handleAddItem)
	router.Put("/cart", h.handleUpdateItem)
	router.Delete("/cart", h.handleRemoveItem)
}

func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	items, err := h.service.GetCart(r.Context(), id.UserID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", id.UserID).Msg("Failed to fetch cart")
		httputil.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch cart")
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, items)
}

func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req AddItemRequest
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

	line, err := h.service.AddItem(r.Context(), id.UserID, req.ProductID, req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, product.ErrProductNotFound):
			httputil.RespondWithError(w, http.StatusNotFound, "Product not found")
		case errors.Is(err, ErrInsufficientQuantity):
			httputil.RespondWithError(w, http.StatusConflict, "Insufficient product quantity")
		default:
			log.Error().Err(err).Int64("user_id", id.UserID).Msg("Failed to add cart item")
			httputil.RespondWithError(w, http.StatusInternalServerError, "Failed to add to cart")
		}
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, line)
}

func (h *Handler) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req UpdateItemRequest
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

	line, err := h.service.UpdateItem(r.Context(), id.UserID, req.CartItemID, req.Quantity)
	if err != nil {
		if errors.Is(err, ErrLineNotFound) {
			httputil.RespondWithError(w, http.StatusNotFound, "Cart item not found")
			return
		}
		log.Error().Err(err).Int64("user_id", id.UserID).Msg("Failed to update cart item")
		httputil.RespondWithError(w, http.StatusInternalServerError, "Failed to update cart")
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, line)
}

func (h *Handler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	lineID, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil || lineID <= 0 {
		httputil.RespondWithError(w, http.StatusBadRequest, "Cart item ID is required")
		return
	}

	if err := h.service.RemoveItem(r.Context(), id.UserID, lineID); err != nil {
		if errors.Is(err, ErrLineNotFound) {
			httputil.RespondWithError(w, http.StatusNotFound, "Cart item not found")
			return
		}
		log.Error().Err(err).Int64("user_id", id.UserID).Msg("Failed to remove cart item")
		httputil.RespondWithError(w, http.StatusInternalServerError, "Failed to remove from cart")
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Item removed from cart"})
}
