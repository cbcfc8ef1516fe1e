package product

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/greenbasket/greenbasket/internal/httputil"
)

type UpsertProductRequest struct {
	Name        string          `json:"name" validate:"required,min=2"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price" validate:"required"`
	Quantity    int             `json:"quantity" validate:"gte=0"`
	Category    string          `json:"category"`
	ImageURL    string          `json:"image_url"`
}

type Handler struct {
	repo     Repository
	validate *validator.Validate
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo, validate: validator.New()}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/products", h.handleList)
	router.Get("/products/{id}", h.handleGetByID)
}

// RegisterAdminRoutes mounts the mutating endpoints behind the admin gate.
func (h *Handler) RegisterAdminRoutes(router chi.Router) {
	router.Post("/products", h.handleCreate)
	router.Put("/products/{id}", h.handleUpdate)
	router.Delete("/products/{id}", h.handleDelete)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	products, err := h.repo.List(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		log.Error().Err(err).Msg("Failed to list products")
		httputil.RespondWithError(w, http.StatusInternalServerError, "Failed to list products")
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, products)
}

func (h *Handler) handleGetByID(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	p, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			httputil.RespondWithError(w, http.StatusNotFound, "Product not found")
			return
		}
		log.Error().Err(err).Int64("product_id", id).Msg("Failed to get product")
		httputil.RespondWithError(w, http.StatusInternalServerError, "Failed to get product")
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, p)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeUpsert(w, r)
	if !ok {
		return
	}

	p := Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Quantity:    req.Quantity,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
	}
	if err := h.repo.Create(r.Context(), &p); err != nil {
		log.Error().Err(err).Msg("Failed to create product")
		httputil.RespondWithError(w, http.StatusInternalServerError, "Failed to create product")
		return
	}
	httputil.RespondWithJSON(w, http.StatusCreated, p)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	req, ok := h.decodeUpsert(w, r)
	if !ok {
		return
	}

	p := Product{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Quantity:    req.Quantity,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
	}
	if err := h.repo.Update(r.Context(), &p); err != nil {
		if errors.Is(err, ErrProductNotFound) {
			httputil.RespondWithError(w, http.StatusNotFound, "Product not found")
			return
		}
		log.Error().Err(err).Int64("product_id", id).Msg("Failed to update product")
		httputil.RespondWithError(w, http.StatusInternalServerError, "Failed to update product")
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, p)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrProductNotFound) {
			httputil.RespondWithError(w, http.StatusNotFound, "Product not found")
			return
		}
		log.Error().Err(err).Int64("product_id", id).Msg("Failed to delete product")
		httputil.RespondWithError(w, http.StatusInternalServerError, "Failed to delete product")
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Product deleted"})
}

func (h *Handler) decodeUpsert(w http.ResponseWriter, r *http.Request) (UpsertProductRequest, bool) {
	var req UpsertProductRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		log.Warn().Err(err).Msg("Failed to decode product payload")
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return req, false
	}

	if err := h.validate.Struct(req); err != nil {
		httputil.RespondValidationError(w, err)
		return req, false
	}

	if req.Price.IsNegative() {
		httputil.RespondWithError(w, http.StatusBadRequest, "Price cannot be negative")
		return req, false
	}

	return req, true
}

func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
