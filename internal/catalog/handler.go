package catalog

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// PublicRoutes exposes read-only catalog access for the storefront.
func (h *Handler) PublicRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleList)
	r.Get("/{id}", h.handleGet)
	return r
}

// AdminRoutes exposes the mutating operations; mount behind the admin guard.
func (h *Handler) AdminRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.handleAdd)
	r.Patch("/{id}", h.handleUpdate)
	r.Delete("/{id}", h.handleDelete)
	r.Put("/{id}/stock", h.handleUpdateStock)
	return r
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid product ID", http.StatusBadRequest)
		return
	}

	product, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

type productRequest struct {
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	SKU               string          `json:"sku"`
	Price             decimal.Decimal `json:"price"`
	AvailableColors   []string        `json:"available_colors"`
	AvailableQuantity int             `json:"available_quantity"`
	Image             string          `json:"image"`
	Category          string          `json:"category"`
	Tags              []string        `json:"tags"`
	ReorderThreshold  int             `json:"reorder_threshold"`
	Variants          VariantMap      `json:"variants"`
}

func (h *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	product, err := h.service.Add(r.Context(), AddProductInput{
		Name:              req.Name,
		Description:       req.Description,
		SKU:               req.SKU,
		Price:             req.Price,
		AvailableColors:   req.AvailableColors,
		AvailableQuantity: req.AvailableQuantity,
		Image:             req.Image,
		Category:          req.Category,
		Tags:              req.Tags,
		ReorderThreshold:  req.ReorderThreshold,
		Variants:          req.Variants,
	})
	if err != nil {
		if errors.Is(err, ErrNoColors) || errors.Is(err, ErrInvalidPrice) || errors.Is(err, ErrNegativeStock) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

type productPatch struct {
	Name             *string          `json:"name"`
	Description      *string          `json:"description"`
	SKU              *string          `json:"sku"`
	Price            *decimal.Decimal `json:"price"`
	AvailableColors  []string         `json:"available_colors"`
	Image            *string          `json:"image"`
	Category         *string          `json:"category"`
	Tags             []string         `json:"tags"`
	ReorderThreshold *int             `json:"reorder_threshold"`
	Variants         VariantMap       `json:"variants"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid product ID", http.StatusBadRequest)
		return
	}

	var req productPatch
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	product, err := h.service.Update(r.Context(), id, UpdateProductInput{
		Name:             req.Name,
		Description:      req.Description,
		SKU:              req.SKU,
		Price:            req.Price,
		AvailableColors:  req.AvailableColors,
		Image:            req.Image,
		Category:         req.Category,
		Tags:             req.Tags,
		ReorderThreshold: req.ReorderThreshold,
		Variants:         req.Variants,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, ErrNoColors), errors.Is(err, ErrInvalidPrice):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid product ID", http.StatusBadRequest)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUpdateStock(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid product ID", http.StatusBadRequest)
		return
	}

	var req struct {
		AvailableQuantity int `json:"available_quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.service.UpdateStock(r.Context(), id, req.AvailableQuantity); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, ErrNegativeStock):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
