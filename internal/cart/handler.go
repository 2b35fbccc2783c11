package cart

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"polycycle/internal/catalog"
)

const sessionCookie = "cart_session"

// Handler exposes the session cart over HTTP. Adding an item reserves stock
// immediately, which mirrors the storefront's add-to-cart flow: inventory is
// debited when the item enters the cart, not at checkout. Removing an item or
// lowering its quantity releases the reservation again.
type Handler struct {
	store   *Store
	catalog catalog.Service
	logger  *slog.Logger
}

func NewHandler(store *Store, catalogSvc catalog.Service, logger *slog.Logger) *Handler {
	return &Handler{store: store, catalog: catalogSvc, logger: logger}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleGet)
	r.Post("/items", h.handleAddItem)
	r.Put("/items", h.handleUpdateQuantity)
	r.Delete("/items", h.handleRemoveItem)
	return r
}

// SessionID extracts the cart session from the request cookie, minting a new
// one when absent.
func SessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
	})
	return id
}

type cartView struct {
	Items []Item          `json:"items"`
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

func viewOf(c *Cart) cartView {
	return cartView{Items: c.Items(), Count: c.Count(), Total: c.Total()}
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	c := h.store.Get(SessionID(w, r))
	writeJSON(w, http.StatusOK, viewOf(c))
}

func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID     uuid.UUID `json:"product_id"`
		SelectedColor string    `json:"selected_color"`
		Quantity      int       `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Quantity < 1 {
		http.Error(w, ErrInvalidQuantity.Error(), http.StatusBadRequest)
		return
	}

	product, err := h.catalog.Get(r.Context(), req.ProductID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if _, err := h.catalog.ReserveStock(r.Context(), req.ProductID, req.Quantity); err != nil {
		if errors.Is(err, catalog.ErrInsufficientStock) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	c := h.store.Get(SessionID(w, r))
	if err := c.Add(SnapshotOf(product), req.SelectedColor, req.Quantity); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(c))
}

func (h *Handler) handleUpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID     uuid.UUID `json:"product_id"`
		SelectedColor string    `json:"selected_color"`
		Quantity      int       `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.Quantity < 1 {
		http.Error(w, ErrInvalidQuantity.Error(), http.StatusBadRequest)
		return
	}

	c := h.store.Get(SessionID(w, r))
	prev := c.Quantity(req.ProductID, req.SelectedColor)
	if prev == 0 {
		// Missing key stays a no-op; no reservation to adjust.
		writeJSON(w, http.StatusOK, viewOf(c))
		return
	}

	// Raising the quantity needs extra stock up front; lowering it returns
	// the difference after the cart is updated.
	if req.Quantity > prev {
		if _, err := h.catalog.ReserveStock(r.Context(), req.ProductID, req.Quantity-prev); err != nil {
			if errors.Is(err, catalog.ErrInsufficientStock) {
				http.Error(w, err.Error(), http.StatusConflict)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	if err := c.UpdateQuantity(req.ProductID, req.SelectedColor, req.Quantity); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.Quantity < prev {
		h.releaseStock(r, req.ProductID, prev-req.Quantity)
	}
	writeJSON(w, http.StatusOK, viewOf(c))
}

func (h *Handler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID     uuid.UUID `json:"product_id"`
		SelectedColor string    `json:"selected_color"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	c := h.store.Get(SessionID(w, r))
	removed := c.Quantity(req.ProductID, req.SelectedColor)
	c.Remove(req.ProductID, req.SelectedColor)
	if removed > 0 {
		h.releaseStock(r, req.ProductID, removed)
	}
	writeJSON(w, http.StatusOK, viewOf(c))
}

// releaseStock returns a reservation to the catalog. Best effort: the cart
// change already happened, so a failed release is logged, not surfaced.
func (h *Handler) releaseStock(r *http.Request, productID uuid.UUID, n int) {
	if err := h.catalog.ReleaseStock(r.Context(), productID, n); err != nil {
		h.logger.Warn("stock release failed", "product_id", productID, "quantity", n, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
