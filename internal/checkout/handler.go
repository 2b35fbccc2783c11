package checkout

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"polycycle/internal/auth"
	"polycycle/internal/cart"
)

type Handler struct {
	workflow *Workflow
	carts    *cart.Store
	logger   *slog.Logger
}

func NewHandler(workflow *Workflow, carts *cart.Store, logger *slog.Logger) *Handler {
	return &Handler{workflow: workflow, carts: carts, logger: logger}
}

// Routes is mounted behind the user-session middleware.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.handleSubmit)
	return r
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var form Form
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session := auth.SessionFrom(r.Context())
	c := h.carts.Get(cart.SessionID(w, r))

	o, fields, err := h.workflow.Submit(r.Context(), session, c, form)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotAuthenticated):
			writeError(w, http.StatusUnauthorized, "sign in to place an order")
		case errors.Is(err, ErrEmptyCart):
			writeError(w, http.StatusConflict, "cart is empty")
		default:
			h.logger.Error("checkout failed", "error", err)
			writeError(w, http.StatusBadGateway, ErrSubmitFailed.Error())
		}
		return
	}
	if fields != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{"errors": fields})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(o)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
