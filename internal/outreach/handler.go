package outreach

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// PublicRoutes carries the storefront intake endpoints.
func (h *Handler) PublicRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/contact", h.handleContact)
	r.Post("/newsletter", h.handleSubscribe)
	return r
}

// AdminRoutes exposes read views for the back office.
func (h *Handler) AdminRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/contacts", h.handleListContacts)
	r.Get("/subscribers", h.handleListSubscribers)
	return r
}

func (h *Handler) handleContact(w http.ResponseWriter, r *http.Request) {
	var input SubmitContactInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sub, err := h.svc.SubmitContact(r.Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidEmail), errors.Is(err, ErrMissingMessage):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, "failed to submit message", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusCreated, sub)
}

func (h *Handler) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sub, err := h.svc.Subscribe(r.Context(), input.Email)
	if err != nil {
		if errors.Is(err, ErrInvalidEmail) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "failed to subscribe", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) handleListContacts(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	subs, err := h.svc.ListContacts(r.Context(), limit)
	if err != nil {
		http.Error(w, "failed to list submissions", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

func (h *Handler) handleListSubscribers(w http.ResponseWriter, r *http.Request) {
	subs, err := h.svc.ListSubscribers(r.Context())
	if err != nil {
		http.Error(w, "failed to list subscribers", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
