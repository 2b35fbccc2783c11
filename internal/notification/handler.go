package notification

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type Handler struct {
	service Service
	mirror  *Mirror
}

// NewHandler builds the notifications panel handler. mirror may be nil; reads
// then always go to the service.
func NewHandler(service Service, mirror *Mirror) *Handler {
	return &Handler{service: service, mirror: mirror}
}

// Routes exposes the notifications panel operations; mount behind the admin
// guard.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleList)
	r.Get("/unread-count", h.handleUnreadCount)
	r.Post("/{id}/read", h.handleMarkRead)
	r.Post("/read-all", h.handleMarkAllRead)
	r.Delete("/{id}", h.handleDelete)
	r.Delete("/", h.handleDeleteAll)
	return r
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	if h.mirror != nil {
		if notifications, _, ready := h.mirror.Snapshot(); ready {
			if notifications == nil {
				notifications = []*Notification{}
			}
			writeJSON(w, http.StatusOK, notifications)
			return
		}
	}
	notifications, err := h.service.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if notifications == nil {
		notifications = []*Notification{}
	}
	writeJSON(w, http.StatusOK, notifications)
}

func (h *Handler) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	if h.mirror != nil {
		if _, unread, ready := h.mirror.Snapshot(); ready {
			writeJSON(w, http.StatusOK, map[string]int{"unread": unread})
			return
		}
	}
	count, err := h.service.UnreadCount(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread": count})
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid notification ID", http.StatusBadRequest)
		return
	}
	if err := h.service.MarkRead(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	if err := h.service.MarkAllRead(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid notification ID", http.StatusBadRequest)
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

func (h *Handler) handleDeleteAll(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteAll(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
