package notification

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("notification not found")

// CreateInput describes a new alert. A non-empty DedupeKey makes creation
// idempotent: a second create with the same key is silently dropped, which
// keeps repeated low-stock triggers from flooding the panel.
type CreateInput struct {
	Type      string
	Title     string
	Message   string
	Priority  string
	DedupeKey string
}

// Service defines notification operations.
type Service interface {
	Create(ctx context.Context, in CreateInput) (*Notification, error)
	List(ctx context.Context) ([]*Notification, error)
	UnreadCount(ctx context.Context) (int, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	MarkAllRead(ctx context.Context) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteAll(ctx context.Context) error
}
