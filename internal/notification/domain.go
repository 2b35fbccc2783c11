package notification

import (
	"time"

	"github.com/google/uuid"
)

// Notification types.
const (
	TypeOrder  = "order"
	TypeStock  = "stock"
	TypeUser   = "user"
	TypeSystem = "system"
)

// Priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Notification is an operator-facing alert shown in the admin panel.
type Notification struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Type      string    `json:"type" db:"type"`
	Title     string    `json:"title" db:"title"`
	Message   string    `json:"message" db:"message"`
	Priority  string    `json:"priority" db:"priority"`
	Read      bool      `json:"read" db:"read"`
	DedupeKey *string   `json:"-" db:"dedupe_key"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NotificationCreatedEvent is recorded when an alert is raised.
type NotificationCreatedEvent struct {
	ID       uuid.UUID `json:"id"`
	Type     string    `json:"type"`
	Priority string    `json:"priority"`
}
