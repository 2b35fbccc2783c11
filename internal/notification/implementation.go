package notification

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"polycycle/internal/eventlog"
)

// service implements the Service interface on top of Postgres.
type service struct {
	db     *sqlx.DB
	events *eventlog.Log
	logger *slog.Logger
}

// NewService creates a new notification service instance.
func NewService(db *sqlx.DB, events *eventlog.Log, logger *slog.Logger) Service {
	return &service{db: db, events: events, logger: logger}
}

// Create raises an alert. With a dedupe key the insert is idempotent: the
// partial unique index swallows duplicates and Create returns nil, nil.
func (s *service) Create(ctx context.Context, in CreateInput) (*Notification, error) {
	n := &Notification{
		ID:        uuid.New(),
		Type:      in.Type,
		Title:     in.Title,
		Message:   in.Message,
		Priority:  in.Priority,
		CreatedAt: time.Now().UTC(),
	}
	if in.DedupeKey != "" {
		n.DedupeKey = &in.DedupeKey
	}
	if n.Priority == "" {
		n.Priority = PriorityLow
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, type, title, message, priority, read, dedupe_key, created_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6, $7)
		ON CONFLICT (dedupe_key) WHERE dedupe_key IS NOT NULL DO NOTHING
	`, n.ID, n.Type, n.Title, n.Message, n.Priority, n.DedupeKey, n.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		// Duplicate within the dedupe window.
		return nil, nil
	}

	event := NotificationCreatedEvent{ID: n.ID, Type: n.Type, Priority: n.Priority}
	if err := s.events.Append(ctx, n.ID, eventlog.AggregateNotification, "NotificationCreated", event, 0); err != nil {
		s.logger.Warn("notification event append failed", "notification_id", n.ID, "error", err)
	}

	return n, nil
}

// List returns every notification, newest first.
func (s *service) List(ctx context.Context) ([]*Notification, error) {
	var out []*Notification
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, type, title, message, priority, read, dedupe_key, created_at
		FROM notifications
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return out, nil
}

// UnreadCount returns the number of unread notifications.
func (s *service) UnreadCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notifications WHERE read = FALSE
	`).Scan(&count)
	if err != nil && err != sql.ErrNoRows {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}

// MarkRead flips the read flag on one notification.
func (s *service) MarkRead(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	s.notify(ctx, id.String())
	return nil
}

// MarkAllRead flips the read flag everywhere.
func (s *service) MarkAllRead(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE read = FALSE`); err != nil {
		return fmt.Errorf("mark all read: %w", err)
	}
	s.notify(ctx, "")
	return nil
}

// Delete removes one notification.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	s.notify(ctx, id.String())
	return nil
}

// DeleteAll clears the panel.
func (s *service) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM notifications`); err != nil {
		return fmt.Errorf("delete all notifications: %w", err)
	}
	s.notify(ctx, "")
	return nil
}

// notify nudges connected mirrors after mutations that are not recorded as
// domain events. Best effort: a missed nudge only delays the panel refresh.
func (s *service) notify(ctx context.Context, payload string) {
	if _, err := s.db.ExecContext(ctx, `SELECT pg_notify($1, $2)`,
		eventlog.Channel(eventlog.AggregateNotification), payload); err != nil {
		s.logger.Warn("notification change notify failed", "error", err)
	}
}
