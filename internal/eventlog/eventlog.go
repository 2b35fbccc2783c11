package eventlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrConcurrencyConflict = errors.New("concurrency conflict: version mismatch")
	ErrInvalidVersion      = errors.New("invalid version number")
)

// Aggregate types recorded in the log.
const (
	AggregateProduct      = "product"
	AggregateOrder        = "order"
	AggregateUser         = "user"
	AggregateNotification = "notification"
)

// Channel returns the NOTIFY channel name for an aggregate type. Mirrors
// subscribe to these channels and reload their snapshot on every payload.
func Channel(aggregateType string) string {
	return "polycycle_" + aggregateType
}

// Event is one append-only domain event.
type Event struct {
	ID            int64           `json:"id" db:"id"`
	AggregateID   uuid.UUID       `json:"aggregate_id" db:"aggregate_id"`
	AggregateType string          `json:"aggregate_type" db:"aggregate_type"`
	EventType     string          `json:"event_type" db:"event_type"`
	EventData     json.RawMessage `json:"event_data" db:"event_data"`
	Version       int             `json:"version" db:"version"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// Log appends domain events with optimistic concurrency control and emits a
// pg_notify per append so connected mirrors can resync.
type Log struct {
	db     *sqlx.DB
	tracer trace.Tracer
}

func New(db *sqlx.DB) *Log {
	return &Log{
		db:     db,
		tracer: otel.Tracer("polycycle/eventlog"),
	}
}

// Append atomically records an event for the aggregate and notifies the
// aggregate's change channel. expectedVersion 0 means a brand-new aggregate.
func (l *Log) Append(ctx context.Context, aggregateID uuid.UUID, aggregateType, eventType string, data any, expectedVersion int) error {
	ctx, span := l.tracer.Start(ctx, "eventlog.append",
		trace.WithAttributes(
			attribute.String("aggregate.id", aggregateID.String()),
			attribute.String("aggregate.type", aggregateType),
			attribute.String("event.type", eventType),
			attribute.Int("expected.version", expectedVersion),
		),
	)
	defer span.End()

	if expectedVersion < 0 {
		return ErrInvalidVersion
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var currentVersion int
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(version), 0)
		FROM events
		WHERE aggregate_id = $1
	`, aggregateID).Scan(&currentVersion)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("query current version: %w", err)
	}

	if currentVersion != expectedVersion {
		span.SetAttributes(attribute.Bool("conflict.detected", true))
		return ErrConcurrencyConflict
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO events (aggregate_id, aggregate_type, event_type, event_data, version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, aggregateID, aggregateType, eventType, payload, expectedVersion+1, time.Now().UTC())
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrConcurrencyConflict
		}
		return fmt.Errorf("insert event: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, Channel(aggregateType), aggregateID.String()); err != nil {
		return fmt.Errorf("notify channel: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// CurrentVersion returns the latest recorded version for an aggregate, 0 if
// none exists yet.
func (l *Log) CurrentVersion(ctx context.Context, aggregateID uuid.UUID) (int, error) {
	var version int
	err := l.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(version), 0)
		FROM events
		WHERE aggregate_id = $1
	`, aggregateID).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return 0, fmt.Errorf("query version: %w", err)
	}
	return version, nil
}

// Recent returns the newest events across all aggregates, newest first. The
// admin activity feed is built on this.
func (l *Log) Recent(ctx context.Context, limit int) ([]Event, error) {
	ctx, span := l.tracer.Start(ctx, "eventlog.recent",
		trace.WithAttributes(attribute.Int("limit", limit)),
	)
	defer span.End()

	if limit <= 0 {
		limit = 50
	}

	var events []Event
	err := l.db.SelectContext(ctx, &events, `
		SELECT id, aggregate_id, aggregate_type, event_type, event_data, version, created_at
		FROM events
		ORDER BY id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent events: %w", err)
	}

	span.SetAttributes(attribute.Int("events.loaded", len(events)))
	return events, nil
}
