package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"polycycle/internal/eventlog"
)

// service implements the Service interface on top of Postgres.
type service struct {
	db     *sqlx.DB
	events *eventlog.Log
	logger *slog.Logger
}

// NewService creates a new order service instance.
func NewService(db *sqlx.DB, events *eventlog.Log, logger *slog.Logger) Service {
	return &service{db: db, events: events, logger: logger}
}

const orderColumns = `id, user_id, status, items, total, customer, notes, shipping, refund, ordered_at, updated_at`

// orderRow carries JSONB columns as raw bytes; shipping and refund are
// nullable.
type orderRow struct {
	ID        uuid.UUID       `db:"id"`
	UserID    uuid.UUID       `db:"user_id"`
	Status    string          `db:"status"`
	Items     []byte          `db:"items"`
	Total     decimal.Decimal `db:"total"`
	Customer  []byte          `db:"customer"`
	Notes     string          `db:"notes"`
	Shipping  []byte          `db:"shipping"`
	Refund    []byte          `db:"refund"`
	OrderedAt time.Time       `db:"ordered_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

func (r orderRow) toOrder() (*Order, error) {
	o := &Order{
		ID:        r.ID,
		UserID:    r.UserID,
		Status:    Status(r.Status),
		Total:     r.Total,
		Notes:     r.Notes,
		OrderedAt: r.OrderedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if err := json.Unmarshal(r.Items, &o.Items); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	if err := json.Unmarshal(r.Customer, &o.Customer); err != nil {
		return nil, fmt.Errorf("decode customer: %w", err)
	}
	if len(r.Shipping) > 0 {
		o.Shipping = &Shipping{}
		if err := json.Unmarshal(r.Shipping, o.Shipping); err != nil {
			return nil, fmt.Errorf("decode shipping: %w", err)
		}
	}
	if len(r.Refund) > 0 {
		o.Refund = &Refund{}
		if err := json.Unmarshal(r.Refund, o.Refund); err != nil {
			return nil, fmt.Errorf("decode refund: %w", err)
		}
	}
	return o, nil
}

// Create stores a new pending order with a server-assigned timestamp.
func (s *service) Create(ctx context.Context, userID uuid.UUID, items LineItems, customer Customer, notes string) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}

	now := time.Now().UTC()
	o := &Order{
		ID:        uuid.New(),
		UserID:    userID,
		Status:    StatusPending,
		Items:     items,
		Total:     items.Total(),
		Customer:  customer,
		Notes:     notes,
		OrderedAt: now,
		UpdatedAt: now,
	}

	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return nil, fmt.Errorf("encode items: %w", err)
	}
	customerJSON, err := json.Marshal(o.Customer)
	if err != nil {
		return nil, fmt.Errorf("encode customer: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, status, items, total, customer, notes, ordered_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, o.ID, o.UserID, o.Status, itemsJSON, o.Total, customerJSON, o.Notes, o.OrderedAt, o.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	event := OrderPlacedEvent{ID: o.ID, UserID: o.UserID, Total: o.Total, Items: len(o.Items)}
	if err := s.events.Append(ctx, o.ID, eventlog.AggregateOrder, "OrderPlaced", event, 0); err != nil {
		s.logger.Warn("order event append failed", "order_id", o.ID, "error", err)
	}

	return o, nil
}

// Get retrieves one order.
func (s *service) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	row := orderRow{}
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1`, orderColumns)
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return row.toOrder()
}

// ListByUser returns a user's orders, newest first.
func (s *service) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE user_id = $1 ORDER BY ordered_at DESC`, orderColumns)
	var rows []orderRow
	if err := s.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return toOrders(rows)
}

// ListAll returns every order, newest first, for the back office.
func (s *service) ListAll(ctx context.Context) ([]*Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders ORDER BY ordered_at DESC`, orderColumns)
	var rows []orderRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return toOrders(rows)
}

func toOrders(rows []orderRow) ([]*Order, error) {
	orders := make([]*Order, 0, len(rows))
	for _, r := range rows {
		o, err := r.toOrder()
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// UpdateStatus moves an order through the state machine.
func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, next Status) (*Order, error) {
	if !next.Valid() {
		return nil, ErrInvalidStatus
	}

	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.Status.CanTransition(next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, next)
	}

	prev := o.Status
	o.Status = next
	o.UpdatedAt = time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3
	`, o.Status, o.UpdatedAt, id)
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	version, vErr := s.events.CurrentVersion(ctx, id)
	if vErr == nil {
		event := OrderStatusChangedEvent{ID: id, From: prev, To: next}
		if err := s.events.Append(ctx, id, eventlog.AggregateOrder, "OrderStatusChanged", event, version); err != nil {
			s.logger.Warn("order event append failed", "order_id", id, "error", err)
		}
	}

	return o, nil
}

// AttachShipping records carrier details; typically paired with the shipped
// transition.
func (s *service) AttachShipping(ctx context.Context, id uuid.UUID, shipping Shipping) (*Order, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if shipping.ShippedAt.IsZero() {
		shipping.ShippedAt = time.Now().UTC()
	}
	o.Shipping = &shipping
	o.UpdatedAt = time.Now().UTC()

	shippingJSON, err := json.Marshal(o.Shipping)
	if err != nil {
		return nil, fmt.Errorf("encode shipping: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE orders SET shipping = $1, updated_at = $2 WHERE id = $3
	`, shippingJSON, o.UpdatedAt, id)
	if err != nil {
		return nil, fmt.Errorf("attach shipping: %w", err)
	}
	return o, nil
}

// AttachRefund records a refund against a canceled or returned order.
func (s *service) AttachRefund(ctx context.Context, id uuid.UUID, refund Refund) (*Order, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if refund.RefundedAt.IsZero() {
		refund.RefundedAt = time.Now().UTC()
	}
	o.Refund = &refund
	o.UpdatedAt = time.Now().UTC()

	refundJSON, err := json.Marshal(o.Refund)
	if err != nil {
		return nil, fmt.Errorf("encode refund: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE orders SET refund = $1, updated_at = $2 WHERE id = $3
	`, refundJSON, o.UpdatedAt, id)
	if err != nil {
		return nil, fmt.Errorf("attach refund: %w", err)
	}
	return o, nil
}

// Stats pulls the dashboard aggregates in a single scan over orders.
func (s *service) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'pending'),
		       COALESCE(SUM(total) FILTER (WHERE status NOT IN ('canceled', 'returned')), 0)
		FROM orders
	`).Scan(&st.TotalOrders, &st.PendingOrders, &st.Revenue)
	if err != nil {
		return nil, fmt.Errorf("order stats: %w", err)
	}
	return st, nil
}
