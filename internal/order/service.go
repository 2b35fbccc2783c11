package order

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrInvalidStatus     = errors.New("unknown order status")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrEmptyOrder        = errors.New("order must contain at least one item")
)

// Service defines order persistence and administration.
type Service interface {
	// Create stores a new pending order. The total is computed from the
	// line items here, once, and never recomputed afterwards.
	Create(ctx context.Context, userID uuid.UUID, items LineItems, customer Customer, notes string) (*Order, error)

	Get(ctx context.Context, id uuid.UUID) (*Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Order, error)
	ListAll(ctx context.Context) ([]*Order, error)

	UpdateStatus(ctx context.Context, id uuid.UUID, next Status) (*Order, error)
	AttachShipping(ctx context.Context, id uuid.UUID, shipping Shipping) (*Order, error)
	AttachRefund(ctx context.Context, id uuid.UUID, refund Refund) (*Order, error)

	// Stats aggregates the dashboard figures in one query. Canceled and
	// returned orders count toward the total but not toward revenue.
	Stats(ctx context.Context) (*Stats, error)
}
