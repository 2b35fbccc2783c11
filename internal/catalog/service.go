package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("product not found")
	ErrNegativeStock     = errors.New("stock quantity must not be negative")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrNoColors          = errors.New("at least one color is required")
	ErrInvalidPrice      = errors.New("price must not be negative")
)

// AddProductInput carries the fields an administrator supplies for a new
// product. ReorderThreshold falls back to the default when zero.
type AddProductInput struct {
	Name              string
	Description       string
	SKU               string
	Price             decimal.Decimal
	AvailableColors   []string
	AvailableQuantity int
	Image             string
	Category          string
	Tags              []string
	ReorderThreshold  int
	Variants          VariantMap
}

// UpdateProductInput is a partial patch; nil fields are left untouched.
type UpdateProductInput struct {
	Name             *string
	Description      *string
	SKU              *string
	Price            *decimal.Decimal
	AvailableColors  []string
	Image            *string
	Category         *string
	Tags             []string
	ReorderThreshold *int
	Variants         VariantMap
}

// Service defines the catalog operations.
type Service interface {
	List(ctx context.Context) ([]*Product, error)
	Get(ctx context.Context, id uuid.UUID) (*Product, error)
	Add(ctx context.Context, in AddProductInput) (*Product, error)
	Update(ctx context.Context, id uuid.UUID, patch UpdateProductInput) (*Product, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// UpdateStock writes an absolute quantity and fires the low-stock rule
	// when the new quantity is at or below the product's reorder threshold.
	UpdateStock(ctx context.Context, id uuid.UUID, newQuantity int) error

	// ReserveStock conditionally debits n units, failing with
	// ErrInsufficientStock rather than letting the quantity go negative.
	// The storefront calls this when an item is added to a cart.
	ReserveStock(ctx context.Context, id uuid.UUID, n int) (remaining int, err error)

	// ReleaseStock returns n units, compensating a failed or undone
	// reservation.
	ReleaseStock(ctx context.Context, id uuid.UUID, n int) error
}

// Notifier receives low-stock alerts raised by stock mutations. The
// notification package provides the production implementation.
type Notifier interface {
	LowStock(ctx context.Context, p *Product, remaining int) error
}
