package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is an order's lifecycle state. Orders are never deleted; they only
// move through states.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCanceled   Status = "canceled"
	StatusReturned   Status = "returned"
)

// allowedTransitions is the administrator-driven state machine.
var allowedTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCanceled},
	StatusProcessing: {StatusShipped, StatusCanceled},
	StatusShipped:    {StatusDelivered, StatusReturned},
	StatusDelivered:  {StatusReturned},
	StatusCanceled:   {},
	StatusReturned:   {},
}

// CanTransition reports whether a move from s to next is allowed.
func (s Status) CanTransition(next Status) bool {
	for _, t := range allowedTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// LineItem is a frozen copy of a cart line at submission time. Later product
// price changes never affect it.
type LineItem struct {
	ProductID     uuid.UUID       `json:"product_id"`
	Name          string          `json:"name"`
	SKU           string          `json:"sku"`
	SelectedColor string          `json:"selected_color"`
	Quantity      int             `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
}

// LineItems is persisted as a JSONB column.
type LineItems []LineItem

// Total is the sum of price times quantity over the lines.
func (l LineItems) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range l {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

// Customer is the contact and address block captured at checkout.
type Customer struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Shipping is the optional shipment sub-record attached when an order ships.
type Shipping struct {
	Carrier    string    `json:"carrier"`
	TrackingID string    `json:"tracking_id"`
	ShippedAt  time.Time `json:"shipped_at"`
}

// Refund is the optional refund sub-record attached on cancellation/return.
type Refund struct {
	Amount     decimal.Decimal `json:"amount"`
	Reason     string          `json:"reason"`
	RefundedAt time.Time       `json:"refunded_at"`
}

// Order is a placed order. Total is frozen at creation time.
type Order struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	UserID    uuid.UUID       `json:"user_id" db:"user_id"`
	Status    Status          `json:"status" db:"status"`
	Items     LineItems       `json:"items" db:"items"`
	Total     decimal.Decimal `json:"total" db:"total"`
	Customer  Customer        `json:"customer" db:"customer"`
	Notes     string          `json:"notes" db:"notes"`
	Shipping  *Shipping       `json:"shipping,omitempty" db:"shipping"`
	Refund    *Refund         `json:"refund,omitempty" db:"refund"`
	OrderedAt time.Time       `json:"ordered_at" db:"ordered_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// OrderPlacedEvent is recorded when a checkout completes.
type OrderPlacedEvent struct {
	ID     uuid.UUID       `json:"id"`
	UserID uuid.UUID       `json:"user_id"`
	Total  decimal.Decimal `json:"total"`
	Items  int             `json:"items"`
}

// OrderStatusChangedEvent is recorded on every status transition.
type OrderStatusChangedEvent struct {
	ID   uuid.UUID `json:"id"`
	From Status    `json:"from"`
	To   Status    `json:"to"`
}

// Stats are the dashboard aggregates over all orders.
type Stats struct {
	TotalOrders   int             `json:"total_orders"`
	PendingOrders int             `json:"pending_orders"`
	Revenue       decimal.Decimal `json:"revenue"`
}
