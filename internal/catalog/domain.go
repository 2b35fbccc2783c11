package catalog

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Product is a recycled-plastics catalog entry. Price is per ton.
type Product struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	Name              string          `json:"name" db:"name"`
	Description       string          `json:"description" db:"description"`
	SKU               string          `json:"sku" db:"sku"`
	Price             decimal.Decimal `json:"price" db:"price"`
	AvailableColors   pq.StringArray  `json:"available_colors" db:"available_colors"`
	AvailableQuantity int             `json:"available_quantity" db:"available_quantity"`
	Image             string          `json:"image" db:"image"`
	Category          string          `json:"category" db:"category"`
	Tags              pq.StringArray  `json:"tags" db:"tags"`
	ReorderThreshold  int             `json:"reorder_threshold" db:"reorder_threshold"`
	Variants          VariantMap      `json:"variants,omitempty" db:"variants"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

// LowOnStock reports whether the product is at or below its reorder threshold.
func (p *Product) LowOnStock() bool {
	return p.AvailableQuantity <= p.ReorderThreshold
}

// Variant is an optional per-color/size variation with its own SKU and price.
type Variant struct {
	SKU        string          `json:"sku"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
	Attributes struct {
		Color string `json:"color,omitempty"`
		Size  string `json:"size,omitempty"`
	} `json:"attributes"`
}

// VariantMap stores variants keyed by variant id, persisted as JSONB.
type VariantMap map[string]Variant

func (m VariantMap) Value() (driver.Value, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *VariantMap) Scan(src any) error {
	if src == nil {
		*m = nil
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("unsupported variants type %T", src)
	}
	return json.Unmarshal(b, m)
}

// ProductAddedEvent is recorded when a product enters the catalog.
type ProductAddedEvent struct {
	ID       uuid.UUID       `json:"id"`
	Name     string          `json:"name"`
	SKU      string          `json:"sku"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// ProductUpdatedEvent is recorded when product fields change.
type ProductUpdatedEvent struct {
	ID     uuid.UUID `json:"id"`
	Fields []string  `json:"fields"`
}

// StockAdjustedEvent is recorded on every stock mutation.
type StockAdjustedEvent struct {
	ID          uuid.UUID `json:"id"`
	NewQuantity int       `json:"new_quantity"`
	Reason      string    `json:"reason"`
}

// ProductDeletedEvent is recorded when a product is removed.
type ProductDeletedEvent struct {
	ID uuid.UUID `json:"id"`
}
