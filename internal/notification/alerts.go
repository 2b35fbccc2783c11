package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"polycycle/internal/catalog"
)

// Alerter raises domain alerts through the notification service. It satisfies
// catalog.Notifier and is handed to the checkout workflow.
type Alerter struct {
	service Service
}

func NewAlerter(service Service) *Alerter {
	return &Alerter{service: service}
}

// StockDedupeKey identifies one product's low-stock condition for one day.
// Repeated stock writes below the threshold on the same day collapse into a
// single alert; the condition re-alerts the next day if still unresolved.
func StockDedupeKey(productID uuid.UUID, day time.Time) string {
	return fmt.Sprintf("stock:%s:%s", productID, day.UTC().Format("2006-01-02"))
}

// LowStock raises a high-priority stock alert for the product.
func (a *Alerter) LowStock(ctx context.Context, p *catalog.Product, remaining int) error {
	_, err := a.service.Create(ctx, CreateInput{
		Type:      TypeStock,
		Title:     "Low Stock Alert",
		Message:   fmt.Sprintf("%s is running low (%d tons remaining)", p.Name, remaining),
		Priority:  PriorityHigh,
		DedupeKey: StockDedupeKey(p.ID, time.Now()),
	})
	return err
}

// OrderPlaced raises a medium-priority alert for a new order.
func (a *Alerter) OrderPlaced(ctx context.Context, orderID uuid.UUID, customerName string, total decimal.Decimal) error {
	_, err := a.service.Create(ctx, CreateInput{
		Type:     TypeOrder,
		Title:    "New Order",
		Message:  fmt.Sprintf("Order %s placed by %s, total %s", orderID, customerName, total.StringFixed(2)),
		Priority: PriorityMedium,
	})
	return err
}
