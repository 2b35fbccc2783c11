package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"polycycle/internal/eventlog"
)

const defaultReorderThreshold = 10

// service implements the Service interface on top of Postgres.
type service struct {
	db       *sqlx.DB
	events   *eventlog.Log
	notifier Notifier
	logger   *slog.Logger
}

// NewService creates a new catalog service instance.
func NewService(db *sqlx.DB, events *eventlog.Log, notifier Notifier, logger *slog.Logger) Service {
	return &service{
		db:       db,
		events:   events,
		notifier: notifier,
		logger:   logger,
	}
}

const productColumns = `id, name, description, sku, price, available_colors, available_quantity,
	image, category, tags, reorder_threshold, variants, created_at, updated_at`

// List returns every product, newest first.
func (s *service) List(ctx context.Context) ([]*Product, error) {
	var products []*Product
	query := fmt.Sprintf(`SELECT %s FROM products ORDER BY created_at DESC`, productColumns)
	if err := s.db.SelectContext(ctx, &products, query); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// Get retrieves a single product.
func (s *service) Get(ctx context.Context, id uuid.UUID) (*Product, error) {
	p := &Product{}
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns)
	if err := s.db.GetContext(ctx, p, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// Add creates a new product in the catalog.
func (s *service) Add(ctx context.Context, in AddProductInput) (*Product, error) {
	if len(in.AvailableColors) == 0 {
		return nil, ErrNoColors
	}
	if in.Price.IsNegative() {
		return nil, ErrInvalidPrice
	}
	if in.AvailableQuantity < 0 {
		return nil, ErrNegativeStock
	}
	threshold := in.ReorderThreshold
	if threshold <= 0 {
		threshold = defaultReorderThreshold
	}

	now := time.Now().UTC()
	p := &Product{
		ID:                uuid.New(),
		Name:              in.Name,
		Description:       in.Description,
		SKU:               in.SKU,
		Price:             in.Price,
		AvailableColors:   pq.StringArray(in.AvailableColors),
		AvailableQuantity: in.AvailableQuantity,
		Image:             in.Image,
		Category:          in.Category,
		Tags:              pq.StringArray(in.Tags),
		ReorderThreshold:  threshold,
		Variants:          in.Variants,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, description, sku, price, available_colors, available_quantity,
			image, category, tags, reorder_threshold, variants, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, p.ID, p.Name, p.Description, p.SKU, p.Price, p.AvailableColors, p.AvailableQuantity,
		p.Image, p.Category, p.Tags, p.ReorderThreshold, p.Variants, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert product: %w", err)
	}

	event := ProductAddedEvent{
		ID:       p.ID,
		Name:     p.Name,
		SKU:      p.SKU,
		Price:    p.Price,
		Quantity: p.AvailableQuantity,
	}
	if err := s.events.Append(ctx, p.ID, eventlog.AggregateProduct, "ProductAdded", event, 0); err != nil {
		return nil, fmt.Errorf("append event: %w", err)
	}

	return p, nil
}

// Update applies a partial patch and stamps updated_at.
func (s *service) Update(ctx context.Context, id uuid.UUID, patch UpdateProductInput) (*Product, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var changed []string
	if patch.Name != nil {
		p.Name = *patch.Name
		changed = append(changed, "name")
	}
	if patch.Description != nil {
		p.Description = *patch.Description
		changed = append(changed, "description")
	}
	if patch.SKU != nil {
		p.SKU = *patch.SKU
		changed = append(changed, "sku")
	}
	if patch.Price != nil {
		if patch.Price.IsNegative() {
			return nil, ErrInvalidPrice
		}
		p.Price = *patch.Price
		changed = append(changed, "price")
	}
	if patch.AvailableColors != nil {
		if len(patch.AvailableColors) == 0 {
			return nil, ErrNoColors
		}
		p.AvailableColors = pq.StringArray(patch.AvailableColors)
		changed = append(changed, "available_colors")
	}
	if patch.Image != nil {
		p.Image = *patch.Image
		changed = append(changed, "image")
	}
	if patch.Category != nil {
		p.Category = *patch.Category
		changed = append(changed, "category")
	}
	if patch.Tags != nil {
		p.Tags = pq.StringArray(patch.Tags)
		changed = append(changed, "tags")
	}
	if patch.ReorderThreshold != nil {
		p.ReorderThreshold = *patch.ReorderThreshold
		changed = append(changed, "reorder_threshold")
	}
	if patch.Variants != nil {
		p.Variants = patch.Variants
		changed = append(changed, "variants")
	}
	if len(changed) == 0 {
		return p, nil
	}
	p.UpdatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $1, description = $2, sku = $3, price = $4, available_colors = $5,
			image = $6, category = $7, tags = $8, reorder_threshold = $9, variants = $10,
			updated_at = $11
		WHERE id = $12
	`, p.Name, p.Description, p.SKU, p.Price, p.AvailableColors,
		p.Image, p.Category, p.Tags, p.ReorderThreshold, p.Variants, p.UpdatedAt, id)
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	version, err := s.events.CurrentVersion(ctx, id)
	if err != nil {
		return nil, err
	}
	event := ProductUpdatedEvent{ID: id, Fields: changed}
	if err := s.events.Append(ctx, id, eventlog.AggregateProduct, "ProductUpdated", event, version); err != nil {
		return nil, fmt.Errorf("append event: %w", err)
	}

	return p, nil
}

// Delete removes a product from the catalog.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	version, err := s.events.CurrentVersion(ctx, id)
	if err != nil {
		return err
	}
	if err := s.events.Append(ctx, id, eventlog.AggregateProduct, "ProductDeleted", ProductDeletedEvent{ID: id}, version); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// UpdateStock writes an absolute quantity as a single conditional update and
// evaluates the reorder rule against the row the update returned, not a
// possibly stale in-memory copy.
func (s *service) UpdateStock(ctx context.Context, id uuid.UUID, newQuantity int) error {
	if newQuantity < 0 {
		return ErrNegativeStock
	}

	p := &Product{}
	query := fmt.Sprintf(`
		UPDATE products
		SET available_quantity = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING %s
	`, productColumns)
	if err := s.db.GetContext(ctx, p, query, newQuantity, id); err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return fmt.Errorf("update stock: %w", err)
	}

	s.recordStockEvent(ctx, id, newQuantity, "manual")
	s.checkReorderLevel(ctx, p)
	return nil
}

// ReserveStock debits n units only when enough stock remains.
func (s *service) ReserveStock(ctx context.Context, id uuid.UUID, n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("reserve stock: quantity must be positive")
	}

	p := &Product{}
	query := fmt.Sprintf(`
		UPDATE products
		SET available_quantity = available_quantity - $1, updated_at = NOW()
		WHERE id = $2 AND available_quantity >= $1
		RETURNING %s
	`, productColumns)
	err := s.db.GetContext(ctx, p, query, n, id)
	if err == sql.ErrNoRows {
		// Distinguish a missing product from an oversized reservation.
		if _, getErr := s.Get(ctx, id); getErr != nil {
			return 0, getErr
		}
		return 0, ErrInsufficientStock
	}
	if err != nil {
		return 0, fmt.Errorf("reserve stock: %w", err)
	}

	s.recordStockEvent(ctx, id, p.AvailableQuantity, "reserved")
	s.checkReorderLevel(ctx, p)
	return p.AvailableQuantity, nil
}

// ReleaseStock returns n units to the shelf.
func (s *service) ReleaseStock(ctx context.Context, id uuid.UUID, n int) error {
	if n <= 0 {
		return fmt.Errorf("release stock: quantity must be positive")
	}

	p := &Product{}
	query := fmt.Sprintf(`
		UPDATE products
		SET available_quantity = available_quantity + $1, updated_at = NOW()
		WHERE id = $2
		RETURNING %s
	`, productColumns)
	if err := s.db.GetContext(ctx, p, query, n, id); err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return fmt.Errorf("release stock: %w", err)
	}

	s.recordStockEvent(ctx, id, p.AvailableQuantity, "released")
	return nil
}

func (s *service) recordStockEvent(ctx context.Context, id uuid.UUID, newQuantity int, reason string) {
	version, err := s.events.CurrentVersion(ctx, id)
	if err != nil {
		s.logger.Warn("stock event version lookup failed", "product_id", id, "error", err)
		return
	}
	event := StockAdjustedEvent{ID: id, NewQuantity: newQuantity, Reason: reason}
	if err := s.events.Append(ctx, id, eventlog.AggregateProduct, "StockAdjusted", event, version); err != nil {
		s.logger.Warn("stock event append failed", "product_id", id, "error", err)
	}
}

// checkReorderLevel raises a low-stock alert when the quantity is at or below
// the reorder threshold. The alert is best-effort: a notification failure
// never rolls back the stock write.
func (s *service) checkReorderLevel(ctx context.Context, p *Product) {
	if !p.LowOnStock() {
		return
	}
	if err := s.notifier.LowStock(ctx, p, p.AvailableQuantity); err != nil {
		s.logger.Error("low stock notification failed", "product_id", p.ID, "error", err)
	}
}
