package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polycycle/internal/db"
	"polycycle/internal/eventlog"
)

func setupTestDB(t testing.TB) *sqlx.DB {
	t.Helper()

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		envOr("PGHOST", "localhost"), envOr("PGPORT", "5432"),
		envOr("PGUSER", "polycycle"), envOr("PGPASSWORD", "polycycle"),
		envOr("PGDATABASE", "polycycle_test"))

	d, err := sqlx.Open("postgres", connStr)
	require.NoError(t, err)

	if err := d.Ping(); err != nil {
		t.Skipf("skipping: could not connect to postgres: %v", err)
	}

	require.NoError(t, db.EnsureSchema(context.Background(), d))
	return d
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// recordingNotifier captures low-stock alerts raised by the service.
type recordingNotifier struct {
	mu     sync.Mutex
	alerts []int
}

func (n *recordingNotifier) LowStock(_ context.Context, _ *Product, remaining int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, remaining)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.alerts)
}

func newTestService(t *testing.T) (Service, *recordingNotifier, *sqlx.DB) {
	t.Helper()
	d := setupTestDB(t)
	t.Cleanup(func() { d.Close() })

	notifier := &recordingNotifier{}
	svc := NewService(d, eventlog.New(d), notifier, slog.Default())
	return svc, notifier, d
}

func addTestProduct(t *testing.T, svc Service, quantity, threshold int) *Product {
	t.Helper()
	p, err := svc.Add(context.Background(), AddProductInput{
		Name:              "HDPE Pellets",
		Description:       "Recycled HDPE pellets",
		SKU:               "HDPE-TEST",
		Price:             decimal.RequireFromString("120.50"),
		AvailableColors:   []string{"green"},
		AvailableQuantity: quantity,
		Category:          "pellets",
		ReorderThreshold:  threshold,
	})
	require.NoError(t, err)
	return p
}

func TestAddValidatesInput(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, AddProductInput{
		Name:  "No Colors",
		SKU:   "NC-1",
		Price: decimal.NewFromInt(10),
	})
	assert.ErrorIs(t, err, ErrNoColors)

	_, err = svc.Add(ctx, AddProductInput{
		Name:            "Bad Price",
		SKU:             "BP-1",
		Price:           decimal.NewFromInt(-1),
		AvailableColors: []string{"green"},
	})
	assert.ErrorIs(t, err, ErrInvalidPrice)
}

func TestUpdateStockFiresLowStockRule(t *testing.T) {
	svc, notifier, _ := newTestService(t)
	ctx := context.Background()

	p := addTestProduct(t, svc, 50, 10)

	require.NoError(t, svc.UpdateStock(ctx, p.ID, 30))
	assert.Equal(t, 0, notifier.count(), "above threshold, no alert")

	require.NoError(t, svc.UpdateStock(ctx, p.ID, 10))
	assert.Equal(t, 1, notifier.count(), "threshold itself is low")

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.AvailableQuantity)
}

func TestUpdateStockRejectsNegative(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	p := addTestProduct(t, svc, 20, 10)

	assert.ErrorIs(t, svc.UpdateStock(ctx, p.ID, -1), ErrNegativeStock)

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, got.AvailableQuantity, "rejected write must not change stock")
}

func TestReserveStockDebitsConditionally(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	p := addTestProduct(t, svc, 5, 0)

	remaining, err := svc.ReserveStock(ctx, p.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)

	_, err = svc.ReserveStock(ctx, p.ID, 3)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.AvailableQuantity, "failed reservation must not partially debit")
}

func TestReleaseStockCompensates(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	p := addTestProduct(t, svc, 5, 0)

	_, err := svc.ReserveStock(ctx, p.ID, 4)
	require.NoError(t, err)
	require.NoError(t, svc.ReleaseStock(ctx, p.ID, 4))

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.AvailableQuantity)
}

func TestUpdatePatchesOnlyGivenFields(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	p := addTestProduct(t, svc, 20, 10)

	newName := "HDPE Pellets Premium"
	got, err := svc.Update(ctx, p.ID, UpdateProductInput{Name: &newName})
	require.NoError(t, err)

	assert.Equal(t, newName, got.Name)
	assert.Equal(t, p.SKU, got.SKU)
	assert.True(t, got.Price.Equal(p.Price))
	assert.Equal(t, 20, got.AvailableQuantity)
}

func TestGetMissingProduct(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}
