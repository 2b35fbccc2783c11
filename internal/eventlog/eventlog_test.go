package eventlog

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polycycle/internal/db"
)

// setupTestDB connects to the Postgres pointed at by the standard PG*
// environment variables and skips the test when none is reachable.
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

type testEvent struct {
	Message string `json:"message"`
}

func TestAppendAndCurrentVersion(t *testing.T) {
	d := setupTestDB(t)
	defer d.Close()
	log := New(d)
	ctx := context.Background()

	aggregateID := uuid.New()

	v, err := log.CurrentVersion(ctx, aggregateID)
	require.NoError(t, err)
	assert.Equal(t, 0, v)

	require.NoError(t, log.Append(ctx, aggregateID, AggregateProduct, "ProductAdded", testEvent{Message: "first"}, 0))
	require.NoError(t, log.Append(ctx, aggregateID, AggregateProduct, "StockAdjusted", testEvent{Message: "second"}, 1))

	v, err = log.CurrentVersion(ctx, aggregateID)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestAppendDetectsConcurrencyConflict(t *testing.T) {
	d := setupTestDB(t)
	defer d.Close()
	log := New(d)
	ctx := context.Background()

	aggregateID := uuid.New()
	require.NoError(t, log.Append(ctx, aggregateID, AggregateOrder, "OrderPlaced", testEvent{Message: "first"}, 0))

	// A writer that still believes the version is 0 must be rejected.
	err := log.Append(ctx, aggregateID, AggregateOrder, "OrderStatusChanged", testEvent{Message: "stale"}, 0)
	assert.ErrorIs(t, err, ErrConcurrencyConflict)
}

func TestRecentReturnsNewestFirst(t *testing.T) {
	d := setupTestDB(t)
	defer d.Close()
	log := New(d)
	ctx := context.Background()

	aggregateID := uuid.New()
	for i := 0; i < 3; i++ {
		require.NoError(t, log.Append(ctx, aggregateID, AggregateUser, "RoleGranted", testEvent{Message: fmt.Sprintf("event %d", i)}, i))
	}

	events, err := log.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Greater(t, events[0].ID, events[1].ID)
}

func TestChannelNaming(t *testing.T) {
	assert.Equal(t, "polycycle_product", Channel(AggregateProduct))
	assert.Equal(t, "polycycle_order", Channel(AggregateOrder))
}
