package outreach

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polycycle/internal/db"
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

func newTestService(t *testing.T) Service {
	t.Helper()
	d := setupTestDB(t)
	t.Cleanup(func() { d.Close() })
	return NewService(d, nil, "", slog.Default())
}

func TestSubmitContactValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.SubmitContact(ctx, SubmitContactInput{Email: "not-an-address", Message: "hello"})
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = svc.SubmitContact(ctx, SubmitContactInput{Email: "a@example.com", Message: "   "})
	assert.ErrorIs(t, err, ErrMissingMessage)
}

func TestSubmitContactStoresWithoutMailer(t *testing.T) {
	svc := newTestService(t)

	sub, err := svc.SubmitContact(context.Background(), SubmitContactInput{
		Name:    "Dana",
		Email:   "dana@example.com",
		Subject: "Bulk pricing",
		Message: "Do you offer volume discounts on PET flakes?",
	})
	require.NoError(t, err)
	assert.False(t, sub.Forwarded, "no mailer configured, nothing forwarded")

	subs, err := svc.ListContacts(context.Background(), 10)
	require.NoError(t, err)
	require.NotEmpty(t, subs)
	assert.Equal(t, sub.ID, subs[0].ID)
}

func TestSubscribeIsIdempotent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	email := fmt.Sprintf("sub-%s@example.com", uuid.NewString())

	first, err := svc.Subscribe(ctx, email)
	require.NoError(t, err)

	second, err := svc.Subscribe(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "re-subscribing keeps the original row")

	// Addresses normalize to lower case before the uniqueness check.
	third, err := svc.Subscribe(ctx, "SUB-"+email[4:])
	require.NoError(t, err)
	assert.Equal(t, first.ID, third.ID)
}

func TestSubscribeRejectsInvalidEmail(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Subscribe(context.Background(), "not an email")
	assert.ErrorIs(t, err, ErrInvalidEmail)
}
