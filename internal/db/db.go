package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Options mirrors the postgres section of the service configuration.
type Options struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open connects to Postgres, applies pool settings and verifies the
// connection with a ping.
func Open(ctx context.Context, opts Options) (*sqlx.DB, error) {
	d, err := sqlx.Open("postgres", opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		d.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		d.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		d.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	if err := d.PingContext(ctx); err != nil {
		d.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return d, nil
}

// EnsureSchema creates the tables the services depend on if they do not
// exist yet. Statements are idempotent so every binary can run it at boot.
func EnsureSchema(ctx context.Context, d *sqlx.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := d.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
