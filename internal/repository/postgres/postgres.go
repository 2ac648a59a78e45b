package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a pgx pool.
type DB struct {
	pool *pgxpool.Pool
}

// New connects to databaseURL, verifies the server answers within ctx and
// applies the schema.
func New(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{pool: pool}
	if err := db.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

func (db *DB) migrate(ctx context.Context) error {
	_, err := db.pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS waste_logs (
		seq BIGSERIAL,
		id TEXT PRIMARY KEY,
		waste_type TEXT NOT NULL,
		bin_type TEXT NOT NULL,
		recyclable BOOLEAN NOT NULL DEFAULT FALSE,
		confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
		device_id TEXT NOT NULL DEFAULT '',
		ts TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS bin_status (
		bin_type TEXT PRIMARY KEY,
		document JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_waste_logs_bin_type ON waste_logs(bin_type);
	CREATE INDEX IF NOT EXISTS idx_waste_logs_ts ON waste_logs(ts);
	`)
	return err
}

// Close releases the pool resources.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Pool exposes the pgx pool to repositories.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}
