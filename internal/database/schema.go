package database

import (
	"context"
	"fmt"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id         UUID PRIMARY KEY,
		url        TEXT NOT NULL UNIQUE,
		name       TEXT NOT NULL,
		store      TEXT NOT NULL,
		active     BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS price_history (
		id          BIGSERIAL PRIMARY KEY,
		product_id  UUID NOT NULL REFERENCES products(id),
		observed_at TIMESTAMPTZ NOT NULL,
		price       NUMERIC(14,2) NOT NULL CHECK (price > 0),
		currency    TEXT NOT NULL,
		in_stock    BOOLEAN NOT NULL,
		UNIQUE (product_id, observed_at)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_price_history_product_observed
		ON price_history (product_id, observed_at DESC)`,
	`CREATE TABLE IF NOT EXISTS alert_outbox (
		id              UUID PRIMARY KEY,
		product_id      UUID NOT NULL REFERENCES products(id),
		kind            TEXT NOT NULL CHECK (kind IN ('PRICE_DROP', 'RESTOCK')),
		observed_at     TIMESTAMPTZ NOT NULL,
		payload         JSONB NOT NULL,
		attempts        INT NOT NULL DEFAULT 0,
		last_error      TEXT,
		stream_id       TEXT,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		next_attempt_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		published_at    TIMESTAMPTZ,
		dead_at         TIMESTAMPTZ,
		UNIQUE (product_id, kind, observed_at)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_alert_outbox_due
		ON alert_outbox (next_attempt_at)
		WHERE published_at IS NULL AND dead_at IS NULL`,
}

// Migrate creates the tables used by the monitor. It is safe to run on
// every start.
func (db *DB) Migrate(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", i+1, err)
		}
	}
	return nil
}
