package database

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// setupTestDB connects to TEST_DATABASE_URL and resets the tables.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := New(ctx, Config{URL: dsn})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx))

	_, err = db.Exec(ctx, `TRUNCATE alert_outbox, price_history, products`)
	require.NoError(t, err)

	t.Cleanup(db.Close)
	return db
}

func TestConfig_DSN(t *testing.T) {
	cfg := Config{Host: "db", Port: 5432, User: "monitor", Password: "p@ss word", Database: "prices"}
	require.Equal(t, "postgres://monitor:p%40ss%20word@db:5432/prices?sslmode=disable", cfg.DSN())

	cfg.SSLMode = "require"
	require.Contains(t, cfg.DSN(), "sslmode=require")

	cfg.URL = "postgres://override/db"
	require.Equal(t, "postgres://override/db", cfg.DSN())
}
