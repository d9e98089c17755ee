package app

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/maltedev/price-monitor/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_MemoryStorage(t *testing.T) {
	t.Setenv("STORAGE", "memory")
	cfg, err := config.Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := New(context.Background(), cfg, logger, Options{})
	require.NoError(t, err)

	assert.Nil(t, a.DB)
	assert.Nil(t, a.Outbox)
	assert.Nil(t, a.Renderer)
	assert.NotNil(t, a.Registry)
	assert.NotNil(t, a.History)
	assert.NotNil(t, a.Checker)

	relay, err := a.NewRelay(context.Background())
	require.NoError(t, err)
	assert.Nil(t, relay)

	products, err := a.Registry.ListActive(context.Background())
	require.NoError(t, err)
	assert.Empty(t, products)

	assert.NoError(t, a.Close())
}

func TestNew_UnknownStorage(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.Storage = "sqlite"

	_, err = New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), Options{})
	assert.ErrorContains(t, err, "unknown storage")
}
