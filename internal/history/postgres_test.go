package history

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/maltedev/price-monitor/internal/database"
	"github.com/maltedev/price-monitor/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Store = (*Postgres)(nil)
	_ Store = (*Memory)(nil)
)

func setupPostgres(t *testing.T) (*Postgres, uuid.UUID) {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := database.New(ctx, database.Config{URL: dsn})
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(ctx))

	product, err := database.NewProductRepository(db).Add(ctx,
		models.NewProduct("https://shop.example.com/"+uuid.NewString(), "Test"))
	require.NoError(t, err)

	return NewPostgres(db), product.ID
}

func TestPostgres_AppendLatestRecent(t *testing.T) {
	ctx := context.Background()
	store, id := setupPostgres(t)

	latest, err := store.Latest(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, latest)

	for i := 0; i < 5; i++ {
		r := rec(id, time.Duration(i)*time.Hour, int64(1000-i))
		r.Price = r.Price.Add(decimal.RequireFromString("0.56"))
		require.NoError(t, store.Append(ctx, r))
	}

	latest, err = store.Latest(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, latest.ObservedAt.Equal(base.Add(4*time.Hour)))
	assert.Equal(t, "996.56", latest.Price.String())

	recent, err := store.Recent(ctx, id, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.True(t, recent[0].ObservedAt.Equal(base.Add(2*time.Hour)))
	assert.True(t, recent[2].ObservedAt.Equal(base.Add(4*time.Hour)))
}

func TestPostgres_RejectsStaleRecords(t *testing.T) {
	ctx := context.Background()
	store, id := setupPostgres(t)

	require.NoError(t, store.Append(ctx, rec(id, time.Hour, 100)))
	assert.ErrorIs(t, store.Append(ctx, rec(id, time.Hour, 100)), ErrDuplicateRecord)
	assert.ErrorIs(t, store.Append(ctx, rec(id, 0, 100)), ErrDuplicateRecord)
}

func TestPostgres_ConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	store, id := setupPostgres(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := store.Append(ctx, rec(id, time.Duration(i)*time.Second, 10))
			if err != nil {
				assert.ErrorIs(t, err, ErrDuplicateRecord)
			}
		}(i)
	}
	wg.Wait()

	recent, err := store.Recent(ctx, id, 0)
	require.NoError(t, err)
	for i := 1; i < len(recent); i++ {
		assert.True(t, recent[i].ObservedAt.After(recent[i-1].ObservedAt))
	}
}

func TestStoreError(t *testing.T) {
	err := storeError("insert price record", assert.AnError)
	assert.ErrorIs(t, err, ErrStore)
	assert.Contains(t, err.Error(), "store_error")
}
