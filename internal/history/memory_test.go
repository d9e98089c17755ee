package history

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/maltedev/price-monitor/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func rec(id uuid.UUID, offset time.Duration, price int64) models.PriceRecord {
	return models.PriceRecord{
		ProductID:  id,
		ObservedAt: base.Add(offset),
		Price:      decimal.NewFromInt(price),
		Currency:   "ARS",
		InStock:    true,
	}
}

func TestMemory_LatestEmpty(t *testing.T) {
	latest, err := NewMemory().Latest(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestMemory_LatestIsMaxTimestamp(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	id := uuid.New()

	for i := 0; i < 10; i++ {
		require.NoError(t, store.Append(ctx, rec(id, time.Duration(i)*time.Hour, int64(1000+i))))
	}

	latest, err := store.Latest(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, latest.ObservedAt.Equal(base.Add(9*time.Hour)))
	assert.True(t, latest.Price.Equal(decimal.NewFromInt(1009)))
}

func TestMemory_RejectsNonIncreasingTimestamps(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	id := uuid.New()

	require.NoError(t, store.Append(ctx, rec(id, time.Hour, 100)))
	assert.ErrorIs(t, store.Append(ctx, rec(id, time.Hour, 90)), ErrDuplicateRecord)
	assert.ErrorIs(t, store.Append(ctx, rec(id, 0, 90)), ErrDuplicateRecord)

	// Other products are independent.
	require.NoError(t, store.Append(ctx, rec(uuid.New(), 0, 90)))

	records, err := store.Recent(ctx, id, 0)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestMemory_RecentAscending(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	id := uuid.New()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(ctx, rec(id, time.Duration(i)*time.Minute, int64(i+1))))
	}

	records, err := store.Recent(ctx, id, 3)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.True(t, records[0].Price.Equal(decimal.NewFromInt(3)))
	assert.True(t, records[2].Price.Equal(decimal.NewFromInt(5)))
	assert.True(t, records[0].ObservedAt.Before(records[1].ObservedAt))

	all, err := store.Recent(ctx, id, 100)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestMemory_ConcurrentAppendsKeepOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	id := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = store.Append(ctx, rec(id, time.Duration(i)*time.Second, 1))
		}(i)
	}
	wg.Wait()

	records, err := store.Recent(ctx, id, 0)
	require.NoError(t, err)
	require.NotEmpty(t, records)
	for i := 1; i < len(records); i++ {
		assert.True(t, records[i].ObservedAt.After(records[i-1].ObservedAt))
	}
}
