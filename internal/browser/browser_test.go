package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	assert.True(t, opts.Headless)
	assert.Equal(t, EnginePlaywright, opts.Engine)
	assert.Equal(t, 2, opts.PoolSize)
	assert.Equal(t, 15*time.Second, opts.Timeout)
	assert.Equal(t, "es-AR", opts.Locale)
	assert.Contains(t, opts.AcceptLanguage, "es-AR")
	assert.Equal(t, "https://www.google.com/", opts.ExtraHeaders["Referer"])
}

func TestNew_RejectsInvalidOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.Engine = "netscape"
	_, err := New(opts, nil)
	assert.ErrorContains(t, err, "unknown browser engine")

	opts = DefaultOptions()
	opts.PoolSize = 0
	_, err = New(opts, nil)
	assert.ErrorContains(t, err, "pool size")
}

func TestSlots_BoundsConcurrency(t *testing.T) {
	s := newSlots(2)
	ctx := context.Background()

	require.NoError(t, s.acquire(ctx))
	require.NoError(t, s.acquire(ctx))

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.acquire(waitCtx), context.DeadlineExceeded)

	s.release()
	assert.NoError(t, s.acquire(ctx))
}

func TestSlots_Close(t *testing.T) {
	s := newSlots(1)
	require.NoError(t, s.acquire(context.Background()))

	done := make(chan error, 1)
	go func() { done <- s.acquire(context.Background()) }()

	s.close()
	s.close()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("acquire did not return after close")
	}
}

func TestSettle(t *testing.T) {
	assert.NoError(t, settle(context.Background(), 0))
	assert.NoError(t, settle(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, settle(ctx, time.Minute), context.Canceled)
}
