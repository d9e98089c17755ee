package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// HostLimiter throttles requests per host. Requests to the same host are
// serialized and their starts are spaced at least minDelay apart.
type HostLimiter struct {
	minDelay time.Duration
	maxDelay time.Duration
	mu       sync.Mutex
	hosts    map[string]chan struct{}
}

// NewHostLimiter returns a limiter with a fixed delay when maxDelay <= minDelay,
// or a random delay in [minDelay, maxDelay) otherwise.
func NewHostLimiter(minDelay, maxDelay time.Duration) *HostLimiter {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &HostLimiter{
		minDelay: minDelay,
		maxDelay: maxDelay,
		hosts:    make(map[string]chan struct{}),
	}
}

// Reservation holds a host until Release is called.
type Reservation struct {
	slot    chan struct{}
	started time.Time
	delay   time.Duration
	once    sync.Once
}

// Acquire blocks until no other reservation for host is outstanding.
func (l *HostLimiter) Acquire(ctx context.Context, host string) (*Reservation, error) {
	slot := l.slot(host)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case slot <- struct{}{}:
	}

	return &Reservation{
		slot:    slot,
		started: time.Now(),
		delay:   l.calculateDelay(),
	}, nil
}

// Release waits until the delay has elapsed since Acquire and frees the
// host. A cancelled ctx frees the host immediately and returns ctx.Err().
func (r *Reservation) Release(ctx context.Context) error {
	var err error
	r.once.Do(func() {
		defer func() { <-r.slot }()

		wait := r.delay - time.Since(r.started)
		if wait <= 0 {
			return
		}

		timer := time.NewTimer(wait)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			err = ctx.Err()
		case <-timer.C:
		}
	})
	return err
}

func (l *HostLimiter) SetDelay(min, max time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if max < min {
		max = min
	}
	l.minDelay = min
	l.maxDelay = max
}

func (l *HostLimiter) slot(host string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot, ok := l.hosts[host]
	if !ok {
		slot = make(chan struct{}, 1)
		l.hosts[host] = slot
	}
	return slot
}

func (l *HostLimiter) calculateDelay() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.minDelay == l.maxDelay {
		return l.minDelay
	}

	delta := l.maxDelay - l.minDelay
	jitter := time.Duration(rand.Int63n(int64(delta)))
	return l.minDelay + jitter
}
