package monitor

import (
	"context"
	"sync"
)

// keyedMutex serializes work per key. Entries are removed once unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	ch   chan struct{}
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedEntry)}
}

// Lock blocks until key is free or ctx is done.
func (k *keyedMutex) Lock(ctx context.Context, key string) error {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &keyedEntry{ch: make(chan struct{}, 1)}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		k.unref(key, e)
		return ctx.Err()
	}
}

func (k *keyedMutex) Unlock(key string) {
	k.mu.Lock()
	e, ok := k.locks[key]
	k.mu.Unlock()
	if !ok {
		panic("monitor: unlock of unlocked key " + key)
	}

	<-e.ch
	k.unref(key, e)
}

func (k *keyedMutex) unref(key string, e *keyedEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(k.locks, key)
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
