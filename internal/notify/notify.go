// Package notify delivers price-drop and restock alerts.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/maltedev/price-monitor/internal/models"
)

// Notifier delivers one alert.
type Notifier interface {
	Notify(ctx context.Context, product *models.Product, transition models.Transition, record models.PriceRecord) error
}

// Multi fans an alert out to several notifiers and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, product *models.Product, transition models.Transition, record models.PriceRecord) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, product, transition, record); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type alert struct {
	product    models.Product
	transition models.Transition
	record     models.PriceRecord
}

// Dispatcher delivers alerts on a background goroutine so the check cycle
// never waits on delivery. Alerts are dropped when the queue is full.
type Dispatcher struct {
	notifier Notifier
	queue    chan alert
	logger   *slog.Logger

	mu      sync.RWMutex
	closed  bool
	done    chan struct{}
	started sync.Once
}

func NewDispatcher(notifier Notifier, buffer int, logger *slog.Logger) *Dispatcher {
	if buffer < 1 {
		buffer = 100
	}
	return &Dispatcher{
		notifier: notifier,
		queue:    make(chan alert, buffer),
		logger:   logger.With("component", "dispatcher"),
		done:     make(chan struct{}),
	}
}

// Start launches the delivery goroutine. ctx is passed to the notifier.
func (d *Dispatcher) Start(ctx context.Context) {
	d.started.Do(func() {
		go d.run(ctx)
	})
}

// Dispatch enqueues an alert without blocking. It reports whether the
// alert was accepted.
func (d *Dispatcher) Dispatch(product *models.Product, transition models.Transition, record models.PriceRecord) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return false
	}

	select {
	case d.queue <- alert{product: *product, transition: transition, record: record}:
		return true
	default:
		d.logger.Warn("alert queue full, dropping alert",
			"product_id", product.ID,
			"kind", transition.Kind)
		return false
	}
}

// Close stops accepting alerts and waits for queued ones to be delivered.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	// Drain on the caller when Start was never called.
	d.started.Do(func() {
		go d.run(context.Background())
	})
	<-d.done
}

func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.done)

	for a := range d.queue {
		if err := d.notifier.Notify(ctx, &a.product, a.transition, a.record); err != nil {
			d.logger.Error("failed to deliver alert",
				"product_id", a.product.ID,
				"kind", a.transition.Kind,
				"error", err)
		}
	}
}
