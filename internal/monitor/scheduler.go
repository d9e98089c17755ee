package monitor

import (
	"context"
	"log/slog"
	"time"
)

// Cycler runs one pass over the tracked products.
type Cycler interface {
	RunCycle(ctx context.Context) (CycleReport, error)
}

// Scheduler runs a cycle immediately and then on every interval. A cycle
// that overruns the interval delays the next one instead of overlapping it.
type Scheduler struct {
	cycler   Cycler
	interval time.Duration
	logger   *slog.Logger
	onCycle  func(CycleReport)
}

func NewScheduler(cycler Cycler, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{
		cycler:   cycler,
		interval: interval,
		logger:   logger.With("component", "scheduler"),
	}
}

// OnCycle registers a callback invoked after every completed cycle.
func (s *Scheduler) OnCycle(fn func(CycleReport)) {
	s.onCycle = fn
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("starting scheduler", "interval", s.interval)

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stopping scheduler")
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	report, err := s.cycler.RunCycle(ctx)
	if err != nil && ctx.Err() == nil {
		s.logger.Error("check cycle failed", "error", err)
		return
	}
	if s.onCycle != nil {
		s.onCycle(report)
	}
}
