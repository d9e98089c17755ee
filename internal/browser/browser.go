// Package browser renders JavaScript-heavy pages with a bounded pool of
// headless browser slots.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const (
	EnginePlaywright = "playwright"
	EngineChromedp   = "chromedp"
)

// ErrClosed is returned by Render after Close.
var ErrClosed = errors.New("browser pool closed")

// Renderer returns the fully rendered HTML of a page.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
	Close() error
}

type Options struct {
	Engine         string
	Headless       bool
	PoolSize       int
	Timeout        time.Duration
	SettleDelay    time.Duration
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
	ProxyServer    string
	ExtraHeaders   map[string]string
}

func DefaultOptions() *Options {
	return &Options{
		Engine:         EnginePlaywright,
		Headless:       true,
		PoolSize:       2,
		Timeout:        15 * time.Second,
		SettleDelay:    2 * time.Second,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		AcceptLanguage: "es-AR,es;q=0.9,en;q=0.8",
		TimezoneID:     "America/Argentina/Buenos_Aires",
		Locale:         "es-AR",
		ExtraHeaders: map[string]string{
			"Accept":  "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			"Referer": "https://www.google.com/",
		},
	}
}

// New starts the renderer selected by opts.Engine.
func New(opts *Options, logger *slog.Logger) (Renderer, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.PoolSize < 1 {
		return nil, fmt.Errorf("browser pool size must be at least 1, got %d", opts.PoolSize)
	}

	switch opts.Engine {
	case "", EnginePlaywright:
		return NewPlaywright(opts, logger)
	case EngineChromedp:
		return NewChromedp(opts, logger)
	default:
		return nil, fmt.Errorf("unknown browser engine %q", opts.Engine)
	}
}

// slots bounds the number of concurrent renders.
type slots struct {
	sem    chan struct{}
	closed chan struct{}
}

func newSlots(n int) *slots {
	return &slots{
		sem:    make(chan struct{}, n),
		closed: make(chan struct{}),
	}
}

func (s *slots) acquire(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.closed:
		return ErrClosed
	case s.sem <- struct{}{}:
		return nil
	}
}

func (s *slots) release() {
	<-s.sem
}

func (s *slots) close() {
	select {
	case <-s.closed:
	default:
		close(s.closed)
	}
}

// settle gives client-side scripts time to fill in prices.
func settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
