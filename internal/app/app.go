// Package app assembles the price monitor from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maltedev/price-monitor/internal/browser"
	"github.com/maltedev/price-monitor/internal/config"
	"github.com/maltedev/price-monitor/internal/database"
	"github.com/maltedev/price-monitor/internal/evaluator"
	"github.com/maltedev/price-monitor/internal/extractor"
	"github.com/maltedev/price-monitor/internal/history"
	"github.com/maltedev/price-monitor/internal/monitor"
	"github.com/maltedev/price-monitor/internal/notify"
	"github.com/maltedev/price-monitor/internal/parser"
	"github.com/maltedev/price-monitor/internal/ratelimit"
	"github.com/maltedev/price-monitor/internal/registry"
	"github.com/redis/go-redis/v9"
)

// App holds the wired components. Fields are nil when the configured
// storage does not provide them.
type App struct {
	Config     *config.Config
	DB         *database.DB
	Registry   registry.Registry
	History    history.Store
	Outbox     *database.AlertOutbox
	Renderer   browser.Renderer
	Extractor  *extractor.Orchestrator
	Dispatcher *notify.Dispatcher
	Checker    *monitor.Checker

	logger  *slog.Logger
	closers []func() error
}

type Options struct {
	// WithBrowser starts the dynamic tier. When false only static fetches run.
	WithBrowser bool
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*App, error) {
	a := &App{Config: cfg, logger: logger}

	if err := a.initStorage(ctx); err != nil {
		a.Close()
		return nil, err
	}

	rules := parser.NewRegistry()
	static := extractor.NewStatic(extractor.StaticConfig{
		Timeout:        cfg.Scraper.StaticTimeout,
		UserAgents:     cfg.Scraper.UserAgents,
		AcceptLanguage: cfg.Scraper.AcceptLanguage,
	}, rules, logger)

	var dynamic extractor.Extractor
	if opts.WithBrowser {
		renderer, err := browser.New(cfg.BrowserOptions(), logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize browser: %w", err)
		}
		a.Renderer = renderer
		a.closers = append(a.closers, renderer.Close)
		dynamic = extractor.NewDynamic(renderer, rules, logger)
	}

	limiter := ratelimit.NewHostLimiter(cfg.Scraper.Delay, cfg.Scraper.MaxDelay)
	a.Extractor = extractor.NewOrchestrator(static, dynamic, limiter, logger)

	notifiers := notify.Multi{notify.NewLogNotifier(logger)}
	if a.Outbox != nil {
		notifiers = append(notifiers, notify.NewOutboxNotifier(a.DB, a.Outbox))
	}
	a.Dispatcher = notify.NewDispatcher(notifiers, cfg.Monitor.AlertBuffer, logger)
	a.Dispatcher.Start(context.Background())

	a.Checker = monitor.NewChecker(
		a.Registry,
		a.History,
		a.Extractor,
		evaluator.New(cfg.Monitor.ThresholdPercent),
		a.Dispatcher,
		monitor.Config{Workers: cfg.Monitor.Workers},
		logger,
	)

	return a, nil
}

func (a *App) initStorage(ctx context.Context) error {
	switch a.Config.Storage {
	case config.StorageMemory:
		a.Registry = registry.NewMemory()
		a.History = history.NewMemory()
		return nil
	case config.StoragePostgres:
	default:
		return fmt.Errorf("unknown storage %q", a.Config.Storage)
	}

	db, err := database.New(ctx, a.Config.Database.PoolConfig())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	a.DB = db
	a.closers = append(a.closers, func() error {
		db.Close()
		return nil
	})

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	a.Registry = database.NewProductRepository(db)
	a.History = history.NewPostgres(db)
	a.Outbox = database.NewAlertOutbox(db)
	return nil
}

// NewRelay connects to Redis and returns a relay publishing the outbox.
// It returns nil when Redis is disabled or storage has no outbox.
func (a *App) NewRelay(ctx context.Context) (*database.Relay, error) {
	if a.Outbox == nil || !a.Config.Redis.Enabled {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     a.Config.Redis.Addr,
		Password: a.Config.Redis.Password,
		DB:       a.Config.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	a.closers = append(a.closers, client.Close)

	return database.NewRelay(a.Outbox, client, a.logger, database.RelayConfig{
		PollInterval: a.Config.Relay.PollInterval,
		BatchSize:    a.Config.Relay.BatchSize,
		StreamMaxLen: a.Config.Relay.StreamMaxLen,
	}), nil
}

// Close drains pending alerts and releases resources in reverse order.
func (a *App) Close() error {
	if a.Dispatcher != nil {
		a.Dispatcher.Close()
	}

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
