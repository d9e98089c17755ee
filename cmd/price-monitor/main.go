package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/maltedev/price-monitor/internal/api"
	"github.com/maltedev/price-monitor/internal/app"
	"github.com/maltedev/price-monitor/internal/config"
	"github.com/maltedev/price-monitor/internal/monitor"
	"github.com/maltedev/price-monitor/pkg/logger"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info", "json").Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) (err error) {
	a, err := app.New(ctx, cfg, log, app.Options{WithBrowser: true})
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()

	relay, err := a.NewRelay(ctx)
	if err != nil {
		return err
	}

	var stats api.OutboxStats
	if relay != nil {
		stats = relay
	}
	handlers := api.NewHandlers(a.Registry, a.History, a.Checker, stats, log)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.NewRouter(handlers, api.RouterConfig{AllowedOrigins: cfg.Server.AllowedOrigins}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	scheduler := monitor.NewScheduler(a.Checker, cfg.Monitor.Interval, log)
	g.Go(func() error {
		if err := scheduler.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if relay != nil {
		g.Go(func() error {
			if err := relay.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		log.Info("server starting", "addr", server.Addr, "storage", cfg.Storage)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
