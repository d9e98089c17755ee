package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisClient is the subset of the Redis client the relay uses
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
}

// AlertQueue is the subset of AlertOutbox the relay uses
type AlertQueue interface {
	Claim(ctx context.Context, limit int) ([]*Alert, error)
	MarkPublished(ctx context.Context, id uuid.UUID, streamID string) error
	MarkFailed(ctx context.Context, id uuid.UUID, cause error) error
	Backlog(ctx context.Context) (AlertBacklog, error)
}

// Relay moves committed alerts from alert_outbox to the Redis stream
type Relay struct {
	redis     RedisClient
	alerts    AlertQueue
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
	maxLen    int64
}

type RelayConfig struct {
	PollInterval time.Duration
	BatchSize    int
	// StreamMaxLen caps the stream approximately; zero keeps everything.
	StreamMaxLen int64
}

func NewRelay(alerts AlertQueue, redisClient RedisClient, logger *slog.Logger, config RelayConfig) *Relay {
	if config.PollInterval == 0 {
		config.PollInterval = 5 * time.Second
	}
	if config.BatchSize == 0 {
		config.BatchSize = 100
	}

	return &Relay{
		redis:     redisClient,
		alerts:    alerts,
		logger:    logger.With("component", "relay"),
		interval:  config.PollInterval,
		batchSize: config.BatchSize,
		maxLen:    config.StreamMaxLen,
	}
}

// Start polls the outbox until ctx is cancelled
func (r *Relay) Start(ctx context.Context) error {
	r.logger.Info("starting relay",
		"interval", r.interval,
		"batch_size", r.batchSize)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	if err := r.relayBatch(ctx); err != nil {
		r.logger.Error("failed to relay alerts on startup", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("relay stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := r.relayBatch(ctx); err != nil {
				r.logger.Error("failed to relay alerts", "error", err)
			}
		}
	}
}

// Stats reports how many alerts are waiting and how many were given up on
func (r *Relay) Stats(ctx context.Context) (AlertBacklog, error) {
	return r.alerts.Backlog(ctx)
}

func (r *Relay) relayBatch(ctx context.Context) error {
	alerts, err := r.alerts.Claim(ctx, r.batchSize)
	if err != nil {
		return fmt.Errorf("failed to claim alerts: %w", err)
	}

	if len(alerts) == 0 {
		return nil
	}

	r.logger.Debug("relaying alerts", "count", len(alerts))

	for _, alert := range alerts {
		if err := r.deliver(ctx, alert); err != nil {
			r.logger.Error("failed to deliver alert",
				"alert_id", alert.ID,
				"product_id", alert.ProductID,
				"kind", alert.Kind,
				"attempt", alert.Attempts+1,
				"error", err)
		}
	}

	return nil
}

func (r *Relay) deliver(ctx context.Context, alert *Alert) error {
	streamID, err := r.publish(ctx, alert)
	if err != nil {
		if markErr := r.alerts.MarkFailed(ctx, alert.ID, err); markErr != nil {
			r.logger.Error("failed to mark alert failed",
				"alert_id", alert.ID,
				"error", markErr)
		}
		return err
	}

	if err := r.alerts.MarkPublished(ctx, alert.ID, streamID); err != nil {
		return err
	}

	r.logger.Info("alert published",
		"alert_id", alert.ID,
		"kind", alert.Kind,
		"product_id", alert.ProductID,
		"stream_id", streamID)

	return nil
}

// publish appends the alert to AlertStream and returns the entry id.
func (r *Relay) publish(ctx context.Context, alert *Alert) (string, error) {
	if !json.Valid(alert.Payload) {
		return "", fmt.Errorf("alert %s has an invalid payload", alert.ID)
	}

	args := &redis.XAddArgs{
		Stream: AlertStream,
		MaxLen: r.maxLen,
		Approx: r.maxLen > 0,
		Values: map[string]interface{}{
			"kind":        alert.Kind,
			"product_id":  alert.ProductID.String(),
			"alert_id":    alert.ID.String(),
			"observed_at": alert.ObservedAt.UTC().Format(time.RFC3339),
			"attempt":     strconv.Itoa(alert.Attempts + 1),
			"data":        string(alert.Payload),
		},
	}

	streamID, err := r.redis.XAdd(ctx, args).Result()
	if err != nil {
		return "", fmt.Errorf("failed to publish to redis: %w", err)
	}
	return streamID, nil
}
