package database

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	AlertPriceDrop = "PRICE_DROP"
	AlertRestock   = "RESTOCK"

	// AlertStream is the Redis stream price alerts are published to
	AlertStream = "stream:price_alerts"

	// MaxAttempts is how many publish failures an alert survives before it
	// is parked as dead.
	MaxAttempts = 5

	maxBackoff   = 5 * time.Minute
	defaultLease = 30 * time.Second
)

// Alert is one PRICE_DROP or RESTOCK waiting in alert_outbox. A product
// gets at most one alert per kind and observation.
type Alert struct {
	ID         uuid.UUID       `db:"id"`
	ProductID  uuid.UUID       `db:"product_id"`
	Kind       string          `db:"kind"`
	ObservedAt time.Time       `db:"observed_at"`
	Payload    json.RawMessage `db:"payload"`
	Attempts   int             `db:"attempts"`
	LastError  *string         `db:"last_error"`
	CreatedAt  time.Time       `db:"created_at"`
}

// AlertBacklog counts undelivered alerts.
type AlertBacklog struct {
	Pending int64 `json:"pending"`
	Dead    int64 `json:"dead"`
}

// AlertOutbox stores alerts inside the caller's transaction and hands them
// to the relay.
type AlertOutbox struct {
	db    *DB
	lease time.Duration
}

func NewAlertOutbox(db *DB) *AlertOutbox {
	return &AlertOutbox{db: db, lease: defaultLease}
}

const alertColumns = `id, product_id, kind, observed_at, payload, attempts, last_error, created_at`

// Enqueue inserts the alert within tx. It reports false when the same
// product, kind and observation was already queued.
func (o *AlertOutbox) Enqueue(ctx context.Context, tx pgx.Tx, alert *Alert) (bool, error) {
	if alert.ProductID == uuid.Nil || alert.ObservedAt.IsZero() {
		return false, fmt.Errorf("alert requires product id and observation time")
	}
	if !slices.Contains([]string{AlertPriceDrop, AlertRestock}, alert.Kind) {
		return false, fmt.Errorf("unknown alert kind %q", alert.Kind)
	}
	if alert.ID == uuid.Nil {
		alert.ID = uuid.New()
	}
	if len(alert.Payload) == 0 {
		alert.Payload = json.RawMessage(`{}`)
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO alert_outbox (id, product_id, kind, observed_at, payload)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (product_id, kind, observed_at) DO NOTHING`,
		alert.ID, alert.ProductID, alert.Kind, alert.ObservedAt, alert.Payload)
	if err != nil {
		return false, fmt.Errorf("failed to enqueue alert: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Claim leases up to limit due alerts, oldest first. A claimed alert is
// hidden from other relays until it is marked or the lease runs out.
func (o *AlertOutbox) Claim(ctx context.Context, limit int) ([]*Alert, error) {
	query := `
		UPDATE alert_outbox
		SET next_attempt_at = NOW() + make_interval(secs => $2::float8)
		WHERE id IN (
			SELECT id FROM alert_outbox
			WHERE published_at IS NULL AND dead_at IS NULL
				AND next_attempt_at <= NOW()
			ORDER BY created_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + alertColumns

	rows, err := o.db.pool.Query(ctx, query, limit, o.lease.Seconds())
	if err != nil {
		return nil, fmt.Errorf("failed to claim alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*Alert
	for rows.Next() {
		a := &Alert{}
		if err := rows.Scan(&a.ID, &a.ProductID, &a.Kind, &a.ObservedAt,
			&a.Payload, &a.Attempts, &a.LastError, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	// RETURNING does not keep the subquery order.
	slices.SortFunc(alerts, func(a, b *Alert) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return alerts, nil
}

// MarkPublished records the stream entry the alert became.
func (o *AlertOutbox) MarkPublished(ctx context.Context, id uuid.UUID, streamID string) error {
	tag, err := o.db.pool.Exec(ctx, `
		UPDATE alert_outbox
		SET published_at = NOW(), stream_id = $2
		WHERE id = $1 AND published_at IS NULL`, id, streamID)
	if err != nil {
		return fmt.Errorf("failed to mark alert published: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("alert not pending: %s", id)
	}
	return nil
}

// MarkFailed counts a failed publish and backs off exponentially. The
// alert is parked as dead on its MaxAttempts-th failure.
func (o *AlertOutbox) MarkFailed(ctx context.Context, id uuid.UUID, cause error) error {
	tag, err := o.db.pool.Exec(ctx, `
		UPDATE alert_outbox
		SET attempts = attempts + 1,
			last_error = $2,
			next_attempt_at = NOW() + make_interval(secs => LEAST(power(2, attempts + 1), $3::float8)),
			dead_at = CASE WHEN attempts + 1 >= $4 THEN NOW() END
		WHERE id = $1 AND published_at IS NULL`,
		id, cause.Error(), maxBackoff.Seconds(), MaxAttempts)
	if err != nil {
		return fmt.Errorf("failed to mark alert failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("alert not pending: %s", id)
	}
	return nil
}

func (o *AlertOutbox) Backlog(ctx context.Context) (AlertBacklog, error) {
	var b AlertBacklog
	err := o.db.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE published_at IS NULL AND dead_at IS NULL),
			COUNT(*) FILTER (WHERE dead_at IS NOT NULL)
		FROM alert_outbox`).Scan(&b.Pending, &b.Dead)
	if err != nil {
		return AlertBacklog{}, fmt.Errorf("failed to count alerts: %w", err)
	}
	return b, nil
}
