package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/maltedev/price-monitor/internal/database"
	"github.com/maltedev/price-monitor/internal/models"
)

// Transactor runs fn inside a database transaction.
type Transactor interface {
	Transaction(ctx context.Context, fn func(pgx.Tx) error) error
}

// AlertQueue stores an alert as part of a transaction.
type AlertQueue interface {
	Enqueue(ctx context.Context, tx pgx.Tx, alert *database.Alert) (bool, error)
}

// OutboxNotifier records alerts in alert_outbox. The relay publishes them
// to Redis.
type OutboxNotifier struct {
	db     Transactor
	outbox AlertQueue
}

func NewOutboxNotifier(db Transactor, outbox AlertQueue) *OutboxNotifier {
	return &OutboxNotifier{db: db, outbox: outbox}
}

// AlertPayload is the JSON body of PRICE_DROP and RESTOCK events.
type AlertPayload struct {
	ProductID     string    `json:"product_id"`
	Name          string    `json:"name"`
	URL           string    `json:"url"`
	Store         string    `json:"store"`
	Kind          string    `json:"kind"`
	Price         string    `json:"price"`
	PreviousPrice string    `json:"previous_price,omitempty"`
	Currency      string    `json:"currency"`
	PercentChange string    `json:"percent_change"`
	InStock       bool      `json:"in_stock"`
	ObservedAt    time.Time `json:"observed_at"`
	Message       string    `json:"message"`
}

func (n *OutboxNotifier) Notify(ctx context.Context, product *models.Product, transition models.Transition, record models.PriceRecord) error {
	alert, err := NewAlert(product, transition, record)
	if err != nil {
		return err
	}

	// A repeated observation is already queued.
	return n.db.Transaction(ctx, func(tx pgx.Tx) error {
		_, err := n.outbox.Enqueue(ctx, tx, alert)
		return err
	})
}

// NewAlert builds the outbox row for a notable transition.
func NewAlert(product *models.Product, transition models.Transition, record models.PriceRecord) (*database.Alert, error) {
	var kind string
	switch transition.Kind {
	case models.PriceDrop:
		kind = database.AlertPriceDrop
	case models.Restock:
		kind = database.AlertRestock
	default:
		return nil, fmt.Errorf("no alert for transition %q", transition.Kind)
	}

	payload := AlertPayload{
		ProductID:     product.ID.String(),
		Name:          product.Name,
		URL:           product.URL,
		Store:         product.Store.String(),
		Kind:          string(transition.Kind),
		Price:         record.Price.String(),
		Currency:      record.Currency,
		PercentChange: transition.PercentChange.StringFixed(2),
		InStock:       record.InStock,
		ObservedAt:    record.ObservedAt,
		Message:       Compose(product, transition, record),
	}
	if transition.Previous != nil {
		payload.PreviousPrice = transition.Previous.Price.String()
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal alert payload: %w", err)
	}

	return &database.Alert{
		ProductID:  product.ID,
		Kind:       kind,
		ObservedAt: record.ObservedAt,
		Payload:    data,
	}, nil
}
