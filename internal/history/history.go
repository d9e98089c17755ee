// Package history persists price observations per product.
package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/maltedev/price-monitor/internal/models"
)

// DefaultLimit is one week of hourly observations.
const DefaultLimit = 168

var (
	// ErrDuplicateRecord is returned when a record is not newer than the
	// latest one stored for the product.
	ErrDuplicateRecord = errors.New("duplicate price record")
	// ErrStore marks persistence failures.
	ErrStore = errors.New("store_error")
)

// Store keeps each product's history strictly ordered by ObservedAt.
type Store interface {
	Append(ctx context.Context, rec models.PriceRecord) error
	// Latest returns nil, nil when the product has no history.
	Latest(ctx context.Context, productID uuid.UUID) (*models.PriceRecord, error)
	// Recent returns up to n records, oldest first.
	Recent(ctx context.Context, productID uuid.UUID, n int) ([]models.PriceRecord, error)
}

func storeError(op string, err error) error {
	return fmt.Errorf("%w: failed to %s: %v", ErrStore, op, err)
}
