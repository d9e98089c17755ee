package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/maltedev/price-monitor/internal/stores"
	"github.com/shopspring/decimal"
)

// Reason classifies why an extraction failed.
type Reason string

const (
	ReasonFetch  Reason = "fetch_error"
	ReasonRender Reason = "render_error"
	ReasonParse  Reason = "parse_error"
)

// Tier records which extractor produced a result.
type Tier string

const (
	TierStatic  Tier = "static"
	TierDynamic Tier = "dynamic"
)

// ExtractionResult is the outcome of fetching and parsing one product page.
// A successful result always carries a positive Price.
type ExtractionResult struct {
	Price    *decimal.Decimal `json:"price,omitempty"`
	Currency string           `json:"currency,omitempty"`
	InStock  bool             `json:"in_stock"`
	Name     string           `json:"name,omitempty"`
	Success  bool             `json:"success"`
	Reason   Reason           `json:"reason,omitempty"`
	Detail   string           `json:"detail,omitempty"`
	Store    stores.ID        `json:"store"`
	URL      string           `json:"url"`
	Tier     Tier             `json:"tier,omitempty"`
}

// Failed builds an unsuccessful result.
func Failed(reason Reason, store stores.ID, url string, detail string) ExtractionResult {
	return ExtractionResult{
		Reason: reason,
		Detail: detail,
		Store:  store,
		URL:    url,
	}
}

// Err returns nil for successful results.
func (r ExtractionResult) Err() error {
	if r.Success {
		return nil
	}
	return &ExtractionError{Reason: r.Reason, Store: r.Store, URL: r.URL, Detail: r.Detail}
}

// Record converts a successful result into a history entry.
func (r ExtractionResult) Record(productID uuid.UUID, observedAt time.Time) PriceRecord {
	rec := PriceRecord{
		ProductID:  productID,
		ObservedAt: observedAt.UTC(),
		Currency:   r.Currency,
		InStock:    r.InStock,
	}
	if r.Price != nil {
		rec.Price = *r.Price
	}
	return rec
}

type ExtractionError struct {
	Reason Reason
	Store  stores.ID
	URL    string
	Detail string
}

func (e *ExtractionError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: store=%s url=%s", e.Reason, e.Store, e.URL)
	}
	return fmt.Sprintf("%s: store=%s url=%s: %s", e.Reason, e.Store, e.URL, e.Detail)
}
