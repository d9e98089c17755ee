package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/maltedev/price-monitor/internal/stores"
	"github.com/shopspring/decimal"
)

type Product struct {
	ID        uuid.UUID `json:"id"`
	URL       string    `json:"url"`
	Name      string    `json:"name"`
	Store     stores.ID `json:"store"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func NewProduct(url, name string) *Product {
	return &Product{
		ID:        uuid.New(),
		URL:       url,
		Name:      name,
		Store:     stores.Detect(url),
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
}

// PriceRecord is one observation in a product's history.
type PriceRecord struct {
	ProductID  uuid.UUID       `json:"product_id"`
	ObservedAt time.Time       `json:"observed_at"`
	Price      decimal.Decimal `json:"price"`
	Currency   string          `json:"currency"`
	InStock    bool            `json:"in_stock"`
}

// MinorUnits returns the price in cents.
func (r PriceRecord) MinorUnits() int64 {
	return r.Price.Round(2).Shift(2).IntPart()
}
