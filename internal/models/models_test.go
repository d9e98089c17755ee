package models

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/maltedev/price-monitor/internal/stores"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProduct(t *testing.T) {
	p := NewProduct("https://www.fravega.com/p/heladera", "Heladera")

	assert.NotEqual(t, uuid.Nil, p.ID)
	assert.Equal(t, stores.Fravega, p.Store)
	assert.True(t, p.Active)
	assert.False(t, p.CreatedAt.IsZero())
}

func TestPriceRecord_MinorUnits(t *testing.T) {
	tests := []struct {
		price string
		want  int64
	}{
		{"1234.56", 123456},
		{"850000", 85000000},
		{"0.015", 2},
		{"19.999", 2000},
	}

	for _, tt := range tests {
		t.Run(tt.price, func(t *testing.T) {
			rec := PriceRecord{Price: decimal.RequireFromString(tt.price)}
			assert.Equal(t, tt.want, rec.MinorUnits())
		})
	}
}

func TestExtractionResult_Err(t *testing.T) {
	price := decimal.NewFromInt(10)
	ok := ExtractionResult{Success: true, Price: &price}
	assert.NoError(t, ok.Err())

	failed := Failed(ReasonFetch, stores.Amazon, "https://amazon.com/dp/X", "status 503")
	err := failed.Err()
	require.Error(t, err)

	var extErr *ExtractionError
	require.True(t, errors.As(err, &extErr))
	assert.Equal(t, ReasonFetch, extErr.Reason)
	assert.Equal(t, stores.Amazon, extErr.Store)
	assert.Contains(t, err.Error(), "fetch_error")
	assert.Contains(t, err.Error(), "https://amazon.com/dp/X")
}

func TestExtractionResult_Record(t *testing.T) {
	price := decimal.NewFromInt(790000)
	res := ExtractionResult{Success: true, Price: &price, Currency: "ARS", InStock: true}
	id := uuid.New()
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("ART", -3*3600))

	rec := res.Record(id, at)

	assert.Equal(t, id, rec.ProductID)
	assert.True(t, rec.Price.Equal(price))
	assert.Equal(t, time.UTC, rec.ObservedAt.Location())
	assert.True(t, rec.ObservedAt.Equal(at))
}

func TestTransition_Notable(t *testing.T) {
	assert.True(t, Transition{Kind: PriceDrop}.Notable())
	assert.True(t, Transition{Kind: Restock}.Notable())
	assert.False(t, Transition{Kind: NoChange}.Notable())
	assert.False(t, Transition{Kind: FirstObservation}.Notable())
}
