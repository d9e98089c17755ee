// Package evaluator classifies a new price observation against the
// previous one.
package evaluator

import (
	"errors"

	"github.com/google/uuid"
	"github.com/maltedev/price-monitor/internal/models"
	"github.com/shopspring/decimal"
)

// DefaultThreshold is the drop, in percent, that triggers an alert.
var DefaultThreshold = decimal.NewFromInt(5)

// ErrFailedResult is returned for unsuccessful extraction results, which
// never produce a transition.
var ErrFailedResult = errors.New("cannot evaluate a failed extraction")

var hundred = decimal.NewFromInt(100)

type Evaluator struct {
	Threshold decimal.Decimal
}

func New(thresholdPercent float64) *Evaluator {
	if thresholdPercent <= 0 {
		return &Evaluator{Threshold: DefaultThreshold}
	}
	return &Evaluator{Threshold: decimal.NewFromFloat(thresholdPercent)}
}

// Evaluate is a pure function of its inputs.
//
// Without a previous record the result is a first observation. A product
// coming back in stock is a restock regardless of price. Otherwise a
// change of -Threshold percent or lower is a price drop.
func (e *Evaluator) Evaluate(productID uuid.UUID, result models.ExtractionResult, last *models.PriceRecord) (models.Transition, error) {
	if !result.Success || result.Price == nil {
		return models.Transition{}, ErrFailedResult
	}
	if last == nil {
		return models.Transition{Kind: models.FirstObservation}, nil
	}
	if last.ProductID != uuid.Nil && productID != uuid.Nil && last.ProductID != productID {
		return models.Transition{}, errors.New("previous record belongs to another product")
	}

	pct := decimal.Zero
	if last.Price.IsPositive() {
		pct = result.Price.Sub(last.Price).Div(last.Price).Mul(hundred)
	}

	transition := models.Transition{
		Kind:          models.NoChange,
		PercentChange: pct,
		Previous:      last,
	}

	switch {
	case !last.InStock && result.InStock:
		transition.Kind = models.Restock
	case last.Price.IsPositive() && pct.LessThanOrEqual(e.threshold().Neg()):
		transition.Kind = models.PriceDrop
	}

	return transition, nil
}

func (e *Evaluator) threshold() decimal.Decimal {
	if e == nil || !e.Threshold.IsPositive() {
		return DefaultThreshold
	}
	return e.Threshold
}
