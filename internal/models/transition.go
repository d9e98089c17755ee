package models

import "github.com/shopspring/decimal"

type TransitionKind string

const (
	FirstObservation TransitionKind = "first_observation"
	PriceDrop        TransitionKind = "price_drop"
	Restock          TransitionKind = "restock"
	NoChange         TransitionKind = "no_change"
)

// Transition describes how a new observation relates to the previous one.
type Transition struct {
	Kind          TransitionKind  `json:"kind"`
	PercentChange decimal.Decimal `json:"percent_change"`
	Previous      *PriceRecord    `json:"previous,omitempty"`
}

// Notable reports whether the transition should trigger an alert.
func (t Transition) Notable() bool {
	return t.Kind == PriceDrop || t.Kind == Restock
}

// Percent returns the change for display. Not for comparisons.
func (t Transition) Percent() float64 {
	f, _ := t.PercentChange.Float64()
	return f
}
