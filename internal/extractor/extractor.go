// Package extractor fetches product pages and turns them into extraction
// results, trying a plain HTTP fetch before falling back to a browser.
package extractor

import (
	"context"

	"github.com/maltedev/price-monitor/internal/models"
)

// Extractor is implemented by every tier and by the orchestrator.
// Failures are reported in the result, never as a Go error.
type Extractor interface {
	Extract(ctx context.Context, url string) models.ExtractionResult
}

// Func adapts a function to the Extractor interface.
type Func func(ctx context.Context, url string) models.ExtractionResult

func (f Func) Extract(ctx context.Context, url string) models.ExtractionResult {
	return f(ctx, url)
}
