package extractor

import (
	"context"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/price-monitor/internal/browser"
	"github.com/maltedev/price-monitor/internal/models"
	"github.com/maltedev/price-monitor/internal/parser"
	"github.com/maltedev/price-monitor/internal/stores"
)

// Dynamic renders pages in a headless browser before parsing them.
type Dynamic struct {
	renderer browser.Renderer
	rules    *parser.Registry
	logger   *slog.Logger
}

func NewDynamic(renderer browser.Renderer, rules *parser.Registry, logger *slog.Logger) *Dynamic {
	return &Dynamic{
		renderer: renderer,
		rules:    rules,
		logger:   logger.With("component", "dynamic_extractor"),
	}
}

func (d *Dynamic) Extract(ctx context.Context, url string) models.ExtractionResult {
	store := stores.Detect(url)

	html, err := d.renderer.Render(ctx, url)
	if err != nil {
		d.logger.Debug("render failed", "url", url, "store", store, "error", err)
		res := models.Failed(models.ReasonRender, store, url, err.Error())
		res.Tier = models.TierDynamic
		return res
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		res := models.Failed(models.ReasonParse, store, url, err.Error())
		res.Tier = models.TierDynamic
		return res
	}

	res := d.rules.Apply(doc, url)
	res.Tier = models.TierDynamic
	return res
}
