// Package parser turns product pages into extraction results.
package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/price-monitor/internal/models"
	"github.com/maltedev/price-monitor/internal/stores"
	"github.com/shopspring/decimal"
)

// Rule extracts price, name and stock status from a parsed page.
// Implementations are pure functions of the document.
type Rule interface {
	Apply(doc *goquery.Document, url string) models.ExtractionResult
}

// Registry resolves the rule for a store. Stores without a dedicated
// rule use the generic one.
type Registry struct {
	rules   map[stores.ID]Rule
	generic Rule
}

func NewRegistry() *Registry {
	generic := GenericRule{}
	return &Registry{
		rules: map[stores.ID]Rule{
			stores.MercadoLibre: MercadoLibreRule{},
			stores.Amazon:       AmazonRule{},
			stores.HardGamers:   HardGamersRule{},
			stores.Garbarino:    generic,
			stores.Fravega:      generic,
			stores.Musimundo:    generic,
			stores.FullH4rd:     generic,
			stores.Generic:      generic,
		},
		generic: generic,
	}
}

func (r *Registry) For(store stores.ID) Rule {
	if rule, ok := r.rules[store]; ok {
		return rule
	}
	return r.generic
}

// Apply detects the store for url and runs its rule.
func (r *Registry) Apply(doc *goquery.Document, url string) models.ExtractionResult {
	store := stores.Detect(url)
	res := r.For(store).Apply(doc, url)
	res.Store = store
	res.URL = url
	return res
}

// ParseHTML runs the registry over raw markup.
func (r *Registry) ParseHTML(html string, url string) models.ExtractionResult {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return models.Failed(models.ReasonParse, stores.Detect(url), url, err.Error())
	}
	return r.Apply(doc, url)
}

// firstText returns the trimmed text of the first selector with content.
func firstText(doc *goquery.Document, selectors ...string) string {
	for _, selector := range selectors {
		text := strings.TrimSpace(doc.Find(selector).First().Text())
		if text != "" {
			return strings.Join(strings.Fields(text), " ")
		}
	}
	return ""
}

// firstAttr returns the first non-empty attribute value across selectors.
func firstAttr(doc *goquery.Document, attr string, selectors ...string) string {
	for _, selector := range selectors {
		if value, ok := doc.Find(selector).First().Attr(attr); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

// firstPrice returns the first selector text that parses as a price.
func firstPrice(doc *goquery.Document, selectors ...string) (decimal.Decimal, bool) {
	for _, selector := range selectors {
		var price decimal.Decimal
		found := false
		doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := strings.TrimSpace(s.Text())
			if text == "" {
				text = strings.TrimSpace(s.AttrOr("content", s.AttrOr("data-price", "")))
			}
			if p, err := ParsePrice(text); err == nil {
				price, found = p, true
				return false
			}
			return true
		})
		if found {
			return price, true
		}
	}
	return decimal.Zero, false
}

// succeeded builds a successful result, or a parse failure when no price
// was found. A name alone is not enough. stockPhrases are the rule's
// out-of-stock wordings.
func succeeded(doc *goquery.Document, price decimal.Decimal, found bool, name, currency string, stockPhrases []string) models.ExtractionResult {
	if !found || !price.IsPositive() {
		return models.ExtractionResult{Reason: models.ReasonParse, Detail: "price not found", Name: name}
	}
	return models.ExtractionResult{
		Success:  true,
		Price:    &price,
		Currency: currency,
		InStock:  !DetectOutOfStock(doc, stockPhrases...),
		Name:     name,
	}
}
