package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/price-monitor/internal/models"
	"github.com/maltedev/price-monitor/internal/stores"
	"github.com/shopspring/decimal"
)

// GenericRule handles stores without a dedicated rule using common
// metadata and class-name conventions.
type GenericRule struct{}

// Tried in order after the structured metadata; first parsable match wins.
var genericPriceSelectors = []string{
	`[itemprop="price"]`,
	`[class*="price"]`,
	`[class*="Price"]`,
	`[class*="precio"]`,
	`[class*="Precio"]`,
	`[class*="amount"]`,
	`[id*="price"]`,
	`[data-price]`,
}

func (GenericRule) Apply(doc *goquery.Document, url string) models.ExtractionResult {
	name := firstAttr(doc, "content", `meta[property="og:title"]`)
	if name == "" {
		name = firstText(doc, "h1")
	}

	price, found := genericPrice(doc)

	currency := strings.ToUpper(firstAttr(doc, "content",
		`meta[property="product:price:currency"]`,
		`meta[property="og:price:currency"]`,
		`meta[itemprop="priceCurrency"]`,
	))
	if currency == "" {
		currency = stores.Generic.DefaultCurrency()
	}

	return succeeded(doc, price, found, name, currency, nil)
}

func genericPrice(doc *goquery.Document) (decimal.Decimal, bool) {
	content := firstAttr(doc, "content",
		`meta[property="product:price:amount"]`,
		`meta[property="og:price:amount"]`,
		`meta[itemprop="price"]`,
	)
	if content != "" {
		if price, err := ParsePrice(content); err == nil {
			return price, true
		}
	}

	for _, selector := range genericPriceSelectors {
		// Meta tags were handled above; skip them so an empty content
		// attribute does not shadow a visible price.
		if price, ok := parseFirst(doc.Find(selector).Not("meta, script, style")); ok {
			return price, true
		}
		if selector == `[data-price]` {
			if raw := firstAttr(doc, "data-price", selector); raw != "" {
				if price, err := ParsePrice(raw); err == nil {
					return price, true
				}
			}
		}
	}

	return decimal.Zero, false
}

// textOf returns whitespace-collapsed element text.
func textOf(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}
