package parser

import (
	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/price-monitor/internal/models"
	"github.com/maltedev/price-monitor/internal/stores"
	"github.com/shopspring/decimal"
)

type MercadoLibreRule struct{}

func (MercadoLibreRule) Apply(doc *goquery.Document, url string) models.ExtractionResult {
	name := firstText(doc, "h1.ui-pdp-title", "h1")

	price, found := mercadoLibrePrice(doc)
	currency := firstAttr(doc, "content", `meta[itemprop="priceCurrency"]`)
	if currency == "" {
		currency = stores.MercadoLibre.DefaultCurrency()
	}

	return succeeded(doc, price, found, name, currency, mercadoLibreStockPhrases)
}

func mercadoLibrePrice(doc *goquery.Document) (decimal.Decimal, bool) {
	// Crossed-out previous prices are rendered inside <s>.
	for _, scope := range []string{".ui-pdp-price__second-line", ".ui-pdp-price", "body"} {
		container := doc.Find(scope).First()
		fraction := container.Find(".andes-money-amount__fraction").FilterFunction(func(_ int, s *goquery.Selection) bool {
			return s.ParentsFiltered("s").Length() == 0
		}).First()
		if fraction.Length() == 0 {
			continue
		}
		cents := fraction.Parent().Find(".andes-money-amount__cents").First().Text()
		if price, err := joinFraction(fraction.Text(), cents); err == nil {
			return price, true
		}
	}

	if content := firstAttr(doc, "content", `meta[itemprop="price"]`); content != "" {
		if price, err := ParsePrice(content); err == nil {
			return price, true
		}
	}

	return decimal.Zero, false
}
