package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/price-monitor/internal/models"
	"github.com/maltedev/price-monitor/internal/stores"
	"github.com/shopspring/decimal"
)

type AmazonRule struct{}

var amazonPriceSelectors = []string{
	"#priceblock_ourprice",
	"#priceblock_dealprice",
	"#price_inside_buybox",
	"span.a-price.a-text-price.a-size-medium.apexPriceToPay .a-offscreen",
	"#corePrice_feature_div .a-offscreen",
}

var currencySymbols = map[string]string{
	"US$": "USD",
	"$":   "USD",
	"€":   "EUR",
	"£":   "GBP",
	"R$":  "BRL",
}

func (AmazonRule) Apply(doc *goquery.Document, url string) models.ExtractionResult {
	name := firstText(doc, "#productTitle", "#title")

	price, found := amazonPrice(doc)
	return succeeded(doc, price, found, name, amazonCurrency(doc), amazonStockPhrases)
}

func amazonPrice(doc *goquery.Document) (decimal.Decimal, bool) {
	if price, ok := firstPrice(doc, amazonPriceSelectors[:3]...); ok {
		return price, true
	}

	// Split rendering: <span class="a-price-whole">1,234<span>.</span></span><span class="a-price-fraction">56</span>
	block := doc.Find(".a-price").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Find(".a-price-whole").Length() > 0
	}).First()
	if block.Length() > 0 {
		whole := block.Find(".a-price-whole").First().Text()
		fraction := block.Find(".a-price-fraction").First().Text()
		if price, err := joinFraction(whole, fraction); err == nil {
			return price, true
		}
	}

	return firstPrice(doc, amazonPriceSelectors[3:]...)
}

func amazonCurrency(doc *goquery.Document) string {
	symbol := strings.TrimSpace(doc.Find(".a-price-symbol").First().Text())
	if symbol == "" {
		for _, selector := range amazonPriceSelectors[:3] {
			text := strings.TrimSpace(doc.Find(selector).First().Text())
			if text != "" {
				symbol = strings.TrimSpace(strings.TrimRight(text, "0123456789.,  "))
				break
			}
		}
	}
	if code, ok := currencySymbols[symbol]; ok {
		return code
	}
	if len(symbol) == 3 && strings.ToUpper(symbol) == symbol {
		return symbol
	}
	return stores.Amazon.DefaultCurrency()
}
