package parser

import (
	"regexp"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/price-monitor/internal/models"
	"github.com/maltedev/price-monitor/internal/stores"
	"github.com/shopspring/decimal"
)

type HardGamersRule struct{}

var (
	productTitleClass = regexp.MustCompile(`(?i)product.*title|title.*product`)
	priceClass        = regexp.MustCompile(`(?i)price|precio`)
)

func (HardGamersRule) Apply(doc *goquery.Document, url string) models.ExtractionResult {
	name := textOf(withClass(doc.Find("h1"), productTitleClass).First())
	if name == "" {
		name = firstText(doc, "h1")
	}

	price, found := decimal.Zero, false
	for _, tag := range []string{"span", "p"} {
		if price, found = parseFirst(withClass(doc.Find(tag), priceClass)); found {
			break
		}
	}

	return succeeded(doc, price, found, name, stores.HardGamers.DefaultCurrency(), hardGamersStockPhrases)
}

// withClass keeps the elements whose class attribute matches re.
func withClass(sel *goquery.Selection, re *regexp.Regexp) *goquery.Selection {
	return sel.FilterFunction(func(_ int, s *goquery.Selection) bool {
		return re.MatchString(s.AttrOr("class", ""))
	})
}

// parseFirst returns the first element whose text parses as a price.
func parseFirst(sel *goquery.Selection) (decimal.Decimal, bool) {
	var price decimal.Decimal
	found := false
	sel.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if p, err := ParsePrice(textOf(s)); err == nil {
			price, found = p, true
			return false
		}
		return true
	})
	return price, found
}
