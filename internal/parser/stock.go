package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Phrases each store uses for unavailable products. Stores without a list
// only report out of stock through structured markup.
var (
	mercadoLibreStockPhrases = []string{"sin stock", "agotado", "no disponible"}
	amazonStockPhrases       = []string{"currently unavailable", "unavailable", "out of stock"}
	hardGamersStockPhrases   = []string{"sin stock", "agotado"}
)

// DetectOutOfStock reports whether the page carries an explicit
// out-of-stock marker: #outOfStock, a schema.org OutOfStock availability,
// or one of phrases in the visible text. Pages without markers are
// considered in stock.
func DetectOutOfStock(doc *goquery.Document, phrases ...string) bool {
	if doc.Find("#outOfStock").Length() > 0 {
		return true
	}

	availability := false
	doc.Find(`link[itemprop="availability"], meta[itemprop="availability"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		value := s.AttrOr("href", s.AttrOr("content", ""))
		if strings.Contains(strings.ToLower(value), "outofstock") {
			availability = true
			return false
		}
		return true
	})
	if availability {
		return true
	}

	if len(phrases) == 0 {
		return false
	}
	return containsAny(visibleText(doc), phrases)
}

// visibleText returns the lowercase body text without script and style content.
func visibleText(doc *goquery.Document) string {
	body := doc.Find("body").Clone()
	body.Find("script, style, noscript, template").Remove()
	return strings.ToLower(strings.Join(strings.Fields(body.Text()), " "))
}

func containsAny(text string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}
