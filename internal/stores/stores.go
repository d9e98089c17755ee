// Package stores identifies which retailer a product URL belongs to.
package stores

import (
	"net/url"
	"slices"
	"strings"
)

// ID names a supported retailer.
type ID string

const (
	MercadoLibre ID = "mercadolibre"
	Amazon       ID = "amazon"
	HardGamers   ID = "hardgamers"
	Garbarino    ID = "garbarino"
	Fravega      ID = "fravega"
	Musimundo    ID = "musimundo"
	FullH4rd     ID = "fullh4rd"
	Generic      ID = "generic"
)

// pattern matches a host by substring (needles) or by a whole dot-separated
// label (labels). Short brand names go in labels so they cannot match
// inside unrelated domains.
type pattern struct {
	id      ID
	needles []string
	labels  []string
}

// Order matters: the first matching entry wins.
var patterns = []pattern{
	{id: MercadoLibre, needles: []string{"mercadolibre"}, labels: []string{"meli"}},
	{id: Amazon, needles: []string{"amazon"}},
	{id: HardGamers, needles: []string{"hardgamers"}},
	{id: Garbarino, needles: []string{"garbarino"}},
	{id: Fravega, needles: []string{"fravega"}},
	{id: Musimundo, needles: []string{"musimundo"}},
	{id: FullH4rd, needles: []string{"fullh4rd"}},
}

// Detect maps a URL to a store. Unknown or malformed URLs map to Generic.
func Detect(rawURL string) ID {
	target := strings.ToLower(strings.TrimSpace(rawURL))
	if u, err := url.Parse(target); err == nil && u.Hostname() != "" {
		target = u.Hostname()
	}

	labels := strings.FieldsFunc(target, func(r rune) bool {
		return r == '.' || r == '/' || r == ':'
	})

	for _, p := range patterns {
		for _, needle := range p.needles {
			if strings.Contains(target, needle) {
				return p.id
			}
		}
		for _, label := range p.labels {
			if slices.Contains(labels, label) {
				return p.id
			}
		}
	}
	return Generic
}

// All returns every known store, generic last.
func All() []ID {
	ids := make([]ID, 0, len(patterns)+1)
	for _, p := range patterns {
		ids = append(ids, p.id)
	}
	return append(ids, Generic)
}

func (id ID) Valid() bool {
	for _, known := range All() {
		if id == known {
			return true
		}
	}
	return false
}

// DefaultCurrency is the currency assumed when a page does not state one.
func (id ID) DefaultCurrency() string {
	if id == Amazon {
		return "USD"
	}
	return "ARS"
}

func (id ID) String() string {
	return string(id)
}
