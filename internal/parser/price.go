package parser

import (
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrUnparsablePrice is returned when text holds no positive amount.
var ErrUnparsablePrice = errors.New("unparsable price")

var (
	// Spaces used as thousands separators, e.g. "1 234,56".
	spacedGroupPattern = regexp.MustCompile(`(\d)[ \x{00a0}\x{202f}](\d{3})`)
	amountPattern      = regexp.MustCompile(`\d[\d.,]*`)
)

// ParsePrice normalizes a human-formatted price such as "$1.234,56" or
// "US$ 1,234.56".
//
// The decimal separator is chosen as follows. When both '.' and ',' occur,
// the right-most one is the decimal mark. When only one kind occurs more than
// once it groups thousands. A single occurrence followed by exactly three
// digits groups thousands too; otherwise it is the decimal mark.
func ParsePrice(text string) (decimal.Decimal, error) {
	normalized := text
	for {
		next := spacedGroupPattern.ReplaceAllString(normalized, "$1$2")
		if next == normalized {
			break
		}
		normalized = next
	}

	raw := strings.TrimRight(amountPattern.FindString(normalized), ".,")
	if raw == "" {
		return decimal.Zero, ErrUnparsablePrice
	}

	price, err := decimal.NewFromString(canonicalAmount(raw))
	if err != nil {
		return decimal.Zero, ErrUnparsablePrice
	}
	if !price.IsPositive() {
		return decimal.Zero, ErrUnparsablePrice
	}
	return price, nil
}

func canonicalAmount(raw string) string {
	dots := strings.Count(raw, ".")
	commas := strings.Count(raw, ",")

	switch {
	case dots > 0 && commas > 0:
		if strings.LastIndex(raw, ",") > strings.LastIndex(raw, ".") {
			return toDecimal(raw, ",", ".")
		}
		return toDecimal(raw, ".", ",")
	case dots+commas == 0:
		return raw
	}

	sep := "."
	if commas > 0 {
		sep = ","
	}
	if dots+commas > 1 {
		return strings.ReplaceAll(raw, sep, "")
	}
	if len(raw)-strings.Index(raw, sep)-1 == 3 {
		return strings.ReplaceAll(raw, sep, "")
	}
	return toDecimal(raw, sep, "")
}

func toDecimal(raw, decimalSep, groupSep string) string {
	if groupSep != "" {
		raw = strings.ReplaceAll(raw, groupSep, "")
	}
	// Any repeated decimal marks left over are treated as grouping.
	if i := strings.LastIndex(raw, decimalSep); i >= 0 {
		raw = strings.ReplaceAll(raw[:i], decimalSep, "") + "." + raw[i+1:]
	}
	return raw
}

// joinFraction combines an integer part and a cents part rendered in
// separate elements, as MercadoLibre and Amazon do.
func joinFraction(whole, cents string) (decimal.Decimal, error) {
	price, err := ParsePrice(strings.TrimRight(strings.TrimSpace(whole), ".,"))
	if err != nil {
		return decimal.Zero, err
	}
	// The whole part never carries decimals in this layout.
	price = price.Truncate(0)

	digits := onlyDigits(cents)
	if digits == "" {
		return price, nil
	}
	frac, err := decimal.NewFromString("0." + digits)
	if err != nil {
		return price, nil
	}
	return price.Add(frac), nil
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
