package notify

import (
	"fmt"
	"strings"

	"github.com/maltedev/price-monitor/internal/models"
	"github.com/maltedev/price-monitor/internal/stores"
	"github.com/shopspring/decimal"
)

var storeEmojis = map[stores.ID]string{
	stores.MercadoLibre: "🛒",
	stores.Amazon:       "📦",
	stores.HardGamers:   "🎮",
	stores.Garbarino:    "🏠",
	stores.Fravega:      "🛍️",
	stores.Musimundo:    "🎵",
	stores.FullH4rd:     "💻",
	stores.Generic:      "🌐",
}

func StoreEmoji(id stores.ID) string {
	if e, ok := storeEmojis[id]; ok {
		return e
	}
	return "🏪"
}

// FormatPrice renders ARS amounts without decimals and with dot grouping
// ("$1.234.568"); other currencies get two decimals and the code
// ("$1,234.57 USD").
func FormatPrice(price decimal.Decimal, currency string) string {
	if currency == "" || currency == "ARS" {
		return "$" + group(price.Round(0).StringFixed(0), ".")
	}

	fixed := price.StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")
	return fmt.Sprintf("$%s.%s %s", group(whole, ","), frac, currency)
}

func group(digits, sep string) string {
	sign := ""
	if strings.HasPrefix(digits, "-") {
		sign, digits = "-", digits[1:]
	}
	if len(digits) <= 3 {
		return sign + digits
	}

	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return sign + b.String()
}

// Compose renders the plain-text alert message.
func Compose(product *models.Product, transition models.Transition, record models.PriceRecord) string {
	name := truncate(product.Name, 50)
	current := FormatPrice(record.Price, record.Currency)

	switch transition.Kind {
	case models.PriceDrop:
		var b strings.Builder
		b.WriteString("🔥 ¡DROP DE PRECIO!\n\n")
		fmt.Fprintf(&b, "%s %s\n\n", StoreEmoji(product.Store), name)
		if prev := transition.Previous; prev != nil {
			savings := prev.Price.Sub(record.Price)
			fmt.Fprintf(&b, "❌ Antes: %s\n", FormatPrice(prev.Price, record.Currency))
			fmt.Fprintf(&b, "✅ Ahora: %s\n", current)
			fmt.Fprintf(&b, "💸 Ahorrás: %s (%s%%)\n\n", FormatPrice(savings, record.Currency), transition.PercentChange.StringFixed(1))
		} else {
			fmt.Fprintf(&b, "✅ Ahora: %s\n\n", current)
		}
		fmt.Fprintf(&b, "🔗 %s", product.URL)
		return b.String()
	case models.Restock:
		return fmt.Sprintf("🟢 ¡Volvió al stock!\n📦 %s\n💰 Precio: %s\n🔗 %s", name, current, product.URL)
	default:
		return fmt.Sprintf("%s %s: %s", StoreEmoji(product.Store), name, current)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
