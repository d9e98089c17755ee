package parser

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/price-monitor/internal/models"
	"github.com/maltedev/price-monitor/internal/stores"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestMercadoLibreRule(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		price    string
		title    string
		inStock  bool
		hasError bool
	}{
		{
			name: "fraction and cents",
			html: `<html><body>
				<h1 class="ui-pdp-title">Notebook Lenovo IdeaPad 15"</h1>
				<div class="ui-pdp-price">
					<s class="andes-money-amount"><span class="andes-money-amount__fraction">999.999</span></s>
					<div class="ui-pdp-price__second-line">
						<span class="andes-money-amount__currency-symbol">$</span>
						<span class="andes-money-amount__fraction">850.000</span>
						<span class="andes-money-amount__cents">50</span>
					</div>
				</div></body></html>`,
			price:   "850000.5",
			title:   `Notebook Lenovo IdeaPad 15"`,
			inStock: true,
		},
		{
			name: "meta price fallback",
			html: `<html><head><meta itemprop="price" content="790000"></head>
				<body><h1 class="ui-pdp-title">Celular</h1></body></html>`,
			price:   "790000",
			title:   "Celular",
			inStock: true,
		},
		{
			name: "out of stock",
			html: `<html><body><h1 class="ui-pdp-title">Consola</h1>
				<span class="andes-money-amount__fraction">450.000</span>
				<p>Publicación pausada: sin stock</p></body></html>`,
			price:   "450000",
			title:   "Consola",
			inStock: false,
		},
		{
			name:     "no price",
			html:     `<html><body><h1 class="ui-pdp-title">Solo nombre</h1></body></html>`,
			hasError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := MercadoLibreRule{}.Apply(mustDoc(t, tt.html), "https://articulo.mercadolibre.com.ar/MLA-1")
			if tt.hasError {
				assert.False(t, res.Success)
				assert.Equal(t, models.ReasonParse, res.Reason)
				return
			}
			require.True(t, res.Success)
			assert.Equal(t, tt.price, res.Price.String())
			assert.Equal(t, tt.title, res.Name)
			assert.Equal(t, "ARS", res.Currency)
			assert.Equal(t, tt.inStock, res.InStock)
		})
	}
}

func TestAmazonRule(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		price    string
		currency string
		inStock  bool
	}{
		{
			name: "split whole and fraction",
			html: `<html><body><span id="productTitle">  Echo Dot (5th Gen)  </span>
				<span class="a-price"><span class="a-price-symbol">$</span>
				<span class="a-price-whole">1,234<span class="a-price-decimal">.</span></span>
				<span class="a-price-fraction">56</span></span></body></html>`,
			price:    "1234.56",
			currency: "USD",
			inStock:  true,
		},
		{
			name: "legacy price block",
			html: `<html><body><span id="productTitle">Kindle</span>
				<span id="priceblock_ourprice">EUR 99,99</span></body></html>`,
			price:    "99.99",
			currency: "EUR",
			inStock:  true,
		},
		{
			name: "deal price with euro symbol",
			html: `<html><body><span id="productTitle">Kindle</span>
				<span class="a-price-symbol">€</span>
				<span id="priceblock_dealprice">€79,99</span></body></html>`,
			price:    "79.99",
			currency: "EUR",
			inStock:  true,
		},
		{
			name: "currently unavailable",
			html: `<html><body><span id="productTitle">Old Gadget</span>
				<span id="price_inside_buybox">$25.00</span>
				<div id="outOfStock"><span>Currently unavailable.</span></div></body></html>`,
			price:    "25",
			currency: "USD",
			inStock:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := AmazonRule{}.Apply(mustDoc(t, tt.html), "https://www.amazon.com/dp/B0TEST")
			require.True(t, res.Success, res.Detail)
			assert.Equal(t, tt.price, res.Price.String())
			assert.Equal(t, tt.currency, res.Currency)
			assert.Equal(t, tt.inStock, res.InStock)
			assert.NotEmpty(t, res.Name)
		})
	}
}

func TestHardGamersRule(t *testing.T) {
	html := `<html><body>
		<h1>HardGamers</h1>
		<h1 class="product-title">Placa de Video RTX 4060</h1>
		<span class="badge">Nuevo</span>
		<span class="product-price">$ 589.999</span>
		</body></html>`

	res := HardGamersRule{}.Apply(mustDoc(t, html), "https://www.hardgamers.com.ar/p/1")

	require.True(t, res.Success)
	assert.Equal(t, "Placa de Video RTX 4060", res.Name)
	assert.Equal(t, "589999", res.Price.String())
	assert.True(t, res.InStock)
}

func TestGenericRule(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		price    string
		title    string
		currency string
	}{
		{
			name: "open graph product metadata",
			html: `<html><head>
				<meta property="og:title" content="Heladera Samsung">
				<meta property="product:price:amount" content="1234.56">
				<meta property="product:price:currency" content="usd">
				</head><body><h1>Otro</h1></body></html>`,
			price:    "1234.56",
			title:    "Heladera Samsung",
			currency: "USD",
		},
		{
			name: "itemprop price",
			html: `<html><body><h1>Smart TV 50"</h1>
				<span itemprop="price">$ 459.999</span></body></html>`,
			price:    "459999",
			title:    `Smart TV 50"`,
			currency: "ARS",
		},
		{
			name: "precio class",
			html: `<html><body><h1>Lavarropas</h1>
				<div class="product-precio-final">$1.234,56</div></body></html>`,
			price:    "1234.56",
			title:    "Lavarropas",
			currency: "ARS",
		},
		{
			name: "skips unparsable price nodes",
			html: `<html><body><h1>Aire</h1>
				<div class="price-label">Precio</div>
				<div class="price-value">$ 899.000</div></body></html>`,
			price:    "899000",
			title:    "Aire",
			currency: "ARS",
		},
		{
			name: "data-price attribute",
			html: `<html><body><h1>Mouse</h1>
				<button data-price="15999.90">Comprar</button></body></html>`,
			price:    "15999.9",
			title:    "Mouse",
			currency: "ARS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := GenericRule{}.Apply(mustDoc(t, tt.html), "https://shop.example.com/item")
			require.True(t, res.Success, res.Detail)
			assert.Equal(t, tt.price, res.Price.String())
			assert.Equal(t, tt.title, res.Name)
			assert.Equal(t, tt.currency, res.Currency)
		})
	}
}

func TestGenericRule_NoPriceMarkers(t *testing.T) {
	html := `<html><head><meta property="og:title" content="Producto"></head>
		<body><h1>Producto</h1><p>Consultar disponibilidad por WhatsApp.</p></body></html>`

	res := GenericRule{}.Apply(mustDoc(t, html), "https://shop.example.com/item")

	assert.False(t, res.Success)
	assert.Equal(t, models.ReasonParse, res.Reason)
	assert.Nil(t, res.Price)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	assert.IsType(t, MercadoLibreRule{}, r.For(stores.MercadoLibre))
	assert.IsType(t, AmazonRule{}, r.For(stores.Amazon))
	assert.IsType(t, HardGamersRule{}, r.For(stores.HardGamers))
	for _, id := range []stores.ID{stores.Garbarino, stores.Fravega, stores.Musimundo, stores.FullH4rd, stores.Generic} {
		assert.IsType(t, GenericRule{}, r.For(id), id)
	}
	assert.IsType(t, GenericRule{}, r.For(stores.ID("unknown")))
}

func TestRegistry_ParseHTML(t *testing.T) {
	r := NewRegistry()
	html := `<html><body><h1>Heladera</h1><span class="price">$ 999.999</span></body></html>`

	res := r.ParseHTML(html, "https://www.fravega.com/p/heladera")

	require.True(t, res.Success)
	assert.Equal(t, stores.Fravega, res.Store)
	assert.Equal(t, "https://www.fravega.com/p/heladera", res.URL)
	assert.Equal(t, "999999", res.Price.String())
}

func TestRegistry_FailureCarriesStoreAndURL(t *testing.T) {
	res := NewRegistry().ParseHTML(`<html><body><h1>Nada</h1></body></html>`, "https://www.amazon.com/dp/X")

	require.False(t, res.Success)
	err := res.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse_error")
	assert.Contains(t, err.Error(), "amazon")
}

func TestDetectOutOfStock(t *testing.T) {
	tests := []struct {
		name    string
		html    string
		phrases []string
		want    bool
	}{
		{"agotado", `<body><p>Producto AGOTADO</p></body>`, mercadoLibreStockPhrases, true},
		{"no disponible", `<body><div>Este producto no disponible</div></body>`, mercadoLibreStockPhrases, true},
		{"phrase without store list", `<body><p>Producto agotado</p></body>`, nil, false},
		{"phrase outside store list", `<body><p>Color no disponible</p></body>`, hardGamersStockPhrases, false},
		{"out of stock id", `<body><div id="outOfStock"></div></body>`, nil, true},
		{"schema availability", `<body><link itemprop="availability" href="https://schema.org/OutOfStock"></body>`, nil, true},
		{"meta availability", `<body><meta itemprop="availability" content="OutOfStock"></body>`, nil, true},
		{"in stock schema", `<body><link itemprop="availability" href="https://schema.org/InStock"><p>Comprar</p></body>`, amazonStockPhrases, false},
		{"marker only in script", `<body><script>var msg = "sin stock";</script><p>Comprar ahora</p></body>`, mercadoLibreStockPhrases, false},
		{"no markers", `<body><p>Comprar ahora</p></body>`, amazonStockPhrases, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectOutOfStock(mustDoc(t, tt.html), tt.phrases...))
		})
	}
}

func TestRegistry_GenericStockIgnoresIncidentalText(t *testing.T) {
	tests := []struct {
		name string
		url  string
		html string
		want bool
	}{
		{
			name: "shipping notice",
			url:  "https://www.fravega.com/p/heladera",
			html: `<html><head><meta property="product:price:amount" content="1500"></head>
				<body><h1>Heladera</h1><footer>Envío no disponible en tu zona</footer></body></html>`,
			want: true,
		},
		{
			name: "unavailable variants",
			url:  "https://shop.example.com/remera",
			html: `<html><body><h1>Remera</h1><div class="price">$ 1.500</div>
				<p>Unavailable colors: red</p></body></html>`,
			want: true,
		},
		{
			name: "schema out of stock still counts",
			url:  "https://www.garbarino.com/p/tv",
			html: `<html><body><h1>TV</h1><div class="price">$ 1.500</div>
				<link itemprop="availability" href="https://schema.org/OutOfStock"></body></html>`,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewRegistry().ParseHTML(tt.html, tt.url)
			require.True(t, res.Success, res.Detail)
			assert.Equal(t, tt.want, res.InStock)
		})
	}
}
