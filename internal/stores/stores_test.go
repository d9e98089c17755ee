package stores

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want ID
	}{
		{"mercadolibre article", "https://articulo.mercadolibre.com.ar/MLA-123-notebook", MercadoLibre},
		{"meli short link", "https://meli.la/2abc", MercadoLibre},
		{"meli subdomain", "https://click.meli.com/item/1", MercadoLibre},
		{"meli inside another domain", "https://www.camelia.com.ar/flores", Generic},
		{"meli prefix of another label", "https://melina-deco.com/lampara", Generic},
		{"amazon", "https://www.amazon.com/dp/B0TEST", Amazon},
		{"amazon uppercase", "HTTPS://WWW.AMAZON.COM/dp/B0TEST", Amazon},
		{"hardgamers", "https://www.hardgamers.com.ar/product/1", HardGamers},
		{"garbarino", "https://www.garbarino.com/producto/tv", Garbarino},
		{"fravega", "https://www.fravega.com/p/heladera", Fravega},
		{"musimundo", "https://www.musimundo.com/audio", Musimundo},
		{"fullh4rd", "https://fullh4rd.com.ar/prod/1", FullH4rd},
		{"unknown shop", "https://shop.example.com/item/9", Generic},
		{"path mentioning amazon is not amazon", "https://shop.example.com/amazon-echo", Generic},
		{"empty", "", Generic},
		{"garbage", "::not a url::", Generic},
		{"unparsable but mentions store", "%%fravega%%", Fravega},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.url))
		})
	}
}

func TestDetect_Deterministic(t *testing.T) {
	url := "https://www.mercadolibre.com.ar/p/MLA1"
	assert.Equal(t, Detect(url), Detect(url))
}

func TestID_Helpers(t *testing.T) {
	assert.Len(t, All(), 8)
	assert.Equal(t, Generic, All()[len(All())-1])
	assert.True(t, Fravega.Valid())
	assert.False(t, ID("ebay").Valid())
	assert.Equal(t, "USD", Amazon.DefaultCurrency())
	assert.Equal(t, "ARS", MercadoLibre.DefaultCurrency())
	assert.Equal(t, "ARS", Generic.DefaultCurrency())
}
