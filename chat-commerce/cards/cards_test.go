package cards

import (
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestNormalize_DirectFields(t *testing.T) {
	card := Normalize(map[string]any{"sku": "SKU1", "name": "Blue Shirt", "price": "₹999"})

	assert.Equal(t, "SKU1", card.SKU)
	assert.Equal(t, "Blue Shirt", card.Name)
	assert.Equal(t, 999.0, card.Price)
	assert.Equal(t, "₹999", card.RawPrice)
}

func TestNormalize_AliasedAndNestedFields(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
	}{
		{
			name: "nested object",
			raw: map[string]any{
				"product_sku":  "SKU2",
				"product_name": "Kurta",
				"final_price":  1299.5,
				"attributes":   map[string]any{"brand": "Fabindia", "colour": "red", "fabric": "cotton", "category": "ethnic"},
			},
		},
		{
			name: "strict json string",
			raw: map[string]any{
				"id":       "SKU2",
				"title":    "Kurta",
				"price":    "Rs. 1,299.50",
				"metadata": `{"brand": "Fabindia", "color": "red", "material": "cotton", "category": "ethnic"}`,
			},
		},
		{
			name: "single quoted string",
			raw: map[string]any{
				"sku":        "SKU2",
				"name":       "Kurta",
				"price":      1299.5,
				"attributes": `{'brand': 'Fabindia', 'color': 'red', 'material': 'cotton', 'category': 'ethnic', 'in_stock': True}`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card := Normalize(tt.raw)
			assert.Equal(t, "SKU2", card.SKU)
			assert.Equal(t, "Kurta", card.Name)
			assert.Equal(t, 1299.5, card.Price)
			assert.Equal(t, "Fabindia", card.Brand)
			assert.Equal(t, "red", card.Color)
			assert.Equal(t, "cotton", card.Material)
			assert.Equal(t, "ethnic", card.Category)
		})
	}
}

func TestNormalize_ImageListAndBlankFallback(t *testing.T) {
	card := Normalize(map[string]any{
		"sku":    "SKU3",
		"name":   "  ",
		"title":  "Scarf",
		"images": []any{"https://cdn/a.jpg", "https://cdn/b.jpg"},
	})

	assert.Equal(t, "Scarf", card.Name)
	assert.Equal(t, "https://cdn/a.jpg", card.Image)
	assert.Zero(t, card.Price)
}

func TestNormalizeAll_DropsEmptyCards(t *testing.T) {
	out := NormalizeAll([]map[string]any{{"sku": "A"}, {"foo": "bar"}, {"name": "B"}})
	assert.Len(t, out, 2)
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   any
		want float64
		ok   bool
	}{
		{"₹999", 999, true},
		{"₹ 1,499.00", 1499, true},
		{"INR 250/-", 250, true},
		{1.005, 1.01, true},
		{2.675, 2.68, true},
		{int64(700), 700, true},
		{"free", 0, false},
		{nil, 0, false},
		{"-5", 0, false},
		{-250.0, 0, false},
	}
	for _, tt := range tests {
		got, _, ok := ParsePrice(tt.in)
		assert.Equal(t, tt.ok, ok, "input %v", tt.in)
		assert.Equal(t, tt.want, got, "input %v", tt.in)
	}
}

func TestFormatRupees(t *testing.T) {
	assert.Equal(t, "₹999", FormatRupees(999))
	assert.Equal(t, "₹1299.50", FormatRupees(1299.5))
	assert.Equal(t, int64(99900), ToPaise(999))
	assert.Equal(t, int64(101), ToPaise(1.005))
}

func TestRoundRupeesProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("result has at most two decimals", prop.ForAll(
		func(v float64) bool {
			s := strconv.FormatFloat(RoundRupees(v), 'f', -1, 64)
			_, frac, _ := strings.Cut(s, ".")
			return len(frac) <= 2
		},
		gen.Float64Range(0, 1e7),
	))

	properties.Property("rounding is idempotent", prop.ForAll(
		func(v float64) bool {
			once := RoundRupees(v)
			return RoundRupees(once) == once
		},
		gen.Float64Range(0, 1e7),
	))

	properties.Property("rounding moves at most half a paisa", prop.ForAll(
		func(v float64) bool {
			return math.Abs(RoundRupees(v)-v) <= 0.005+1e-9
		},
		gen.Float64Range(0, 1e7),
	))

	properties.TestingRun(t)
}
