// Package cards turns product cards of varying upstream shapes into types.ProductCard.
//
// Upstream producers (sales agent, stylist, UI) disagree on field names and on
// where attributes live: a field may be top-level, inside a nested object, or
// inside a JSON string that is sometimes written with single quotes. Normalize
// resolves all of that once, at ingestion.
package cards

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"go-chat-commerce/chat-commerce/types"
)

var nestedKeys = []string{"attributes", "metadata", "details", "product"}

var (
	skuKeys      = []string{"sku", "product_sku", "productSku", "product_id", "id"}
	nameKeys     = []string{"name", "product_name", "productName", "title"}
	priceKeys    = []string{"price", "final_price", "selling_price", "amount", "mrp"}
	imageKeys    = []string{"image", "image_url", "imageUrl", "thumbnail", "images"}
	descKeys     = []string{"description", "desc"}
	reasonKeys   = []string{"personalized_reason", "personalizedReason", "reason"}
	giftKeys     = []string{"gift_message", "giftMessage"}
	brandKeys    = []string{"brand", "brand_name", "brandName"}
	categoryKeys = []string{"category", "product_category", "productCategory"}
	colorKeys    = []string{"color", "colour"}
	materialKeys = []string{"material", "fabric"}
)

// Normalize extracts a ProductCard from a raw card map.
func Normalize(raw map[string]any) types.ProductCard {
	views := flatten(raw)

	card := types.ProductCard{
		SKU:                lookupString(views, skuKeys),
		Name:               lookupString(views, nameKeys),
		Image:              lookupString(views, imageKeys),
		Description:        lookupString(views, descKeys),
		PersonalizedReason: lookupString(views, reasonKeys),
		GiftMessage:        lookupString(views, giftKeys),
		Brand:              lookupString(views, brandKeys),
		Category:           lookupString(views, categoryKeys),
		Color:              lookupString(views, colorKeys),
		Material:           lookupString(views, materialKeys),
	}
	if v, ok := lookup(views, priceKeys); ok {
		card.Price, card.RawPrice, _ = ParsePrice(v)
	}
	return card
}

// NormalizeAll normalizes a list of raw cards, dropping entries with neither SKU nor name.
func NormalizeAll(raws []map[string]any) []types.ProductCard {
	out := make([]types.ProductCard, 0, len(raws))
	for _, raw := range raws {
		card := Normalize(raw)
		if card.SKU == "" && card.Name == "" {
			continue
		}
		out = append(out, card)
	}
	return out
}

// ParsePrice reads a price given as a number or as display text such as "₹1,299".
// It returns the value rounded to paise and the original text. A negative
// price is not a price.
func ParsePrice(v any) (float64, string, bool) {
	f, raw, ok := parsePrice(v)
	if !ok || f < 0 {
		return 0, raw, false
	}
	return f, raw, true
}

func parsePrice(v any) (float64, string, bool) {
	switch p := v.(type) {
	case float64:
		return RoundRupees(p), strconv.FormatFloat(p, 'f', -1, 64), true
	case float32:
		return RoundRupees(float64(p)), strconv.FormatFloat(float64(p), 'f', -1, 32), true
	case int:
		return float64(p), strconv.Itoa(p), true
	case int64:
		return float64(p), strconv.FormatInt(p, 10), true
	case json.Number:
		f, err := p.Float64()
		if err != nil {
			return 0, p.String(), false
		}
		return RoundRupees(f), p.String(), true
	case string:
		cleaned := p
		for _, tok := range []string{"₹", "Rs.", "Rs", "INR", "/-", ",", " "} {
			cleaned = strings.ReplaceAll(cleaned, tok, "")
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(cleaned), 64)
		if err != nil {
			return 0, p, false
		}
		return RoundRupees(f), p, true
	}
	return 0, "", false
}

// RoundRupees rounds to two decimal places, half up, on the decimal
// representation so that 1.005 becomes 1.01.
func RoundRupees(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	neg := v < 0
	if neg {
		v = -v
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) <= 2 {
		if neg {
			return -v
		}
		return v
	}
	cents, err := strconv.ParseInt(whole+frac[:2], 10, 64)
	if err != nil {
		r := math.Floor(v*100+0.5) / 100
		if neg {
			return -r
		}
		return r
	}
	if frac[2] >= '5' {
		cents++
	}
	r := float64(cents) / 100
	if neg {
		return -r
	}
	return r
}

// FormatRupees renders an amount for chat text, dropping a zero fraction.
func FormatRupees(v float64) string {
	v = RoundRupees(v)
	if v == math.Trunc(v) {
		return "₹" + strconv.FormatFloat(v, 'f', 0, 64)
	}
	return "₹" + strconv.FormatFloat(v, 'f', 2, 64)
}

// ToPaise converts rupees to the gateway's integer minor unit.
func ToPaise(v float64) int64 {
	return int64(math.Round(RoundRupees(v) * 100))
}

func flatten(raw map[string]any) []map[string]any {
	views := []map[string]any{raw}
	for _, key := range nestedKeys {
		if m, ok := asMap(raw[key]); ok {
			views = append(views, m)
		}
	}
	return views
}

func asMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case string:
		return parseLooseJSON(t)
	}
	return nil, false
}

// parseLooseJSON accepts strict JSON and the Python-repr flavour some producers emit.
func parseLooseJSON(s string) (map[string]any, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") {
		return nil, false
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err == nil {
		return m, true
	}
	fixed := strings.NewReplacer("'", `"`, "True", "true", "False", "false", "None", "null").Replace(s)
	if err := json.Unmarshal([]byte(fixed), &m); err == nil {
		return m, true
	}
	return nil, false
}

func lookup(views []map[string]any, keys []string) (any, bool) {
	for _, view := range views {
		for _, k := range keys {
			v, ok := view[k]
			if !ok || v == nil {
				continue
			}
			if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
				continue
			}
			return v, true
		}
	}
	return nil, false
}

func lookupString(views []map[string]any, keys []string) string {
	v, ok := lookup(views, keys)
	if !ok {
		return ""
	}
	return stringify(v)
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case []any:
		if len(t) > 0 {
			return stringify(t[0])
		}
	case []string:
		if len(t) > 0 {
			return t[0]
		}
	}
	return ""
}
