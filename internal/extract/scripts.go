package extract

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	dataLayerPushRe = regexp.MustCompile(`(?s)(?:window\.)?dataLayer\.push\((\{.*?\})\)\s*;?`)
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
	windowProductRe = regexp.MustCompile(`(?s)window\.product\s*=\s*\{.*?\};`)
	productSkuRe    = regexp.MustCompile(`["']?(?:parent_)?sku["']?\s*[:=]\s*["']([^"']+)["']`)
)

// nameFromDataLayer scans inline analytics pushes for a product sub-object,
// taking name first and sku/parent_sku as fallbacks. Payloads are frequently
// hand-written JS with trailing commas; those are repaired before parsing.
func nameFromDataLayer(html string) (string, bool) {
	for _, match := range dataLayerPushRe.FindAllStringSubmatch(html, -1) {
		obj := parseLooseJSON(match[1])
		if obj == nil {
			continue
		}
		product := productObject(obj)
		if product == nil {
			continue
		}
		for _, key := range []string{"name", "sku", "parent_sku"} {
			if candidate := stringField(product, key); candidate != "" {
				return candidate, true
			}
		}
	}
	return "", false
}

func parseLooseJSON(raw string) map[string]any {
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err == nil {
		return obj
	}
	fixed := trailingCommaRe.ReplaceAllString(raw, "$1")
	if err := json.Unmarshal([]byte(fixed), &obj); err != nil {
		return nil
	}
	return obj
}

// productObject finds the product payload at either the top-level "product"
// key or the GA-style ecommerce.detail.products[0] path.
func productObject(obj map[string]any) map[string]any {
	if product, isMap := obj["product"].(map[string]any); isMap {
		return product
	}
	ecommerce, isMap := obj["ecommerce"].(map[string]any)
	if !isMap {
		return nil
	}
	detail, isMap := ecommerce["detail"].(map[string]any)
	if !isMap {
		return nil
	}
	products, isList := detail["products"].([]any)
	if !isList || len(products) == 0 {
		return nil
	}
	first, isMap := products[0].(map[string]any)
	if !isMap {
		return nil
	}
	return first
}

// nameFromWindowProduct pattern-matches a sku field inside a
// window.product = {...} assignment.
func nameFromWindowProduct(html string) (string, bool) {
	block := windowProductRe.FindString(html)
	if block == "" {
		return "", false
	}
	match := productSkuRe.FindStringSubmatch(block)
	if match == nil {
		return "", false
	}
	sku := strings.TrimSpace(match[1])
	if sku == "" {
		return "", false
	}
	return sku, true
}
