package extract

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// nameFromStructuredData scans embedded JSON-LD blocks for a schema.org
// Product declaration, including @graph nesting and offer sub-objects.
func nameFromStructuredData(doc *goquery.Document) (string, bool) {
	if doc == nil {
		return "", false
	}
	name := ""
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		var data any
		if err := json.Unmarshal([]byte(sel.Text()), &data); err != nil {
			return true
		}
		if candidate, found := productName(data); found {
			name = candidate
			return false
		}
		return true
	})
	if name == "" {
		return "", false
	}
	return name, true
}

// productName walks a decoded JSON-LD value for the first Product name.
func productName(data any) (string, bool) {
	obj, isMap := data.(map[string]any)
	if !isMap {
		if list, isList := data.([]any); isList {
			for _, item := range list {
				if name, found := productName(item); found {
					return name, true
				}
			}
		}
		return "", false
	}

	if declaresProduct(obj["@type"]) {
		if name := stringField(obj, "name"); name != "" {
			return name, true
		}
	}
	if graph, isList := obj["@graph"].([]any); isList {
		for _, node := range graph {
			if name, found := productName(node); found {
				return name, true
			}
		}
	}
	if offers, isMap := obj["offers"].(map[string]any); isMap {
		if name := stringField(offers, "name"); name != "" {
			return name, true
		}
	}
	return "", false
}

// declaresProduct handles @type as a string or a list of strings.
func declaresProduct(v any) bool {
	switch t := v.(type) {
	case string:
		return strings.EqualFold(t, "product")
	case []any:
		for _, item := range t {
			if s, isString := item.(string); isString && strings.EqualFold(s, "product") {
				return true
			}
		}
	}
	return false
}

func stringField(obj map[string]any, key string) string {
	if s, isString := obj[key].(string); isString {
		return strings.TrimSpace(s)
	}
	return ""
}
