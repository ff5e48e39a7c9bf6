package extract

import (
	"strings"

	"github.com/shopsight/product-name-crawler/internal/pipeline"
)

// titleSeparators mark trailing site-branding suffixes. The spaced hyphen and
// the em/en dash variants all appear in the wild.
var titleSeparators = []string{" | ", " - ", " — ", " – "}

const brandTrimCutset = " -|•"

// Cleaner normalizes extraction candidates before acceptance.
type Cleaner struct {
	MarketingPrefixes []string
	BrandTokens       []string
	Denylist          []string
}

// DefaultCleaner returns the cleaning tables tuned to the observed vendor.
func DefaultCleaner() Cleaner {
	return Cleaner{
		MarketingPrefixes: []string{"Kaufen Sie ", "Achetez ", "Acheter ", "Buy ", "Compra ", "Compre "},
		BrandTokens:       []string{"glamira", "store", "shop"},
		Denylist: []string{
			"404", "not found", "error", "page not found", "home", "shop", "store", "catalog", "products",
		},
	}
}

// Clean applies the shared cleaning rule: collapse whitespace, truncate at the
// first title separator, strip marketing prefixes and trailing brand tokens to
// a fixed point, then validate length and the denylist. Cleaning is
// idempotent: cleaning an already-cleaned candidate returns it unchanged.
func (c Cleaner) Clean(raw string) (string, bool) {
	s := strings.Join(strings.Fields(raw), " ")

	for _, sep := range titleSeparators {
		if idx := strings.Index(s, sep); idx >= 0 {
			s = strings.TrimSpace(s[:idx])
		}
	}

	s = c.stripPrefixes(s)
	s = c.stripBrandTokens(s)
	s = strings.TrimSpace(s)

	if !pipeline.NameLengthOK(s) {
		return "", false
	}
	if c.denied(s) {
		return "", false
	}
	return s, true
}

// stripPrefixes removes marketing prefixes until none match, so repeated
// cleaning cannot peel another layer.
func (c Cleaner) stripPrefixes(s string) string {
	for {
		stripped := false
		for _, prefix := range c.MarketingPrefixes {
			if strings.HasPrefix(s, prefix) {
				s = strings.TrimSpace(s[len(prefix):])
				stripped = true
			}
		}
		if !stripped {
			return s
		}
	}
}

// stripBrandTokens removes trailing brand/site tokens until none match.
func (c Cleaner) stripBrandTokens(s string) string {
	for {
		stripped := false
		lower := strings.ToLower(s)
		for _, token := range c.BrandTokens {
			if token != "" && strings.HasSuffix(lower, token) {
				s = strings.Trim(s[:len(s)-len(token)], brandTrimCutset)
				lower = strings.ToLower(s)
				stripped = true
			}
		}
		if !stripped {
			return s
		}
	}
}

func (c Cleaner) denied(s string) bool {
	lower := strings.ToLower(s)
	for _, phrase := range c.Denylist {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
