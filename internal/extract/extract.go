// Package extract derives a product name from HTML through an ordered chain
// of strategies of decreasing reliability. Extraction is a pure function of
// the markup; the first candidate surviving the shared cleaning rule wins.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Policy holds the replaceable extraction tables.
type Policy struct {
	// BotWallIndicators short-circuit extraction: a title scraped from a
	// challenge page is worse than no title.
	BotWallIndicators []string
	// Selectors is the markup fallback chain, most vendor-specific first.
	Selectors []string
	Cleaner   Cleaner
}

// DefaultPolicy returns the extraction tables tuned to the observed vendor's
// Magento markup, ending in fully generic selectors.
func DefaultPolicy() Policy {
	return Policy{
		BotWallIndicators: []string{"cloudflare", "captcha", "attention required", "access denied"},
		Selectors: []string{
			"h1.page-title span.base",
			"h1.page-title",
			".page-title",
			"h1.product-title",
			"h1.product-name",
			".product-title",
			".product-name",
			".product-info h1",
			".product-details h1",
			".product-header h1",
			"[itemprop='name']",
			"[data-testid='product-title']",
			"[data-testid='product-name']",
			"[data-role='product-name']",
			"meta[property='og:title']",
			"meta[name='title']",
			"h1",
			"title",
		},
		Cleaner: DefaultCleaner(),
	}
}

// Extractor implements pipeline.Extractor.
type Extractor struct {
	policy Policy
}

// New builds an Extractor. Empty policy fields fall back to the defaults.
func New(policy Policy) *Extractor {
	def := DefaultPolicy()
	if len(policy.BotWallIndicators) == 0 {
		policy.BotWallIndicators = def.BotWallIndicators
	}
	if len(policy.Selectors) == 0 {
		policy.Selectors = def.Selectors
	}
	if len(policy.Cleaner.MarketingPrefixes) == 0 {
		policy.Cleaner.MarketingPrefixes = def.Cleaner.MarketingPrefixes
	}
	if len(policy.Cleaner.BrandTokens) == 0 {
		policy.Cleaner.BrandTokens = def.Cleaner.BrandTokens
	}
	if len(policy.Cleaner.Denylist) == 0 {
		policy.Cleaner.Denylist = def.Cleaner.Denylist
	}
	return &Extractor{policy: policy}
}

// Extract runs the strategy chain and returns the first accepted candidate.
func (e *Extractor) Extract(html string) (string, bool) {
	lower := strings.ToLower(html)
	for _, indicator := range e.policy.BotWallIndicators {
		if strings.Contains(lower, indicator) {
			return "", false
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		doc = nil
	}

	strategies := []func() (string, bool){
		func() (string, bool) { return nameFromStructuredData(doc) },
		func() (string, bool) { return nameFromDataLayer(html) },
		func() (string, bool) { return nameFromWindowProduct(html) },
		func() (string, bool) { return e.nameFromSelectors(doc) },
	}
	for _, strategy := range strategies {
		raw, found := strategy()
		if !found {
			continue
		}
		if cleaned, accepted := e.policy.Cleaner.Clean(raw); accepted {
			return cleaned, true
		}
	}
	return "", false
}

// nameFromSelectors walks the selector chain, taking the first non-empty
// element text (or content attribute for meta tags).
func (e *Extractor) nameFromSelectors(doc *goquery.Document) (string, bool) {
	if doc == nil {
		return "", false
	}
	for _, selector := range e.policy.Selectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		var text string
		if strings.HasPrefix(selector, "meta") {
			text, _ = sel.Attr("content")
		} else {
			text = sel.Text()
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		// Each selector is its own candidate; a branded <title> that cleans
		// to nothing must not shadow a usable generic fallback.
		if cleaned, accepted := e.policy.Cleaner.Clean(text); accepted {
			return cleaned, true
		}
	}
	return "", false
}
