// Package classify decides whether fetched HTML represents a product detail
// page. The heuristics are cheap case-insensitive substring checks against the
// raw markup; the indicator tables are vendor-tuned policy, not architecture.
package classify

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Policy holds the replaceable indicator tables.
type Policy struct {
	// CartTerms flag cart/redirect artifacts when paired with a pageType
	// marker or a noindex robots meta tag.
	CartTerms []string
	// TitlePrefixes are lowercased raw-markup prefixes of cart page titles.
	TitlePrefixes []string
	// PathMarkers are checkout-path fragments appearing in cart markup.
	PathMarkers []string
	// URLExcludeTokens reject candidate URLs before any fetch happens.
	URLExcludeTokens []string
	// URLProductMarkers accept candidate URLs that do not end in .html.
	URLProductMarkers []string
}

// DefaultPolicy returns the indicator tables observed on the Magento
// storefronts this pipeline was first tuned against.
func DefaultPolicy() Policy {
	return Policy{
		CartTerms:     []string{"warenkorb", "cart"},
		TitlePrefixes: []string{"<title>warenkorb"},
		PathMarkers:   []string{"checkout/cart/"},
		URLExcludeTokens: []string{
			"/cart", "/checkout", "/customer", "/account", "/login", "/logout",
			"/wishlist", "/compare", "/search", "/catalog/category", "/contact",
			"/privacy", "/terms", "/cookies", "/newsletter", "/order", "/payment",
		},
		URLProductMarkers: []string{"product", "prod", "glamira-"},
	}
}

// Classifier implements pipeline.Classifier.
type Classifier struct {
	policy Policy
}

// New builds a Classifier. Empty policy fields fall back to the defaults.
func New(policy Policy) *Classifier {
	def := DefaultPolicy()
	if len(policy.CartTerms) == 0 {
		policy.CartTerms = def.CartTerms
	}
	if len(policy.TitlePrefixes) == 0 {
		policy.TitlePrefixes = def.TitlePrefixes
	}
	if len(policy.PathMarkers) == 0 {
		policy.PathMarkers = def.PathMarkers
	}
	if len(policy.URLExcludeTokens) == 0 {
		policy.URLExcludeTokens = def.URLExcludeTokens
	}
	if len(policy.URLProductMarkers) == 0 {
		policy.URLProductMarkers = def.URLProductMarkers
	}
	return &Classifier{policy: policy}
}

// IsNonProductPage reports whether the markup signals a cart/redirect artifact
// rather than a product detail page.
func (c *Classifier) IsNonProductPage(html string) bool {
	lower := strings.ToLower(html)

	if strings.Contains(lower, "pagetype") && c.containsCartTerm(lower) {
		return true
	}
	if strings.Contains(lower, `<meta name="robots" content="noindex,nofollow"`) && c.containsCartTerm(lower) {
		return true
	}
	for _, prefix := range c.policy.TitlePrefixes {
		if strings.Contains(lower, prefix) {
			return true
		}
	}
	for _, marker := range c.policy.PathMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func (c *Classifier) containsCartTerm(lower string) bool {
	for _, term := range c.policy.CartTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// CanonicalURL returns the href of a <link rel="canonical"> element, if any.
func (c *Classifier) CanonicalURL(html string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", false
	}
	href := ""
	doc.Find("link[rel]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		rel, _ := sel.Attr("rel")
		if !strings.Contains(strings.ToLower(rel), "canonical") {
			return true
		}
		if v, found := sel.Attr("href"); found {
			href = strings.TrimSpace(v)
		}
		return href == ""
	})
	if href == "" {
		return "", false
	}
	return href, true
}

// LikelyProductURL pre-filters candidate URLs before any fetch: obvious
// account/cart/service paths are rejected, .html paths and paths carrying a
// product marker are accepted.
func (c *Classifier) LikelyProductURL(rawURL string) bool {
	if rawURL == "" {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := strings.ToLower(u.Path)
	for _, token := range c.policy.URLExcludeTokens {
		if strings.Contains(path, token) {
			return false
		}
	}
	if strings.HasSuffix(path, ".html") {
		return true
	}
	for _, marker := range c.policy.URLProductMarkers {
		if strings.Contains(path, marker) {
			return true
		}
	}
	return false
}

// StrippedURL removes the query string and fragment, the recovery candidate
// used when no canonical link is present.
func StrippedURL(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	u.RawQuery = ""
	u.Fragment = ""
	stripped := u.String()
	if stripped == "" || stripped == rawURL {
		return "", false
	}
	return stripped, true
}
