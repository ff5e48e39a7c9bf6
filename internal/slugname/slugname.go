// Package slugname derives a last-resort product name from a URL path slug.
package slugname

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/shopsight/product-name-crawler/internal/pipeline"
)

var wordSplitRe = regexp.MustCompile(`[-_]+`)

// Deriver turns hyphenated path slugs into human-readable names.
type Deriver struct {
	// Prefixes are locale/category slug prefixes stripped before splitting.
	prefixes []string
	titler   cases.Caser
}

// DefaultPrefixes lists the locale/category slug prefixes observed on the
// target storefronts.
func DefaultPrefixes() []string {
	return []string{
		"glamira-", "bague-", "ring-", "anneau-", "verlobungsring-", "eheringe-",
		"pierscionki-", "prsten-", "collier-", "pendant-", "necklace-", "earring-",
	}
}

// New builds a Deriver. An empty prefix list falls back to the defaults.
func New(prefixes []string) *Deriver {
	if len(prefixes) == 0 {
		prefixes = DefaultPrefixes()
	}
	return &Deriver{
		prefixes: prefixes,
		titler:   cases.Title(language.Und),
	}
}

// Derive extracts a name from the final .html path segment: strip the known
// prefixes, split on hyphen/underscore, capitalize alphabetic tokens, rejoin
// with spaces. URLs without .html in the path yield nothing.
func (d *Deriver) Derive(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	path := u.Path
	if path == "" || !strings.Contains(path, ".html") {
		return "", false
	}

	slug := path
	if idx := strings.LastIndex(slug, "/"); idx >= 0 {
		slug = slug[idx+1:]
	}
	slug, _, _ = strings.Cut(slug, ".html")

	for _, prefix := range d.prefixes {
		if strings.HasPrefix(slug, prefix) {
			slug = slug[len(prefix):]
			break
		}
	}

	var words []string
	for _, word := range wordSplitRe.Split(slug, -1) {
		if word == "" {
			continue
		}
		if isAlpha(word) {
			word = d.titler.String(word)
		}
		words = append(words, word)
	}
	if len(words) == 0 {
		return "", false
	}

	name := strings.Join(words, " ")
	if !pipeline.NameLengthOK(name) {
		return "", false
	}
	return name, true
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return s != ""
}
