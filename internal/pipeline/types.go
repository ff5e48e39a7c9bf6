// Package pipeline defines the core types shared across the name-resolution pipeline.
package pipeline

import (
	"context"
	"net/http"
	"time"
	"unicode/utf8"
)

// Status is the terminal outcome of processing one UrlRecord.
type Status string

// Outcome status values, in descending order of confidence.
const (
	StatusSuccess        Status = "success"
	StatusSlugHeuristic  Status = "slug_heuristic"
	StatusNonProductPage Status = "non_product_page"
	StatusNoNameFound    Status = "no_name_found"
	StatusNoHTML         Status = "no_html"
	StatusFailed         Status = "failed"
)

// Cleaned product names must be strictly between these rune counts.
const (
	MinNameRunes = 3
	MaxNameRunes = 200
)

// NameLengthOK reports whether a cleaned candidate satisfies the length bound.
func NameLengthOK(name string) bool {
	n := utf8.RuneCountInString(name)
	return n > MinNameRunes && n < MaxNameRunes
}

// UrlRecord is one candidate page URL for a product identifier.
// Records are immutable; recovery issues a new value via WithURL.
type UrlRecord struct {
	ProductID        string `json:"product_id"`
	URL              string `json:"url"`
	SourceCollection string `json:"source_collection"`
}

// WithURL returns a copy of the record pointing at a recovered URL.
func (r UrlRecord) WithURL(url string) UrlRecord {
	r.URL = url
	return r
}

// OutcomeRecord is the single result produced for a processed UrlRecord.
// ProductName is empty exactly when Status carries no name.
type OutcomeRecord struct {
	ProductID        string `json:"product_id"`
	URL              string `json:"url"`
	SourceCollection string `json:"source_collection"`
	ProductName      string `json:"product_name,omitempty"`
	Status           Status `json:"status"`
	FetchedAt        int64  `json:"fetched_at"`
}

// HasName reports whether the outcome carries a resolved product name.
func (o OutcomeRecord) HasName() bool {
	return o.ProductName != ""
}

// NewOutcome builds an outcome for a record, stamped with the current time.
func NewOutcome(rec UrlRecord, name string, status Status) OutcomeRecord {
	return OutcomeRecord{
		ProductID:        rec.ProductID,
		URL:              rec.URL,
		SourceCollection: rec.SourceCollection,
		ProductName:      name,
		Status:           status,
		FetchedAt:        time.Now().Unix(),
	}
}

// PageRequest captures one HTTP GET against a target page.
type PageRequest struct {
	URL     string
	Headers http.Header
}

// PageResponse is the raw result returned by a PageClient.
type PageResponse struct {
	URL        string
	StatusCode int
	Body       []byte
	Duration   time.Duration
}

// PageClient performs a single HTTP GET. Implementations: the standard colly
// client and the hardened challenge-capable client.
type PageClient interface {
	Get(ctx context.Context, req PageRequest) (PageResponse, error)
}

// Fetcher resolves a URL to HTML. All failure modes resolve to ok=false.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (html string, ok bool)
}

// Classifier decides whether fetched HTML represents a product detail page.
type Classifier interface {
	IsNonProductPage(html string) bool
	CanonicalURL(html string) (string, bool)
}

// Extractor derives a cleaned product name from HTML.
type Extractor interface {
	Extract(html string) (string, bool)
}

// Processor turns one UrlRecord into exactly one OutcomeRecord. Never panics.
type Processor interface {
	Process(ctx context.Context, rec UrlRecord) OutcomeRecord
}
