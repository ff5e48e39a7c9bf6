// Package processor orchestrates fetch, classification, extraction, and the
// slug fallback for a single URL record.
package processor

import (
	"context"

	"go.uber.org/zap"

	"github.com/shopsight/product-name-crawler/internal/classify"
	"github.com/shopsight/product-name-crawler/internal/pipeline"
)

// SlugDeriver derives a last-resort name from a URL path.
type SlugDeriver interface {
	Derive(rawURL string) (string, bool)
}

// PageDumper persists suspicious pages for manual inspection.
type PageDumper interface {
	Save(rawURL, html string)
}

// Processor implements pipeline.Processor.
type Processor struct {
	fetcher    pipeline.Fetcher
	classifier pipeline.Classifier
	extractor  pipeline.Extractor
	slugs      SlugDeriver
	dumper     PageDumper
	logger     *zap.Logger
}

// New constructs a Processor. dumper may be nil.
func New(
	fetcher pipeline.Fetcher,
	classifier pipeline.Classifier,
	extractor pipeline.Extractor,
	slugs SlugDeriver,
	dumper PageDumper,
	logger *zap.Logger,
) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		fetcher:    fetcher,
		classifier: classifier,
		extractor:  extractor,
		slugs:      slugs,
		dumper:     dumper,
		logger:     logger,
	}
}

// Process turns one UrlRecord into exactly one OutcomeRecord. It never
// panics: an unexpected failure degrades to a "failed" outcome.
func (p *Processor) Process(ctx context.Context, rec pipeline.UrlRecord) (out pipeline.OutcomeRecord) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("record processing panicked",
				zap.String("product_id", rec.ProductID),
				zap.String("url", rec.URL),
				zap.Any("panic", r),
			)
			out = pipeline.NewOutcome(rec, "", pipeline.StatusFailed)
		}
	}()

	html, ok := p.fetcher.Fetch(ctx, rec.URL)
	if !ok {
		p.logger.Debug("no html", zap.String("url", rec.URL))
		return pipeline.NewOutcome(rec, "", pipeline.StatusNoHTML)
	}

	if p.classifier.IsNonProductPage(html) {
		rec, html = p.recoverRecord(ctx, rec, html)
		if p.classifier.IsNonProductPage(html) {
			p.dump(rec.URL, html)
			return pipeline.NewOutcome(rec, "", pipeline.StatusNonProductPage)
		}
	}

	if name, found := p.extractor.Extract(html); found {
		return pipeline.NewOutcome(rec, name, pipeline.StatusSuccess)
	}
	if name, found := p.slugs.Derive(rec.URL); found {
		return pipeline.NewOutcome(rec, name, pipeline.StatusSlugHeuristic)
	}
	p.dump(rec.URL, html)
	return pipeline.NewOutcome(rec, "", pipeline.StatusNoNameFound)
}

// recoverRecord makes the one-shot recovery attempt: re-fetch the canonical
// URL, or the original stripped of query and fragment, and adopt the result
// only when it is itself a product page. The returned record carries the
// recovered URL so downstream outcomes report where the name came from.
func (p *Processor) recoverRecord(
	ctx context.Context,
	rec pipeline.UrlRecord,
	html string,
) (pipeline.UrlRecord, string) {
	newURL, found := p.classifier.CanonicalURL(html)
	if !found {
		newURL, found = classify.StrippedURL(rec.URL)
	}
	if !found || newURL == rec.URL {
		return rec, html
	}

	recovered, ok := p.fetcher.Fetch(ctx, newURL)
	if !ok || p.classifier.IsNonProductPage(recovered) {
		return rec, html
	}
	p.logger.Debug("recovered via canonical url",
		zap.String("original", rec.URL),
		zap.String("recovered", newURL),
	)
	return rec.WithURL(newURL), recovered
}

func (p *Processor) dump(rawURL, html string) {
	if p.dumper != nil {
		p.dumper.Save(rawURL, html)
	}
}
