// Package resilient wraps the page clients with the retry, backoff, and
// fallback behavior needed against uncooperative storefronts. All failure
// modes resolve to ok=false; callers never see an error.
package resilient

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/shopsight/product-name-crawler/internal/metrics"
	"github.com/shopsight/product-name-crawler/internal/pipeline"
)

const defaultAcceptLanguage = "en-US,en;q=0.8"

// Config controls retry and header behavior.
type Config struct {
	MaxRetries     int
	BackoffBase    time.Duration
	JitterMax      time.Duration
	UserAgents     []string
	LocaleByTLD    map[string]string
	PreferredHosts []string
	RPSPerHost     float64
	BurstPerHost   int
}

// Fetcher implements pipeline.Fetcher over a standard client and an optional
// hardened client used against bot-challenge responses.
type Fetcher struct {
	std      pipeline.PageClient
	hardened pipeline.PageClient
	cfg      Config
	limiters *hostLimiters
	logger   *zap.Logger
}

// New builds a Fetcher. hardened may be nil, in which case the challenge
// fallback is skipped silently.
func New(std pipeline.PageClient, hardened pipeline.PageClient, cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &Fetcher{
		std:      std,
		hardened: hardened,
		cfg:      cfg,
		limiters: newHostLimiters(cfg.RPSPerHost, cfg.BurstPerHost),
		logger:   logger,
	}
}

// Fetch performs up to MaxRetries attempts with exponential backoff between
// them. 404 short-circuits as permanent; 403/429/503 trigger one hardened
// fallback per attempt before falling through to the retry loop.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, bool) {
	for attempt := 1; attempt <= f.cfg.MaxRetries; attempt++ {
		if !f.pause(ctx, f.jitter()) {
			return "", false
		}
		if err := f.limiters.wait(ctx, rawURL); err != nil {
			return "", false
		}

		body, done, ok := f.attempt(ctx, rawURL)
		if done {
			return body, ok
		}

		if attempt < f.cfg.MaxRetries {
			if !f.pause(ctx, f.backoff(attempt)) {
				return "", false
			}
		}
	}
	f.logger.Debug("retries exhausted", zap.String("url", rawURL))
	return "", false
}

// attempt runs one request cycle. done=true means the outcome is final
// (success or permanent failure); done=false means the retry loop continues.
func (f *Fetcher) attempt(ctx context.Context, rawURL string) (body string, done, ok bool) {
	headers := f.buildHeaders(rawURL)
	req := pipeline.PageRequest{URL: rawURL, Headers: headers}

	resp, err := f.dispatch(ctx, req)
	if err != nil {
		metrics.ObserveFetchAttempt(rawURL, "error", 0, "standard", 0)
		f.logger.Debug("fetch attempt failed", zap.String("url", rawURL), zap.Error(err))
		return "", false, false
	}
	metrics.ObserveFetchAttempt(rawURL, fmt.Sprintf("http_%d", resp.StatusCode), len(resp.Body), "standard", resp.Duration)

	switch {
	case resp.StatusCode == http.StatusOK:
		return string(resp.Body), true, true
	case resp.StatusCode == http.StatusNotFound:
		f.logger.Debug("404 not found", zap.String("url", rawURL))
		return "", true, false
	case isChallengeStatus(resp.StatusCode):
		if fallbackBody, fellBack := f.tryHardened(ctx, req); fellBack {
			return fallbackBody, true, true
		}
		f.logger.Debug("challenge status", zap.String("url", rawURL), zap.Int("status", resp.StatusCode))
		return "", false, false
	default:
		f.logger.Debug("unexpected status", zap.String("url", rawURL), zap.Int("status", resp.StatusCode))
		return "", false, false
	}
}

// dispatch routes the request to the hardened client first for hosts known to
// sit behind a challenge wall, falling back to the standard client when the
// hardened attempt errors.
func (f *Fetcher) dispatch(ctx context.Context, req pipeline.PageRequest) (pipeline.PageResponse, error) {
	if f.hardened != nil && f.preferHardened(req.URL) {
		resp, err := f.hardened.Get(ctx, req)
		if err == nil {
			return resp, nil
		}
		f.logger.Debug("hardened preferred fetch failed", zap.String("url", req.URL), zap.Error(err))
	}
	return f.std.Get(ctx, req)
}

// tryHardened makes the single challenge fallback attempt. Only a 200 counts;
// anything else returns the flow to the retry loop.
func (f *Fetcher) tryHardened(ctx context.Context, req pipeline.PageRequest) (string, bool) {
	if f.hardened == nil {
		return "", false
	}
	metrics.ObserveHardenedFallback()
	resp, err := f.hardened.Get(ctx, req)
	if err != nil {
		f.logger.Debug("hardened fallback failed", zap.String("url", req.URL), zap.Error(err))
		return "", false
	}
	metrics.ObserveFetchAttempt(req.URL, fmt.Sprintf("http_%d", resp.StatusCode), len(resp.Body), "hardened", resp.Duration)
	if resp.StatusCode != http.StatusOK {
		return "", false
	}
	return string(resp.Body), true
}

func (f *Fetcher) buildHeaders(rawURL string) http.Header {
	h := http.Header{}
	if len(f.cfg.UserAgents) > 0 {
		h.Set("User-Agent", f.cfg.UserAgents[rand.IntN(len(f.cfg.UserAgents))])
	}
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	h.Set("Accept-Language", f.acceptLanguage(rawURL))
	h.Set("Accept-Encoding", "gzip, deflate")
	h.Set("Connection", "keep-alive")
	h.Set("Upgrade-Insecure-Requests", "1")
	if origin := originOf(rawURL); origin != "" {
		h.Set("Referer", origin)
	}
	return h
}

// acceptLanguage derives a locale from the URL's top-level domain.
func (f *Fetcher) acceptLanguage(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return defaultAcceptLanguage
	}
	host := strings.ToLower(u.Hostname())
	idx := strings.LastIndex(host, ".")
	if idx < 0 || idx == len(host)-1 {
		return defaultAcceptLanguage
	}
	if locale, found := f.cfg.LocaleByTLD[host[idx+1:]]; found {
		return locale
	}
	return defaultAcceptLanguage
}

func (f *Fetcher) preferHardened(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, marker := range f.cfg.PreferredHosts {
		if marker != "" && strings.Contains(host, marker) {
			return true
		}
	}
	return false
}

func (f *Fetcher) jitter() time.Duration {
	if f.cfg.JitterMax <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(f.cfg.JitterMax)))
}

func (f *Fetcher) backoff(attempt int) time.Duration {
	return f.cfg.BackoffBase << (attempt - 1)
}

// pause sleeps unless the context finishes first.
func (f *Fetcher) pause(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func isChallengeStatus(code int) bool {
	switch code {
	case http.StatusForbidden, http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return true
	}
	return false
}

func originOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Hostname() == "" {
		return ""
	}
	return fmt.Sprintf("%s://%s/", u.Scheme, u.Hostname())
}

// hostLimiters hands out one token-bucket limiter per hostname.
type hostLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

func newHostLimiters(rps float64, burst int) *hostLimiters {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &hostLimiters{
		limiters: make(map[string]*rate.Limiter),
		rps:      limit,
		burst:    burst,
	}
}

func (l *hostLimiters) wait(ctx context.Context, rawURL string) error {
	host := "unknown"
	if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}
	l.mu.Lock()
	limiter, exists := l.limiters[host]
	if !exists {
		limiter = rate.NewLimiter(l.rps, l.burst)
		l.limiters[host] = limiter
	}
	l.mu.Unlock()

	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}
