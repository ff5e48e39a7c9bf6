// Package collyfetcher implements the standard PageClient using gocolly.
package collyfetcher

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/shopsight/product-name-crawler/internal/pipeline"
)

// Config controls collector behavior.
type Config struct {
	Timeout time.Duration
}

// Client implements pipeline.PageClient using the Colly collector.
type Client struct {
	cfg           Config
	transport     http.RoundTripper
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Client.
func New(cfg Config) *Client {
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true

	transport := newHTTPTransport()
	c.WithTransport(transport)

	return &Client{
		cfg:           cfg,
		transport:     transport,
		baseCollector: c,
	}
}

// Get executes a single HTTP GET using Colly. Non-2xx responses are returned
// with their status code and body rather than as errors; only transport-level
// failures (timeout, connection reset, DNS) produce an error.
func (c *Client) Get(ctx context.Context, req pipeline.PageRequest) (pipeline.PageResponse, error) {
	var (
		result   pipeline.PageResponse
		fetchErr error
	)
	start := time.Now()
	collector := c.buildCollector(req, start, &result, &fetchErr)

	if err := c.runCollector(ctx, collector, req.URL, &result, &fetchErr); err != nil {
		return pipeline.PageResponse{}, err
	}
	return result, nil
}

func (c *Client) buildCollector(
	req pipeline.PageRequest,
	start time.Time,
	result *pipeline.PageResponse,
	fetchErr *error,
) *colly.Collector {
	collector := c.baseCollector.Clone()
	timeout := c.cfg.Timeout
	if timeout == 0 {
		timeout = 12 * time.Second
	}
	collector.SetRequestTimeout(timeout)
	collector.WithTransport(c.transport)

	c.configureCollectorHooks(collector, req, start, result, fetchErr)
	return collector
}

func (c *Client) configureCollectorHooks(
	hooks collectorHooks,
	req pipeline.PageRequest,
	start time.Time,
	result *pipeline.PageResponse,
	fetchErr *error,
) {
	hooks.OnRequest(func(r *colly.Request) {
		c.copyHeaders(req, r)
	})

	hooks.OnResponse(func(r *colly.Response) {
		*result = pipeline.PageResponse{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}
	})

	hooks.OnError(func(r *colly.Response, err error) {
		// Colly reports non-2xx statuses through OnError; the caller needs the
		// status and body to decide between retry, fallback, and give-up.
		if r != nil && r.StatusCode > 0 {
			*result = pipeline.PageResponse{
				URL:        r.Request.URL.String(),
				StatusCode: r.StatusCode,
				Body:       append([]byte(nil), r.Body...),
				Duration:   time.Since(start),
			}
			return
		}
		*fetchErr = err
	})
}

func (c *Client) runCollector(
	ctx context.Context,
	collector *colly.Collector,
	rawURL string,
	result *pipeline.PageResponse,
	fetchErr *error,
) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(rawURL)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		if *fetchErr != nil {
			return fmt.Errorf("request failed: %w", *fetchErr)
		}
		if result.StatusCode != 0 {
			return nil
		}
		if err != nil {
			return fmt.Errorf("visit failed: %w", err)
		}
		return nil
	}
}

func (c *Client) copyHeaders(req pipeline.PageRequest, r *colly.Request) {
	if req.Headers == nil {
		return
	}
	for key, values := range req.Headers {
		for i, v := range values {
			// Set the first value so rotated User-Agents replace the collector
			// default instead of stacking next to it.
			if i == 0 {
				r.Headers.Set(key, v)
				continue
			}
			r.Headers.Add(key, v)
		}
	}
}

// newHTTPTransport builds the shared transport. Certificate validation is
// intentionally relaxed: the targets are adversarial storefronts behind
// assorted middleboxes, and a verification failure must not look different
// from any other transient error.
func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: proxyFromEnvironment(),
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig:       &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}

// proxyFromEnvironment honors HTTP_PROXY/HTTPS_PROXY and, when neither is set,
// a single PROXY_URL applied to both schemes.
func proxyFromEnvironment() func(*http.Request) (*url.URL, error) {
	if os.Getenv("HTTP_PROXY") != "" || os.Getenv("http_proxy") != "" ||
		os.Getenv("HTTPS_PROXY") != "" || os.Getenv("https_proxy") != "" {
		return http.ProxyFromEnvironment
	}
	raw := os.Getenv("PROXY_URL")
	if raw == "" {
		return http.ProxyFromEnvironment
	}
	proxyURL, err := url.Parse(raw)
	if err != nil {
		return http.ProxyFromEnvironment
	}
	return func(*http.Request) (*url.URL, error) {
		return proxyURL, nil
	}
}
