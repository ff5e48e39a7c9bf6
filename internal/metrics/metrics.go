// Package metrics exposes Prometheus collectors for the name-resolution pipeline.
package metrics

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	outcomesTotal        *prometheus.CounterVec
	fetchAttemptsTotal   *prometheus.CounterVec
	fetchBytesTotal      *prometheus.CounterVec
	fetchDurationSeconds *prometheus.HistogramVec
	hardenedFallbacks    prometheus.Counter
	activeWorkers        prometheus.Gauge
	gcPassesTotal        prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		outcomesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "namecrawler_outcomes_total",
				Help: "Total outcome records produced, labeled by site and status.",
			},
			[]string{"site", "status"},
		)

		fetchAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "namecrawler_fetch_attempts_total",
				Help: "Total HTTP fetch attempts, labeled by result.",
			},
			[]string{"result"},
		)

		fetchBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "namecrawler_fetch_bytes_total",
				Help: "Total body bytes fetched, labeled by site.",
			},
			[]string{"site"},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "namecrawler_fetch_duration_seconds",
				Help:    "Histogram of single-attempt fetch latencies, labeled by client.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 12, 30},
			},
			[]string{"client"},
		)

		hardenedFallbacks = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "namecrawler_hardened_fallbacks_total",
				Help: "Total fallbacks to the hardened client after a challenge response.",
			},
		)

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "namecrawler_active_workers",
				Help: "Number of workers currently processing a URL record.",
			},
		)

		gcPassesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "namecrawler_gc_passes_total",
				Help: "Explicit garbage-collection passes triggered by the memory ceiling.",
			},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveOutcome increments the outcome counter for a site/status pair.
func ObserveOutcome(site, status string) {
	outcomesTotal.WithLabelValues(SanitizeSite(site), status).Inc()
}

// ObserveFetchAttempt records one fetch attempt and its byte count.
func ObserveFetchAttempt(site, result string, bytesFetched int, client string, duration time.Duration) {
	fetchAttemptsTotal.WithLabelValues(result).Inc()
	if bytesFetched > 0 {
		fetchBytesTotal.WithLabelValues(SanitizeSite(site)).Add(float64(bytesFetched))
	}
	fetchDurationSeconds.WithLabelValues(client).Observe(duration.Seconds())
}

// ObserveHardenedFallback counts a challenge-triggered hardened client attempt.
func ObserveHardenedFallback() {
	hardenedFallbacks.Inc()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	activeWorkers.Dec()
}

// ObserveGCPass counts an explicit memory-ceiling GC pass.
func ObserveGCPass() {
	gcPassesTotal.Inc()
}
