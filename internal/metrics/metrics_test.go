package metrics

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()
	if outcomesTotal == nil || fetchAttemptsTotal == nil || activeWorkers == nil {
		t.Fatal("expected collectors to be initialized")
	}
}

func TestSanitizeSite(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"https://www.Glamira.DE/ring.html": "www.glamira.de",
		"shop.example.com/path":            "shop.example.com",
		"http://shop.example.com:8080/x":   "shop.example.com",
		"":                                 "unknown",
		"http://":                          "unknown",
	}
	for input, want := range cases {
		if got := SanitizeSite(input); got != want {
			t.Fatalf("SanitizeSite(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestObserversDoNotPanic(t *testing.T) {
	Init()
	ObserveOutcome("https://shop.example.com/x.html", "success")
	ObserveFetchAttempt("https://shop.example.com/x.html", "http_200", 1024, "standard", 150*time.Millisecond)
	ObserveFetchAttempt("https://shop.example.com/x.html", "error", 0, "standard", 0)
	ObserveHardenedFallback()
	IncActiveWorkers()
	DecActiveWorkers()
	ObserveGCPass()
}

func TestHandlerServesMetrics(t *testing.T) {
	Init()
	ObserveOutcome("https://shop.example.com/x.html", "success")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200 from metrics handler, got %d", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Fatal("expected non-empty metrics exposition")
	}
}
