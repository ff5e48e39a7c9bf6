package hardened

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
)

func TestNewLimiterValidation(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{MaxParallel: -1}); err == nil {
		t.Fatal("expected error for negative max parallel")
	}

	client, err := New(Config{MaxParallel: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer client.Close()
	if cap(client.limiter) != 2 {
		t.Fatalf("expected limiter capacity 2, got %d", cap(client.limiter))
	}
	if client.cfg.NavigationTimeout != 25*time.Second {
		t.Fatalf("expected default navigation timeout, got %v", client.cfg.NavigationTimeout)
	}
}

func TestAcquireRespectsContext(t *testing.T) {
	t.Parallel()

	client, err := New(Config{MaxParallel: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer client.Close()

	if err := client.acquire(context.Background()); err != nil {
		t.Fatalf("first acquire should succeed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := client.acquire(ctx); err == nil {
		t.Fatal("expected acquire to fail while the slot is held")
	}

	client.release()
	if err := client.acquire(context.Background()); err != nil {
		t.Fatalf("acquire after release should succeed: %v", err)
	}
}

func TestResponseMetaCaptureAndFallbacks(t *testing.T) {
	t.Parallel()

	meta := newResponseMeta()
	meta.captureEvent(&network.EventResponseReceived{
		Type: network.ResourceTypeDocument,
		Response: &network.Response{
			Status: 403,
			URL:    "https://shop.example.com/challenged",
		},
	})
	status, url := meta.snapshotWithFallbacks("https://req", "")
	if status != 403 || url != "https://shop.example.com/challenged" {
		t.Fatalf("unexpected snapshot: status=%d url=%s", status, url)
	}

	// Sub-resource responses must not overwrite the document response.
	meta.captureEvent(&network.EventResponseReceived{
		Type:     network.ResourceTypeImage,
		Response: &network.Response{Status: 200, URL: "https://cdn.example.com/x.png"},
	})
	status, url = meta.snapshotWithFallbacks("https://req", "")
	if status != 403 || url != "https://shop.example.com/challenged" {
		t.Fatalf("image response overwrote document meta: status=%d url=%s", status, url)
	}

	meta = newResponseMeta()
	status, url = meta.snapshotWithFallbacks("https://req", "https://final")
	if status != http.StatusOK || url != "https://final" {
		t.Fatalf("expected fallbacks, got status=%d url=%s", status, url)
	}

	meta = newResponseMeta()
	_, url = meta.snapshotWithFallbacks("https://req", "")
	if url != "https://req" {
		t.Fatalf("expected request URL fallback, got %s", url)
	}
}

func TestToNetworkHeaders(t *testing.T) {
	t.Parallel()

	h := http.Header{
		"User-Agent": {"agent"},
		"X-Multi":    {"a", "b"},
		"X-Empty":    {},
	}
	headers := toNetworkHeaders(h)
	if headers["User-Agent"] != "agent" {
		t.Fatalf("expected scalar value, got %v", headers["User-Agent"])
	}
	multi, ok := headers["X-Multi"].([]string)
	if !ok || len(multi) != 2 {
		t.Fatalf("expected two values, got %v", headers["X-Multi"])
	}
	if _, present := headers["X-Empty"]; present {
		t.Fatal("expected empty header to be dropped")
	}
}
