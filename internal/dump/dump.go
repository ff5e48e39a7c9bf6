// Package dump writes the first few suspicious pages to disk for manual
// inspection. The cap is best-effort under concurrency; a slight overshoot is
// acceptable.
package dump

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Dumper is an explicit per-run object so tests get a fresh counter.
type Dumper struct {
	dir    string
	max    int64
	saved  atomic.Int64
	logger *zap.Logger
}

// New builds a Dumper writing at most max files into dir.
func New(dir string, max int, logger *zap.Logger) *Dumper {
	if dir == "" {
		dir = "."
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dumper{dir: dir, max: int64(max), logger: logger}
}

// Save writes the HTML for a URL unless the cap is already reached. Failures
// are logged and swallowed; dumping is diagnostics, never control flow.
func (d *Dumper) Save(rawURL, html string) {
	if d == nil {
		return
	}
	n := d.saved.Add(1)
	if n > d.max {
		d.saved.Add(-1)
		return
	}

	name := fmt.Sprintf("debug_html_%s_%d_%d.html", hostLabel(rawURL), time.Now().Unix(), n-1)
	path := filepath.Join(d.dir, name)
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		d.logger.Warn("debug html write failed", zap.String("path", path), zap.Error(err))
		return
	}
	d.logger.Info("saved debug html", zap.String("path", path))
}

// Saved reports how many pages have been written.
func (d *Dumper) Saved() int {
	return int(d.saved.Load())
}

func hostLabel(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ReplaceAll(u.Hostname(), ":", "_")
}
