// Package scheduler fans URL records out across a bounded worker pool.
package scheduler

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/shopsight/product-name-crawler/internal/metrics"
	"github.com/shopsight/product-name-crawler/internal/pipeline"
)

// Config controls pool size and the advisory memory ceiling.
type Config struct {
	Workers       int
	MemoryLimitMB int
}

// Scheduler runs a batch of records through one shared worker pool.
type Scheduler struct {
	proc   pipeline.Processor
	cfg    Config
	logger *zap.Logger
}

// New constructs a Scheduler.
func New(proc pipeline.Processor, cfg Config, logger *zap.Logger) *Scheduler {
	if cfg.Workers <= 0 {
		cfg.Workers = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &Scheduler{proc: proc, cfg: cfg, logger: logger}
}

// Crawl processes every record and returns outcomes in completion order.
// Every submitted record runs to completion; a panicking worker iteration is
// logged and its record excluded from the result list.
func (s *Scheduler) Crawl(ctx context.Context, records []pipeline.UrlRecord) []pipeline.OutcomeRecord {
	total := len(records)
	if total == 0 {
		return nil
	}
	s.logger.Info("starting crawl",
		zap.Int("records", total),
		zap.Int("workers", s.cfg.Workers),
		zap.Float64("heap_mb", heapMB()),
	)

	jobs := make(chan pipeline.UrlRecord)
	results := make(chan pipeline.OutcomeRecord, s.cfg.Workers)

	var completed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rec := range jobs {
				out, ok := s.runOne(ctx, rec)
				if ok {
					results <- out
				}
				s.noteProgress(completed.Add(1), int64(total))
			}
		}()
	}

	go func() {
		for _, rec := range records {
			jobs <- rec
		}
		close(jobs)
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	outcomes := make([]pipeline.OutcomeRecord, 0, total)
	for out := range results {
		metrics.ObserveOutcome(out.URL, string(out.Status))
		outcomes = append(outcomes, out)
	}

	s.logger.Info("finished crawl",
		zap.Int("outcomes", len(outcomes)),
		zap.Float64("heap_mb", heapMB()),
	)
	return outcomes
}

func (s *Scheduler) runOne(ctx context.Context, rec pipeline.UrlRecord) (out pipeline.OutcomeRecord, ok bool) {
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("worker panicked, excluding record",
				zap.String("product_id", rec.ProductID),
				zap.String("url", rec.URL),
				zap.Any("panic", r),
			)
			ok = false
		}
	}()
	return s.proc.Process(ctx, rec), true
}

// noteProgress logs at roughly 5% intervals and applies the advisory memory
// ceiling. In-flight work is never cancelled; the GC pass is back-pressure,
// not a stop.
func (s *Scheduler) noteProgress(completed, total int64) {
	logEvery := total / 20
	if logEvery < 1 {
		logEvery = 1
	}
	if completed%logEvery != 0 && completed != total {
		return
	}
	heap := heapMB()
	s.logger.Info("crawl progress",
		zap.Int64("completed", completed),
		zap.Int64("total", total),
		zap.Float64("percent", float64(completed)*100/float64(total)),
		zap.Float64("heap_mb", heap),
	)
	if s.cfg.MemoryLimitMB > 0 && heap > float64(s.cfg.MemoryLimitMB) {
		s.logger.Warn("memory ceiling exceeded, forcing gc",
			zap.Float64("heap_mb", heap),
			zap.Int("limit_mb", s.cfg.MemoryLimitMB),
		)
		runtime.GC()
		metrics.ObserveGCPass()
	}
}

func heapMB() float64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return float64(m.Alloc) / 1024 / 1024
}
