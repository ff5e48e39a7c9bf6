// Package main wires together the product name resolution pipeline.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shopsight/product-name-crawler/internal/classify"
	"github.com/shopsight/product-name-crawler/internal/config"
	"github.com/shopsight/product-name-crawler/internal/dedupe"
	"github.com/shopsight/product-name-crawler/internal/dump"
	"github.com/shopsight/product-name-crawler/internal/extract"
	collyfetcher "github.com/shopsight/product-name-crawler/internal/fetcher/colly"
	"github.com/shopsight/product-name-crawler/internal/fetcher/hardened"
	"github.com/shopsight/product-name-crawler/internal/fetcher/resilient"
	"github.com/shopsight/product-name-crawler/internal/logging"
	"github.com/shopsight/product-name-crawler/internal/metrics"
	"github.com/shopsight/product-name-crawler/internal/ops"
	"github.com/shopsight/product-name-crawler/internal/pipeline"
	"github.com/shopsight/product-name-crawler/internal/processor"
	"github.com/shopsight/product-name-crawler/internal/scheduler"
	"github.com/shopsight/product-name-crawler/internal/sink"
	"github.com/shopsight/product-name-crawler/internal/slugname"
	"github.com/shopsight/product-name-crawler/internal/source"
	storepg "github.com/shopsight/product-name-crawler/internal/store/postgres"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush
	zap.ReplaceGlobals(logger)
	logger = logger.With(zap.String("run_id", uuid.NewString()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Init()

	classifier := classify.New(classify.Policy{
		CartTerms:         cfg.Policies.NonProductCartTerms,
		TitlePrefixes:     cfg.Policies.NonProductTitlePrefixes,
		PathMarkers:       cfg.Policies.NonProductPathMarkers,
		URLExcludeTokens:  cfg.Policies.URLExcludeTokens,
		URLProductMarkers: cfg.Policies.URLProductMarkers,
	})
	extractor := extract.New(extract.Policy{
		BotWallIndicators: cfg.Policies.BotWallIndicators,
		Selectors:         cfg.Policies.Selectors,
		Cleaner: extract.Cleaner{
			MarketingPrefixes: cfg.Policies.MarketingPrefixes,
			BrandTokens:       cfg.Policies.BrandTokens,
			Denylist:          cfg.Policies.Denylist,
		},
	})
	slugs := slugname.New(cfg.Policies.SlugPrefixes)
	dumper := dump.New(cfg.Output.DumpDir, cfg.Output.DumpMax, logger.Named("dump"))

	stdClient := collyfetcher.New(collyfetcher.Config{Timeout: cfg.HTTPTimeout()})
	var hardenedClient pipeline.PageClient
	if cfg.Hardened.Enabled {
		client, err := hardened.New(hardened.Config{
			MaxParallel:       cfg.Hardened.MaxParallel,
			NavigationTimeout: time.Duration(cfg.Hardened.NavTimeoutSec) * time.Second,
		})
		if err != nil {
			logger.Warn("hardened client init failed, fallback disabled", zap.Error(err))
		} else {
			defer client.Close()
			hardenedClient = client
		}
	}

	fetcher := resilient.New(stdClient, hardenedClient, resilient.Config{
		MaxRetries:     cfg.HTTP.MaxRetries,
		BackoffBase:    cfg.BackoffBase(),
		JitterMax:      cfg.JitterMax(),
		UserAgents:     cfg.HTTP.UserAgents,
		LocaleByTLD:    cfg.Policies.LocaleByTLD,
		PreferredHosts: cfg.Hardened.PreferredHosts,
		RPSPerHost:     cfg.HTTP.RPSPerHost,
		BurstPerHost:   cfg.HTTP.BurstPerHost,
	}, logger.Named("fetch"))

	proc := processor.New(fetcher, classifier, extractor, slugs, dumper, logger.Named("process"))
	sched := scheduler.New(proc, scheduler.Config{
		Workers:       cfg.Crawler.Workers,
		MemoryLimitMB: cfg.Crawler.MemoryLimitMB,
	}, logger.Named("crawl"))

	reader := source.New(
		cfg.Input.JSONLPath,
		cfg.Input.CSVPath,
		cfg.Input.BatchSize,
		func(rec pipeline.UrlRecord) bool { return classifier.LikelyProductURL(rec.URL) },
		logger.Named("source"),
	)
	candidates := sink.NewJSONLWriter(cfg.Output.CandidatesJSONL)
	final := sink.NewCSVWriter(cfg.Output.FinalCSV)

	var store *storepg.OutcomeStore
	if cfg.DB.DSN != "" {
		store, err = storepg.NewOutcomeStore(ctx, storepg.OutcomeStoreConfig{
			DSN:   cfg.DB.DSN,
			Table: cfg.DB.Table,
		})
		if err != nil {
			logger.Error("outcome store init failed", zap.Error(err))
			os.Exit(1)
		}
		defer store.Close()
	}

	if cfg.Server.Port > 0 {
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           ops.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("ops server started", zap.Int("port", cfg.Server.Port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("ops server error", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	run := &batchRun{
		cfg:        cfg,
		reader:     reader,
		sched:      sched,
		candidates: candidates,
		final:      final,
		store:      store,
		logger:     logger,
	}
	if err := run.execute(ctx); err != nil {
		logger.Error("run failed", zap.Error(err))
		os.Exit(1)
	}
}

type batchRun struct {
	cfg        config.Config
	reader     *source.Reader
	sched      *scheduler.Scheduler
	candidates *sink.JSONLWriter
	final      *sink.CSVWriter
	store      *storepg.OutcomeStore
	logger     *zap.Logger

	existing       map[string]struct{}
	totalExpected  int
	totalProcessed int
	totalWithName  int
	batchCount     int
}

func (r *batchRun) execute(ctx context.Context) error {
	total, err := r.reader.CountDistinctProducts()
	if err != nil {
		return fmt.Errorf("count products: %w", err)
	}
	r.totalExpected = total
	r.logger.Info("input scanned", zap.Int("distinct_products", total))

	r.existing = make(map[string]struct{})
	if !r.cfg.Input.ForceProcess {
		r.existing, err = sink.ExistingProductIDs(r.cfg.Output.FinalCSV)
		if err != nil {
			return fmt.Errorf("read resume state: %w", err)
		}
		r.logger.Info("resuming", zap.Int("already_processed", len(r.existing)))
	}

	err = r.reader.StreamBatches(func(batch []pipeline.UrlRecord) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return r.processBatch(ctx, batch)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	r.logger.Info("done",
		zap.Int("with_name", r.totalWithName),
		zap.Int("expected", r.totalExpected),
	)
	return nil
}

func (r *batchRun) processBatch(ctx context.Context, batch []pipeline.UrlRecord) error {
	r.batchCount++
	records := batch[:0:0]
	for _, rec := range batch {
		if _, done := r.existing[rec.ProductID]; !done {
			records = append(records, rec)
		}
	}
	r.logger.Info("batch start",
		zap.Int("batch", r.batchCount),
		zap.Int("records", len(records)),
		zap.Int("skipped", len(batch)-len(records)),
	)
	if len(records) == 0 {
		return nil
	}

	outcomes := r.sched.Crawl(ctx, records)
	merged := dedupe.Merge(outcomes)

	if err := r.candidates.Append(outcomes); err != nil {
		return fmt.Errorf("append candidates: %w", err)
	}
	if err := r.final.Append(merged); err != nil {
		return fmt.Errorf("append final: %w", err)
	}
	if r.store != nil {
		if err := r.store.StoreOutcomes(ctx, merged); err != nil {
			return fmt.Errorf("store outcomes: %w", err)
		}
	}

	withName := 0
	statusCounts := make(map[pipeline.Status]int)
	for _, out := range merged {
		r.existing[out.ProductID] = struct{}{}
		statusCounts[out.Status]++
		if out.HasName() {
			withName++
		}
	}
	r.totalProcessed += len(merged)
	r.totalWithName += withName

	percent := 0.0
	if r.totalExpected > 0 {
		percent = float64(r.totalProcessed) * 100 / float64(r.totalExpected)
	}
	r.logger.Info("batch done",
		zap.Int("batch", r.batchCount),
		zap.Int("processed", len(merged)),
		zap.Int("with_name", withName),
		zap.Float64("total_percent", percent),
		zap.Any("status_breakdown", statusCounts),
	)
	return nil
}
