// Package postgres provides the optional Postgres-backed outcome store.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopsight/product-name-crawler/internal/pipeline"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// OutcomeStoreConfig controls the Postgres connection pool.
type OutcomeStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// OutcomeStore upserts merged outcome records into Postgres. The upsert guard
// mirrors the dedup merge priority, so the stored row per product_id only
// ever improves: a named row is never replaced by an unnamed one, and a
// success row is never replaced by a lower-confidence named row.
type OutcomeStore struct {
	pool  execCloser
	table string
}

// NewOutcomeStore creates a Postgres-backed OutcomeStore using the provided config.
func NewOutcomeStore(ctx context.Context, cfg OutcomeStoreConfig) (*OutcomeStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "product_names"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &OutcomeStore{pool: pool, table: table}, nil
}

// NewOutcomeStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewOutcomeStoreWithPool(pool execCloser, table string) (*OutcomeStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "product_names"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &OutcomeStore{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *OutcomeStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// StoreOutcomes upserts one row per outcome record.
func (s *OutcomeStore) StoreOutcomes(ctx context.Context, outcomes []pipeline.OutcomeRecord) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("outcome store is not configured")
	}
	for _, out := range outcomes {
		if err := s.storeOne(ctx, out); err != nil {
			return err
		}
	}
	return nil
}

func (s *OutcomeStore) storeOne(ctx context.Context, out pipeline.OutcomeRecord) error {
	if out.ProductID == "" {
		return fmt.Errorf("product_id is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	product_id,
	product_name,
	url,
	source_collection,
	status,
	fetched_at
) VALUES (
	$1,$2,$3,$4,$5,$6
)
ON CONFLICT (product_id) DO UPDATE SET
	product_name = EXCLUDED.product_name,
	url = EXCLUDED.url,
	source_collection = EXCLUDED.source_collection,
	status = EXCLUDED.status,
	fetched_at = EXCLUDED.fetched_at
WHERE EXCLUDED.product_name <> ''
  AND (%s.product_name = ''
       OR (EXCLUDED.status = 'success' AND %s.status <> 'success'))`,
		s.table, s.table, s.table)

	args := []any{
		out.ProductID,
		out.ProductName,
		out.URL,
		out.SourceCollection,
		string(out.Status),
		out.FetchedAt,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert outcome: %w", err)
	}
	return nil
}
