// Package postgres persists postings in PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/JakeFAU/hiring-scanner/internal/logging"
	"github.com/JakeFAU/hiring-scanner/internal/posting"
	"github.com/JakeFAU/hiring-scanner/internal/storage"
)

// Config controls the Postgres connection pool used for postings.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	Close()
}

// PostingStore writes postings into Postgres.
type PostingStore struct {
	pool   pool
	table  string
	logger *zap.Logger
}

var _ storage.Store = (*PostingStore)(nil)

// New creates a pool-backed PostingStore.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*PostingStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("storage.postgres_dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store, err := NewWithPool(p, cfg.Table, logger)
	if err != nil {
		p.Close()
		return nil, err
	}
	return store, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(p pool, table string, logger *zap.Logger) (*PostingStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = storage.DefaultTable
	}
	if !storage.ValidTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &PostingStore{pool: p, table: table, logger: logging.OrNop(logger).Named("postgres")}, nil
}

// EnsureSchema creates the postings table.
func (s *PostingStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id BIGSERIAL PRIMARY KEY,
	title TEXT,
	company TEXT,
	location TEXT,
	url TEXT UNIQUE,
	source TEXT,
	posted_at TEXT,
	captured_at TEXT,
	match_score DOUBLE PRECISION
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// Upsert inserts unseen URLs row by row so one bad row cannot abort the batch.
func (s *PostingStore) Upsert(ctx context.Context, postings []posting.JobPosting) (int, error) {
	query := fmt.Sprintf(`
INSERT INTO %s (%s) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8
) ON CONFLICT (url) DO NOTHING`, s.table, storage.Columns)

	inserted := 0
	for _, p := range postings {
		if err := ctx.Err(); err != nil {
			return inserted, fmt.Errorf("insert postings: %w", err)
		}
		tag, err := s.pool.Exec(ctx, query, storage.InsertArgs(p)...)
		if err != nil {
			s.logger.Debug("skipping posting", zap.String("url", p.URL), zap.Error(err))
			continue
		}
		if tag.RowsAffected() > 0 {
			inserted++
		}
	}
	return inserted, nil
}

// List returns all postings ordered by score then capture time, newest first.
// Unreadable rows are logged and left out.
func (s *PostingStore) List(ctx context.Context) ([]posting.JobPosting, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY match_score DESC, captured_at DESC`, storage.Columns, s.table)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query postings: %w", err)
	}
	defer rows.Close()

	return storage.CollectPostings(rows, s.logger)
}

// Close releases the underlying pool resources.
func (s *PostingStore) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}
