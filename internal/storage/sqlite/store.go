// Package sqlite persists postings in a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/JakeFAU/hiring-scanner/internal/logging"
	"github.com/JakeFAU/hiring-scanner/internal/posting"
	"github.com/JakeFAU/hiring-scanner/internal/storage"
)

// Config selects the database file and table.
type Config struct {
	// Path is a file path or any modernc DSN such as ":memory:".
	Path  string
	Table string
}

// Store is a storage.Store backed by SQLite.
type Store struct {
	db     *sql.DB
	table  string
	logger *zap.Logger
}

var _ storage.Store = (*Store)(nil)

// Open connects to the database and verifies it responds.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("storage.sqlite_path is required")
	}
	table := cfg.Table
	if table == "" {
		table = storage.DefaultTable
	}
	if !storage.ValidTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection serializes writers and keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &Store{db: db, table: table, logger: logging.OrNop(logger).Named("sqlite")}, nil
}

// EnsureSchema creates the postings table.
func (s *Store) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT,
	company TEXT,
	location TEXT,
	url TEXT UNIQUE,
	source TEXT,
	posted_at TEXT,
	captured_at TEXT,
	match_score REAL
)`, s.table)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// Upsert inserts unseen URLs inside one transaction. A failing row is skipped.
func (s *Store) Upsert(ctx context.Context, postings []posting.JobPosting) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := fmt.Sprintf(`INSERT OR IGNORE INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, s.table, storage.Columns)
	inserted := 0
	for _, p := range postings {
		res, err := tx.ExecContext(ctx, query, storage.InsertArgs(p)...)
		if err != nil {
			s.logger.Debug("skipping posting", zap.String("url", p.URL), zap.Error(err))
			continue
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			inserted++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit postings: %w", err)
	}
	return inserted, nil
}

// List returns all postings ordered by score then capture time, newest first.
// Unreadable rows are logged and left out.
func (s *Store) List(ctx context.Context) ([]posting.JobPosting, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY match_score DESC, captured_at DESC`, storage.Columns, s.table)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query postings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return storage.CollectPostings(rows, s.logger)
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
