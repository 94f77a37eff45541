// Package storage defines the posting store contract shared by the
// SQLite, Postgres and in-memory backends.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/hiring-scanner/internal/board"
	"github.com/JakeFAU/hiring-scanner/internal/posting"
)

// DefaultTable is the table name used when none is configured.
const DefaultTable = "jobs"

// ValidTableName guards table names that are interpolated into SQL.
var ValidTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Store persists postings keyed by URL. The first write for a URL wins and
// is never updated.
type Store interface {
	// EnsureSchema creates the table and indexes if absent.
	EnsureSchema(ctx context.Context) error
	// Upsert inserts postings whose URL is not yet stored and returns how many were new.
	// Rows that fail individually are skipped.
	Upsert(ctx context.Context, postings []posting.JobPosting) (int, error)
	// List returns every stored posting by match score, then capture time, both descending.
	List(ctx context.Context) ([]posting.JobPosting, error)
	Close() error
}

// StoredCompany is the company value persisted for p.
func StoredCompany(p posting.JobPosting) string {
	if p.Company != "" {
		return p.Company
	}
	return board.CompanyFromURL(p.URL)
}

// SortForListing orders postings the way List must return them.
func SortForListing(ps []posting.JobPosting) {
	sort.SliceStable(ps, func(i, j int) bool {
		if ps[i].MatchScore != ps[j].MatchScore {
			return ps[i].MatchScore > ps[j].MatchScore
		}
		return ps[i].CapturedAt.After(ps[j].CapturedAt)
	})
}

// Columns lists the persisted posting columns in insert and select order.
const Columns = "title, company, location, url, source, posted_at, captured_at, match_score"

// InsertArgs flattens p into Columns order with timestamps in posting.TimeLayout.
// A missing posted time is bound as NULL.
func InsertArgs(p posting.JobPosting) []any {
	return []any{
		p.Title,
		StoredCompany(p),
		p.Location,
		p.URL,
		string(p.Source),
		nullableTime(p.PostedAt),
		posting.FormatTime(p.CapturedAt),
		p.MatchScore,
	}
}

func nullableTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := posting.FormatTime(*t)
	return &s
}

// Scanner is satisfied by database/sql and pgx rows.
type Scanner interface {
	Scan(dest ...any) error
}

// ScanPosting reads one row selected with Columns. Text columns other than
// url and captured_at may be NULL.
func ScanPosting(row Scanner) (posting.JobPosting, error) {
	var (
		p                                posting.JobPosting
		title, company, location, source sql.NullString
		postedAt                         sql.NullString
		captured                         string
	)
	if err := row.Scan(&title, &company, &location, &p.URL, &source, &postedAt, &captured, &p.MatchScore); err != nil {
		return posting.JobPosting{}, fmt.Errorf("scan posting: %w", err)
	}
	p.Title = title.String
	p.Company = company.String
	p.Location = location.String
	p.Source = posting.Source(source.String)
	var err error
	if p.PostedAt, err = posting.ParseOptionalTime(postedAt.String); err != nil {
		return posting.JobPosting{URL: p.URL}, err
	}
	if p.CapturedAt, err = posting.ParseTime(captured); err != nil {
		return posting.JobPosting{URL: p.URL}, err
	}
	return p, nil
}

// RowIterator is satisfied by *sql.Rows and pgx.Rows.
type RowIterator interface {
	Scanner
	Next() bool
	Err() error
}

// CollectPostings scans every remaining row. Rows that fail to scan or parse
// are logged and skipped so one bad record cannot hide the rest.
func CollectPostings(rows RowIterator, logger *zap.Logger) ([]posting.JobPosting, error) {
	var out []posting.JobPosting
	for rows.Next() {
		p, err := ScanPosting(rows)
		if err != nil {
			logger.Warn("skipping stored posting", zap.String("url", p.URL), zap.Error(err))
			continue
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate postings: %w", err)
	}
	return out, nil
}
