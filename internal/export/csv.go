// Package export renders stored postings as CSV and optionally mirrors the
// file to object storage.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/JakeFAU/hiring-scanner/internal/logging"
	"github.com/JakeFAU/hiring-scanner/internal/posting"
)

// Header is the first CSV row.
var Header = []string{"title", "company", "location", "url", "source", "posted_at", "captured_at", "match_score"}

// Uploader copies a finished export to remote storage and returns its URI.
type Uploader interface {
	Upload(ctx context.Context, object, contentType string, r io.Reader) (string, error)
}

// Config controls where exports land.
type Config struct {
	// Path is the local CSV file, overwritten on every export.
	Path string
	// Prefix is prepended to uploaded object names.
	Prefix string
}

// CSV writes the full store contents to Config.Path.
type CSV struct {
	cfg      Config
	uploader Uploader
	clock    posting.Clock
	logger   *zap.Logger
}

// NewCSV constructs a CSV exporter. A nil uploader keeps exports local.
func NewCSV(cfg Config, uploader Uploader, clock posting.Clock, logger *zap.Logger) *CSV {
	return &CSV{cfg: cfg, uploader: uploader, clock: clock, logger: logging.OrNop(logger).Named("export")}
}

// Export overwrites the CSV file with rows and returns its path. Upload
// failures are logged; the local file still counts as the export.
func (e *CSV) Export(ctx context.Context, rows []posting.JobPosting) (string, error) {
	var buf bytes.Buffer
	if err := Write(&buf, rows); err != nil {
		return "", err
	}
	if dir := filepath.Dir(e.cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create export dir: %w", err)
		}
	}
	if err := os.WriteFile(e.cfg.Path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", e.cfg.Path, err)
	}

	if e.uploader != nil {
		object := e.objectName()
		uri, err := e.uploader.Upload(ctx, object, "text/csv", bytes.NewReader(buf.Bytes()))
		if err != nil {
			e.logger.Warn("export upload failed", zap.String("object", object), zap.Error(err))
		} else {
			e.logger.Info("export uploaded", zap.String("uri", uri), zap.Int("rows", len(rows)))
		}
	}
	return e.cfg.Path, nil
}

func (e *CSV) objectName() string {
	name := fmt.Sprintf("jobs-%s.csv", e.clock.Now().UTC().Format("2006-01-02"))
	if e.cfg.Prefix == "" {
		return name
	}
	return path.Join(e.cfg.Prefix, name)
}

// Write renders rows as CSV with Header first.
func Write(w io.Writer, rows []posting.JobPosting) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, p := range rows {
		record := []string{
			p.Title,
			p.Company,
			p.Location,
			p.URL,
			string(p.Source),
			posting.FormatOptionalTime(p.PostedAt),
			posting.FormatTime(p.CapturedAt),
			strconv.FormatFloat(p.MatchScore, 'f', 1, 64),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
