// Package pipeline runs one scan: discover candidate URLs, parse them
// concurrently, filter and score, dedupe, persist, export and notify.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/hiring-scanner/internal/logging"
	"github.com/JakeFAU/hiring-scanner/internal/metrics"
	"github.com/JakeFAU/hiring-scanner/internal/notify"
	"github.com/JakeFAU/hiring-scanner/internal/parser"
	"github.com/JakeFAU/hiring-scanner/internal/posting"
)

// ErrScanInProgress is returned by Run while another scan is still running.
var ErrScanInProgress = errors.New("scan already in progress")

// noURLsWarning is logged when discovery produced nothing to parse.
const noURLsWarning = "SERPAPI_KEY not set or no results; add a key for broad discovery."

// highlightCount caps how many top postings accompany a notification.
const highlightCount = 10

// Discoverer yields candidate URLs for a scan.
type Discoverer interface {
	Discover(ctx context.Context) ([]string, error)
}

// Scorer filters raw postings on role keywords and scores the survivors.
type Scorer interface {
	FilterAndNormalize(in []posting.JobPosting) []posting.JobPosting
}

// Store persists postings idempotently by URL.
type Store interface {
	Upsert(ctx context.Context, postings []posting.JobPosting) (int, error)
	List(ctx context.Context) ([]posting.JobPosting, error)
}

// Exporter writes the full store contents somewhere readable and returns its location.
type Exporter interface {
	Export(ctx context.Context, rows []posting.JobPosting) (string, error)
}

// Notifier delivers a best-effort announcement. It never reports failure.
type Notifier interface {
	Notify(ctx context.Context, msg notify.Message)
}

// IDGenerator creates run identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// Config tunes a Scanner.
type Config struct {
	// MaxInFlight bounds concurrent URL parses. Zero means one goroutine per URL.
	MaxInFlight int
}

// Result summarizes one scan run.
type Result struct {
	RunID      string        `json:"run_id"`
	Discovered int           `json:"discovered"`
	Raw        int           `json:"raw"`
	Matched    int           `json:"matched"`
	Inserted   int           `json:"inserted"`
	ExportPath string        `json:"export_path"`
	Duration   time.Duration `json:"duration"`
}

// Scanner wires the scan stages together. Only one Run executes at a time.
type Scanner struct {
	cfg        Config
	discoverer Discoverer
	parser     parser.Parser
	scorer     Scorer
	store      Store
	exporter   Exporter
	notifier   Notifier
	ids        IDGenerator
	logger     *zap.Logger
	running    atomic.Bool
	background sync.WaitGroup
}

// New constructs a Scanner. A nil notifier disables notifications.
func New(
	cfg Config,
	discoverer Discoverer,
	p parser.Parser,
	scorer Scorer,
	store Store,
	exporter Exporter,
	notifier Notifier,
	ids IDGenerator,
	logger *zap.Logger,
) *Scanner {
	return &Scanner{
		cfg:        cfg,
		discoverer: discoverer,
		parser:     p,
		scorer:     scorer,
		store:      store,
		exporter:   exporter,
		notifier:   notifier,
		ids:        ids,
		logger:     logging.OrNop(logger).Named("pipeline"),
	}
}

// Running reports whether a scan is in progress.
func (s *Scanner) Running() bool {
	return s.running.Load()
}

// Run executes one scan end-to-end.
func (s *Scanner) Run(ctx context.Context) (Result, error) {
	runID, err := s.acquire()
	if err != nil {
		return Result{}, err
	}
	defer s.running.Store(false)
	return s.execute(ctx, runID)
}

// Start launches a scan in the background and returns its run id without
// waiting. onDone, if set, receives the outcome.
func (s *Scanner) Start(ctx context.Context, onDone func(Result, error)) (string, error) {
	runID, err := s.acquire()
	if err != nil {
		return "", err
	}
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		defer s.running.Store(false)
		res, err := s.execute(ctx, runID)
		if err != nil {
			s.logger.Error("background scan failed", zap.String("run_id", runID), zap.Error(err))
		}
		if onDone != nil {
			onDone(res, err)
		}
	}()
	return runID, nil
}

// Wait blocks until scans launched by Start have returned.
func (s *Scanner) Wait() {
	s.background.Wait()
}

// acquire claims the single scan slot and allocates a run id.
func (s *Scanner) acquire() (string, error) {
	if !s.running.CompareAndSwap(false, true) {
		return "", ErrScanInProgress
	}
	runID, err := s.ids.NewID()
	if err != nil {
		s.running.Store(false)
		return "", fmt.Errorf("generate run id: %w", err)
	}
	return runID, nil
}

func (s *Scanner) execute(ctx context.Context, runID string) (Result, error) {
	start := time.Now()
	res, err := s.run(ctx, runID)
	res.Duration = time.Since(start)

	status := "success"
	if err != nil {
		status = "failure"
	}
	metrics.ObserveScan(status, res.Duration)
	return res, err
}

func (s *Scanner) run(ctx context.Context, runID string) (Result, error) {
	res := Result{RunID: runID}
	logger := s.logger.With(zap.String("run_id", runID))

	urls, err := s.discoverer.Discover(ctx)
	if err != nil {
		logger.Warn("discovery incomplete", zap.Error(err))
	}
	res.Discovered = len(urls)
	if len(urls) == 0 {
		logger.Warn(noURLsWarning)
	}

	raw := s.parseAll(ctx, urls)
	res.Raw = len(raw)
	observeSources(raw)

	matched := Dedupe(s.scorer.FilterAndNormalize(raw))
	res.Matched = len(matched)

	inserted, err := s.store.Upsert(ctx, matched)
	if err != nil {
		return res, fmt.Errorf("store postings: %w", err)
	}
	res.Inserted = inserted
	metrics.ObserveInserted(inserted)

	rows, err := s.store.List(ctx)
	if err != nil {
		return res, fmt.Errorf("list postings: %w", err)
	}
	exportPath, err := s.exporter.Export(ctx, rows)
	if err != nil {
		return res, fmt.Errorf("export postings: %w", err)
	}
	res.ExportPath = exportPath

	if inserted > 0 && s.notifier != nil {
		s.notifier.Notify(ctx, notify.Message{
			RunID:      runID,
			Text:       fmt.Sprintf("New sales strategy/ops jobs inserted: %d. See %s", inserted, exportPath),
			Inserted:   inserted,
			ExportPath: exportPath,
			Highlights: topByScore(matched, highlightCount),
		})
	}

	logger.Info("scan finished",
		zap.Int("discovered", res.Discovered),
		zap.Int("raw", res.Raw),
		zap.Int("matched", res.Matched),
		zap.Int("inserted", res.Inserted),
	)
	return res, nil
}

// parseAll fans out one parse per URL and flattens the results in URL order,
// independent of completion order.
func (s *Scanner) parseAll(ctx context.Context, urls []string) []posting.JobPosting {
	results := make([][]posting.JobPosting, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	if s.cfg.MaxInFlight > 0 {
		g.SetLimit(s.cfg.MaxInFlight)
	}
	for i, u := range urls {
		g.Go(func() error {
			results[i] = s.parser.Parse(gctx, u)
			return nil
		})
	}
	_ = g.Wait() // parsers never fail

	var out []posting.JobPosting
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}

func observeSources(raw []posting.JobPosting) {
	counts := make(map[posting.Source]int)
	for _, p := range raw {
		counts[p.Source]++
	}
	for src, n := range counts {
		metrics.ObservePostings(string(src), n)
	}
}

func topByScore(in []posting.JobPosting, n int) []posting.JobPosting {
	out := append([]posting.JobPosting(nil), in...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].MatchScore > out[j].MatchScore })
	if len(out) > n {
		out = out[:n]
	}
	return out
}
