package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/hiring-scanner/internal/config"
	"github.com/JakeFAU/hiring-scanner/internal/notify"
	"github.com/JakeFAU/hiring-scanner/internal/posting"
	"github.com/JakeFAU/hiring-scanner/internal/scoring"
	"github.com/JakeFAU/hiring-scanner/internal/storage/memory"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type staticDiscoverer struct {
	urls []string
	err  error
}

func (d staticDiscoverer) Discover(context.Context) ([]string, error) { return d.urls, d.err }

// mapParser returns canned postings per URL, sleeping delays[url] first so
// completion order differs from launch order.
type mapParser struct {
	postings map[string][]posting.JobPosting
	delays   map[string]time.Duration
	block    chan struct{}
}

func (p *mapParser) Parse(ctx context.Context, url string) []posting.JobPosting {
	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
			return nil
		}
	}
	if d := p.delays[url]; d > 0 {
		time.Sleep(d)
	}
	return p.postings[url]
}

type fakeExporter struct {
	mu   sync.Mutex
	rows []posting.JobPosting
	err  error
}

func (e *fakeExporter) Export(_ context.Context, rows []posting.JobPosting) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rows = rows
	if e.err != nil {
		return "", e.err
	}
	return "jobs.csv", nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (n *recordingNotifier) Notify(_ context.Context, msg notify.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

func (n *recordingNotifier) Messages() []notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Message(nil), n.msgs...)
}

type seqIDs struct {
	mu  sync.Mutex
	n   int
	err error
}

func (g *seqIDs) NewID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	g.n++
	return fmt.Sprintf("run-%d", g.n), nil
}

type failingStore struct{ upsertErr, listErr error }

func (s failingStore) Upsert(context.Context, []posting.JobPosting) (int, error) { return 0, s.upsertErr }
func (s failingStore) List(context.Context) ([]posting.JobPosting, error)       { return nil, s.listErr }

var capturedAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func job(title, company, url string, source posting.Source) posting.JobPosting {
	return posting.JobPosting{Title: title, Company: company, URL: url, Source: source, CapturedAt: capturedAt}
}

func newScorer() *scoring.Scorer {
	return scoring.New(config.DefaultKeywords, config.DefaultBonusTerms)
}

func TestRunEndToEnd(t *testing.T) {
	urls := []string{"https://boards.greenhouse.io/acme", "https://jobs.lever.co/globex", "https://careers.initech.com"}
	parser := &mapParser{
		postings: map[string][]posting.JobPosting{
			urls[0]: {
				job("Sales Strategy Manager", "", "https://boards.greenhouse.io/acme/jobs/1", posting.SourceGreenhouse),
				job("Backend Engineer", "", "https://boards.greenhouse.io/acme/jobs/2", posting.SourceGreenhouse),
			},
			urls[1]: {
				job("Director, Revenue Operations", "globex", "https://jobs.lever.co/globex/a", posting.SourceLever),
				// Same title/company/location as the Greenhouse posting, so it is a duplicate.
				job("sales strategy manager", "ACME", "https://jobs.lever.co/acme/dup", posting.SourceLever),
			},
			urls[2]: {job("Sales Analytics Lead", "", "https://careers.initech.com/7", posting.SourceGeneric)},
		},
		// The first URL finishes last; its postings must still come first.
		delays: map[string]time.Duration{urls[0]: 30 * time.Millisecond},
	}
	store := memory.NewPostingStore()
	exporter := &fakeExporter{}
	notifier := &recordingNotifier{}
	s := New(Config{}, staticDiscoverer{urls: urls}, parser, newScorer(), store, exporter, notifier, &seqIDs{}, nil)

	res, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, "run-1", res.RunID)
	require.Equal(t, 3, res.Discovered)
	require.Equal(t, 5, res.Raw)
	require.Equal(t, 3, res.Matched)
	require.Equal(t, 3, res.Inserted)
	require.Equal(t, "jobs.csv", res.ExportPath)
	require.Positive(t, res.Duration)
	require.False(t, s.Running())

	require.Len(t, exporter.rows, 3)
	msgs := notifier.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "New sales strategy/ops jobs inserted: 3. See jobs.csv", msgs[0].Text)
	require.Equal(t, "run-1", msgs[0].RunID)
	require.Len(t, msgs[0].Highlights, 3)
	require.GreaterOrEqual(t, msgs[0].Highlights[0].MatchScore, msgs[0].Highlights[1].MatchScore)

	rows, err := store.List(context.Background())
	require.NoError(t, err)
	urlsStored := make([]string, 0, len(rows))
	for _, r := range rows {
		urlsStored = append(urlsStored, r.URL)
	}
	require.Contains(t, urlsStored, "https://boards.greenhouse.io/acme/jobs/1", "first occurrence wins the dedupe")
	require.NotContains(t, urlsStored, "https://jobs.lever.co/acme/dup")

	// A second run inserts nothing and stays quiet.
	res, err = s.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, "run-2", res.RunID)
	require.Zero(t, res.Inserted)
	require.Len(t, notifier.Messages(), 1)
}

func TestRunNoURLsWarns(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	exporter := &fakeExporter{}
	notifier := &recordingNotifier{}
	s := New(Config{}, staticDiscoverer{err: errors.New("serpapi down")}, &mapParser{}, newScorer(),
		memory.NewPostingStore(), exporter, notifier, &seqIDs{}, zap.New(core))

	res, err := s.Run(context.Background())
	require.NoError(t, err, "discovery failures do not fail the scan")
	require.Zero(t, res.Discovered)
	require.Zero(t, res.Inserted)
	require.Equal(t, 1, logs.FilterMessage(noURLsWarning).Len())
	require.Equal(t, 1, logs.FilterMessage("discovery incomplete").Len())
	require.NotNil(t, exporter.rows, "export still runs")
	require.Empty(t, notifier.Messages())
}

func TestRunPropagatesStoreAndExportErrors(t *testing.T) {
	urls := []string{"https://boards.greenhouse.io/acme"}
	parser := &mapParser{postings: map[string][]posting.JobPosting{
		urls[0]: {job("RevOps Lead", "", "https://boards.greenhouse.io/acme/jobs/1", posting.SourceGreenhouse)},
	}}
	boom := errors.New("boom")

	cases := map[string]struct {
		store    Store
		exporter *fakeExporter
		wantMsg  string
	}{
		"upsert": {store: failingStore{upsertErr: boom}, exporter: &fakeExporter{}, wantMsg: "store postings"},
		"list":   {store: failingStore{listErr: boom}, exporter: &fakeExporter{}, wantMsg: "list postings"},
		"export": {store: memory.NewPostingStore(), exporter: &fakeExporter{err: boom}, wantMsg: "export postings"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			notifier := &recordingNotifier{}
			s := New(Config{MaxInFlight: 1}, staticDiscoverer{urls: urls}, parser, newScorer(),
				tc.store, tc.exporter, notifier, &seqIDs{}, nil)
			_, err := s.Run(context.Background())
			require.ErrorIs(t, err, boom)
			require.ErrorContains(t, err, tc.wantMsg)
			require.Empty(t, notifier.Messages())
			require.False(t, s.Running())
		})
	}
}

func TestRunIDFailureReleasesSlot(t *testing.T) {
	ids := &seqIDs{err: errors.New("entropy")}
	s := New(Config{}, staticDiscoverer{}, &mapParser{}, newScorer(), memory.NewPostingStore(),
		&fakeExporter{}, nil, ids, nil)

	_, err := s.Run(context.Background())
	require.ErrorContains(t, err, "generate run id")
	require.False(t, s.Running())
}

func TestStartRejectsConcurrentScans(t *testing.T) {
	block := make(chan struct{})
	parser := &mapParser{block: block}
	s := New(Config{}, staticDiscoverer{urls: []string{"https://x.example/1"}}, parser, newScorer(),
		memory.NewPostingStore(), &fakeExporter{}, nil, &seqIDs{}, nil)

	type outcome struct {
		res Result
		err error
	}
	done := make(chan outcome, 1)
	runID, err := s.Start(context.Background(), func(r Result, err error) {
		done <- outcome{res: r, err: err}
	})
	require.NoError(t, err)
	require.Equal(t, "run-1", runID)
	require.True(t, s.Running())

	_, err = s.Start(context.Background(), nil)
	require.ErrorIs(t, err, ErrScanInProgress)
	_, err = s.Run(context.Background())
	require.ErrorIs(t, err, ErrScanInProgress)

	close(block)
	s.Wait()
	got := <-done
	require.NoError(t, got.err)
	require.Equal(t, "run-1", got.res.RunID)
	require.False(t, s.Running())
}

func TestRunCanceledContextStillFinishes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	parser := &mapParser{block: make(chan struct{})}
	s := New(Config{}, staticDiscoverer{urls: []string{"https://x.example/1", "https://x.example/2"}}, parser,
		newScorer(), memory.NewPostingStore(), &fakeExporter{}, nil, &seqIDs{}, nil)

	res, err := s.Run(ctx)
	require.NoError(t, err)
	require.Zero(t, res.Raw)
}

func TestDedupe(t *testing.T) {
	in := []posting.JobPosting{
		{Title: "RevOps Lead", URL: "https://boards.greenhouse.io/acme/jobs/1", Location: "NYC"},
		{Title: "revops lead", Company: "Acme", URL: "https://elsewhere.example/2", Location: "nyc"},
		{Title: "RevOps Lead", Company: "Acme", URL: "https://elsewhere.example/3", Location: "Remote"},
		{Title: "RevOps Lead", URL: "https://jobs.lever.co/globex/4", Location: "NYC"},
	}
	out := Dedupe(in)
	require.Len(t, out, 3)
	require.Equal(t, "https://boards.greenhouse.io/acme/jobs/1", out[0].URL)
	require.Equal(t, "https://elsewhere.example/3", out[1].URL)
	require.Equal(t, "https://jobs.lever.co/globex/4", out[2].URL)
	require.Empty(t, Dedupe(nil))
}

func TestTopByScore(t *testing.T) {
	in := make([]posting.JobPosting, 0, 12)
	for i := range 12 {
		in = append(in, posting.JobPosting{Title: fmt.Sprint(i), MatchScore: float64(i % 4)})
	}
	out := topByScore(in, highlightCount)
	require.Len(t, out, highlightCount)
	require.Equal(t, 3.0, out[0].MatchScore)
	require.Equal(t, "3", out[0].Title, "ties keep input order")
	require.Equal(t, 0.0, in[0].MatchScore, "input is not reordered")
}
