package discovery

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/hiring-scanner/internal/logging"
)

// Search discovers URLs by querying every role against every site filter.
type Search struct {
	searcher    Searcher
	roles       []string
	sites       []string
	maxInFlight int
	logger      *zap.Logger
}

// NewSearch builds a Search source. maxInFlight bounds concurrent queries; zero is unbounded.
func NewSearch(searcher Searcher, roles, sites []string, maxInFlight int, logger *zap.Logger) *Search {
	return &Search{
		searcher:    searcher,
		roles:       roles,
		sites:       sites,
		maxInFlight: maxInFlight,
		logger:      logging.OrNop(logger).Named("search"),
	}
}

// Queries returns `"<role>" <site>` for each role and site, roles outermost.
func (s *Search) Queries() []string {
	out := make([]string, 0, len(s.roles)*len(s.sites))
	for _, role := range s.roles {
		for _, site := range s.sites {
			out = append(out, fmt.Sprintf("%q %s", role, site))
		}
	}
	return out
}

// Discover runs all queries concurrently. A failed query contributes nothing;
// if every query fails the last error is returned.
func (s *Search) Discover(ctx context.Context) ([]string, error) {
	queries := s.Queries()
	results := make([][]string, len(queries))
	errs := make([]error, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	if s.maxInFlight > 0 {
		g.SetLimit(s.maxInFlight)
	}
	for i, q := range queries {
		g.Go(func() error {
			links, err := s.searcher.Search(gctx, q)
			if err != nil {
				s.logger.Debug("search failed", zap.String("query", q), zap.Error(err))
				errs[i] = err
				return nil
			}
			results[i] = links
			return nil
		})
	}
	_ = g.Wait()

	var (
		links   []string
		failed  int
		lastErr error
	)
	for i, r := range results {
		if errs[i] != nil {
			failed++
			lastErr = errs[i]
			continue
		}
		links = append(links, r...)
	}
	if failed > 0 {
		s.logger.Warn("some searches failed", zap.Int("failed", failed), zap.Int("queries", len(queries)))
	}
	if len(queries) > 0 && failed == len(queries) {
		return nil, fmt.Errorf("all %d searches failed: %w", failed, lastErr)
	}
	return Unique(links), nil
}
