// Package discovery produces the candidate URLs a scan parses.
package discovery

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/JakeFAU/hiring-scanner/internal/logging"
)

// Source yields candidate URLs.
type Source interface {
	Discover(ctx context.Context) ([]string, error)
}

// Static returns a fixed URL list.
type Static []string

// Discover returns a copy of the seeds.
func (s Static) Discover(context.Context) ([]string, error) {
	return append([]string(nil), s...), nil
}

// Combined merges sources in order and drops repeated URLs.
type Combined struct {
	sources []Source
	logger  *zap.Logger
}

// Combine builds a Combined source. Nil sources are ignored.
func Combine(logger *zap.Logger, sources ...Source) *Combined {
	c := &Combined{logger: logging.OrNop(logger).Named("discovery")}
	for _, s := range sources {
		if s != nil {
			c.sources = append(c.sources, s)
		}
	}
	return c
}

// Discover queries every source. Partial results from a failing source are
// kept and its error is joined into the return value.
func (c *Combined) Discover(ctx context.Context) ([]string, error) {
	var (
		all  []string
		errs []error
	)
	for _, s := range c.sources {
		urls, err := s.Discover(ctx)
		if err != nil {
			errs = append(errs, err)
		}
		all = append(all, urls...)
	}
	out := Unique(all)
	c.logger.Info("discovery finished", zap.Int("urls", len(out)), zap.Int("failed_sources", len(errs)))
	return out, errors.Join(errs...)
}

// Unique drops empty and repeated URLs, keeping first occurrences in order.
func Unique(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
