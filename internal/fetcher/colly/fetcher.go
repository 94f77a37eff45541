// Package collyfetcher implements fetcher.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/hiring-scanner/internal/fetcher"
	"github.com/JakeFAU/hiring-scanner/internal/logging"
	"github.com/JakeFAU/hiring-scanner/internal/metrics"
)

const (
	defaultTimeout = 20 * time.Second
	maxRedirects   = 10
)

// Throttle spaces out requests per host.
type Throttle interface {
	Wait(ctx context.Context, url string) error
}

// Config controls collector behavior.
type Config struct {
	UserAgent string
	// RespectRobots checks robots.txt before each fetch. The file is downloaded
	// once per host for the Fetcher's lifetime, outside the throttle.
	RespectRobots bool
	Timeout       time.Duration
}

// Fetcher implements fetcher.Fetcher using the Colly collector.
// Every request is preceded by a wait on the shared per-host throttle.
type Fetcher struct {
	cfg       Config
	throttle  Throttle
	logger    *zap.Logger
	transport http.RoundTripper
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// fetchState collects what the hooks observed during one visit.
type fetchState struct {
	page     fetcher.Page
	finalURL string
	err      error
}

// New builds a Fetcher. A nil throttle disables spacing.
func New(cfg Config, throttle Throttle, logger *zap.Logger) *Fetcher {
	var transport http.RoundTripper = newHTTPTransport()
	if cfg.RespectRobots {
		transport = newRobotsCachingTransport(transport)
	}
	return &Fetcher{
		cfg:       cfg,
		throttle:  throttle,
		logger:    logging.OrNop(logger).Named("fetcher"),
		transport: transport,
	}
}

// Fetch executes a single HTTP GET using Colly.
func (f *Fetcher) Fetch(ctx context.Context, url string) (fetcher.Page, bool) {
	if f.throttle != nil {
		if err := f.throttle.Wait(ctx, url); err != nil {
			metrics.ObserveFetch(url, metrics.OutcomeCanceled, 0)
			return fetcher.Page{}, false
		}
	}

	state := &fetchState{}
	collector := f.buildCollector(ctx, state)
	if err := f.runCollector(ctx, collector, url, state); err != nil {
		f.logger.Debug("fetch failed", zap.String("url", url), zap.Error(err))
		metrics.ObserveFetch(url, outcomeFor(err, state.page.StatusCode), 0)
		return fetcher.Page{}, false
	}
	if state.page.StatusCode != http.StatusOK {
		f.logger.Debug("unexpected status", zap.String("url", url), zap.Int("status", state.page.StatusCode))
		metrics.ObserveFetch(url, metrics.OutcomeStatus, 0)
		return fetcher.Page{}, false
	}
	state.page.URL = url
	if state.finalURL != "" {
		state.page.FinalURL = state.finalURL
	}
	metrics.ObserveFetch(url, metrics.OutcomeOK, len(state.page.Body))
	return state.page, true
}

// buildCollector returns a collector owned by a single fetch. Clones would share
// the parent's http.Client, so timeout and redirect settings are not set on one.
func (f *Fetcher) buildCollector(ctx context.Context, state *fetchState) *colly.Collector {
	collector := colly.NewCollector(colly.Async(false), colly.StdlibContext(ctx))
	collector.WithTransport(f.transport)
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = !f.cfg.RespectRobots
	timeout := f.cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	collector.SetRequestTimeout(timeout)
	collector.SetRedirectHandler(func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		state.finalURL = req.URL.String()
		return nil
	})

	f.configureCollectorHooks(collector, state)
	return collector
}

func (f *Fetcher) configureCollectorHooks(hooks collectorHooks, state *fetchState) {
	hooks.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/json;q=0.9,*/*;q=0.8")
	})

	hooks.OnResponse(func(r *colly.Response) {
		state.page = fetcher.Page{
			FinalURL:   r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       append([]byte(nil), r.Body...),
		}
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil {
			state.page.StatusCode = r.StatusCode
		}
		state.err = err
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, state *fetchState) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		if state.err != nil {
			return fmt.Errorf("colly response failed: %w", state.err)
		}
		return nil
	}
}

func outcomeFor(err error, status int) string {
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeCanceled
	case status != 0 && status != http.StatusOK:
		return metrics.OutcomeStatus
	default:
		return metrics.OutcomeError
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
