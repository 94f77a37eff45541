// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/hiring-scanner/internal/clock/system"
	"github.com/JakeFAU/hiring-scanner/internal/config"
	"github.com/JakeFAU/hiring-scanner/internal/discovery"
	"github.com/JakeFAU/hiring-scanner/internal/export"
	"github.com/JakeFAU/hiring-scanner/internal/export/gcs"
	collyfetcher "github.com/JakeFAU/hiring-scanner/internal/fetcher/colly"
	"github.com/JakeFAU/hiring-scanner/internal/id/uuid"
	"github.com/JakeFAU/hiring-scanner/internal/logging"
	"github.com/JakeFAU/hiring-scanner/internal/metrics"
	"github.com/JakeFAU/hiring-scanner/internal/notify"
	"github.com/JakeFAU/hiring-scanner/internal/parser"
	"github.com/JakeFAU/hiring-scanner/internal/pipeline"
	"github.com/JakeFAU/hiring-scanner/internal/policy/ratelimit"
	pubsubpublisher "github.com/JakeFAU/hiring-scanner/internal/publisher/pubsub"
	"github.com/JakeFAU/hiring-scanner/internal/scoring"
	"github.com/JakeFAU/hiring-scanner/internal/storage"
	"github.com/JakeFAU/hiring-scanner/internal/storage/memory"
	"github.com/JakeFAU/hiring-scanner/internal/storage/postgres"
	"github.com/JakeFAU/hiring-scanner/internal/storage/sqlite"
)

// dialTimeout bounds connecting to optional services at startup.
const dialTimeout = 5 * time.Second

type namedCloser struct {
	name string
	c    io.Closer
}

// App holds the shared, long-lived services for one process: the posting
// store, the scanner and the clients behind them. It is built once at
// startup and closed on exit.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	store    storage.Store
	notifier *notify.Fanout
	scanner  *pipeline.Scanner
	closers  []namedCloser
}

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Store exposes the configured posting store.
func (a *App) Store() storage.Store { return a.store }

// Scanner returns the scan pipeline.
func (a *App) Scanner() *pipeline.Scanner { return a.scanner }

// Notifier returns the notification fan-out.
func (a *App) Notifier() *notify.Fanout { return a.notifier }

// Config returns the configuration the App was built from.
func (a *App) Config() config.Config { return a.cfg }

// New wires every service cfg enables. It fails only when the store cannot be
// opened; optional integrations that fail to connect are logged and skipped.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	l := logging.OrNop(logger)
	l.Info("Initializing application services...")
	metrics.Init()

	a := &App{cfg: cfg, logger: l}

	store, err := OpenStore(ctx, cfg.Storage, l)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	a.store = store
	a.closers = append(a.closers, namedCloser{"store", store})

	clock := system.New()
	throttle := ratelimit.New(ratelimit.Config{MinInterval: cfg.Fetch.MinInterval})
	fetch := collyfetcher.New(collyfetcher.Config{
		UserAgent:     cfg.Fetch.UserAgent,
		RespectRobots: cfg.Fetch.RespectRobots,
		Timeout:       cfg.Fetch.Timeout,
	}, throttle, l)
	scorer := scoring.New(cfg.Scan.Keywords, cfg.Scan.BonusTerms)
	router := parser.NewRouter(
		parser.NewGreenhouse(fetch, clock, l),
		parser.NewLever(fetch, clock, cfg.Lever.APIBase, l),
		parser.NewGeneric(fetch, clock, scorer, l),
	)

	a.notifier = notify.NewFanout(l, a.notifyChannels(ctx)...)
	a.scanner = pipeline.New(
		pipeline.Config{MaxInFlight: cfg.Scan.MaxInFlight},
		a.discoverer(ctx),
		router,
		scorer,
		store,
		export.NewCSV(export.Config{Path: cfg.Export.CSVPath, Prefix: cfg.Export.GCSPrefix}, a.uploader(ctx), clock, l),
		a.notifier,
		uuid.New(),
		l,
	)

	l.Info("Application services initialized successfully.",
		zap.String("store", cfg.DatabaseLabel()),
		zap.Int("notify_channels", a.notifier.Len()),
	)
	return a, nil
}

// OpenStore connects the storage driver named in cfg.
func OpenStore(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (storage.Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, sqlite.Config{Path: cfg.SQLitePath, Table: cfg.Table}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize sqlite store: %w", err)
		}
		return store, nil
	case config.DriverPostgres:
		store, err := postgres.New(ctx, postgres.Config{DSN: cfg.PostgresDSN, Table: cfg.Table}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres store: %w", err)
		}
		return store, nil
	case config.DriverMemory:
		return memory.NewPostingStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Driver)
	}
}

func (a *App) discoverer(ctx context.Context) pipeline.Discoverer {
	cfg := a.cfg
	sources := []discovery.Source{discovery.Static(cfg.Scan.SeedURLs)}
	if cfg.Discovery.SerpAPIKey == "" {
		a.logger.Info("SerpAPI key not set; using seed URLs only")
		return discovery.Combine(a.logger, sources...)
	}

	var searcher discovery.Searcher = discovery.NewSerpAPI(discovery.SerpAPIConfig{
		APIKey:  cfg.Discovery.SerpAPIKey,
		BaseURL: cfg.Discovery.SerpAPIURL,
		Num:     cfg.Discovery.ResultsPerQuery,
		Timeout: cfg.Fetch.Timeout,
	})
	if cfg.Discovery.RedisURL != "" {
		dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
		rdb, err := discovery.DialRedis(dialCtx, cfg.Discovery.RedisURL)
		cancel()
		if err != nil {
			a.logger.Warn("Redis unavailable; search results will not be cached", zap.Error(err))
		} else {
			a.closers = append(a.closers, namedCloser{"redis", rdb})
			searcher = discovery.NewCachedSearcher(searcher, rdb, cfg.Discovery.CacheTTL, a.logger)
		}
	}
	sources = append(sources, discovery.NewSearch(searcher, cfg.Scan.Keywords, cfg.Discovery.Sites, cfg.Scan.MaxInFlight, a.logger))
	return discovery.Combine(a.logger, sources...)
}

func (a *App) uploader(ctx context.Context) export.Uploader {
	bucket := a.cfg.Export.GCSBucket
	if bucket == "" {
		return nil
	}
	u, err := gcs.Dial(ctx, gcs.Config{Bucket: bucket})
	if err != nil {
		a.logger.Warn("GCS unavailable; exports stay local", zap.String("bucket", bucket), zap.Error(err))
		return nil
	}
	a.closers = append(a.closers, namedCloser{"gcs", u})
	return u
}

func (a *App) notifyChannels(ctx context.Context) []notify.Channel {
	cfg := a.cfg.Notify
	var channels []notify.Channel
	if cfg.SlackWebhookURL != "" {
		channels = append(channels, notify.NewSlack(cfg.SlackWebhookURL))
	}
	if cfg.SMTP.Enabled() {
		channels = append(channels, notify.NewEmail(notify.SMTPConfig{
			Host: cfg.SMTP.Host,
			Port: cfg.SMTP.Port,
			User: cfg.SMTP.User,
			Pass: cfg.SMTP.Pass,
			From: cfg.SMTP.From,
			To:   notify.SplitRecipients(cfg.SMTP.To),
		}))
	}
	if cfg.PubSub.ProjectID != "" && cfg.PubSub.Topic != "" {
		pub, err := pubsubpublisher.Dial(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			a.logger.Warn("Pub/Sub unavailable; skipping topic notifications", zap.Error(err))
		} else {
			a.closers = append(a.closers, namedCloser{"pubsub", pub})
			channels = append(channels, notify.NewTopic(pub, cfg.PubSub.Topic))
		}
	}
	return channels
}

// Close waits for background scans and shuts down every service in reverse
// order of construction.
func (a *App) Close() {
	a.logger.Info("Shutting down application services...")
	if a.scanner != nil {
		a.scanner.Wait()
	}
	closeAll(a.logger, a.closers)
	// Sync errors on stdout/stderr are expected on some platforms.
	_ = a.logger.Sync()
}

func closeAll(logger *zap.Logger, closers []namedCloser) {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].c.Close(); err != nil {
			logger.Warn("Error closing service", zap.String("service", closers[i].name), zap.Error(err))
		}
	}
}
