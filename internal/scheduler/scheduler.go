// Package scheduler triggers scans on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/JakeFAU/hiring-scanner/internal/logging"
	"github.com/JakeFAU/hiring-scanner/internal/pipeline"
)

// Runner executes one scan.
type Runner interface {
	Run(ctx context.Context) (pipeline.Result, error)
}

// Scheduler wraps robfig/cron and owns the scan loop.
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	spec   string
	logger *zap.Logger
	wg     sync.WaitGroup
}

// New creates a Scheduler firing on spec, e.g. "@every 24h" or "0 6 * * *".
func New(spec string, runner Runner, logger *zap.Logger) *Scheduler {
	logger = logging.OrNop(logger).Named("scheduler")
	return &Scheduler{
		cron:   cron.New(cron.WithLogger(cronLogger{logger.Sugar()})),
		runner: runner,
		spec:   spec,
		logger: logger,
	}
}

// Start registers the scan and starts the cron loop. One scan also runs
// immediately so a fresh deployment does not wait for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.runScan(ctx) }); err != nil {
		return fmt.Errorf("schedule %q: %w", s.spec, err)
	}
	s.cron.Start()
	s.logger.Info("cron started", zap.String("spec", s.spec))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runScan(ctx)
	}()
	return nil
}

// Stop halts the cron loop and waits for in-flight scans to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.logger.Info("cron stopped")
}

func (s *Scheduler) runScan(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	res, err := s.runner.Run(ctx)
	switch {
	case errors.Is(err, pipeline.ErrScanInProgress):
		s.logger.Info("scan skipped; previous scan still running")
	case err != nil:
		s.logger.Error("scheduled scan failed", zap.Error(err))
	default:
		s.logger.Info("scheduled scan complete",
			zap.String("run_id", res.RunID),
			zap.Int("matched", res.Matched),
			zap.Int("inserted", res.Inserted),
			zap.Duration("duration", res.Duration),
		)
	}
}

// cronLogger routes cron's own logging through zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
