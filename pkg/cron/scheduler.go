// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// PendingProcessor drains queued import jobs
type PendingProcessor interface {
	ProcessPending(ctx context.Context, limit int) (int, error)
}

// Options controls the import schedule
type Options struct {
	Schedule   string        // standard 5-field cron expression
	BatchSize  int           // jobs per run
	JobTimeout time.Duration // upper bound for one run
}

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron      *cron.Cron
	processor PendingProcessor
	opts      Options
	logger    *slog.Logger

	// running guards against overlapping runs when a batch outlives the interval
	running sync.Mutex
}

// NewScheduler creates a new job scheduler.
func NewScheduler(processor PendingProcessor, opts Options, logger *slog.Logger) *Scheduler {
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	if opts.BatchSize <= 0 {
		opts.BatchSize = 20
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = 5 * time.Minute
	}

	return &Scheduler{
		cron:      c,
		processor: processor,
		opts:      opts,
		logger:    logger,
	}
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.opts.Schedule, s.processPendingImports); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
		slog.String("schedule", s.opts.Schedule),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow triggers one import run synchronously (for testing/admin).
func (s *Scheduler) RunNow() {
	s.processPendingImports()
}

// processPendingImports runs one batch of queued imports.
func (s *Scheduler) processPendingImports() {
	if !s.running.TryLock() {
		s.logger.Debug("previous import run still in progress, skipping")
		return
	}
	defer s.running.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.JobTimeout)
	defer cancel()

	started := time.Now()
	completed, err := s.processor.ProcessPending(ctx, s.opts.BatchSize)
	if err != nil {
		s.logger.Error("failed to process pending imports", slog.Any("error", err))
		return
	}

	if completed > 0 {
		s.logger.Info("pending imports processed",
			slog.Int("completed", completed),
			slog.Duration("took", time.Since(started)),
		)
	}
}
