package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"SecFeed/internal/ports"
)

// Scheduler wires the cron driver with pipeline runs. A tick that fires while
// the previous run is still going is skipped.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	opts     RunOptions
	logger   *slog.Logger

	mu sync.Mutex
}

// NewScheduler returns a helper to start/stop recurring ingestion.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, opts RunOptions, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		driver:   driver,
		pipeline: pipeline,
		opts:     opts,
		logger:   logger.With("component", "scheduler"),
	}
}

// Start registers the pipeline with the driver.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	return s.driver.Start(ctx, func(trigger time.Time) {
		s.RunOnce(ctx, trigger)
	})
}

// RunOnce executes one ingestion run unless another is in flight.
// It reports whether the run actually happened.
func (s *Scheduler) RunOnce(ctx context.Context, trigger time.Time) bool {
	if !s.mu.TryLock() {
		s.logger.Warn("previous run still in progress, skipping tick", "trigger", trigger)
		return false
	}
	defer s.mu.Unlock()

	report, err := s.pipeline.Run(ctx, s.opts)
	if err != nil {
		s.logger.Error("scheduled run failed", "trigger", trigger, "error", err, "pages", report.Pages)
		return true
	}
	s.logger.Info("scheduled run complete", "trigger", trigger, "persisted", report.Inserted(), "pages", report.Pages)
	return true
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
