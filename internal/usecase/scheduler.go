package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/has-1997/jetback-mvp/internal/domain/entity"
	"github.com/has-1997/jetback-mvp/pkg/logger"
)

// CycleRunner runs one reconciliation cycle
type CycleRunner interface {
	RunCycle(ctx context.Context) (entity.ReconciliationReport, error)
}

// Scheduler triggers reconciliation cycles on a fixed interval.
// The next tick is armed only after the previous cycle returns, so cycles never overlap.
type Scheduler struct {
	runner   CycleRunner
	interval time.Duration
	logger   logger.Logger
}

// NewScheduler creates a new scheduler
func NewScheduler(runner CycleRunner, interval time.Duration, logger logger.Logger) *Scheduler {
	return &Scheduler{
		runner:   runner,
		interval: interval,
		logger:   logger,
	}
}

// Run executes a cycle immediately and then every interval until ctx is done
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("Reconciliation scheduler started", "interval", s.interval.String())

	s.runOnce(ctx)

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Reconciliation scheduler stopped")
			return
		case <-timer.C:
			s.runOnce(ctx)
			timer.Reset(s.interval)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	if _, err := s.runner.RunCycle(ctx); err != nil {
		if errors.Is(err, entity.ErrCycleInProgress) {
			s.logger.Info("Skipping tick, previous cycle still running")
			return
		}
		s.logger.Error("Reconciliation cycle failed", "error", err)
	}
}
