package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/has-1997/jetback-mvp/internal/domain/entity"
	"github.com/has-1997/jetback-mvp/internal/domain/repository"
	"github.com/has-1997/jetback-mvp/pkg/logger"
	"github.com/has-1997/jetback-mvp/pkg/metrics"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ReconcilerConfig bounds one reconciliation cycle
type ReconcilerConfig struct {
	Concurrency  int
	QuoteTimeout time.Duration
	WriteTimeout time.Duration
}

// Reconciler re-quotes every tracked booking and records strict price drops
type Reconciler struct {
	bookingRepo repository.TrackedBookingRepository
	fareRepo    repository.FareQuoteRepository
	runRepo     repository.ReconciliationRunRepository
	metrics     *metrics.Metrics
	logger      logger.Logger
	config      ReconcilerConfig
	running     atomic.Bool
	now         func() time.Time
}

// NewReconciler creates a new reconciler
func NewReconciler(
	bookingRepo repository.TrackedBookingRepository,
	fareRepo repository.FareQuoteRepository,
	runRepo repository.ReconciliationRunRepository,
	metrics *metrics.Metrics,
	logger logger.Logger,
	config ReconcilerConfig,
) *Reconciler {
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}
	if config.QuoteTimeout <= 0 {
		config.QuoteTimeout = 30 * time.Second
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 10 * time.Second
	}

	return &Reconciler{
		bookingRepo: bookingRepo,
		fareRepo:    fareRepo,
		runRepo:     runRepo,
		metrics:     metrics,
		logger:      logger,
		config:      config,
		now:         time.Now,
	}
}

// Running reports whether a cycle is in progress
func (r *Reconciler) Running() bool {
	return r.running.Load()
}

// RunCycle evaluates a snapshot of all tracking bookings once.
// It fails only when the snapshot cannot be read or another cycle is running;
// per-booking problems are reported in the returned report.
func (r *Reconciler) RunCycle(ctx context.Context) (entity.ReconciliationReport, error) {
	if !r.running.CompareAndSwap(false, true) {
		return entity.ReconciliationReport{}, entity.ErrCycleInProgress
	}
	defer r.running.Store(false)

	report := entity.ReconciliationReport{
		RunID:     uuid.NewString(),
		StartedAt: r.now(),
	}

	candidates, err := r.bookingRepo.FindByStatus(ctx, entity.BookingStatusTracking)
	if err != nil {
		r.metrics.ErrorsCount.WithLabelValues("reconcile_snapshot").Inc()
		r.logger.Error("Failed to load tracked bookings", "runID", report.RunID, "error", err)
		return report, fmt.Errorf("failed to load tracked bookings: %w", err)
	}
	report.Candidates = len(candidates)

	r.logger.Info("Reconciliation cycle started",
		"runID", report.RunID,
		"candidates", len(candidates),
		"concurrency", r.config.Concurrency)

	outcomes := make([]entity.RecordOutcome, len(candidates))

	var g errgroup.Group
	g.SetLimit(r.config.Concurrency)

	for i, booking := range candidates {
		if ctx.Err() != nil {
			outcomes[i] = entity.RecordOutcome{BookingID: booking.ID, Status: entity.OutcomeSkipped, Err: ctx.Err()}
			continue
		}
		i, booking := i, booking
		g.Go(func() error {
			outcomes[i] = r.reconcileBooking(ctx, report.RunID, booking)
			return nil
		})
	}
	_ = g.Wait()

	for _, o := range outcomes {
		report.Add(o)
		r.metrics.RecordsProcessed.WithLabelValues(string(o.Status)).Inc()
	}
	report.Aborted = ctx.Err() != nil
	report.FinishedAt = r.now()

	r.metrics.CyclesCompleted.Inc()
	r.metrics.CycleDuration.Observe(report.Duration().Seconds())

	if report.Failed > 0 || report.Aborted {
		r.logger.Warn("Reconciliation cycle finished with anomalies",
			"runID", report.RunID,
			"transitioned", report.Transitioned,
			"unchanged", report.Unchanged,
			"failed", report.Failed,
			"skipped", report.Skipped,
			"aborted", report.Aborted)
	} else {
		r.logger.Info("Reconciliation cycle finished",
			"runID", report.RunID,
			"transitioned", report.Transitioned,
			"unchanged", report.Unchanged,
			"duration", report.Duration().String())
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.config.WriteTimeout)
	defer cancel()
	if err := r.runRepo.Save(saveCtx, &report); err != nil {
		r.metrics.ErrorsCount.WithLabelValues("run_history").Inc()
		r.logger.Error("Failed to save reconciliation run", "runID", report.RunID, "error", err)
	}

	return report, nil
}

func (r *Reconciler) reconcileBooking(ctx context.Context, runID string, booking *entity.TrackedBooking) entity.RecordOutcome {
	outcome := entity.RecordOutcome{BookingID: booking.ID}

	if ctx.Err() != nil {
		outcome.Status = entity.OutcomeSkipped
		outcome.Err = ctx.Err()
		return outcome
	}

	if !booking.HasRoute() {
		outcome.Status = entity.OutcomeFailed
		outcome.Err = entity.ErrMissingRoute
		r.logger.Warn("Booking cannot be quoted", "runID", runID, "bookingID", booking.ID, "error", outcome.Err)
		return outcome
	}

	quoteCtx, cancel := context.WithTimeout(ctx, r.config.QuoteTimeout)
	start := time.Now()
	offers, err := r.fareRepo.Quote(quoteCtx, booking.QuoteRequest())
	cancel()
	r.metrics.QuoteDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		if ctx.Err() != nil {
			outcome.Status = entity.OutcomeSkipped
			outcome.Err = ctx.Err()
			return outcome
		}
		if !errors.Is(err, entity.ErrQuoteProvider) {
			err = fmt.Errorf("%w: %v", entity.ErrQuoteProvider, err)
		}
		outcome.Status = entity.OutcomeFailed
		outcome.Err = err
		r.logger.Warn("Fare quote failed", "runID", runID, "bookingID", booking.ID, "error", err)
		return outcome
	}

	if len(offers) == 0 {
		outcome.Status = entity.OutcomeUnchanged
		outcome.Err = entity.ErrNoOffers
		r.logger.Info("No offers available", "runID", runID, "bookingID", booking.ID)
		return outcome
	}

	current := offers[0].TotalAmount
	outcome.Quote = &current

	if !entity.IsPriceDrop(booking.BaselinePrice, current) {
		outcome.Status = entity.OutcomeUnchanged
		r.logger.Debug("No price drop",
			"runID", runID,
			"bookingID", booking.ID,
			"baseline", booking.BaselinePrice.StringFixed(2),
			"quote", current.StringFixed(2))
		return outcome
	}

	// a started transition write finishes even when the cycle is cancelled
	writeCtx, cancelWrite := context.WithTimeout(context.WithoutCancel(ctx), r.config.WriteTimeout)
	defer cancelWrite()

	err = r.bookingRepo.MarkSavingsFound(writeCtx, booking.ID, current, r.now())
	switch {
	case errors.Is(err, entity.ErrNotTracking):
		outcome.Status = entity.OutcomeUnchanged
		r.logger.Debug("Booking already transitioned", "runID", runID, "bookingID", booking.ID)
	case err != nil:
		outcome.Status = entity.OutcomeFailed
		outcome.Err = fmt.Errorf("%w: %v", entity.ErrStoreWriteFailed, err)
		r.metrics.ErrorsCount.WithLabelValues("reconcile_write").Inc()
		r.logger.Error("Failed to record price drop", "runID", runID, "bookingID", booking.ID, "error", err)
	default:
		outcome.Status = entity.OutcomeTransitioned
		r.logger.Info("Savings found",
			"runID", runID,
			"bookingID", booking.ID,
			"confirmationCode", booking.ConfirmationCode,
			"baseline", booking.BaselinePrice.StringFixed(2),
			"current", current.StringFixed(2))
	}

	return outcome
}
