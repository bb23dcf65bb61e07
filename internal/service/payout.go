package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tidyops/fieldwork/internal/core"
	"github.com/tidyops/fieldwork/internal/data"
	"github.com/tidyops/fieldwork/internal/domain/auth"
	"github.com/tidyops/fieldwork/internal/domain/model"
	"github.com/tidyops/fieldwork/internal/observability/metrics"
	"github.com/tidyops/fieldwork/internal/observability/statsd"
)

// PayoutServiceOptions groups dependencies for PayoutService.
type PayoutServiceOptions struct {
	Repo    core.PayoutRepository // Required: payout repository
	Jobs    core.JobRepository    // Optional: payable previews
	Logger  *slog.Logger          // Optional: structured logger
	Metrics statsd.Sink           // Optional: metrics sink
}

// PayoutService assembles payout batches and drives their lifecycle.
//
// Marking a batch paid cascades into per-job PAID transitions inside one
// transaction: either every referenced job lands in PAID and the batch is
// Paid, or nothing changes. This is deliberately stricter than the
// best-effort overdue sweep — payouts are financial state.
type PayoutService struct {
	repo    core.PayoutRepository
	jobs    core.JobRepository
	logger  *slog.Logger
	metrics statsd.Sink
}

// NewPayoutService constructs a new PayoutService.
func NewPayoutService(opts PayoutServiceOptions) (*PayoutService, error) {
	if opts.Repo == nil {
		return nil, errors.New("PayoutRepository is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "payout_service")
	}
	return &PayoutService{repo: opts.Repo, jobs: opts.Jobs, logger: logger, metrics: opts.Metrics}, nil
}

// ListPayable previews the approved-payable jobs a batch for the given scope
// would reference, without assembling anything. Same authorization rules as
// CreateBatch.
func (s *PayoutService) ListPayable(ctx context.Context, actor auth.Actor, req model.CreatePayoutBatchRequest) ([]*model.Job, error) {
	if s.jobs == nil {
		return nil, errors.New("payable previews are not configured")
	}
	if err := s.authorizeBatch(actor, req.VendorID); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	jobs, err := s.jobs.ListApprovedPayable(ctx, core.PayableJobsQuery{
		VendorID:    req.VendorID,
		PeriodStart: req.PeriodStart,
		PeriodEnd:   req.PeriodEnd,
	})
	if err != nil {
		return nil, fmt.Errorf("list payable jobs for vendor %s: %w", req.VendorID, err)
	}
	return jobs, nil
}

// CreateBatch aggregates approved-payable jobs in scope into a new open batch.
// Admin and vendor owners (for their own vendor) may assemble batches.
func (s *PayoutService) CreateBatch(ctx context.Context, actor auth.Actor, req model.CreatePayoutBatchRequest) (*model.PayoutBatch, error) {
	if err := s.authorizeBatch(actor, req.VendorID); err != nil {
		return nil, err
	}

	batch, err := s.repo.CreateBatch(ctx, req)
	if errors.Is(err, data.ErrNoPayableJobs) {
		return nil, fmt.Errorf("vendor %s in [%s, %s): %w",
			req.VendorID, req.PeriodStart.Format(time.RFC3339), req.PeriodEnd.Format(time.RFC3339),
			data.ErrNoPayableJobs)
	}
	if err != nil {
		return nil, fmt.Errorf("create payout batch: %w", err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "payout batch created",
			"batch_id", batch.ID, "vendor_id", batch.VendorID, "jobs", len(batch.JobIDs))
	}
	return batch, nil
}

// GetByID returns a payout batch by its ID.
func (s *PayoutService) GetByID(ctx context.Context, id string) (*model.PayoutBatch, error) {
	batch, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, data.ErrBatchNotFound) {
		return nil, fmt.Errorf("payout batch %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get payout batch %s: %w", id, err)
	}
	return batch, nil
}

// MarkPaid transitions the batch to Paid and every referenced job to PAID,
// all-or-nothing. A batch already paid fails with ErrConflict; Paid is
// terminal and not re-enterable.
func (s *PayoutService) MarkPaid(ctx context.Context, actor auth.Actor, batchID string) (*model.PayoutBatch, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("only administrators may pay batches: %w", ErrUnauthorized)
	}

	start := time.Now()
	batch, err := s.repo.MarkPaid(ctx, core.MarkBatchPaidParams{
		BatchID: batchID,
		ActorID: actor.UserID,
	})
	switch {
	case errors.Is(err, data.ErrBatchNotFound):
		return nil, fmt.Errorf("payout batch %s: %w", batchID, ErrNotFound)
	case errors.Is(err, data.ErrBatchAlreadyPaid):
		return nil, fmt.Errorf("payout batch %s: %w", batchID, ErrConflict)
	case errors.Is(err, data.ErrStaleStatus):
		return nil, fmt.Errorf("payout batch %s raced with a concurrent change: %w", batchID, ErrConflict)
	case err != nil:
		metrics.EmitTransition(s.metrics, metrics.TransitionMetric{
			Entity: model.EntityPayoutBatch,
			From:   string(model.PayoutBatchOpen), To: string(model.PayoutBatchPaid),
			Result: metrics.ResultError, Duration: time.Since(start),
		})
		return nil, fmt.Errorf("mark batch paid: %w", err)
	}

	metrics.EmitTransition(s.metrics, metrics.TransitionMetric{
		Entity: model.EntityPayoutBatch,
		From:   string(model.PayoutBatchOpen), To: string(model.PayoutBatchPaid),
		Result: metrics.ResultSuccess, Duration: time.Since(start),
	})
	if s.logger != nil {
		s.logger.InfoContext(ctx, "payout batch marked paid",
			"batch_id", batch.ID, "jobs_paid", len(batch.JobIDs))
	}
	return batch, nil
}

func (s *PayoutService) authorizeBatch(actor auth.Actor, vendorID string) error {
	if actor.IsAdmin() {
		return nil
	}
	if actor.Role == auth.RoleVendorOwner && actor.VendorID == vendorID {
		return nil
	}
	return fmt.Errorf("actor may not assemble batches for vendor %s: %w", vendorID, ErrUnauthorized)
}
