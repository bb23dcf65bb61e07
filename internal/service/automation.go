package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tidyops/fieldwork/config"
	"github.com/tidyops/fieldwork/internal/core"
	"github.com/tidyops/fieldwork/internal/data"
	"github.com/tidyops/fieldwork/internal/domain/auth"
	"github.com/tidyops/fieldwork/internal/domain/model"
	"github.com/tidyops/fieldwork/internal/observability/metrics"
	"github.com/tidyops/fieldwork/internal/observability/notify"
	"github.com/tidyops/fieldwork/internal/observability/statsd"
)

// AutomationServiceOptions groups dependencies for AutomationService.
type AutomationServiceOptions struct {
	Jobs     core.JobRepository      // Required: job repository
	Sites    core.SiteRepository     // Required: site contracts for rescheduling
	Config   config.AutomationConfig // Required: thresholds and limits
	Cache    core.CacheRepository    // Optional: cross-instance dedup guard
	Notifier notify.OverdueNotifier  // Optional: sweep summary notifications
	Logger   *slog.Logger            // Optional: structured logger
	Metrics  statsd.Sink             // Optional: metrics sink
	Now      func() time.Time        // Optional: clock override for tests
}

// AutomationService reacts to committed transitions.
//
// It derives two side effects: compensating make-good jobs for missed
// cancellations, and overdue flags on completions that sat unapproved past
// the threshold. Both are idempotent so retries and concurrent sweeps are safe.
type AutomationService struct {
	jobs     core.JobRepository
	sites    core.SiteRepository
	config   config.AutomationConfig
	cache    core.CacheRepository
	notifier notify.OverdueNotifier
	logger   *slog.Logger
	metrics  statsd.Sink
	now      func() time.Time
}

// NewAutomationService constructs a new AutomationService.
func NewAutomationService(opts AutomationServiceOptions) (*AutomationService, error) {
	if opts.Jobs == nil {
		return nil, errors.New("JobRepository is required")
	}
	if opts.Sites == nil {
		return nil, errors.New("SiteRepository is required")
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "automation_service")
		logger.Debug("AutomationService initialized",
			"overdue_after", opts.Config.OverdueAfter,
			"sweep_limit", opts.Config.SweepLimit,
		)
	}

	return &AutomationService{
		jobs:     opts.Jobs,
		sites:    opts.Sites,
		config:   opts.Config,
		cache:    opts.Cache,
		notifier: opts.Notifier,
		logger:   logger,
		metrics:  opts.Metrics,
		now:      now,
	}, nil
}

// makeGoodGuardTTL bounds how long a dedup guard can block a retry when a
// previous attempt crashed between guard and insert. The partial unique index
// on origin_job_id remains the authority either way.
const makeGoodGuardTTL = 10 * time.Minute

// CreateMakeGoodJobIfNeeded creates the compensating job for a cancelled,
// missed job. Calling it twice for the same origin creates at most one
// make-good job: an existing derivation short-circuits, and the database
// unique index settles concurrent races.
func (s *AutomationService) CreateMakeGoodJobIfNeeded(ctx context.Context, actor auth.Actor, cancelledJobID string) (*model.Job, error) {
	origin, err := s.jobs.GetByID(ctx, cancelledJobID)
	if errors.Is(err, data.ErrJobNotFound) {
		return nil, fmt.Errorf("cancelled job %s: %w", cancelledJobID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load cancelled job: %w", err)
	}

	if origin.Status != model.JobStatusCancelled || !origin.IsMissed {
		return nil, fmt.Errorf("job %s is not a missed cancellation: %w", cancelledJobID, ErrPreconditionFailed)
	}

	if existing, findErr := s.jobs.FindMakeGoodFor(ctx, cancelledJobID); findErr != nil {
		return nil, fmt.Errorf("check existing make-good: %w", findErr)
	} else if existing != nil {
		return existing, nil
	}

	if won, guardErr := s.acquireGuard(ctx, cancelledJobID); guardErr == nil && !won {
		existing, findErr := s.jobs.FindMakeGoodFor(ctx, cancelledJobID)
		if findErr != nil {
			return nil, fmt.Errorf("check concurrent make-good: %w", findErr)
		}
		if existing != nil {
			return existing, nil
		}
		// The guard holder has not committed yet. Fall through and insert;
		// the unique index blocks until the holder settles, and a duplicate
		// resolves to the winner's job below.
	}

	site, err := s.sites.GetByID(ctx, origin.SiteID)
	if errors.Is(err, data.ErrSiteNotFound) {
		return nil, fmt.Errorf("site %s: %w", origin.SiteID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load site contract: %w", err)
	}

	meta, err := json.Marshal(map[string]string{"derived_from": cancelledJobID})
	if err != nil {
		return nil, fmt.Errorf("marshal make-good metadata: %w", err)
	}

	makeGood, err := s.jobs.CreateMakeGood(ctx, core.MakeGoodParams{
		Request: model.CreateJobRequest{
			WorkOrderID:      origin.WorkOrderID,
			SiteID:           origin.SiteID,
			AssignedWorkerID: origin.AssignedWorkerID,
			ScheduledStart:   site.NextServiceDate(origin.ScheduledStart, s.now()),
			Metadata:         meta,
		},
		OriginJobID: cancelledJobID,
		ActorID:     actor.UserID,
	})
	if errors.Is(err, data.ErrDuplicateMakeGood) {
		// Lost the race after the guard; the winner's job is the make-good.
		return s.jobs.FindMakeGoodFor(ctx, cancelledJobID)
	}
	if err != nil {
		return nil, fmt.Errorf("create make-good job: %w", err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "make-good job created",
			"origin_job_id", cancelledJobID, "make_good_id", makeGood.ID,
			"scheduled_start", makeGood.ScheduledStart)
	}
	return makeGood, nil
}

func (s *AutomationService) acquireGuard(ctx context.Context, originJobID string) (bool, error) {
	if s.cache == nil {
		return true, nil
	}
	won, err := s.cache.SetIfAbsent(ctx, "makegood:"+originJobID, []byte("1"), makeGoodGuardTTL)
	if err != nil {
		// Guard is an optimisation; the unique index still protects us.
		if s.logger != nil {
			s.logger.DebugContext(ctx, "make-good guard unavailable", "error", err)
		}
		return true, nil
	}
	return won, nil
}

// SweepResult reports the outcome of one overdue-approval sweep.
type SweepResult struct {
	Flagged []string
	Errors  []string
}

// FlagOverdueApprovals scans pending-approval jobs older than the threshold
// and flags each one, appending an audit entry per flag. Per-job failures are
// collected and reported; they never abort the sweep. The sweep is idempotent
// because already-flagged jobs are excluded by the query.
func (s *AutomationService) FlagOverdueApprovals(ctx context.Context, actorUserID string) (SweepResult, error) {
	start := s.now()
	cutoff := start.Add(-s.config.OverdueThreshold())

	overdue, err := s.jobs.ListOverdueApprovals(ctx, cutoff, s.config.SweepLimit)
	if err != nil {
		return SweepResult{}, fmt.Errorf("list overdue approvals: %w", err)
	}

	var result SweepResult
	for _, job := range overdue {
		flagged, flagErr := s.jobs.FlagApproval(ctx, core.FlagApprovalParams{
			JobID:   job.ID,
			ActorID: actorUserID,
		})
		if flagErr != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("job %s: %v", job.ID, flagErr))
			continue
		}
		if flagged {
			result.Flagged = append(result.Flagged, job.ID)
		}
	}

	metrics.EmitSweep(s.metrics, metrics.SweepMetric{
		Sweep:    "overdue_approvals",
		Flagged:  len(result.Flagged),
		Errors:   len(result.Errors),
		Duration: s.now().Sub(start),
	})

	if s.logger != nil {
		s.logger.InfoContext(ctx, "overdue-approval sweep finished",
			"scanned", len(overdue), "flagged", len(result.Flagged), "errors", len(result.Errors))
	}

	if s.notifier != nil {
		s.notifier.NotifyOverdueApprovals(ctx, notify.OverdueApprovalsPayload{
			FlaggedJobIDs: result.Flagged,
			Errors:        result.Errors,
			SweptAt:       start,
		})
	}
	return result, nil
}
