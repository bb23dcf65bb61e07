package service

import (
	"context"
	"encoding/json"
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

// makeGoodCreator is the post-commit hook the job state machine calls after a
// missed cancellation. Implemented by AutomationService.
type makeGoodCreator interface {
	CreateMakeGoodJobIfNeeded(ctx context.Context, actor auth.Actor, cancelledJobID string) (*model.Job, error)
}

// workOrderRecomputer refreshes the derived work order status after a
// committed job transition. Implemented by WorkOrderService.
type workOrderRecomputer interface {
	Recompute(ctx context.Context, workOrderID string) (model.WorkOrderStatus, bool, error)
}

// JobServiceOptions groups dependencies for JobService.
type JobServiceOptions struct {
	Jobs        core.JobRepository        // Required: job repository
	Completions core.CompletionRepository // Required: completion/evidence storage
	Gate        *CompletionGate           // Required: completion & evidence gate
	Assignments core.JobAssignmentChecker // Required: worker assignment checks
	WorkOrders  workOrderRecomputer       // Optional: derived status refresh
	Automation  makeGoodCreator           // Optional: make-good creation hook
	Cache       core.CacheRepository      // Optional: next-action cache
	Logger      *slog.Logger              // Optional: structured logger
	Metrics     statsd.Sink               // Optional: metrics sink
}

// JobService is the authority for job status transitions.
//
// Every transition request passes through Transition: the edge is validated
// against the transition table, the actor's role is checked for that specific
// edge, the completion gate is consulted where required, and the status update
// commits atomically with its audit entry. Post-commit automation hooks
// (make-good creation, work order recomputation) are best-effort and never
// roll back the committed transition.
type JobService struct {
	jobs        core.JobRepository
	completions core.CompletionRepository
	gate        *CompletionGate
	assignments core.JobAssignmentChecker
	workOrders  workOrderRecomputer
	automation  makeGoodCreator
	cache       core.CacheRepository
	logger      *slog.Logger
	metrics     statsd.Sink
}

// NewJobService constructs a new JobService.
func NewJobService(opts JobServiceOptions) (*JobService, error) {
	if opts.Jobs == nil {
		return nil, errors.New("JobRepository is required")
	}
	if opts.Completions == nil {
		return nil, errors.New("CompletionRepository is required")
	}
	if opts.Gate == nil {
		return nil, errors.New("CompletionGate is required")
	}
	if opts.Assignments == nil {
		return nil, errors.New("JobAssignmentChecker is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "job_service")
	}

	return &JobService{
		jobs:        opts.Jobs,
		completions: opts.Completions,
		gate:        opts.Gate,
		assignments: opts.Assignments,
		workOrders:  opts.WorkOrders,
		automation:  opts.Automation,
		cache:       opts.Cache,
		logger:      logger,
		metrics:     opts.Metrics,
	}, nil
}

// MustNewJobService constructs a new JobService and panics on error.
// Use this when you're certain the options are valid (e.g., in main.go).
func MustNewJobService(opts JobServiceOptions) *JobService {
	svc, err := NewJobService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create JobService: %v", err))
	}
	return svc
}

// Schedule creates a new job in SCHEDULED status. Admin only.
func (s *JobService) Schedule(ctx context.Context, actor auth.Actor, req *model.CreateJobRequest) (*model.Job, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("only administrators may schedule jobs: %w", ErrUnauthorized)
	}

	job, err := s.jobs.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "job scheduled",
			"id", job.ID, "site_id", job.SiteID, "scheduled_start", job.ScheduledStart)
	}
	return job, nil
}

// GetByID returns a job by its ID.
func (s *JobService) GetByID(ctx context.Context, id string) (*model.Job, error) {
	job, err := s.jobs.GetByID(ctx, id)
	if errors.Is(err, data.ErrJobNotFound) {
		return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return job, nil
}

// SubmitCompletion stores a worker's completion submission and transitions the
// job to COMPLETED_PENDING_APPROVAL. If the gate rejects the submission
// (e.g. unredacted evidence) the completion remains stored so the worker can
// resubmit corrected evidence, but the job stays SCHEDULED.
func (s *JobService) SubmitCompletion(ctx context.Context, actor auth.Actor, req *model.SubmitCompletionRequest) (*model.Job, error) {
	if req == nil {
		return nil, errors.New("submit completion request is required")
	}
	req.WorkerID = actor.UserID

	if _, err := s.completions.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("store completion: %w", err)
	}

	return s.Transition(ctx, actor, req.JobID, model.TransitionRequest{
		Target: model.JobStatusPendingApproval,
	})
}

// Transition validates and applies one status transition.
//
// Failure modes are distinct and never coerced into each other:
// ErrIllegalTransition for an edge absent from the table, ErrUnauthorized for
// a role mismatch on a legal edge, ErrPreconditionFailed when the gate rejects
// entry, ErrNotFound for a missing job, and ErrConflict when a concurrent
// transition won the race.
func (s *JobService) Transition(ctx context.Context, actor auth.Actor, jobID string, req model.TransitionRequest) (*model.Job, error) {
	start := time.Now()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	job, err := s.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	from := job.Status

	if !model.CanTransition(from, req.Target) {
		s.emitTransition(from, req.Target, metrics.ResultIllegal, start)
		return nil, illegalTransition(from, req.Target)
	}

	if err = s.authorizeEdge(ctx, actor, job, req.Target); err != nil {
		s.emitTransition(from, req.Target, metrics.ResultDenied, start)
		return nil, err
	}

	if err = s.checkGate(ctx, from, req.Target, jobID); err != nil {
		s.emitTransition(from, req.Target, metrics.ResultRejected, start)
		return nil, err
	}

	auditMeta, err := transitionAuditMetadata(req)
	if err != nil {
		return nil, err
	}

	updated, err := s.jobs.Transition(ctx, core.TransitionParams{
		JobID:         jobID,
		From:          from,
		To:            req.Target,
		ActorID:       actor.UserID,
		SetMissed:     req.IsMissed,
		MissedReason:  req.Reason,
		AuditMetadata: auditMeta,
	})
	if err != nil {
		s.emitTransition(from, req.Target, metrics.ResultError, start)
		return nil, s.mapTransitionErr(err, from, req.Target)
	}

	s.emitTransition(from, req.Target, metrics.ResultSuccess, start)
	if s.logger != nil {
		s.logger.InfoContext(ctx, "job transitioned",
			"id", jobID, "from", from, "to", req.Target, "actor", actor.UserID)
	}

	s.afterCommit(ctx, actor, updated, req)
	return updated, nil
}

// NextActions returns the legal target statuses the actor may request for the
// job right now, per the transition table and role gates. Gate preconditions
// are not evaluated here; a listed action can still fail PreconditionFailed.
func (s *JobService) NextActions(ctx context.Context, actor auth.Actor, jobID string) ([]model.JobStatus, error) {
	cacheKey := fmt.Sprintf("next_actions:%s:%s:%s", jobID, actor.Role, actor.UserID)
	if cached := s.cachedActions(ctx, cacheKey); cached != nil {
		return cached, nil
	}

	job, err := s.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	var allowed []model.JobStatus
	for _, target := range model.NextStatuses(job.Status) {
		if authErr := s.authorizeEdge(ctx, actor, job, target); authErr == nil {
			allowed = append(allowed, target)
		}
	}

	s.storeActions(ctx, cacheKey, allowed)
	return allowed, nil
}

// authorizeEdge enforces the per-edge role policy:
// completion submission is reserved for the assigned worker, everything else
// (approve, reject, cancel, pay) for administrators.
func (s *JobService) authorizeEdge(ctx context.Context, actor auth.Actor, job *model.Job, to model.JobStatus) error {
	from := job.Status

	if from == model.JobStatusScheduled && to == model.JobStatusPendingApproval {
		if !actor.Role.Worker() {
			return unauthorizedTransition(from, to, "only assigned workers may submit completion")
		}
		ok, err := s.assignments.CanAccessJob(ctx, actor.UserID, job.ID)
		if err != nil {
			return fmt.Errorf("check job assignment: %w", err)
		}
		if !ok {
			return unauthorizedTransition(from, to, "worker is not assigned to this job")
		}
		return nil
	}

	if !actor.IsAdmin() {
		return unauthorizedTransition(from, to, "only administrators may perform this action")
	}
	return nil
}

// checkGate consults the completion & evidence gate for the two guarded edges.
func (s *JobService) checkGate(ctx context.Context, from, to model.JobStatus, jobID string) error {
	switch to {
	case model.JobStatusPendingApproval:
		if err := s.gate.CheckSubmission(ctx, jobID); err != nil {
			return preconditionFailed(from, to, err.Error())
		}
	case model.JobStatusApprovedPayable:
		if err := s.gate.CheckApproval(ctx, jobID); err != nil {
			return preconditionFailed(from, to, err.Error())
		}
	}
	return nil
}

// afterCommit runs best-effort side effects of a committed transition. The
// transition is authoritative: hook failures are logged, never propagated.
func (s *JobService) afterCommit(ctx context.Context, actor auth.Actor, job *model.Job, req model.TransitionRequest) {
	if req.Target == model.JobStatusCancelled && req.IsMissed && s.automation != nil {
		if _, err := s.automation.CreateMakeGoodJobIfNeeded(ctx, actor, job.ID); err != nil {
			if s.logger != nil {
				s.logger.ErrorContext(ctx, "make-good creation failed; cancellation stands",
					"job_id", job.ID, "error", err)
			}
		}
	}

	if s.workOrders != nil {
		if _, _, err := s.workOrders.Recompute(ctx, job.WorkOrderID); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "work order recompute failed",
				"work_order_id", job.WorkOrderID, "error", err)
		}
	}

	if s.cache != nil {
		// Stale next-action entries expire on their own; drop the job's
		// entries eagerly so UIs see the new legal actions immediately.
		if _, err := s.cache.Delete(ctx, fmt.Sprintf("next_actions:%s:%s:%s", job.ID, actor.Role, actor.UserID)); err != nil && s.logger != nil {
			s.logger.DebugContext(ctx, "next-action cache invalidation failed", "job_id", job.ID, "error", err)
		}
	}
}

func (s *JobService) mapTransitionErr(err error, from, to model.JobStatus) error {
	switch {
	case errors.Is(err, data.ErrJobNotFound):
		return fmt.Errorf("job vanished during transition: %w", ErrNotFound)
	case errors.Is(err, data.ErrStaleStatus):
		return &TransitionError{
			Kind: ErrConflict, From: from, To: to,
			Reason: "a concurrent transition was committed first; refresh and re-evaluate",
		}
	default:
		return fmt.Errorf("commit transition: %w", err)
	}
}

func (s *JobService) emitTransition(from, to model.JobStatus, result string, start time.Time) {
	metrics.EmitTransition(s.metrics, metrics.TransitionMetric{
		Entity:   model.EntityJob,
		From:     string(from),
		To:       string(to),
		Result:   result,
		Duration: time.Since(start),
	})
}

const nextActionsTTL = 30 * time.Second

func (s *JobService) cachedActions(ctx context.Context, key string) []model.JobStatus {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, key)
	if err != nil || len(raw) == 0 {
		return nil
	}
	var actions []model.JobStatus
	if err := json.Unmarshal(raw, &actions); err != nil {
		return nil
	}
	return actions
}

func (s *JobService) storeActions(ctx context.Context, key string, actions []model.JobStatus) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(actions)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, nextActionsTTL); err != nil && s.logger != nil {
		s.logger.DebugContext(ctx, "next-action cache store failed", "error", err)
	}
}

func transitionAuditMetadata(req model.TransitionRequest) (json.RawMessage, error) {
	meta := map[string]any{}
	if req.Reason != "" {
		meta["reason"] = req.Reason
	}
	if req.IsMissed {
		meta["is_missed"] = true
	}
	if len(meta) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal audit metadata: %w", err)
	}
	return raw, nil
}
