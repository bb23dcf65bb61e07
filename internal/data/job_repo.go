package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tidyops/fieldwork/internal/core"
	"github.com/tidyops/fieldwork/internal/data/pgxutil"
	"github.com/tidyops/fieldwork/internal/domain/model"
)

// RepoConfig holds configuration options shared by the repositories.
type RepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// JobRepo provides database operations for job lifecycle management.
type JobRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

var _ core.JobRepository = (*JobRepo)(nil)

// NewJobRepo creates a new JobRepo instance with the given database connection and configuration.
func NewJobRepo(db *sql.DB, cfg RepoConfig) *JobRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &JobRepo{
		DB:           db,
		timeProvider: tp,
		logger:       cfg.Logger,
	}
}

const jobColumns = `
  id,
  work_order_id,
  site_id,
  assigned_worker_id,
  status,
  scheduled_start,
  is_missed,
  missed_reason,
  approval_flagged_at,
  cancelled_by,
  origin_job_id,
  metadata,
  completed_at,
  paid_at,
  created_at,
  updated_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*model.Job, error) {
	var j model.Job
	err := row.Scan(
		&j.ID,
		&j.WorkOrderID,
		&j.SiteID,
		&j.AssignedWorkerID,
		&j.Status,
		&j.ScheduledStart,
		&j.IsMissed,
		&j.MissedReason,
		&j.ApprovalFlaggedAt,
		&j.CancelledBy,
		&j.OriginJobID,
		&j.Metadata,
		&j.CompletedAt,
		&j.PaidAt,
		&j.CreatedAt,
		&j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// Create schedules a new job.
func (r *JobRepo) Create(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error) {
	if req == nil {
		return nil, errors.New("create job request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := r.timeProvider.Now()
	row := r.DB.QueryRowContext(ctx, `
		INSERT INTO jobs (id, work_order_id, site_id, assigned_worker_id, status,
			scheduled_start, origin_job_id, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		RETURNING `+jobColumns,
		uuid.NewString(), req.WorkOrderID, req.SiteID, req.AssignedWorkerID,
		model.JobStatusScheduled, req.ScheduledStart, req.OriginJobID,
		nullableJSON(req.Metadata), now,
	)
	job, err := scanJob(row)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return job, nil
}

// GetByID returns a job by its ID.
func (r *JobRepo) GetByID(ctx context.Context, id string) (*model.Job, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return job, nil
}

// Transition applies a compare-and-set status update and appends the audit
// entry in the same transaction. Zero rows updated means either the job is
// gone (ErrJobNotFound) or a concurrent transition won (ErrStaleStatus).
func (r *JobRepo) Transition(ctx context.Context, params core.TransitionParams) (*model.Job, error) {
	var job *model.Job
	now := r.timeProvider.Now()

	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{Fn: func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			UPDATE jobs SET
				status = $1,
				is_missed = CASE WHEN $1 = 'cancelled' THEN $2 ELSE is_missed END,
				missed_reason = CASE WHEN $1 = 'cancelled' AND $2 THEN $3 ELSE missed_reason END,
				cancelled_by = CASE WHEN $1 = 'cancelled' THEN $4 ELSE cancelled_by END,
				completed_at = CASE
					WHEN $1 = 'completed_pending_approval' THEN $5
					WHEN $1 = 'scheduled' THEN NULL
					ELSE completed_at END,
				approval_flagged_at = CASE WHEN $1 = 'scheduled' THEN NULL ELSE approval_flagged_at END,
				paid_at = CASE WHEN $1 = 'paid' THEN $5 ELSE paid_at END,
				updated_at = $5
			WHERE id = $6 AND status = $7
			RETURNING `+jobColumns,
			params.To, params.SetMissed, nullableString(params.MissedReason),
			params.ActorID, now, params.JobID, params.From,
		)

		var scanErr error
		job, scanErr = scanJob(row)
		if errors.Is(scanErr, sql.ErrNoRows) {
			return r.classifyMissedUpdate(ctx, tx, params.JobID)
		}
		if scanErr != nil {
			return fmt.Errorf("update job status: %w", scanErr)
		}

		audit := model.NewTransitionAudit(
			params.ActorID, model.EntityJob, params.JobID,
			string(params.From), string(params.To), params.AuditMetadata,
		)
		return appendAuditInTx(ctx, tx, audit, now)
	}})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// classifyMissedUpdate distinguishes a missing row from a stale CAS inside
// the transaction, so callers can surface NotFound vs Conflict.
func (r *JobRepo) classifyMissedUpdate(ctx context.Context, tx *sql.Tx, jobID string) error {
	var status string
	err := tx.QueryRowContext(ctx, `SELECT status FROM jobs WHERE id = $1`, jobID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrJobNotFound
	}
	if err != nil {
		return fmt.Errorf("re-read job %s: %w", jobID, err)
	}
	return fmt.Errorf("job %s is %s: %w", jobID, status, ErrStaleStatus)
}

// ListByWorkOrder returns all jobs in a work order, oldest first.
func (r *JobRepo) ListByWorkOrder(ctx context.Context, workOrderID string) ([]*model.Job, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE work_order_id = $1 ORDER BY scheduled_start ASC`,
		workOrderID)
	if err != nil {
		return nil, fmt.Errorf("list jobs by work order: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

// ListApprovedPayable returns approved-payable jobs completed within the period
// for the given vendor's workers.
func (r *JobRepo) ListApprovedPayable(ctx context.Context, q core.PayableJobsQuery) ([]*model.Job, error) {
	rows, err := r.DB.QueryContext(ctx, selectApprovedPayableSQL,
		model.JobStatusApprovedPayable, q.VendorID, q.PeriodStart, q.PeriodEnd)
	if err != nil {
		return nil, fmt.Errorf("list approved-payable jobs: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

const selectApprovedPayableSQL = `
  SELECT ` + jobColumns + `
  FROM jobs
  WHERE status = $1
    AND assigned_worker_id IN (SELECT worker_id FROM vendor_workers WHERE vendor_id = $2)
    AND completed_at >= $3 AND completed_at < $4
  ORDER BY completed_at ASC`

// ListOverdueApprovals returns unflagged pending-approval jobs whose scheduled
// start is before the cutoff.
func (r *JobRepo) ListOverdueApprovals(ctx context.Context, cutoff time.Time, limit int) ([]*model.Job, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE status = $1 AND approval_flagged_at IS NULL AND scheduled_start < $2
		ORDER BY scheduled_start ASC
		LIMIT $3`,
		model.JobStatusPendingApproval, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list overdue approvals: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

// FlagApproval atomically sets approval_flagged_at and writes the audit entry.
// The status and NULL guards make the sweep idempotent: a job already flagged,
// or no longer pending approval, updates zero rows and returns false.
func (r *JobRepo) FlagApproval(ctx context.Context, params core.FlagApprovalParams) (bool, error) {
	flagged := false
	now := r.timeProvider.Now()

	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{Fn: func(tx *sql.Tx) error {
		res, execErr := tx.ExecContext(ctx, `
			UPDATE jobs SET approval_flagged_at = $1, updated_at = $1
			WHERE id = $2 AND status = $3 AND approval_flagged_at IS NULL`,
			now, params.JobID, model.JobStatusPendingApproval)
		if execErr != nil {
			return fmt.Errorf("flag approval: %w", execErr)
		}
		n, raErr := res.RowsAffected()
		if raErr != nil {
			return fmt.Errorf("flag approval rows affected: %w", raErr)
		}
		if n == 0 {
			return nil
		}
		flagged = true

		audit := model.AuditEntry{
			ActorID:    params.ActorID,
			EntityType: model.EntityJob,
			EntityID:   params.JobID,
			Action:     model.AuditActionApprovalFlagged,
		}
		return appendAuditInTx(ctx, tx, audit, now)
	}})
	if err != nil {
		return false, err
	}
	return flagged, nil
}

// FindMakeGoodFor returns the make-good job referencing the given origin job, if any.
func (r *JobRepo) FindMakeGoodFor(ctx context.Context, originJobID string) (*model.Job, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE origin_job_id = $1`, originJobID)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find make-good for %s: %w", originJobID, err)
	}
	return job, nil
}

// CreateMakeGood inserts the compensating job and its derivation audit entry
// in one transaction. The partial unique index on origin_job_id is the
// authority against duplicate creation under concurrent retries.
func (r *JobRepo) CreateMakeGood(ctx context.Context, params core.MakeGoodParams) (*model.Job, error) {
	if err := params.Request.Validate(); err != nil {
		return nil, err
	}
	if params.OriginJobID == "" {
		return nil, errors.New("origin job id is required")
	}

	var job *model.Job
	now := r.timeProvider.Now()

	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{Fn: func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			INSERT INTO jobs (id, work_order_id, site_id, assigned_worker_id, status,
				scheduled_start, origin_job_id, metadata, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
			RETURNING `+jobColumns,
			uuid.NewString(), params.Request.WorkOrderID, params.Request.SiteID,
			params.Request.AssignedWorkerID, model.JobStatusScheduled,
			params.Request.ScheduledStart, params.OriginJobID,
			nullableJSON(params.Request.Metadata), now,
		)
		var scanErr error
		job, scanErr = scanJob(row)
		if scanErr != nil {
			if pgxutil.IsUniqueViolation(scanErr, "jobs_origin_job_id_key") {
				return ErrDuplicateMakeGood
			}
			return fmt.Errorf("insert make-good job: %w", scanErr)
		}

		meta, marshalErr := json.Marshal(map[string]string{"origin_job_id": params.OriginJobID})
		if marshalErr != nil {
			return fmt.Errorf("marshal make-good metadata: %w", marshalErr)
		}
		audit := model.AuditEntry{
			ActorID:    params.ActorID,
			EntityType: model.EntityJob,
			EntityID:   job.ID,
			Action:     model.AuditActionMakeGoodCreated,
			Metadata:   meta,
		}
		return appendAuditInTx(ctx, tx, audit, now)
	}})
	if err != nil {
		return nil, err
	}
	return job, nil
}

func collectJobs(rows *sql.Rows) ([]*model.Job, error) {
	var jobs []*model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job row: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job rows: %w", err)
	}
	return jobs, nil
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
