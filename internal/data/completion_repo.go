package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tidyops/fieldwork/internal/core"
	"github.com/tidyops/fieldwork/internal/data/pgxutil"
	"github.com/tidyops/fieldwork/internal/domain/model"
)

// CompletionRepo persists job completions and their evidence sets.
type CompletionRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

var _ core.CompletionRepository = (*CompletionRepo)(nil)

// NewCompletionRepo creates a new CompletionRepo.
func NewCompletionRepo(db *sql.DB, cfg RepoConfig) *CompletionRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &CompletionRepo{DB: db, timeProvider: tp}
}

// Create stores a completion submission with its evidence. A resubmission for
// the same job replaces the prior completion and evidence wholesale, so the
// gate always inspects the latest submission.
func (r *CompletionRepo) Create(ctx context.Context, req *model.SubmitCompletionRequest) (*model.JobCompletion, error) {
	if req == nil {
		return nil, errors.New("submit completion request is required")
	}
	if req.JobID == "" || req.WorkerID == "" {
		return nil, errors.New("job id and worker id are required")
	}

	checklist, err := json.Marshal(req.Checklist)
	if err != nil {
		return nil, fmt.Errorf("marshal checklist: %w", err)
	}

	now := r.timeProvider.Now()
	completion := &model.JobCompletion{
		ID:          uuid.NewString(),
		JobID:       req.JobID,
		WorkerID:    req.WorkerID,
		Checklist:   req.Checklist,
		Notes:       req.Notes,
		SubmittedAt: now,
	}

	err = pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{Fn: func(tx *sql.Tx) error {
		// ON DELETE CASCADE clears the prior evidence set.
		if _, delErr := tx.ExecContext(ctx,
			`DELETE FROM job_completions WHERE job_id = $1`, req.JobID); delErr != nil {
			return fmt.Errorf("replace prior completion: %w", delErr)
		}

		if _, insErr := tx.ExecContext(ctx, `
			INSERT INTO job_completions (id, job_id, worker_id, checklist, notes, submitted_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			completion.ID, completion.JobID, completion.WorkerID,
			checklist, completion.Notes, now,
		); insErr != nil {
			return fmt.Errorf("insert completion: %w", insErr)
		}

		for _, ev := range req.Evidence {
			if _, evErr := tx.ExecContext(ctx, `
				INSERT INTO evidence (id, completion_id, checklist_item, storage_path,
					file_type, redaction_applied, redaction_type, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				uuid.NewString(), completion.ID, ev.ChecklistItem, ev.StoragePath,
				ev.FileType, ev.RedactionApplied, ev.RedactionType, now,
			); evErr != nil {
				return fmt.Errorf("insert evidence: %w", evErr)
			}
		}
		return nil
	}})
	if err != nil {
		return nil, err
	}
	return completion, nil
}

// SnapshotByJobID assembles the gate's view of a job's latest submission.
func (r *CompletionRepo) SnapshotByJobID(ctx context.Context, jobID string) (*model.CompletionSnapshot, error) {
	var (
		c         model.JobCompletion
		checklist []byte
	)
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, job_id, worker_id, checklist, notes, submitted_at
		FROM job_completions WHERE job_id = $1`, jobID,
	).Scan(&c.ID, &c.JobID, &c.WorkerID, &checklist, &c.Notes, &c.SubmittedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCompletionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get completion for job %s: %w", jobID, err)
	}
	if err = json.Unmarshal(checklist, &c.Checklist); err != nil {
		return nil, fmt.Errorf("unmarshal checklist: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, completion_id, checklist_item, storage_path, file_type,
			redaction_applied, redaction_type, created_at
		FROM evidence WHERE completion_id = $1
		ORDER BY created_at ASC`, c.ID)
	if err != nil {
		return nil, fmt.Errorf("list evidence: %w", err)
	}
	defer rows.Close()

	var evidence []model.Evidence
	for rows.Next() {
		var ev model.Evidence
		if scanErr := rows.Scan(
			&ev.ID, &ev.CompletionID, &ev.ChecklistItem, &ev.StoragePath,
			&ev.FileType, &ev.RedactionApplied, &ev.RedactionType, &ev.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("scan evidence row: %w", scanErr)
		}
		evidence = append(evidence, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evidence rows: %w", err)
	}

	return &model.CompletionSnapshot{Completion: &c, Evidence: evidence}, nil
}
