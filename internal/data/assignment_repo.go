package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tidyops/fieldwork/internal/core"
)

// AssignmentRepo answers job access checks from the jobs table. A worker may
// act only on a job assigned directly to them.
type AssignmentRepo struct {
	DB *sql.DB
}

var _ core.JobAssignmentChecker = (*AssignmentRepo)(nil)

// NewAssignmentRepo creates a new AssignmentRepo.
func NewAssignmentRepo(db *sql.DB) *AssignmentRepo {
	return &AssignmentRepo{DB: db}
}

// CanAccessJob reports whether the worker is allowed to act on the job.
func (r *AssignmentRepo) CanAccessJob(ctx context.Context, workerID, jobID string) (bool, error) {
	var allowed bool
	err := r.DB.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM jobs
			WHERE id = $1 AND assigned_worker_id = $2
		)`, jobID, workerID,
	).Scan(&allowed)
	if err != nil {
		return false, fmt.Errorf("check job access for worker %s on job %s: %w", workerID, jobID, err)
	}
	return allowed, nil
}
