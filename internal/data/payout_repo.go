package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/tidyops/fieldwork/internal/core"
	"github.com/tidyops/fieldwork/internal/data/pgxutil"
	"github.com/tidyops/fieldwork/internal/domain/model"
)

// PayoutRepo provides database operations for payout batches.
type PayoutRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

var _ core.PayoutRepository = (*PayoutRepo)(nil)

// NewPayoutRepo creates a new PayoutRepo.
func NewPayoutRepo(db *sql.DB, cfg RepoConfig) *PayoutRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &PayoutRepo{DB: db, timeProvider: tp, logger: cfg.Logger}
}

const batchColumns = `id, vendor_id, period_start, period_end, status, paid_at, created_at`

func scanBatch(row rowScanner) (*model.PayoutBatch, error) {
	var b model.PayoutBatch
	err := row.Scan(&b.ID, &b.VendorID, &b.PeriodStart, &b.PeriodEnd, &b.Status, &b.PaidAt, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateBatch aggregates approved-payable jobs for the vendor and period into
// a new open batch. The job selection and batch insert share one transaction
// so a job cannot land in two batches racing over the same period.
func (r *PayoutRepo) CreateBatch(ctx context.Context, req model.CreatePayoutBatchRequest) (*model.PayoutBatch, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var batch *model.PayoutBatch
	now := r.timeProvider.Now()

	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{Fn: func(tx *sql.Tx) error {
		rows, qErr := tx.QueryContext(ctx, `
			SELECT id FROM jobs
			WHERE status = $1
			  AND assigned_worker_id IN (SELECT worker_id FROM vendor_workers WHERE vendor_id = $2)
			  AND completed_at >= $3 AND completed_at < $4
			  AND id NOT IN (SELECT job_id FROM payout_batch_jobs)
			ORDER BY completed_at ASC
			FOR UPDATE OF jobs`,
			model.JobStatusApprovedPayable, req.VendorID, req.PeriodStart, req.PeriodEnd)
		if qErr != nil {
			return fmt.Errorf("select payable jobs: %w", qErr)
		}
		jobIDs, cErr := collectIDs(rows)
		if cErr != nil {
			return cErr
		}
		if len(jobIDs) == 0 {
			return ErrNoPayableJobs
		}

		row := tx.QueryRowContext(ctx, `
			INSERT INTO payout_batches (id, vendor_id, period_start, period_end, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING `+batchColumns,
			uuid.NewString(), req.VendorID, req.PeriodStart, req.PeriodEnd,
			model.PayoutBatchOpen, now,
		)
		var scanErr error
		batch, scanErr = scanBatch(row)
		if scanErr != nil {
			return fmt.Errorf("insert payout batch: %w", scanErr)
		}

		for _, jobID := range jobIDs {
			if _, insErr := tx.ExecContext(ctx,
				`INSERT INTO payout_batch_jobs (batch_id, job_id) VALUES ($1, $2)`,
				batch.ID, jobID); insErr != nil {
				return fmt.Errorf("reference job %s in batch: %w", jobID, insErr)
			}
		}
		batch.JobIDs = jobIDs
		return nil
	}})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// GetByID returns a batch with its referenced job IDs.
func (r *PayoutRepo) GetByID(ctx context.Context, id string) (*model.PayoutBatch, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+batchColumns+` FROM payout_batches WHERE id = $1`, id)
	batch, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get payout batch %s: %w", id, err)
	}

	rows, err := r.DB.QueryContext(ctx,
		`SELECT job_id FROM payout_batch_jobs WHERE batch_id = $1 ORDER BY job_id`, id)
	if err != nil {
		return nil, fmt.Errorf("list batch jobs: %w", err)
	}
	batch.JobIDs, err = collectIDs(rows)
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// MarkPaid transitions the batch open -> paid and cascades every referenced
// job APPROVED_PAYABLE -> PAID with audit entries, all in one transaction.
// Any per-job failure aborts the whole operation; the batch stays open.
func (r *PayoutRepo) MarkPaid(ctx context.Context, params core.MarkBatchPaidParams) (*model.PayoutBatch, error) {
	var batch *model.PayoutBatch
	now := r.timeProvider.Now()

	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{Fn: func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			UPDATE payout_batches SET status = $1, paid_at = $2
			WHERE id = $3 AND status = $4
			RETURNING `+batchColumns,
			model.PayoutBatchPaid, now, params.BatchID, model.PayoutBatchOpen,
		)
		var scanErr error
		batch, scanErr = scanBatch(row)
		if errors.Is(scanErr, sql.ErrNoRows) {
			return r.classifyBatchMiss(ctx, tx, params.BatchID)
		}
		if scanErr != nil {
			return fmt.Errorf("mark batch paid: %w", scanErr)
		}

		jobRows, qErr := tx.QueryContext(ctx,
			`SELECT job_id FROM payout_batch_jobs WHERE batch_id = $1 ORDER BY job_id`,
			params.BatchID)
		if qErr != nil {
			return fmt.Errorf("list batch jobs: %w", qErr)
		}
		jobIDs, cErr := collectIDs(jobRows)
		if cErr != nil {
			return cErr
		}
		batch.JobIDs = jobIDs

		for _, jobID := range jobIDs {
			if payErr := r.payJobInTx(ctx, tx, jobID, params, now); payErr != nil {
				return payErr
			}
		}
		return nil
	}})
	if err != nil {
		return nil, err
	}

	if r.logger != nil {
		r.logger.InfoContext(ctx, "payout batch paid",
			"batch_id", batch.ID, "jobs", len(batch.JobIDs))
	}
	return batch, nil
}

// payJobInTx cascades the batch payment into one job transition. The CAS on
// APPROVED_PAYABLE means a job that moved since batch assembly fails the
// whole batch rather than being silently skipped.
func (r *PayoutRepo) payJobInTx(ctx context.Context, tx *sql.Tx, jobID string, params core.MarkBatchPaidParams, now any) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE jobs SET status = $1, paid_at = $2, updated_at = $2
		WHERE id = $3 AND status = $4`,
		model.JobStatusPaid, now, jobID, model.JobStatusApprovedPayable)
	if err != nil {
		return fmt.Errorf("pay job %s: %w", jobID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("pay job %s rows affected: %w", jobID, err)
	}
	if n == 0 {
		return fmt.Errorf("job %s is not approved-payable: %w", jobID, ErrStaleStatus)
	}

	from := string(model.JobStatusApprovedPayable)
	to := string(model.JobStatusPaid)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO audit_log (id, actor_id, entity_type, entity_id, action, from_state, to_state, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		uuid.NewString(), params.ActorID, model.EntityJob, jobID,
		model.AuditActionTransition, from, to,
		[]byte(fmt.Sprintf(`{"payout_batch_id":%q}`, params.BatchID)), now,
	)
	if err != nil {
		return fmt.Errorf("audit job %s payment: %w", jobID, err)
	}
	return nil
}

func (r *PayoutRepo) classifyBatchMiss(ctx context.Context, tx *sql.Tx, batchID string) error {
	var status model.PayoutBatchStatus
	err := tx.QueryRowContext(ctx,
		`SELECT status FROM payout_batches WHERE id = $1`, batchID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrBatchNotFound
	}
	if err != nil {
		return fmt.Errorf("re-read batch %s: %w", batchID, err)
	}
	if status == model.PayoutBatchPaid {
		return ErrBatchAlreadyPaid
	}
	return fmt.Errorf("batch %s is %s: %w", batchID, status, ErrStaleStatus)
}

func collectIDs(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate id rows: %w", err)
	}
	return ids, nil
}
