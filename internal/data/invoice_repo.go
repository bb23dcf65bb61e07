package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tidyops/fieldwork/internal/core"
	"github.com/tidyops/fieldwork/internal/data/pgxutil"
	"github.com/tidyops/fieldwork/internal/domain/model"
)

// InvoiceRepo provides database operations for client invoices.
type InvoiceRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

var _ core.InvoiceRepository = (*InvoiceRepo)(nil)

// NewInvoiceRepo creates a new InvoiceRepo.
func NewInvoiceRepo(db *sql.DB, cfg RepoConfig) *InvoiceRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &InvoiceRepo{DB: db, timeProvider: tp}
}

const invoiceColumns = `id, client_id, period_start, period_end, status, sent_at, paid_at, voided_at, created_at, updated_at`

func scanInvoice(row rowScanner) (*model.Invoice, error) {
	var inv model.Invoice
	err := row.Scan(
		&inv.ID, &inv.ClientID, &inv.PeriodStart, &inv.PeriodEnd, &inv.Status,
		&inv.SentAt, &inv.PaidAt, &inv.VoidedAt, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// Create inserts a new draft invoice.
func (r *InvoiceRepo) Create(ctx context.Context, req *model.CreateInvoiceRequest) (*model.Invoice, error) {
	if req == nil {
		return nil, errors.New("create invoice request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := r.timeProvider.Now()
	row := r.DB.QueryRowContext(ctx, `
		INSERT INTO invoices (id, client_id, period_start, period_end, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING `+invoiceColumns,
		uuid.NewString(), req.ClientID, req.PeriodStart, req.PeriodEnd, model.InvoiceDraft, now,
	)
	inv, err := scanInvoice(row)
	if err != nil {
		return nil, fmt.Errorf("insert invoice: %w", err)
	}
	return inv, nil
}

// GetByID returns an invoice with its attached job IDs.
func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*model.Invoice, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
	inv, err := scanInvoice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvoiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get invoice %s: %w", id, err)
	}

	rows, err := r.DB.QueryContext(ctx,
		`SELECT job_id FROM invoice_jobs WHERE invoice_id = $1 ORDER BY job_id`, id)
	if err != nil {
		return nil, fmt.Errorf("list invoice jobs: %w", err)
	}
	inv.JobIDs, err = collectIDs(rows)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// AttachJob adds one job to a draft invoice. The status guard is checked
// inside the transaction so a concurrent Send cannot interleave an attach.
func (r *InvoiceRepo) AttachJob(ctx context.Context, invoiceID, jobID string) error {
	return pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{Fn: func(tx *sql.Tx) error {
		var status model.InvoiceStatus
		err := tx.QueryRowContext(ctx,
			`SELECT status FROM invoices WHERE id = $1 FOR UPDATE`, invoiceID).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrInvoiceNotFound
		}
		if err != nil {
			return fmt.Errorf("read invoice %s: %w", invoiceID, err)
		}
		if status != model.InvoiceDraft {
			return ErrInvoiceNotDraft
		}

		if _, err = tx.ExecContext(ctx, `
			INSERT INTO invoice_jobs (invoice_id, job_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, invoiceID, jobID); err != nil {
			return fmt.Errorf("attach job %s: %w", jobID, err)
		}
		return nil
	}})
}

// Transition applies a compare-and-set invoice status update with its audit entry.
func (r *InvoiceRepo) Transition(ctx context.Context, params core.InvoiceTransitionParams) (*model.Invoice, error) {
	var inv *model.Invoice
	now := r.timeProvider.Now()

	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{Fn: func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			UPDATE invoices SET
				status = $1,
				sent_at = CASE WHEN $1 = 'sent' THEN $2 ELSE sent_at END,
				paid_at = CASE WHEN $1 = 'paid' THEN $2 ELSE paid_at END,
				voided_at = CASE WHEN $1 = 'void' THEN $2 ELSE voided_at END,
				updated_at = $2
			WHERE id = $3 AND status = $4
			RETURNING `+invoiceColumns,
			params.To, now, params.InvoiceID, params.From,
		)
		var scanErr error
		inv, scanErr = scanInvoice(row)
		if errors.Is(scanErr, sql.ErrNoRows) {
			return r.classifyInvoiceMiss(ctx, tx, params.InvoiceID)
		}
		if scanErr != nil {
			return fmt.Errorf("update invoice status: %w", scanErr)
		}

		audit := model.NewTransitionAudit(
			params.ActorID, model.EntityInvoice, params.InvoiceID,
			string(params.From), string(params.To), nil,
		)
		return appendAuditInTx(ctx, tx, audit, now)
	}})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *InvoiceRepo) classifyInvoiceMiss(ctx context.Context, tx *sql.Tx, invoiceID string) error {
	var status string
	err := tx.QueryRowContext(ctx,
		`SELECT status FROM invoices WHERE id = $1`, invoiceID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrInvoiceNotFound
	}
	if err != nil {
		return fmt.Errorf("re-read invoice %s: %w", invoiceID, err)
	}
	return fmt.Errorf("invoice %s is %s: %w", invoiceID, status, ErrStaleStatus)
}
