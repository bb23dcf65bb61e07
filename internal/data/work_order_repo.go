package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tidyops/fieldwork/internal/core"
	"github.com/tidyops/fieldwork/internal/domain/model"
)

// WorkOrderRepo provides database operations for work orders.
type WorkOrderRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

var _ core.WorkOrderRepository = (*WorkOrderRepo)(nil)

// NewWorkOrderRepo creates a new WorkOrderRepo.
func NewWorkOrderRepo(db *sql.DB, cfg RepoConfig) *WorkOrderRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &WorkOrderRepo{DB: db, timeProvider: tp}
}

const workOrderColumns = `id, client_id, site_id, title, status, created_at, updated_at`

func scanWorkOrder(row rowScanner) (*model.WorkOrder, error) {
	var wo model.WorkOrder
	err := row.Scan(&wo.ID, &wo.ClientID, &wo.SiteID, &wo.Title, &wo.Status, &wo.CreatedAt, &wo.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &wo, nil
}

// Create inserts a new work order. A new order starts in progress.
func (r *WorkOrderRepo) Create(ctx context.Context, wo *model.WorkOrder) (*model.WorkOrder, error) {
	if wo == nil {
		return nil, errors.New("work order is required")
	}
	if wo.ClientID == "" || wo.SiteID == "" {
		return nil, errors.New("client id and site id are required")
	}

	now := r.timeProvider.Now()
	row := r.DB.QueryRowContext(ctx, `
		INSERT INTO work_orders (id, client_id, site_id, title, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING `+workOrderColumns,
		uuid.NewString(), wo.ClientID, wo.SiteID, wo.Title, model.WorkOrderInProgress, now,
	)
	out, err := scanWorkOrder(row)
	if err != nil {
		return nil, fmt.Errorf("insert work order: %w", err)
	}
	return out, nil
}

// GetByID returns a work order by its ID.
func (r *WorkOrderRepo) GetByID(ctx context.Context, id string) (*model.WorkOrder, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+workOrderColumns+` FROM work_orders WHERE id = $1`, id)
	wo, err := scanWorkOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWorkOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get work order %s: %w", id, err)
	}
	return wo, nil
}

// MemberStatuses returns the status of every job in the work order.
func (r *WorkOrderRepo) MemberStatuses(ctx context.Context, id string) ([]model.JobStatus, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT status FROM jobs WHERE work_order_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("list member statuses: %w", err)
	}
	defer rows.Close()

	var statuses []model.JobStatus
	for rows.Next() {
		var s model.JobStatus
		if scanErr := rows.Scan(&s); scanErr != nil {
			return nil, fmt.Errorf("scan status row: %w", scanErr)
		}
		statuses = append(statuses, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status rows: %w", err)
	}
	return statuses, nil
}

// UpdateStatus persists a recomputed derived status, skipping the write when
// the stored value already matches.
func (r *WorkOrderRepo) UpdateStatus(ctx context.Context, id string, status model.WorkOrderStatus) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE work_orders SET status = $1, updated_at = $2
		WHERE id = $3 AND status <> $1`,
		status, r.timeProvider.Now(), id)
	if err != nil {
		return false, fmt.Errorf("update work order status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("work order rows affected: %w", err)
	}
	return n > 0, nil
}
