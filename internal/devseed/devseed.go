// Package devseed populates a development database with a small, fixed set of
// sites, work orders, jobs in representative lifecycle states, and a lead.
// All inserts are idempotent; running the seed twice leaves the data unchanged.
package devseed

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Fixed IDs keep the seed idempotent and make seeded rows easy to spot.
const (
	SiteDowntownID  = "seed-site-downtown"
	SiteWarehouseID = "seed-site-warehouse"

	WorkOrderDowntownID  = "seed-wo-downtown"
	WorkOrderWarehouseID = "seed-wo-warehouse"

	JobScheduledID       = "seed-job-scheduled"
	JobPendingApprovalID = "seed-job-pending"
	JobApprovedID        = "seed-job-approved"
	JobCancelledMissedID = "seed-job-missed"

	VendorID = "seed-vendor-acme"
	WorkerID = "seed-worker-jordan"
	ClientID = "seed-client-metro"

	LeadID = "seed-lead-harbor"
)

// Run executes the development seeding workflow against the provided DB.
func Run(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	now := time.Now().UTC().Truncate(time.Hour)

	steps := []struct {
		name string
		fn   func(context.Context, *sql.DB, time.Time) error
	}{
		{"sites", seedSites},
		{"vendor workers", seedVendorWorkers},
		{"work orders", seedWorkOrders},
		{"jobs", seedJobs},
		{"completions", seedCompletions},
		{"leads", seedLeads},
	}

	for _, step := range steps {
		if err := step.fn(ctx, db, now); err != nil {
			return fmt.Errorf("seed %s: %w", step.name, err)
		}
		if logger != nil {
			logger.InfoContext(ctx, "seeded", "step", step.name)
		}
	}
	return nil
}

func seedSites(ctx context.Context, db *sql.DB, _ time.Time) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO sites (id, client_id, name, address, service_interval_days)
		VALUES
			($1, $3, 'Downtown Office Tower', '100 Main St', 7),
			($2, $3, 'Riverside Warehouse', '8 Dock Rd', 14)
		ON CONFLICT (id) DO NOTHING`,
		SiteDowntownID, SiteWarehouseID, ClientID)
	return err
}

func seedVendorWorkers(ctx context.Context, db *sql.DB, _ time.Time) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO vendor_workers (vendor_id, worker_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`,
		VendorID, WorkerID)
	return err
}

func seedWorkOrders(ctx context.Context, db *sql.DB, _ time.Time) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO work_orders (id, client_id, site_id, title, status)
		VALUES
			($1, $3, $4, 'Weekly janitorial - downtown', 'in_progress'),
			($2, $3, $5, 'Biweekly floor care - warehouse', 'in_progress')
		ON CONFLICT (id) DO NOTHING`,
		WorkOrderDowntownID, WorkOrderWarehouseID, ClientID, SiteDowntownID, SiteWarehouseID)
	return err
}

func seedJobs(ctx context.Context, db *sql.DB, now time.Time) error {
	type jobSeed struct {
		id           string
		workOrderID  string
		siteID       string
		status       string
		start        time.Time
		isMissed     bool
		missedReason *string
		cancelledBy  *string
		completedAt  *time.Time
	}

	missedReason := "site inaccessible"
	cancelledBy := "seed-admin"
	completed := now.Add(-96 * time.Hour)

	seeds := []jobSeed{
		{
			id: JobScheduledID, workOrderID: WorkOrderDowntownID, siteID: SiteDowntownID,
			status: "scheduled", start: now.Add(24 * time.Hour),
		},
		{
			// Old enough for the overdue sweep to flag.
			id: JobPendingApprovalID, workOrderID: WorkOrderDowntownID, siteID: SiteDowntownID,
			status: "completed_pending_approval", start: now.Add(-96 * time.Hour),
			completedAt: &completed,
		},
		{
			id: JobApprovedID, workOrderID: WorkOrderWarehouseID, siteID: SiteWarehouseID,
			status: "approved_payable", start: now.Add(-48 * time.Hour),
			completedAt: &completed,
		},
		{
			id: JobCancelledMissedID, workOrderID: WorkOrderWarehouseID, siteID: SiteWarehouseID,
			status: "cancelled", start: now.Add(-24 * time.Hour),
			isMissed: true, missedReason: &missedReason, cancelledBy: &cancelledBy,
		},
	}

	for _, s := range seeds {
		if _, err := db.ExecContext(ctx, `
			INSERT INTO jobs (id, work_order_id, site_id, assigned_worker_id, status,
				scheduled_start, is_missed, missed_reason, cancelled_by, completed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (id) DO NOTHING`,
			s.id, s.workOrderID, s.siteID, WorkerID, s.status,
			s.start, s.isMissed, s.missedReason, s.cancelledBy, s.completedAt,
		); err != nil {
			return fmt.Errorf("job %s: %w", s.id, err)
		}
	}
	return nil
}

func seedCompletions(ctx context.Context, db *sql.DB, now time.Time) error {
	checklist := `[{"item":"Mop floors","done":true,"requires_photo":true},` +
		`{"item":"Empty bins","done":true,"requires_photo":false}]`

	for i, jobID := range []string{JobPendingApprovalID, JobApprovedID} {
		completionID := fmt.Sprintf("seed-completion-%d", i+1)
		if _, err := db.ExecContext(ctx, `
			INSERT INTO job_completions (id, job_id, worker_id, checklist, notes, submitted_at)
			VALUES ($1, $2, $3, $4, 'seeded completion', $5)
			ON CONFLICT (job_id) DO NOTHING`,
			completionID, jobID, WorkerID, checklist, now.Add(-96*time.Hour),
		); err != nil {
			return fmt.Errorf("completion for %s: %w", jobID, err)
		}

		if _, err := db.ExecContext(ctx, `
			INSERT INTO evidence (id, completion_id, checklist_item, storage_path,
				file_type, redaction_applied, redaction_type)
			VALUES ($1, $2, 'Mop floors', $3, 'image/jpeg', TRUE, 'blur')
			ON CONFLICT (id) DO NOTHING`,
			completionID+"-photo", completionID, "evidence/"+completionID+".jpg",
		); err != nil {
			return fmt.Errorf("evidence for %s: %w", jobID, err)
		}
	}
	return nil
}

func seedLeads(ctx context.Context, db *sql.DB, now time.Time) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO leads (id, name, email, phone, company, message, created_at)
		VALUES ($1, 'Sam Rivera', 'sam@harborlogistics.example', '555-0142',
			'Harbor Logistics', 'Looking for weekly service at two depots.', $2)
		ON CONFLICT (id) DO NOTHING`,
		LeadID, now.Add(-24*time.Hour))
	return err
}
