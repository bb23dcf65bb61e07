package data

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidyops/fieldwork/internal/core"
	"github.com/tidyops/fieldwork/internal/domain/model"
	"github.com/tidyops/fieldwork/internal/testutil"
)

func seedVendorWorker(t *testing.T, db *sql.DB, vendorID string) string {
	t.Helper()
	workerID := fmt.Sprintf("worker-%s", uuid.NewString())
	_, err := db.Exec(`INSERT INTO vendor_workers (vendor_id, worker_id) VALUES ($1, $2)`,
		vendorID, workerID)
	require.NoError(t, err)
	return workerID
}

// approvedPayableJob walks a fresh job through submission and approval so its
// completed_at lands at the repo's fixed test time.
func approvedPayableJob(t *testing.T, repo *JobRepo, woID, siteID, workerID string) *model.Job {
	t.Helper()
	ctx := context.Background()
	job, err := repo.Create(ctx, &model.CreateJobRequest{
		WorkOrderID:      woID,
		SiteID:           siteID,
		AssignedWorkerID: &workerID,
		ScheduledStart:   testutil.TestTime().Add(-48 * time.Hour),
	})
	require.NoError(t, err)
	_, err = repo.Transition(ctx, core.TransitionParams{
		JobID: job.ID, From: model.JobStatusScheduled, To: model.JobStatusPendingApproval,
		ActorID: workerID,
	})
	require.NoError(t, err)
	approved, err := repo.Transition(ctx, core.TransitionParams{
		JobID: job.ID, From: model.JobStatusPendingApproval, To: model.JobStatusApprovedPayable,
		ActorID: "admin-1",
	})
	require.NoError(t, err)
	return approved
}

func payoutPeriod() (time.Time, time.Time) {
	return testutil.TestTime().Add(-time.Hour), testutil.TestTime().Add(time.Hour)
}

func TestPayoutRepo_MarkPaid_AllOrNothing(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		cfg := RepoConfig{TimeProvider: NewFixedTimeProvider(testutil.TestTime())}
		jobs := NewJobRepo(db, cfg)
		payouts := NewPayoutRepo(db, cfg)

		siteID := seedSite(t, db, 7)
		woID := seedWorkOrder(t, db, siteID)
		workerID := seedVendorWorker(t, db, "vendor-1")

		kept := approvedPayableJob(t, jobs, woID, siteID, workerID)
		diverted := approvedPayableJob(t, jobs, woID, siteID, workerID)

		periodStart, periodEnd := payoutPeriod()
		batch, err := payouts.CreateBatch(ctx, model.CreatePayoutBatchRequest{
			VendorID:    "vendor-1",
			PeriodStart: periodStart,
			PeriodEnd:   periodEnd,
		})
		require.NoError(t, err)
		require.ElementsMatch(t, []string{kept.ID, diverted.ID}, batch.JobIDs)

		// A job moved out from under the batch between assembly and payment.
		_, err = db.Exec(`UPDATE jobs SET status = $1 WHERE id = $2`,
			model.JobStatusPaid, diverted.ID)
		require.NoError(t, err)

		_, err = payouts.MarkPaid(ctx, core.MarkBatchPaidParams{BatchID: batch.ID, ActorID: "admin-1"})
		assert.ErrorIs(t, err, ErrStaleStatus)

		// Nothing committed: the batch is still open and the untouched job
		// keeps its status, with no payment audit entry.
		reread, err := payouts.GetByID(ctx, batch.ID)
		require.NoError(t, err)
		assert.Equal(t, model.PayoutBatchOpen, reread.Status)
		assert.Nil(t, reread.PaidAt)

		keptJob, err := jobs.GetByID(ctx, kept.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusApprovedPayable, keptJob.Status)
		assert.Nil(t, keptJob.PaidAt)
		assert.Equal(t, 2, countAuditEntries(t, db, kept.ID, model.AuditActionTransition))

		// With the diverted job restored the same batch pays out whole.
		_, err = db.Exec(`UPDATE jobs SET status = $1, paid_at = NULL WHERE id = $2`,
			model.JobStatusApprovedPayable, diverted.ID)
		require.NoError(t, err)

		paid, err := payouts.MarkPaid(ctx, core.MarkBatchPaidParams{BatchID: batch.ID, ActorID: "admin-1"})
		require.NoError(t, err)
		assert.Equal(t, model.PayoutBatchPaid, paid.Status)
		require.NotNil(t, paid.PaidAt)
		require.ElementsMatch(t, []string{kept.ID, diverted.ID}, paid.JobIDs)

		for _, jobID := range paid.JobIDs {
			job, getErr := jobs.GetByID(ctx, jobID)
			require.NoError(t, getErr)
			assert.Equal(t, model.JobStatusPaid, job.Status)
			require.NotNil(t, job.PaidAt)
			assert.Equal(t, 3, countAuditEntries(t, db, jobID, model.AuditActionTransition))
		}
	})
}

func TestPayoutRepo_MarkPaid_AlreadyPaid(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		cfg := RepoConfig{TimeProvider: NewFixedTimeProvider(testutil.TestTime())}
		jobs := NewJobRepo(db, cfg)
		payouts := NewPayoutRepo(db, cfg)

		siteID := seedSite(t, db, 7)
		woID := seedWorkOrder(t, db, siteID)
		workerID := seedVendorWorker(t, db, "vendor-1")
		approvedPayableJob(t, jobs, woID, siteID, workerID)

		periodStart, periodEnd := payoutPeriod()
		batch, err := payouts.CreateBatch(ctx, model.CreatePayoutBatchRequest{
			VendorID:    "vendor-1",
			PeriodStart: periodStart,
			PeriodEnd:   periodEnd,
		})
		require.NoError(t, err)

		_, err = payouts.MarkPaid(ctx, core.MarkBatchPaidParams{BatchID: batch.ID, ActorID: "admin-1"})
		require.NoError(t, err)

		_, err = payouts.MarkPaid(ctx, core.MarkBatchPaidParams{BatchID: batch.ID, ActorID: "admin-1"})
		assert.ErrorIs(t, err, ErrBatchAlreadyPaid)
	})
}

func TestPayoutRepo_MarkPaid_MissingBatch(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		payouts := NewPayoutRepo(db, RepoConfig{})
		_, err := payouts.MarkPaid(context.Background(), core.MarkBatchPaidParams{
			BatchID: uuid.NewString(), ActorID: "admin-1",
		})
		assert.ErrorIs(t, err, ErrBatchNotFound)
	})
}

func TestPayoutRepo_CreateBatch_NoPayableJobs(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		payouts := NewPayoutRepo(db, RepoConfig{})
		periodStart, periodEnd := payoutPeriod()
		_, err := payouts.CreateBatch(context.Background(), model.CreatePayoutBatchRequest{
			VendorID:    "vendor-1",
			PeriodStart: periodStart,
			PeriodEnd:   periodEnd,
		})
		assert.ErrorIs(t, err, ErrNoPayableJobs)
	})
}
