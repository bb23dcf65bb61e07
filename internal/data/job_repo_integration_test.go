package data

import (
	"context"
	"database/sql"
	"encoding/json"
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

func seedSite(t *testing.T, db *sql.DB, intervalDays int) string {
	t.Helper()
	id := uuid.NewString()
	_, err := db.Exec(`
		INSERT INTO sites (id, client_id, name, address, service_interval_days)
		VALUES ($1, 'client-test', 'Test Site', '1 Test Way', $2)`,
		id, intervalDays)
	require.NoError(t, err)
	return id
}

func seedWorkOrder(t *testing.T, db *sql.DB, siteID string) string {
	t.Helper()
	repo := NewWorkOrderRepo(db, RepoConfig{})
	wo, err := repo.Create(context.Background(), &model.WorkOrder{
		ClientID: "client-test",
		SiteID:   siteID,
		Title:    "Weekly clean",
		Status:   model.WorkOrderInProgress,
	})
	require.NoError(t, err)
	return wo.ID
}

func scheduleTestJob(t *testing.T, repo *JobRepo, workOrderID, siteID string) *model.Job {
	t.Helper()
	job, err := repo.Create(context.Background(), &model.CreateJobRequest{
		WorkOrderID:    workOrderID,
		SiteID:         siteID,
		ScheduledStart: testutil.TestTime().Add(24 * time.Hour),
	})
	require.NoError(t, err)
	return job
}

func countAuditEntries(t *testing.T, db *sql.DB, entityID string, action model.AuditAction) int {
	t.Helper()
	var n int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM audit_log WHERE entity_id = $1 AND action = $2`,
		entityID, string(action)).Scan(&n)
	require.NoError(t, err)
	return n
}

func TestJobRepo_CreateAndGet(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewJobRepo(db, RepoConfig{})
		siteID := seedSite(t, db, 7)
		woID := seedWorkOrder(t, db, siteID)

		job, err := repo.Create(ctx, &model.CreateJobRequest{
			WorkOrderID:    woID,
			SiteID:         siteID,
			ScheduledStart: testutil.TestTime(),
			Metadata:       json.RawMessage(`{"contract":"weekly"}`),
		})
		require.NoError(t, err)
		assert.NotEmpty(t, job.ID)
		assert.Equal(t, model.JobStatusScheduled, job.Status)
		assert.False(t, job.IsMissed)
		assert.Nil(t, job.OriginJobID)

		got, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, job.ID, got.ID)
		assert.JSONEq(t, `{"contract":"weekly"}`, string(got.Metadata))
	})
}

func TestJobRepo_GetByID_NotFound(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db, RepoConfig{})
		_, err := repo.GetByID(context.Background(), uuid.NewString())
		assert.ErrorIs(t, err, ErrJobNotFound)
	})
}

func TestJobRepo_Create_Validation(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db, RepoConfig{})

		_, err := repo.Create(context.Background(), nil)
		assert.Error(t, err)

		_, err = repo.Create(context.Background(), &model.CreateJobRequest{SiteID: "site-1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "work order id is required")
	})
}

func TestJobRepo_Transition(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewJobRepo(db, RepoConfig{})
		siteID := seedSite(t, db, 7)
		woID := seedWorkOrder(t, db, siteID)
		job := scheduleTestJob(t, repo, woID, siteID)

		updated, err := repo.Transition(ctx, core.TransitionParams{
			JobID:   job.ID,
			From:    model.JobStatusScheduled,
			To:      model.JobStatusPendingApproval,
			ActorID: "worker-1",
		})
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusPendingApproval, updated.Status)
		assert.NotNil(t, updated.CompletedAt)

		// Status update and audit entry commit together.
		assert.Equal(t, 1, countAuditEntries(t, db, job.ID, model.AuditActionTransition))
	})
}

func TestJobRepo_Transition_StaleStatus(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewJobRepo(db, RepoConfig{})
		siteID := seedSite(t, db, 7)
		woID := seedWorkOrder(t, db, siteID)
		job := scheduleTestJob(t, repo, woID, siteID)

		// Simulate a concurrent transition winning first.
		_, err := repo.Transition(ctx, core.TransitionParams{
			JobID: job.ID, From: model.JobStatusScheduled, To: model.JobStatusCancelled,
			ActorID: "admin-1",
		})
		require.NoError(t, err)

		_, err = repo.Transition(ctx, core.TransitionParams{
			JobID: job.ID, From: model.JobStatusScheduled, To: model.JobStatusPendingApproval,
			ActorID: "worker-1",
		})
		assert.ErrorIs(t, err, ErrStaleStatus)

		// The losing attempt must not write an audit entry.
		assert.Equal(t, 1, countAuditEntries(t, db, job.ID, model.AuditActionTransition))
	})
}

func TestJobRepo_Transition_MissingJob(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db, RepoConfig{})
		_, err := repo.Transition(context.Background(), core.TransitionParams{
			JobID: uuid.NewString(),
			From:  model.JobStatusScheduled, To: model.JobStatusCancelled,
			ActorID: "admin-1",
		})
		assert.ErrorIs(t, err, ErrJobNotFound)
	})
}

func TestJobRepo_Transition_MissedCancellation(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewJobRepo(db, RepoConfig{})
		siteID := seedSite(t, db, 7)
		woID := seedWorkOrder(t, db, siteID)
		job := scheduleTestJob(t, repo, woID, siteID)

		meta := json.RawMessage(`{"reason":"site inaccessible","is_missed":true}`)
		updated, err := repo.Transition(ctx, core.TransitionParams{
			JobID:         job.ID,
			From:          model.JobStatusScheduled,
			To:            model.JobStatusCancelled,
			ActorID:       "admin-1",
			SetMissed:     true,
			MissedReason:  "site inaccessible",
			AuditMetadata: meta,
		})
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusCancelled, updated.Status)
		assert.True(t, updated.IsMissed)
		require.NotNil(t, updated.MissedReason)
		assert.Equal(t, "site inaccessible", *updated.MissedReason)
		require.NotNil(t, updated.CancelledBy)
		assert.Equal(t, "admin-1", *updated.CancelledBy)
	})
}

func TestJobRepo_Transition_RejectClearsCompletionMarkers(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewJobRepo(db, RepoConfig{})
		siteID := seedSite(t, db, 7)
		woID := seedWorkOrder(t, db, siteID)
		job := scheduleTestJob(t, repo, woID, siteID)

		_, err := repo.Transition(ctx, core.TransitionParams{
			JobID: job.ID, From: model.JobStatusScheduled, To: model.JobStatusPendingApproval,
			ActorID: "worker-1",
		})
		require.NoError(t, err)

		// Flag it so we can verify rejection clears the flag too.
		flagged, err := repo.FlagApproval(ctx, core.FlagApprovalParams{JobID: job.ID, ActorID: "system"})
		require.NoError(t, err)
		require.True(t, flagged)

		rejected, err := repo.Transition(ctx, core.TransitionParams{
			JobID: job.ID, From: model.JobStatusPendingApproval, To: model.JobStatusScheduled,
			ActorID: "admin-1",
		})
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusScheduled, rejected.Status)
		assert.Nil(t, rejected.CompletedAt)
		assert.Nil(t, rejected.ApprovalFlaggedAt)
	})
}

func TestJobRepo_FlagApproval_Idempotent(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewJobRepo(db, RepoConfig{})
		siteID := seedSite(t, db, 7)
		woID := seedWorkOrder(t, db, siteID)
		job := scheduleTestJob(t, repo, woID, siteID)

		// Not pending approval yet: nothing to flag.
		flagged, err := repo.FlagApproval(ctx, core.FlagApprovalParams{JobID: job.ID, ActorID: "system"})
		require.NoError(t, err)
		assert.False(t, flagged)

		_, err = repo.Transition(ctx, core.TransitionParams{
			JobID: job.ID, From: model.JobStatusScheduled, To: model.JobStatusPendingApproval,
			ActorID: "worker-1",
		})
		require.NoError(t, err)

		flagged, err = repo.FlagApproval(ctx, core.FlagApprovalParams{JobID: job.ID, ActorID: "system"})
		require.NoError(t, err)
		assert.True(t, flagged)

		// Second sweep pass is a no-op.
		flagged, err = repo.FlagApproval(ctx, core.FlagApprovalParams{JobID: job.ID, ActorID: "system"})
		require.NoError(t, err)
		assert.False(t, flagged)

		assert.Equal(t, 1, countAuditEntries(t, db, job.ID, model.AuditActionApprovalFlagged))
	})
}

func TestJobRepo_ListOverdueApprovals(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewJobRepo(db, RepoConfig{})
		siteID := seedSite(t, db, 7)
		woID := seedWorkOrder(t, db, siteID)

		mkPending := func(start time.Time) *model.Job {
			job, err := repo.Create(ctx, &model.CreateJobRequest{
				WorkOrderID: woID, SiteID: siteID, ScheduledStart: start,
			})
			require.NoError(t, err)
			_, err = repo.Transition(ctx, core.TransitionParams{
				JobID: job.ID, From: model.JobStatusScheduled, To: model.JobStatusPendingApproval,
				ActorID: "worker-1",
			})
			require.NoError(t, err)
			return job
		}

		cutoff := testutil.TestTime()
		old := mkPending(cutoff.Add(-96 * time.Hour))
		older := mkPending(cutoff.Add(-200 * time.Hour))
		mkPending(cutoff.Add(time.Hour)) // not overdue

		overdue, err := repo.ListOverdueApprovals(ctx, cutoff, 10)
		require.NoError(t, err)
		require.Len(t, overdue, 2)
		// Oldest first.
		assert.Equal(t, older.ID, overdue[0].ID)
		assert.Equal(t, old.ID, overdue[1].ID)

		// Flagged jobs drop out of the scan.
		flagged, err := repo.FlagApproval(ctx, core.FlagApprovalParams{JobID: older.ID, ActorID: "system"})
		require.NoError(t, err)
		require.True(t, flagged)

		overdue, err = repo.ListOverdueApprovals(ctx, cutoff, 10)
		require.NoError(t, err)
		require.Len(t, overdue, 1)
		assert.Equal(t, old.ID, overdue[0].ID)
	})
}

func TestJobRepo_CreateMakeGood_Unique(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewJobRepo(db, RepoConfig{})
		siteID := seedSite(t, db, 7)
		woID := seedWorkOrder(t, db, siteID)
		origin := scheduleTestJob(t, repo, woID, siteID)

		none, err := repo.FindMakeGoodFor(ctx, origin.ID)
		require.NoError(t, err)
		assert.Nil(t, none)

		params := core.MakeGoodParams{
			Request: model.CreateJobRequest{
				WorkOrderID:    woID,
				SiteID:         siteID,
				ScheduledStart: testutil.TestTime().Add(7 * 24 * time.Hour),
			},
			OriginJobID: origin.ID,
			ActorID:     "system",
		}

		makeGood, err := repo.CreateMakeGood(ctx, params)
		require.NoError(t, err)
		require.NotNil(t, makeGood.OriginJobID)
		assert.Equal(t, origin.ID, *makeGood.OriginJobID)
		assert.Equal(t, 1, countAuditEntries(t, db, makeGood.ID, model.AuditActionMakeGoodCreated))

		// Second derivation for the same origin must hit the unique index.
		_, err = repo.CreateMakeGood(ctx, params)
		assert.ErrorIs(t, err, ErrDuplicateMakeGood)

		found, err := repo.FindMakeGoodFor(ctx, origin.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, makeGood.ID, found.ID)
	})
}

func TestJobRepo_ListByWorkOrder(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewJobRepo(db, RepoConfig{})
		siteID := seedSite(t, db, 7)
		woID := seedWorkOrder(t, db, siteID)
		otherWO := seedWorkOrder(t, db, siteID)

		for i := 0; i < 3; i++ {
			_, err := repo.Create(ctx, &model.CreateJobRequest{
				WorkOrderID:    woID,
				SiteID:         siteID,
				ScheduledStart: testutil.TestTime().Add(time.Duration(i) * 24 * time.Hour),
			})
			require.NoError(t, err)
		}
		scheduleTestJob(t, repo, otherWO, siteID)

		jobs, err := repo.ListByWorkOrder(ctx, woID)
		require.NoError(t, err)
		require.Len(t, jobs, 3)
		for i := 1; i < len(jobs); i++ {
			assert.False(t, jobs[i].ScheduledStart.Before(jobs[i-1].ScheduledStart),
				"jobs must be ordered by scheduled start")
		}
	})
}

func TestJobRepo_ListApprovedPayable(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		tp := NewFixedTimeProvider(testutil.TestTime())
		repo := NewJobRepo(db, RepoConfig{TimeProvider: tp})
		siteID := seedSite(t, db, 7)
		woID := seedWorkOrder(t, db, siteID)

		workerID := fmt.Sprintf("worker-%s", uuid.NewString())
		_, err := db.Exec(`INSERT INTO vendor_workers (vendor_id, worker_id) VALUES ($1, $2)`,
			"vendor-1", workerID)
		require.NoError(t, err)

		job, err := repo.Create(ctx, &model.CreateJobRequest{
			WorkOrderID:      woID,
			SiteID:           siteID,
			AssignedWorkerID: &workerID,
			ScheduledStart:   testutil.TestTime().Add(-48 * time.Hour),
		})
		require.NoError(t, err)

		// completed_at lands at the fixed test time on submission.
		_, err = repo.Transition(ctx, core.TransitionParams{
			JobID: job.ID, From: model.JobStatusScheduled, To: model.JobStatusPendingApproval,
			ActorID: workerID,
		})
		require.NoError(t, err)
		_, err = repo.Transition(ctx, core.TransitionParams{
			JobID: job.ID, From: model.JobStatusPendingApproval, To: model.JobStatusApprovedPayable,
			ActorID: "admin-1",
		})
		require.NoError(t, err)

		payable, err := repo.ListApprovedPayable(ctx, core.PayableJobsQuery{
			VendorID:    "vendor-1",
			PeriodStart: testutil.TestTime().Add(-time.Hour),
			PeriodEnd:   testutil.TestTime().Add(time.Hour),
		})
		require.NoError(t, err)
		require.Len(t, payable, 1)
		assert.Equal(t, job.ID, payable[0].ID)

		// Outside the period: nothing.
		payable, err = repo.ListApprovedPayable(ctx, core.PayableJobsQuery{
			VendorID:    "vendor-1",
			PeriodStart: testutil.TestTime().Add(time.Hour),
			PeriodEnd:   testutil.TestTime().Add(2 * time.Hour),
		})
		require.NoError(t, err)
		assert.Empty(t, payable)

		// Another vendor's scope: nothing.
		payable, err = repo.ListApprovedPayable(ctx, core.PayableJobsQuery{
			VendorID:    "vendor-2",
			PeriodStart: testutil.TestTime().Add(-time.Hour),
			PeriodEnd:   testutil.TestTime().Add(time.Hour),
		})
		require.NoError(t, err)
		assert.Empty(t, payable)
	})
}
