package workflowtest

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidyops/fieldwork/internal/core"
	"github.com/tidyops/fieldwork/internal/data"
	"github.com/tidyops/fieldwork/internal/domain/auth"
	"github.com/tidyops/fieldwork/internal/domain/model"
	"github.com/tidyops/fieldwork/internal/service"
	"github.com/tidyops/fieldwork/internal/testutil"
)

// dataRepositories wires the harness to the real data layer. It lives in the
// test file because the data package cannot be imported from workflow.go
// without a cycle through testutil.
type dataRepositories struct{}

func (dataRepositories) JobRepository(db *sql.DB) core.JobRepository {
	return data.NewJobRepo(db, data.RepoConfig{})
}

func (dataRepositories) CompletionRepository(db *sql.DB) core.CompletionRepository {
	return data.NewCompletionRepo(db, data.RepoConfig{})
}

func (dataRepositories) WorkOrderRepository(db *sql.DB) core.WorkOrderRepository {
	return data.NewWorkOrderRepo(db, data.RepoConfig{})
}

func (dataRepositories) SiteRepository(db *sql.DB) core.SiteRepository {
	return data.NewSiteRepo(db)
}

func (dataRepositories) PayoutRepository(db *sql.DB) core.PayoutRepository {
	return data.NewPayoutRepo(db, data.RepoConfig{})
}

func (dataRepositories) AuditRepository(db *sql.DB) core.AuditRepository {
	return data.NewAuditRepo(db, data.RepoConfig{})
}

func (dataRepositories) CacheRepository(client *redis.Client) core.CacheRepository {
	return data.NewRedisCacheRepo(client)
}

func uniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

func seedVendorRoster(t *testing.T, h *WorkflowTestHarness, vendorID, workerID string) {
	t.Helper()
	_, err := h.db.ExecContext(context.Background(),
		`INSERT INTO vendor_workers (vendor_id, worker_id) VALUES ($1, $2)`,
		vendorID, workerID)
	require.NoError(t, err)
}

// TestWorkflowTestOptions tests the option builders.
func TestWorkflowTestOptions(t *testing.T) {
	// Test default options
	opts := DefaultWorkflowOptions()
	assert.False(t, opts.EnableRedis)
	assert.Equal(t, 72*time.Hour, opts.OverdueAfter)
	assert.Equal(t, 100, opts.SweepLimit)

	// Test Redis options
	redisOpts := RedisWorkflowOptions()
	assert.True(t, redisOpts.EnableRedis)
	assert.Equal(t, 72*time.Hour, redisOpts.OverdueAfter)
	assert.Equal(t, 100, redisOpts.SweepLimit)
}

func TestActorPresets(t *testing.T) {
	admin := AdminActor()
	assert.Equal(t, auth.RoleAdmin, admin.Role)
	assert.NotEmpty(t, admin.UserID)

	worker := WorkerActor("worker-7")
	assert.Equal(t, auth.RoleInternalWorker, worker.Role)
	assert.Equal(t, "worker-7", worker.UserID)
}

func TestAllowAllAssignments(t *testing.T) {
	ok, err := allowAllAssignments{}.CanAccessJob(context.Background(), "any-worker", "any-job")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWorkflow_RejectedEvidenceThenPaid(t *testing.T) {
	opts := DefaultWorkflowOptions()
	opts.RepositoryProvider = dataRepositories{}

	WithWorkflowHarness(t, opts, func(h *WorkflowTestHarness) {
		ctx := context.Background()
		helpers := h.NewWorkflowHelpers()

		workerID := uniqueID("wf-worker")
		siteID, woID := helpers.SeedSiteAndWorkOrder()
		job := helpers.ScheduleJob(woID, siteID, workerID, time.Now().Add(-time.Hour))

		// An unredacted photo fails the submission gate; the job stays put.
		_, err := h.JobSvc.SubmitCompletion(ctx, WorkerActor(workerID),
			testutil.NewCompletionRequest(job.ID, workerID).
				WithChecklist(testutil.DonePhotoItem("sweep floors")).
				WithEvidence(testutil.UnredactedPhoto("sweep floors")).
				Build())
		require.ErrorIs(t, err, service.ErrPreconditionFailed)

		current, err := h.JobSvc.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusScheduled, current.Status)

		// Resubmission replaces the rejected evidence wholesale and passes.
		_, err = h.JobSvc.SubmitCompletion(ctx, WorkerActor(workerID),
			testutil.NewCompletionRequest(job.ID, workerID).Build())
		require.NoError(t, err)

		approved, err := h.JobSvc.Transition(ctx, AdminActor(), job.ID, model.TransitionRequest{
			Target: model.JobStatusApprovedPayable,
		})
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusApprovedPayable, approved.Status)

		vendorID := uniqueID("wf-vendor")
		seedVendorRoster(t, h, vendorID, workerID)

		batch, err := h.PayoutSvc.CreateBatch(ctx, AdminActor(), model.CreatePayoutBatchRequest{
			VendorID:    vendorID,
			PeriodStart: approved.ScheduledStart.Add(-24 * time.Hour),
			PeriodEnd:   approved.ScheduledStart.Add(24 * time.Hour),
		})
		require.NoError(t, err)
		require.Equal(t, []string{job.ID}, batch.JobIDs)

		paid, err := h.PayoutSvc.MarkPaid(ctx, AdminActor(), batch.ID)
		require.NoError(t, err)
		assert.Equal(t, model.PayoutBatchPaid, paid.Status)

		settled, err := h.JobSvc.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusPaid, settled.Status)
	})
}

func TestWorkflow_PayoutHelper(t *testing.T) {
	opts := DefaultWorkflowOptions()
	opts.RepositoryProvider = dataRepositories{}

	WithWorkflowHarness(t, opts, func(h *WorkflowTestHarness) {
		workerID := uniqueID("wf-worker")
		vendorID := uniqueID("wf-vendor")
		seedVendorRoster(t, h, vendorID, workerID)

		paid := h.NewWorkflowHelpers().RunPayoutWorkflow(vendorID, workerID)
		assert.Equal(t, model.PayoutBatchPaid, paid.Status)
		require.NotNil(t, paid.PaidAt)
		require.Len(t, paid.JobIDs, 1)

		settled, err := h.JobSvc.GetByID(context.Background(), paid.JobIDs[0])
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusPaid, settled.Status)
	})
}

func TestWorkflow_MissedVisitMakeGood(t *testing.T) {
	opts := DefaultWorkflowOptions()
	opts.RepositoryProvider = dataRepositories{}

	WithWorkflowHarness(t, opts, func(h *WorkflowTestHarness) {
		origin, makeGood := h.NewWorkflowHelpers().RunMissedVisitWorkflow(uniqueID("wf-worker"))

		assert.Equal(t, model.JobStatusCancelled, origin.Status)
		assert.True(t, origin.IsMissed)
		assert.Equal(t, model.JobStatusScheduled, makeGood.Status)
		require.NotNil(t, makeGood.OriginJobID)
		assert.Equal(t, origin.ID, *makeGood.OriginJobID)
		assert.True(t, makeGood.ScheduledStart.After(time.Now()),
			"make-good must land on a future service date")
	})
}

func TestWorkflow_ApprovalWithRedisCache(t *testing.T) {
	opts := RedisWorkflowOptions()
	opts.RepositoryProvider = dataRepositories{}
	opts.CacheProvider = dataRepositories{}

	WithWorkflowHarness(t, opts, func(h *WorkflowTestHarness) {
		approved := h.NewWorkflowHelpers().RunApprovalWorkflow(uniqueID("wf-worker"))
		assert.Equal(t, model.JobStatusApprovedPayable, approved.Status)
		assert.NotNil(t, approved.CompletedAt)
	})
}
