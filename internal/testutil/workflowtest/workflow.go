// Package workflowtest provides end-to-end lifecycle testing utilities for the
// fieldwork operations portal: scheduling, completion, approval, make-good and
// payout flows exercised through the real service layer.
package workflowtest

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tidyops/fieldwork/config"
	"github.com/tidyops/fieldwork/internal/core"
	"github.com/tidyops/fieldwork/internal/domain/auth"
	"github.com/tidyops/fieldwork/internal/domain/model"
	"github.com/tidyops/fieldwork/internal/service"
	"github.com/tidyops/fieldwork/internal/testutil"
)

// RepositoryProvider builds repositories against the database the harness
// hands it. This avoids import cycles by letting callers provide their own
// implementations.
type RepositoryProvider interface {
	JobRepository(db *sql.DB) core.JobRepository
	CompletionRepository(db *sql.DB) core.CompletionRepository
	WorkOrderRepository(db *sql.DB) core.WorkOrderRepository
	SiteRepository(db *sql.DB) core.SiteRepository
	PayoutRepository(db *sql.DB) core.PayoutRepository
	AuditRepository(db *sql.DB) core.AuditRepository
}

// CacheProvider provides a cache repository given a Redis client created by the harness.
type CacheProvider interface {
	CacheRepository(client *redis.Client) core.CacheRepository
}

// allowAllAssignments is the default assignment checker: every worker may act
// on every job. Authorization-focused tests supply their own checker.
type allowAllAssignments struct{}

func (allowAllAssignments) CanAccessJob(context.Context, string, string) (bool, error) {
	return true, nil
}

// WorkflowTestHarness provides utilities for end-to-end workflow testing.
//
//nolint:revive // WorkflowTestHarness is intentionally verbose for clarity in test code.
type WorkflowTestHarness struct {
	t  testutil.TestingTB
	db *sql.DB

	// Repositories (using interfaces to avoid import cycles)
	JobRepo        core.JobRepository
	CompletionRepo core.CompletionRepository
	WorkOrderRepo  core.WorkOrderRepository
	SiteRepo       core.SiteRepository
	PayoutRepo     core.PayoutRepository
	AuditRepo      core.AuditRepository

	// Services
	JobSvc        *service.JobService
	WorkOrderSvc  *service.WorkOrderService
	AutomationSvc *service.AutomationService
	PayoutSvc     *service.PayoutService
	Gate          *service.CompletionGate

	// Optional Redis components
	RedisAddr   string
	RedisClient *redis.Client
	CacheRepo   core.CacheRepository
}

// WorkflowTestOptions configures the workflow test harness.
//
//nolint:revive // WorkflowTestOptions is intentionally verbose for clarity in test code.
type WorkflowTestOptions struct {
	// EnableRedis enables the Redis-backed cache (dedup guards, action cache)
	EnableRedis bool
	// RedisAddr overrides the default Redis test address
	RedisAddr string
	// OverdueAfter sets the approval-overdue threshold for the automation engine
	OverdueAfter time.Duration
	// SweepLimit caps jobs flagged per sweep
	SweepLimit int
	// Assignments overrides the default allow-all assignment checker
	Assignments core.JobAssignmentChecker
	// RepositoryProvider provides repositories (required to avoid import cycles)
	RepositoryProvider RepositoryProvider
	// CacheProvider provides cache repository (optional, only used if EnableRedis is true)
	CacheProvider CacheProvider
}

// NewWorkflowTestHarness creates a new workflow test harness with all components wired up.
func NewWorkflowTestHarness(t testutil.TestingTB, db *sql.DB, opts WorkflowTestOptions) *WorkflowTestHarness {
	t.Helper()

	// Set defaults
	if opts.OverdueAfter == 0 {
		opts.OverdueAfter = 72 * time.Hour
	}
	if opts.SweepLimit == 0 {
		opts.SweepLimit = 100
	}
	if opts.Assignments == nil {
		opts.Assignments = allowAllAssignments{}
	}
	if opts.RepositoryProvider == nil {
		t.Fatalf("RepositoryProvider is required to avoid import cycles")
	}

	h := &WorkflowTestHarness{
		t:  t,
		db: db,
	}

	// Wire repositories using provider
	h.JobRepo = opts.RepositoryProvider.JobRepository(db)
	h.CompletionRepo = opts.RepositoryProvider.CompletionRepository(db)
	h.WorkOrderRepo = opts.RepositoryProvider.WorkOrderRepository(db)
	h.SiteRepo = opts.RepositoryProvider.SiteRepository(db)
	h.PayoutRepo = opts.RepositoryProvider.PayoutRepository(db)
	h.AuditRepo = opts.RepositoryProvider.AuditRepository(db)

	// Setup Redis components if enabled; the cache must exist before services
	// that take it as a dependency.
	if opts.EnableRedis {
		h.setupRedis(opts.RedisAddr, opts.CacheProvider)
	}

	// Wire services
	var err error
	h.Gate, err = service.NewCompletionGate(service.CompletionGateOptions{
		Completions: h.CompletionRepo,
	})
	if err != nil {
		t.Fatalf("wire completion gate: %v", err)
	}
	h.WorkOrderSvc, err = service.NewWorkOrderService(service.WorkOrderServiceOptions{
		Repo: h.WorkOrderRepo,
	})
	if err != nil {
		t.Fatalf("wire work order service: %v", err)
	}
	h.AutomationSvc, err = service.NewAutomationService(service.AutomationServiceOptions{
		Jobs:  h.JobRepo,
		Sites: h.SiteRepo,
		Config: config.AutomationConfig{
			OverdueAfter: opts.OverdueAfter,
			SweepLimit:   opts.SweepLimit,
		},
		Cache: h.CacheRepo,
	})
	if err != nil {
		t.Fatalf("wire automation service: %v", err)
	}
	h.JobSvc = service.MustNewJobService(service.JobServiceOptions{
		Jobs:        h.JobRepo,
		Completions: h.CompletionRepo,
		Gate:        h.Gate,
		Assignments: opts.Assignments,
		WorkOrders:  h.WorkOrderSvc,
		Automation:  h.AutomationSvc,
		Cache:       h.CacheRepo,
	})
	h.PayoutSvc, err = service.NewPayoutService(service.PayoutServiceOptions{
		Repo: h.PayoutRepo,
	})
	if err != nil {
		t.Fatalf("wire payout service: %v", err)
	}

	return h
}

// setupRedis initializes Redis components for caching.
func (h *WorkflowTestHarness) setupRedis(addr string, cacheProvider CacheProvider) {
	h.t.Helper()

	if cacheProvider == nil {
		h.t.Fatalf("CacheProvider is required when EnableRedis is true")
	}

	if addr == "" {
		client := testutil.SetupTestRedis(h.t)
		h.initRedisClient(client, addr, cacheProvider)
		return
	}

	// Use specific address for custom setups
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		h.t.Logf("redis not available at %s: %v", addr, err)
		if closeErr := client.Close(); closeErr != nil {
			h.t.Logf("warning: failed to close redis client: %v", closeErr)
		}
		h.t.Skip("redis test instance unavailable; run docker-compose profile 'test'")
		return
	}

	h.initRedisClient(client, addr, cacheProvider)
}

func (h *WorkflowTestHarness) initRedisClient(client *redis.Client, addr string, cacheProvider CacheProvider) {
	h.RedisAddr = addr
	h.RedisClient = client
	h.CacheRepo = cacheProvider.CacheRepository(client)
}

// Close cleans up all resources.
func (h *WorkflowTestHarness) Close() {
	h.t.Helper()

	if h.RedisClient != nil {
		if err := h.RedisClient.Close(); err != nil {
			h.t.Logf("warning: failed to close redis client: %v", err)
		}
	}
}

// Actor presets for workflow steps.

// AdminActor returns an admin actor for approval/payout steps.
func AdminActor() auth.Actor {
	return auth.Actor{UserID: "wf-admin", Role: auth.RoleAdmin}
}

// WorkerActor returns an internal worker actor with the given id.
func WorkerActor(id string) auth.Actor {
	return auth.Actor{UserID: id, Role: auth.RoleInternalWorker}
}

// WorkflowHelpers provides high-level workflow testing utilities.
type WorkflowHelpers struct {
	harness *WorkflowTestHarness
}

// NewWorkflowHelpers creates workflow helpers for the given harness.
func (h *WorkflowTestHarness) NewWorkflowHelpers() *WorkflowHelpers {
	return &WorkflowHelpers{harness: h}
}

// SeedSiteAndWorkOrder inserts a site and an umbrella work order directly,
// returning their ids. Fixture rows bypass the service layer since sites
// arrive through contract onboarding, not through this system.
func (w *WorkflowHelpers) SeedSiteAndWorkOrder() (siteID, workOrderID string) {
	w.harness.t.Helper()

	ctx := context.Background()
	siteID = fmt.Sprintf("wf-site-%d", time.Now().UnixNano())
	_, err := w.harness.db.ExecContext(ctx, `
		INSERT INTO sites (id, client_id, name, address, service_interval_days)
		VALUES ($1, 'wf-client', 'Workflow Test Site', '1 Test Way', 7)`,
		siteID)
	if err != nil {
		w.harness.t.Fatalf("seed site: %v", err)
	}

	wo, err := w.harness.WorkOrderSvc.Create(ctx, &model.WorkOrder{
		ClientID: "wf-client",
		SiteID:   siteID,
		Title:    "Workflow test order",
	})
	if err != nil {
		w.harness.t.Fatalf("create work order: %v", err)
	}
	return siteID, wo.ID
}

// ScheduleJob schedules a job assigned to the given worker.
func (w *WorkflowHelpers) ScheduleJob(workOrderID, siteID, workerID string, start time.Time) *model.Job {
	w.harness.t.Helper()

	job, err := w.harness.JobSvc.Schedule(context.Background(), AdminActor(), &model.CreateJobRequest{
		WorkOrderID:      workOrderID,
		SiteID:           siteID,
		AssignedWorkerID: &workerID,
		ScheduledStart:   start,
	})
	if err != nil {
		w.harness.t.Fatalf("schedule job: %v", err)
	}
	return job
}

// RunApprovalWorkflow runs the happy path end to end: schedule, submit a
// passing completion, approve. The returned job is APPROVED_PAYABLE.
func (w *WorkflowHelpers) RunApprovalWorkflow(workerID string) *model.Job {
	w.harness.t.Helper()

	ctx := context.Background()
	siteID, workOrderID := w.SeedSiteAndWorkOrder()
	job := w.ScheduleJob(workOrderID, siteID, workerID, time.Now().Add(-time.Hour))

	_, err := w.harness.JobSvc.SubmitCompletion(ctx, WorkerActor(workerID), testutil.NewCompletionRequest(job.ID, workerID).Build())
	if err != nil {
		w.harness.t.Fatalf("submit completion: %v", err)
	}

	approved, err := w.harness.JobSvc.Transition(ctx, AdminActor(), job.ID, model.TransitionRequest{
		Target: model.JobStatusApprovedPayable,
	})
	if err != nil {
		w.harness.t.Fatalf("approve job: %v", err)
	}
	if approved.Status != model.JobStatusApprovedPayable {
		w.harness.t.Fatalf("expected approved_payable, got %s", approved.Status)
	}
	return approved
}

// RunMissedVisitWorkflow cancels a scheduled job as missed and creates the
// make-good. Returns the cancelled origin and the derived make-good job.
func (w *WorkflowHelpers) RunMissedVisitWorkflow(workerID string) (origin, makeGood *model.Job) {
	w.harness.t.Helper()

	ctx := context.Background()
	siteID, workOrderID := w.SeedSiteAndWorkOrder()
	job := w.ScheduleJob(workOrderID, siteID, workerID, time.Now().Add(-time.Hour))

	cancelled, err := w.harness.JobSvc.Transition(ctx, AdminActor(), job.ID, model.TransitionRequest{
		Target:   model.JobStatusCancelled,
		Reason:   "site inaccessible",
		IsMissed: true,
	})
	if err != nil {
		w.harness.t.Fatalf("cancel missed job: %v", err)
	}

	derived, err := w.harness.JobRepo.FindMakeGoodFor(ctx, cancelled.ID)
	if err != nil {
		w.harness.t.Fatalf("find make-good: %v", err)
	}
	if derived == nil {
		w.harness.t.Fatalf("expected a make-good job for %s", cancelled.ID)
	}
	return cancelled, derived
}

// RunPayoutWorkflow approves a job, assembles a payout batch covering it and
// marks the batch paid. Returns the paid batch.
func (w *WorkflowHelpers) RunPayoutWorkflow(vendorID, workerID string) *model.PayoutBatch {
	w.harness.t.Helper()

	ctx := context.Background()
	job := w.RunApprovalWorkflow(workerID)

	batch, err := w.harness.PayoutSvc.CreateBatch(ctx, AdminActor(), model.CreatePayoutBatchRequest{
		VendorID:    vendorID,
		PeriodStart: job.ScheduledStart.Add(-24 * time.Hour),
		PeriodEnd:   job.ScheduledStart.Add(24 * time.Hour),
	})
	if err != nil {
		w.harness.t.Fatalf("create payout batch: %v", err)
	}

	paid, err := w.harness.PayoutSvc.MarkPaid(ctx, AdminActor(), batch.ID)
	if err != nil {
		w.harness.t.Fatalf("mark batch paid: %v", err)
	}
	return paid
}

// skipIfRedisUnavailable skips the test if Redis is required but unavailable.
func skipIfRedisUnavailable(t testutil.TestingTB, opts WorkflowTestOptions) {
	t.Helper()

	if !opts.EnableRedis {
		return
	}

	if opts.RedisAddr == "" {
		// Use centralized Redis address detection
		if _, ok := testutil.GetTestRedisAddr(t); !ok {
			t.Skip("redis test instance unavailable; run docker-compose profile 'test'")
		}
		return
	}

	// Test specific address by trying to connect
	client := redis.NewClient(&redis.Options{Addr: opts.RedisAddr})
	defer func() {
		if err := client.Close(); err != nil {
			t.Logf("warning: failed to close redis client: %v", err)
		}
	}()
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skip("redis test instance unavailable; run docker-compose profile 'test'")
	}
}

// WithWorkflowHarness is a helper that sets up and tears down a workflow test harness.
func WithWorkflowHarness(t testutil.TestingTB, opts WorkflowTestOptions, fn func(*WorkflowTestHarness)) {
	t.Helper()

	testutil.SkipIfNoTestDB(t)
	skipIfRedisUnavailable(t, opts)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		harness := NewWorkflowTestHarness(t, db, opts)
		defer harness.Close()
		fn(harness)
	})
}

// DefaultWorkflowOptions returns default options for workflow testing.
// Note: You must provide RepositoryProvider to avoid import cycles.
// Example:
//
//	opts := DefaultWorkflowOptions()
//	opts.RepositoryProvider = myRepositoryProvider
func DefaultWorkflowOptions() WorkflowTestOptions {
	return WorkflowTestOptions{
		EnableRedis:  false,
		OverdueAfter: 72 * time.Hour,
		SweepLimit:   100,
	}
}

// RedisWorkflowOptions returns options for workflow testing with Redis enabled.
// Note: You must provide both RepositoryProvider and CacheProvider to avoid import cycles.
// Example:
//
//	opts := RedisWorkflowOptions()
//	opts.RepositoryProvider = myRepositoryProvider
//	opts.CacheProvider = myCacheProvider
func RedisWorkflowOptions() WorkflowTestOptions {
	return WorkflowTestOptions{
		EnableRedis:  true,
		OverdueAfter: 72 * time.Hour,
		SweepLimit:   100,
	}
}
