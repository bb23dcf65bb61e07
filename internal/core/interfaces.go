package core

import (
	"context"
	"encoding/json"
	"time"

	"github.com/tidyops/fieldwork/internal/domain/model"
)

// This file contains repository interface definitions (ports in hexagonal architecture).
// These interfaces define the contracts between the service layer and data layer.
// Service implementations depend on these interfaces, not concrete implementations.

// TransitionParams groups everything a repository needs to commit a job
// transition atomically: the compare-and-set pair, the actor for the audit
// entry, and the edge-specific field updates.
type TransitionParams struct {
	JobID   string
	From    model.JobStatus
	To      model.JobStatus
	ActorID string

	// Cancellation context; only consulted when To is CANCELLED.
	SetMissed    bool
	MissedReason string

	// AuditMetadata is stored verbatim on the audit entry.
	AuditMetadata json.RawMessage
}

// FlagApprovalParams groups parameters for JobRepository.FlagApproval.
type FlagApprovalParams struct {
	JobID   string
	ActorID string
}

// PayableJobsQuery scopes the approved-payable aggregation for payout batches.
type PayableJobsQuery struct {
	VendorID    string
	PeriodStart time.Time
	PeriodEnd   time.Time
}

// MakeGoodParams groups parameters for JobRepository.CreateMakeGood.
type MakeGoodParams struct {
	Request model.CreateJobRequest
	// OriginJobID keys the derivation; a second insert for the same origin
	// must fail with data.ErrDuplicateMakeGood.
	OriginJobID string
	ActorID     string
}

// JobRepository defines the interface for job data operations.
//
// Transition, FlagApproval and CreateMakeGood each commit their row change
// together with the accompanying audit entry in a single transaction.
type JobRepository interface {
	Create(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error)
	GetByID(ctx context.Context, id string) (*model.Job, error)
	// Transition applies a compare-and-set status update. It fails with
	// data.ErrJobNotFound when the job is absent and data.ErrStaleStatus when
	// the current status no longer matches params.From.
	Transition(ctx context.Context, params TransitionParams) (*model.Job, error)
	ListByWorkOrder(ctx context.Context, workOrderID string) ([]*model.Job, error)
	ListApprovedPayable(ctx context.Context, q PayableJobsQuery) ([]*model.Job, error)
	// ListOverdueApprovals returns jobs pending approval, not yet flagged,
	// whose scheduled start is before the cutoff.
	ListOverdueApprovals(ctx context.Context, cutoff time.Time, limit int) ([]*model.Job, error)
	// FlagApproval atomically sets approval_flagged_at and appends the
	// ApprovalFlagged audit entry. Returns false when the job was already
	// flagged or left the pending-approval status.
	FlagApproval(ctx context.Context, params FlagApprovalParams) (bool, error)
	// FindMakeGoodFor returns the make-good job derived from the given origin
	// job, or nil when none exists.
	FindMakeGoodFor(ctx context.Context, originJobID string) (*model.Job, error)
	CreateMakeGood(ctx context.Context, params MakeGoodParams) (*model.Job, error)
}

// CompletionRepository persists job completions and their evidence sets.
type CompletionRepository interface {
	Create(ctx context.Context, req *model.SubmitCompletionRequest) (*model.JobCompletion, error)
	// SnapshotByJobID returns the completion plus evidence for the gate to
	// inspect, or data.ErrCompletionNotFound when nothing was submitted.
	SnapshotByJobID(ctx context.Context, jobID string) (*model.CompletionSnapshot, error)
}

// WorkOrderRepository defines the interface for work order data operations.
type WorkOrderRepository interface {
	Create(ctx context.Context, wo *model.WorkOrder) (*model.WorkOrder, error)
	GetByID(ctx context.Context, id string) (*model.WorkOrder, error)
	// MemberStatuses returns the statuses of every job in the work order.
	MemberStatuses(ctx context.Context, id string) ([]model.JobStatus, error)
	// UpdateStatus persists a recomputed derived status. Returns true when the
	// stored status actually changed.
	UpdateStatus(ctx context.Context, id string, status model.WorkOrderStatus) (bool, error)
}

// AuditRepository appends immutable audit entries. There is deliberately no
// update or delete operation.
type AuditRepository interface {
	Append(ctx context.Context, entry model.AuditEntry) (*model.AuditEntry, error)
	ListByEntity(ctx context.Context, entityType, entityID string, limit int) ([]*model.AuditEntry, error)
}

// MarkBatchPaidParams groups parameters for PayoutRepository.MarkPaid.
type MarkBatchPaidParams struct {
	BatchID string
	ActorID string
}

// PayoutRepository defines the interface for payout batch data operations.
type PayoutRepository interface {
	// CreateBatch selects approved-payable jobs in scope and creates an open
	// batch referencing them, all in one transaction.
	CreateBatch(ctx context.Context, req model.CreatePayoutBatchRequest) (*model.PayoutBatch, error)
	GetByID(ctx context.Context, id string) (*model.PayoutBatch, error)
	// MarkPaid transitions the batch open -> paid and every referenced job
	// APPROVED_PAYABLE -> PAID, with audit entries, in a single transaction.
	// Any per-job failure aborts the whole operation. Fails with
	// data.ErrBatchAlreadyPaid when the batch is already terminal.
	MarkPaid(ctx context.Context, params MarkBatchPaidParams) (*model.PayoutBatch, error)
}

// InvoiceTransitionParams groups parameters for InvoiceRepository.Transition.
type InvoiceTransitionParams struct {
	InvoiceID string
	From      model.InvoiceStatus
	To        model.InvoiceStatus
	ActorID   string
}

// InvoiceRepository defines the interface for invoice data operations.
type InvoiceRepository interface {
	Create(ctx context.Context, req *model.CreateInvoiceRequest) (*model.Invoice, error)
	GetByID(ctx context.Context, id string) (*model.Invoice, error)
	// AttachJob adds one job to a draft invoice. Fails with
	// data.ErrInvoiceNotDraft once the invoice left Draft.
	AttachJob(ctx context.Context, invoiceID, jobID string) error
	// Transition applies a compare-and-set invoice status update with its
	// audit entry, failing with data.ErrStaleStatus on a lost race.
	Transition(ctx context.Context, params InvoiceTransitionParams) (*model.Invoice, error)
}

// SiteRepository defines the interface for site data operations.
type SiteRepository interface {
	GetByID(ctx context.Context, id string) (*model.Site, error)
}

// LeadRepository persists marketing contact-form submissions.
type LeadRepository interface {
	Create(ctx context.Context, lead *model.Lead) (*model.Lead, error)
	List(ctx context.Context, limit, offset int) ([]*model.Lead, error)
}

// CacheRepository is a pluggable key-value store for short-lived coordination
// state (automation dedup guards, cached next-action lookups). In-memory for
// single-process deployments, Redis for multi-instance ones.
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetIfAbsent stores the value only when the key does not exist yet,
	// returning true when this call won.
	SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) (bool, error)
}

// JobAssignmentChecker answers whether a worker may act on a job. Supplied by
// the identity/authorization collaborator outside the core.
type JobAssignmentChecker interface {
	CanAccessJob(ctx context.Context, workerID, jobID string) (bool, error)
}
