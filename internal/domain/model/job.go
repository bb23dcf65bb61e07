// Package model defines the core data types and structures used throughout the fieldwork operations portal.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// JobStatus represents the current lifecycle status of a job.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type JobStatus string

const (
	// JobStatusScheduled indicates a job is on the calendar and not yet worked.
	JobStatusScheduled JobStatus = "scheduled"
	// JobStatusPendingApproval indicates a worker submitted completion and an admin review is pending.
	JobStatusPendingApproval JobStatus = "completed_pending_approval"
	// JobStatusApprovedPayable indicates an admin approved the completion; the job is payable.
	JobStatusApprovedPayable JobStatus = "approved_payable"
	// JobStatusPaid indicates the job was included in a paid payout batch. Terminal.
	JobStatusPaid JobStatus = "paid"
	// JobStatusCancelled indicates the job was cancelled before payment. Terminal.
	JobStatusCancelled JobStatus = "cancelled"
)

// UnmarshalText implements encoding.TextUnmarshaler for JobStatus to allow env/form parsing.
func (s *JobStatus) UnmarshalText(text []byte) error {
	v := JobStatus(strings.ToLower(strings.TrimSpace(string(text))))
	if v.Valid() {
		*s = v
		return nil
	}
	return fmt.Errorf("invalid JobStatus: %q", string(text))
}

// Valid returns true if the JobStatus is one of the known lifecycle states.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusScheduled, JobStatusPendingApproval, JobStatusApprovedPayable,
		JobStatusPaid, JobStatusCancelled:
		return true
	}
	return false
}

// Terminal returns true if the status has no outgoing edges.
func (s JobStatus) Terminal() bool {
	return len(jobEdges[s]) == 0
}

// jobEdges is the exhaustive adjacency table of legal job transitions.
// It is the single source of truth: the state machine validator and any UI
// listing legal next actions both consult it. Anything absent is illegal.
var jobEdges = map[JobStatus][]JobStatus{
	JobStatusScheduled: {
		JobStatusPendingApproval, // worker submits completion
		JobStatusCancelled,       // cancelled or missed
	},
	JobStatusPendingApproval: {
		JobStatusApprovedPayable, // admin approves
		JobStatusScheduled,       // admin rejects, job reverts
		JobStatusCancelled,       // admin cancels after submission
	},
	JobStatusApprovedPayable: {
		JobStatusPaid, // included in a paid payout batch
	},
	JobStatusPaid:      nil,
	JobStatusCancelled: nil,
}

// CanTransition reports whether the edge from -> to exists in the transition table.
func CanTransition(from, to JobStatus) bool {
	for _, next := range jobEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses returns the legal target statuses from the given status.
// The returned slice is a copy and safe to mutate.
func NextStatuses(from JobStatus) []JobStatus {
	edges := jobEdges[from]
	if len(edges) == 0 {
		return nil
	}
	out := make([]JobStatus, len(edges))
	copy(out, edges)
	return out
}

// Job represents a single scheduled unit of cleaning/maintenance work at a site.
type Job struct {
	ID                string     `json:"id"                            db:"id"`
	WorkOrderID       string     `json:"work_order_id"                 db:"work_order_id"`
	SiteID            string     `json:"site_id"                       db:"site_id"`
	AssignedWorkerID  *string    `json:"assigned_worker_id,omitempty"  db:"assigned_worker_id"`
	Status            JobStatus  `json:"status"                        db:"status"`
	ScheduledStart    time.Time  `json:"scheduled_start"               db:"scheduled_start"`
	IsMissed          bool       `json:"is_missed"                     db:"is_missed"`
	MissedReason      *string    `json:"missed_reason,omitempty"       db:"missed_reason"`
	ApprovalFlaggedAt *time.Time `json:"approval_flagged_at,omitempty" db:"approval_flagged_at"`
	CancelledBy       *string    `json:"cancelled_by,omitempty"        db:"cancelled_by"`
	// OriginJobID links a make-good job back to the cancelled job it compensates.
	OriginJobID *string         `json:"origin_job_id,omitempty" db:"origin_job_id"`
	Metadata    json.RawMessage `json:"metadata,omitempty"      db:"metadata"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"  db:"completed_at"`
	PaidAt      *time.Time      `json:"paid_at,omitempty"       db:"paid_at"`
	CreatedAt   time.Time       `json:"created_at"              db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"              db:"updated_at"`
}

// CreateJobRequest represents a request to schedule a new job.
type CreateJobRequest struct {
	WorkOrderID      string          `json:"work_order_id"`
	SiteID           string          `json:"site_id"`
	AssignedWorkerID *string         `json:"assigned_worker_id,omitempty"`
	ScheduledStart   time.Time       `json:"scheduled_start"`
	OriginJobID      *string         `json:"origin_job_id,omitempty"`
	Metadata         json.RawMessage `json:"metadata,omitempty"`
}

// Validate validates the CreateJobRequest fields.
func (r *CreateJobRequest) Validate() error {
	if r.WorkOrderID == "" {
		return errors.New("work order id is required")
	}
	if r.SiteID == "" {
		return errors.New("site id is required")
	}
	if r.ScheduledStart.IsZero() {
		return errors.New("scheduled start is required")
	}
	return nil
}

// TransitionRequest carries the caller-supplied context for a status transition.
type TransitionRequest struct {
	Target JobStatus `json:"target"`
	// Reason is recorded in the audit entry; required for CANCELLED targets.
	Reason string `json:"reason,omitempty"`
	// IsMissed may only be true together with a CANCELLED target; it marks the
	// cancellation as a missed visit and triggers make-good creation.
	IsMissed bool `json:"is_missed,omitempty"`
}

// Validate validates the TransitionRequest fields.
func (r *TransitionRequest) Validate() error {
	if !r.Target.Valid() {
		return fmt.Errorf("invalid target status: %q", r.Target)
	}
	if r.IsMissed && r.Target != JobStatusCancelled {
		return errors.New("is_missed may only be set on a cancellation")
	}
	if r.Target == JobStatusCancelled && strings.TrimSpace(r.Reason) == "" {
		return errors.New("cancellation reason is required")
	}
	return nil
}
