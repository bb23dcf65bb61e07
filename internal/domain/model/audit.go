package model

import (
	"encoding/json"
	"time"
)

// AuditAction identifies what an audit entry records.
type AuditAction string

const (
	// AuditActionTransition records a committed status transition.
	AuditActionTransition AuditAction = "Transition"
	// AuditActionApprovalFlagged records an overdue-approval sweep flagging a job.
	AuditActionApprovalFlagged AuditAction = "ApprovalFlagged"
	// AuditActionMakeGoodCreated records the derivation of a make-good job.
	AuditActionMakeGoodCreated AuditAction = "MakeGoodCreated"
)

// AuditEntry is an immutable record of a state change or automation event.
// Entries are append-only; nothing in the system mutates or deletes them.
type AuditEntry struct {
	ID         string      `json:"id"                   db:"id"`
	ActorID    string      `json:"actor_id"             db:"actor_id"`
	EntityType string      `json:"entity_type"          db:"entity_type"`
	EntityID   string      `json:"entity_id"            db:"entity_id"`
	Action     AuditAction `json:"action"               db:"action"`
	// FromState/ToState are nil for non-transition events.
	FromState *string         `json:"from_state,omitempty" db:"from_state"`
	ToState   *string         `json:"to_state,omitempty"   db:"to_state"`
	Metadata  json.RawMessage `json:"metadata,omitempty"   db:"metadata"`
	CreatedAt time.Time       `json:"created_at"           db:"created_at"`
}

// Entity type labels used in audit entries.
const (
	EntityJob         = "job"
	EntityWorkOrder   = "work_order"
	EntityPayoutBatch = "payout_batch"
	EntityInvoice     = "invoice"
)

// NewTransitionAudit builds the audit entry that accompanies a job transition
// commit. The metadata blob carries edge context (reason, missed flag).
func NewTransitionAudit(actorID, entityType, entityID string, from, to string, metadata json.RawMessage) AuditEntry {
	return AuditEntry{
		ActorID:    actorID,
		EntityType: entityType,
		EntityID:   entityID,
		Action:     AuditActionTransition,
		FromState:  &from,
		ToState:    &to,
		Metadata:   metadata,
	}
}
