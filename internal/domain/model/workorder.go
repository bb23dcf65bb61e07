package model

import "time"

// WorkOrderStatus is the coarse derived status of an umbrella work order.
// It is never set independently; it is a pure function of member job statuses.
type WorkOrderStatus string

const (
	// WorkOrderInProgress indicates at least one member job is still open.
	WorkOrderInProgress WorkOrderStatus = "in_progress"
	// WorkOrderComplete indicates all member jobs reached PAID (or a PAID/CANCELLED
	// mix with at least one PAID).
	WorkOrderComplete WorkOrderStatus = "complete"
	// WorkOrderCancelled indicates every member job was cancelled.
	WorkOrderCancelled WorkOrderStatus = "cancelled"
)

// WorkOrder groups one or more jobs under one client engagement.
type WorkOrder struct {
	ID        string          `json:"id"         db:"id"`
	ClientID  string          `json:"client_id"  db:"client_id"`
	SiteID    string          `json:"site_id"    db:"site_id"`
	Title     string          `json:"title"      db:"title"`
	Status    WorkOrderStatus `json:"status"     db:"status"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// DeriveWorkOrderStatus computes the work order status from member job statuses.
// Policy: any open job (SCHEDULED or COMPLETED_PENDING_APPROVAL, and by
// extension APPROVED_PAYABLE, which still awaits payment) keeps the order in
// progress; an all-terminal set resolves to Complete when at least one job
// was PAID, otherwise Cancelled. An empty membership is treated as in progress.
func DeriveWorkOrderStatus(statuses []JobStatus) WorkOrderStatus {
	if len(statuses) == 0 {
		return WorkOrderInProgress
	}

	anyPaid := false
	for _, s := range statuses {
		if !s.Terminal() {
			return WorkOrderInProgress
		}
		if s == JobStatusPaid {
			anyPaid = true
		}
	}

	if anyPaid {
		return WorkOrderComplete
	}
	return WorkOrderCancelled
}
