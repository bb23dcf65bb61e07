// Package notify defines notification payloads emitted by automation.
package notify

import (
	"context"
	"time"
)

// OverdueApprovalsPayload summarises one overdue-approval sweep run.
type OverdueApprovalsPayload struct {
	FlaggedJobIDs []string
	Errors        []string
	SweptAt       time.Time
}

// OverdueNotifier delivers overdue-approval summaries to an external channel.
// Delivery is best-effort; implementations log failures and return.
type OverdueNotifier interface {
	NotifyOverdueApprovals(ctx context.Context, payload OverdueApprovalsPayload)
}
