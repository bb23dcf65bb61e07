package model

import (
	"errors"
	"time"
)

// PayoutBatchStatus is the lifecycle status of a payout batch.
type PayoutBatchStatus string

const (
	// PayoutBatchOpen is the initial status: jobs are referenced, payment pending.
	PayoutBatchOpen PayoutBatchStatus = "open"
	// PayoutBatchPaid is terminal: the batch was paid out and is immutable.
	PayoutBatchPaid PayoutBatchStatus = "paid"
)

// PayoutBatch groups approved-payable jobs for a vendor/worker over a period.
// Once paid it accepts no further job additions and cannot be un-paid.
type PayoutBatch struct {
	ID          string            `json:"id"            db:"id"`
	VendorID    string            `json:"vendor_id"     db:"vendor_id"`
	PeriodStart time.Time         `json:"period_start"  db:"period_start"`
	PeriodEnd   time.Time         `json:"period_end"    db:"period_end"`
	Status      PayoutBatchStatus `json:"status"        db:"status"`
	JobIDs      []string          `json:"job_ids"       db:"-"`
	PaidAt      *time.Time        `json:"paid_at,omitempty" db:"paid_at"`
	CreatedAt   time.Time         `json:"created_at"    db:"created_at"`
}

// CreatePayoutBatchRequest scopes a batch aggregation query.
type CreatePayoutBatchRequest struct {
	VendorID    string    `json:"vendor_id"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
}

// Validate validates the CreatePayoutBatchRequest fields.
func (r *CreatePayoutBatchRequest) Validate() error {
	if r.VendorID == "" {
		return errors.New("vendor id is required")
	}
	if r.PeriodStart.IsZero() || r.PeriodEnd.IsZero() {
		return errors.New("period start and end are required")
	}
	if !r.PeriodEnd.After(r.PeriodStart) {
		return errors.New("period end must be after period start")
	}
	return nil
}
