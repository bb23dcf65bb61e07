package data

import "errors"

// Shared sentinel errors for data-layer repositories.
var (
	// ErrJobNotFound is returned when a job is not found.
	ErrJobNotFound = errors.New("job not found")
	// ErrStaleStatus is returned when a compare-and-set update finds the row
	// in a different status than expected (a concurrent transition won).
	ErrStaleStatus = errors.New("status changed concurrently")
	// ErrDuplicateMakeGood is returned when a make-good job already exists for
	// the origin job.
	ErrDuplicateMakeGood = errors.New("make-good job already exists for origin")

	// Completion repository sentinels.
	ErrCompletionNotFound = errors.New("completion not found")

	// Work order repository sentinels.
	ErrWorkOrderNotFound = errors.New("work order not found")

	// Payout repository sentinels.
	ErrBatchNotFound    = errors.New("payout batch not found")
	ErrBatchAlreadyPaid = errors.New("payout batch already paid")
	ErrNoPayableJobs    = errors.New("no approved-payable jobs in period")

	// Invoice repository sentinels.
	ErrInvoiceNotFound = errors.New("invoice not found")
	ErrInvoiceNotDraft = errors.New("invoice is no longer a draft")

	// Site repository sentinels.
	ErrSiteNotFound = errors.New("site not found")
)
