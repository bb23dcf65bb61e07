package model

import (
	"errors"
	"fmt"
	"time"
)

// InvoiceStatus is the lifecycle status of a client invoice.
type InvoiceStatus string

const (
	// InvoiceDraft is the initial status; jobs may still be attached.
	InvoiceDraft InvoiceStatus = "draft"
	// InvoiceSent locks the job list and awaits payment.
	InvoiceSent InvoiceStatus = "sent"
	// InvoicePaid is terminal.
	InvoicePaid InvoiceStatus = "paid"
	// InvoiceVoid is terminal; the invoice was abandoned.
	InvoiceVoid InvoiceStatus = "void"
)

// invoiceEdges is the forward-only invoice transition table.
// No edge returns from Sent/Paid/Void to Draft.
var invoiceEdges = map[InvoiceStatus][]InvoiceStatus{
	InvoiceDraft: {InvoiceSent, InvoiceVoid},
	InvoiceSent:  {InvoicePaid, InvoiceVoid},
	InvoicePaid:  nil,
	InvoiceVoid:  nil,
}

// CanTransitionInvoice reports whether the invoice edge from -> to is legal.
func CanTransitionInvoice(from, to InvoiceStatus) bool {
	for _, next := range invoiceEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Invoice groups jobs billed to a client organization for a period.
type Invoice struct {
	ID          string        `json:"id"            db:"id"`
	ClientID    string        `json:"client_id"     db:"client_id"`
	PeriodStart time.Time     `json:"period_start"  db:"period_start"`
	PeriodEnd   time.Time     `json:"period_end"    db:"period_end"`
	Status      InvoiceStatus `json:"status"        db:"status"`
	JobIDs      []string      `json:"job_ids"       db:"-"`
	SentAt      *time.Time    `json:"sent_at,omitempty"  db:"sent_at"`
	PaidAt      *time.Time    `json:"paid_at,omitempty"  db:"paid_at"`
	VoidedAt    *time.Time    `json:"voided_at,omitempty" db:"voided_at"`
	CreatedAt   time.Time     `json:"created_at"    db:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"    db:"updated_at"`
}

// CreateInvoiceRequest scopes a draft invoice to a client and period.
type CreateInvoiceRequest struct {
	ClientID    string    `json:"client_id"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
}

// Validate validates the CreateInvoiceRequest fields.
func (r *CreateInvoiceRequest) Validate() error {
	if r.ClientID == "" {
		return errors.New("client id is required")
	}
	if r.PeriodStart.IsZero() || r.PeriodEnd.IsZero() {
		return errors.New("period start and end are required")
	}
	if !r.PeriodEnd.After(r.PeriodStart) {
		return fmt.Errorf("period end %s must be after period start %s",
			r.PeriodEnd.Format(time.RFC3339), r.PeriodStart.Format(time.RFC3339))
	}
	return nil
}
