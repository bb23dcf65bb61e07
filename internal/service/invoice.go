package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tidyops/fieldwork/internal/core"
	"github.com/tidyops/fieldwork/internal/data"
	"github.com/tidyops/fieldwork/internal/domain/auth"
	"github.com/tidyops/fieldwork/internal/domain/model"
)

// InvoiceServiceOptions groups dependencies for InvoiceService.
type InvoiceServiceOptions struct {
	Repo   core.InvoiceRepository // Required: invoice repository
	Logger *slog.Logger           // Optional: structured logger
}

// InvoiceService assembles client invoices and drives their forward-only
// lifecycle: Draft -> Sent -> Paid, with Void reachable from Draft or Sent.
type InvoiceService struct {
	repo   core.InvoiceRepository
	logger *slog.Logger
}

// NewInvoiceService constructs a new InvoiceService.
func NewInvoiceService(opts InvoiceServiceOptions) (*InvoiceService, error) {
	if opts.Repo == nil {
		return nil, errors.New("InvoiceRepository is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "invoice_service")
	}
	return &InvoiceService{repo: opts.Repo, logger: logger}, nil
}

// CreateDraft opens a draft invoice scoped to a client and period. Admin only.
func (s *InvoiceService) CreateDraft(ctx context.Context, actor auth.Actor, req *model.CreateInvoiceRequest) (*model.Invoice, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("only administrators may create invoices: %w", ErrUnauthorized)
	}

	inv, err := s.repo.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}
	return inv, nil
}

// GetByID returns an invoice by its ID.
func (s *InvoiceService) GetByID(ctx context.Context, id string) (*model.Invoice, error) {
	inv, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, data.ErrInvoiceNotFound) {
		return nil, fmt.Errorf("invoice %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get invoice %s: %w", id, err)
	}
	return inv, nil
}

// AttachJob adds one job to a draft invoice. Jobs are attached individually,
// never in bulk; the job list locks when the invoice is sent.
func (s *InvoiceService) AttachJob(ctx context.Context, actor auth.Actor, invoiceID, jobID string) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("only administrators may edit invoices: %w", ErrUnauthorized)
	}

	err := s.repo.AttachJob(ctx, invoiceID, jobID)
	switch {
	case errors.Is(err, data.ErrInvoiceNotFound):
		return fmt.Errorf("invoice %s: %w", invoiceID, ErrNotFound)
	case errors.Is(err, data.ErrInvoiceNotDraft):
		return fmt.Errorf("invoice %s job list is locked: %w", invoiceID, ErrConflict)
	case err != nil:
		return fmt.Errorf("attach job to invoice: %w", err)
	}
	return nil
}

// Send transitions Draft -> Sent, locking the job list.
func (s *InvoiceService) Send(ctx context.Context, actor auth.Actor, invoiceID string) (*model.Invoice, error) {
	return s.transition(ctx, actor, invoiceID, model.InvoiceDraft, model.InvoiceSent)
}

// MarkPaid transitions Sent -> Paid. Terminal.
func (s *InvoiceService) MarkPaid(ctx context.Context, actor auth.Actor, invoiceID string) (*model.Invoice, error) {
	return s.transition(ctx, actor, invoiceID, model.InvoiceSent, model.InvoicePaid)
}

// Void abandons a Draft or Sent invoice.
func (s *InvoiceService) Void(ctx context.Context, actor auth.Actor, invoiceID string) (*model.Invoice, error) {
	inv, err := s.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, invoiceID, inv.Status, model.InvoiceVoid)
}

func (s *InvoiceService) transition(ctx context.Context, actor auth.Actor, invoiceID string, from, to model.InvoiceStatus) (*model.Invoice, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("only administrators may transition invoices: %w", ErrUnauthorized)
	}
	if !model.CanTransitionInvoice(from, to) {
		return nil, fmt.Errorf("invoice %s -> %s: %w", from, to, ErrIllegalTransition)
	}

	inv, err := s.repo.Transition(ctx, core.InvoiceTransitionParams{
		InvoiceID: invoiceID,
		From:      from,
		To:        to,
		ActorID:   actor.UserID,
	})
	switch {
	case errors.Is(err, data.ErrInvoiceNotFound):
		return nil, fmt.Errorf("invoice %s: %w", invoiceID, ErrNotFound)
	case errors.Is(err, data.ErrStaleStatus):
		return nil, fmt.Errorf("invoice %s changed concurrently: %w", invoiceID, ErrConflict)
	case err != nil:
		return nil, fmt.Errorf("transition invoice: %w", err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "invoice transitioned",
			"invoice_id", invoiceID, "from", from, "to", to)
	}
	return inv, nil
}
