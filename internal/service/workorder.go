package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tidyops/fieldwork/internal/core"
	"github.com/tidyops/fieldwork/internal/data"
	"github.com/tidyops/fieldwork/internal/domain/model"
)

// WorkOrderServiceOptions groups dependencies for WorkOrderService.
type WorkOrderServiceOptions struct {
	Repo   core.WorkOrderRepository // Required: work order repository
	Logger *slog.Logger             // Optional: structured logger
}

// WorkOrderService maintains the derived status of work orders. The status is
// a pure function of member job statuses; this service only recomputes and
// persists it, it never accepts a status from a caller.
type WorkOrderService struct {
	repo   core.WorkOrderRepository
	logger *slog.Logger
}

// NewWorkOrderService constructs a new WorkOrderService.
func NewWorkOrderService(opts WorkOrderServiceOptions) (*WorkOrderService, error) {
	if opts.Repo == nil {
		return nil, errors.New("WorkOrderRepository is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "work_order_service")
	}
	return &WorkOrderService{repo: opts.Repo, logger: logger}, nil
}

// Create opens a new work order for a client engagement.
func (s *WorkOrderService) Create(ctx context.Context, wo *model.WorkOrder) (*model.WorkOrder, error) {
	created, err := s.repo.Create(ctx, wo)
	if err != nil {
		return nil, fmt.Errorf("create work order: %w", err)
	}
	return created, nil
}

// GetByID returns a work order by its ID.
func (s *WorkOrderService) GetByID(ctx context.Context, id string) (*model.WorkOrder, error) {
	wo, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, data.ErrWorkOrderNotFound) {
		return nil, fmt.Errorf("work order %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get work order %s: %w", id, err)
	}
	return wo, nil
}

// Recompute derives the work order status from its member jobs and persists
// it when changed. It returns the derived status and whether a write happened.
func (s *WorkOrderService) Recompute(ctx context.Context, workOrderID string) (model.WorkOrderStatus, bool, error) {
	statuses, err := s.repo.MemberStatuses(ctx, workOrderID)
	if err != nil {
		return "", false, fmt.Errorf("load member statuses: %w", err)
	}

	derived := model.DeriveWorkOrderStatus(statuses)
	changed, err := s.repo.UpdateStatus(ctx, workOrderID, derived)
	if err != nil {
		return derived, false, fmt.Errorf("persist derived status: %w", err)
	}

	if changed && s.logger != nil {
		s.logger.InfoContext(ctx, "work order status recomputed",
			"work_order_id", workOrderID, "status", derived)
	}
	return derived, changed, nil
}
