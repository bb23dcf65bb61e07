package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/tidyops/fieldwork/internal/core"
	"github.com/tidyops/fieldwork/internal/data"
	"github.com/tidyops/fieldwork/internal/domain/model"
)

// CompletionGateOptions groups dependencies for CompletionGate.
type CompletionGateOptions struct {
	Completions core.CompletionRepository // Required: completion/evidence storage
}

// CompletionGate enforces the checklist and evidence requirements a job must
// satisfy before entering COMPLETED_PENDING_APPROVAL or APPROVED_PAYABLE.
// The state machine queries it synchronously before committing either edge.
type CompletionGate struct {
	completions core.CompletionRepository
}

// NewCompletionGate constructs a new CompletionGate.
func NewCompletionGate(opts CompletionGateOptions) (*CompletionGate, error) {
	if opts.Completions == nil {
		return nil, errors.New("CompletionRepository is required")
	}
	return &CompletionGate{completions: opts.Completions}, nil
}

// CheckSubmission validates the gate for entry into COMPLETED_PENDING_APPROVAL:
// a completion must exist and every piece of evidence must carry redaction.
// The returned error is nil when the gate passes; otherwise it is the
// human-readable missing requirement.
func (g *CompletionGate) CheckSubmission(ctx context.Context, jobID string) error {
	snap, err := g.snapshot(ctx, jobID)
	if err != nil {
		return err
	}

	for _, ev := range snap.Evidence {
		if !ev.RedactionApplied {
			return fmt.Errorf("evidence %s at %s has no redaction applied", ev.ID, ev.StoragePath)
		}
	}

	return checkRequiredEvidence(snap)
}

// CheckApproval validates the gate for entry into APPROVED_PAYABLE: the
// submitted checklist must be fully complete.
func (g *CompletionGate) CheckApproval(ctx context.Context, jobID string) error {
	snap, err := g.snapshot(ctx, jobID)
	if err != nil {
		return err
	}

	for _, item := range snap.Completion.Checklist {
		if !item.Done {
			return fmt.Errorf("checklist item %q is not complete", item.Item)
		}
	}
	return nil
}

func (g *CompletionGate) snapshot(ctx context.Context, jobID string) (*model.CompletionSnapshot, error) {
	snap, err := g.completions.SnapshotByJobID(ctx, jobID)
	if errors.Is(err, data.ErrCompletionNotFound) {
		return nil, errors.New("no completion submitted")
	}
	if err != nil {
		return nil, fmt.Errorf("load completion snapshot: %w", err)
	}
	if snap.Completion == nil {
		return nil, errors.New("no completion submitted")
	}
	return snap, nil
}

// checkRequiredEvidence verifies that every checklist item marked as requiring
// a photo has at least one piece of evidence associated with it.
func checkRequiredEvidence(snap *model.CompletionSnapshot) error {
	byItem := make(map[string]int, len(snap.Evidence))
	for _, ev := range snap.Evidence {
		byItem[ev.ChecklistItem]++
	}

	for _, item := range snap.Completion.Checklist {
		if item.RequiresPhoto && byItem[item.Item] == 0 {
			return fmt.Errorf("checklist item %q requires photo evidence", item.Item)
		}
	}
	return nil
}
