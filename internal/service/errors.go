package service

import (
	"errors"
	"fmt"

	"github.com/tidyops/fieldwork/internal/domain/model"
)

// Error taxonomy for state machine operations. Each kind is user-surfaceable
// and distinct: callers can tell "not allowed" from "not ready yet" from
// "already happened" with errors.Is.
var (
	// ErrIllegalTransition means the requested edge is absent from the
	// transition table. A client/logic error; never retried automatically.
	ErrIllegalTransition = errors.New("illegal transition")
	// ErrUnauthorized means the actor's role lacks permission for the edge.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrPreconditionFailed means the completion/evidence gate rejected the
	// transition; the message names the missing requirement.
	ErrPreconditionFailed = errors.New("precondition failed")
	// ErrNotFound means the referenced job/batch/invoice is absent.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a concurrent transition raced and won, or the target
	// is already in a terminal processed state. Callers should refresh and
	// re-evaluate, not blindly retry.
	ErrConflict = errors.New("already processed")
)

// TransitionError describes a rejected job transition with a human-readable
// reason. It unwraps to one of the taxonomy sentinels above.
type TransitionError struct {
	Kind   error
	From   model.JobStatus
	To     model.JobStatus
	Reason string
}

func (e *TransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s -> %s: %s: %s", e.From, e.To, e.Kind, e.Reason)
	}
	return fmt.Sprintf("%s -> %s: %s", e.From, e.To, e.Kind)
}

// Unwrap exposes the taxonomy sentinel for errors.Is checks.
func (e *TransitionError) Unwrap() error { return e.Kind }

func illegalTransition(from, to model.JobStatus) error {
	reason := "no such edge in the transition table"
	if from.Terminal() {
		reason = fmt.Sprintf("%s is terminal", from)
	}
	return &TransitionError{Kind: ErrIllegalTransition, From: from, To: to, Reason: reason}
}

func unauthorizedTransition(from, to model.JobStatus, reason string) error {
	return &TransitionError{Kind: ErrUnauthorized, From: from, To: to, Reason: reason}
}

func preconditionFailed(from, to model.JobStatus, reason string) error {
	return &TransitionError{Kind: ErrPreconditionFailed, From: from, To: to, Reason: reason}
}
