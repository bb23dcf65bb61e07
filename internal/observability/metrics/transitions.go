// Package metrics provides standardised metric emission for lifecycle events.
package metrics

import (
	"time"

	"github.com/tidyops/fieldwork/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess  = "success"
	ResultError    = "error"
	ResultIllegal  = "illegal"
	ResultDenied   = "denied"
	ResultRejected = "rejected"
)

// TransitionMetric captures details about a state transition for metric emission.
type TransitionMetric struct {
	Entity   string
	From     string
	To       string
	Result   string
	Duration time.Duration
}

// EmitTransition emits standardised transition metrics.
func EmitTransition(sink statsd.Sink, in TransitionMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"entity": in.Entity,
		"from":   in.From,
		"to":     in.To,
		"result": in.Result,
	}

	sink.Count("transition", 1, tags)
	if in.Duration > 0 {
		sink.Timing("transition.duration", in.Duration, tags)
	}
}

// SweepMetric captures the outcome of one automation sweep run.
type SweepMetric struct {
	Sweep    string
	Flagged  int
	Errors   int
	Duration time.Duration
}

// EmitSweep emits standardised automation sweep metrics.
func EmitSweep(sink statsd.Sink, in SweepMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{"sweep": in.Sweep}
	sink.Count("sweep.flagged", int64(in.Flagged), tags)
	sink.Count("sweep.errors", int64(in.Errors), tags)
	if in.Duration > 0 {
		sink.Timing("sweep.duration", in.Duration, tags)
	}
}
