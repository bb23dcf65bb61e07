// Package sweeper provides adapters for running the overdue-approval sweep.
package sweeper

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tidyops/fieldwork/config"
	"github.com/tidyops/fieldwork/internal/core"
	"github.com/tidyops/fieldwork/internal/data"
	"github.com/tidyops/fieldwork/internal/domain/auth"
	"github.com/tidyops/fieldwork/internal/observability/notify"
	"github.com/tidyops/fieldwork/internal/observability/statsd"
	"github.com/tidyops/fieldwork/internal/service"
)

// Runner drives the periodic overdue-approval sweep.
// It constructs the automation service and runs the sweep loop.
type Runner struct {
	automation *service.AutomationService
	config     config.AutomationConfig
	logger     *slog.Logger
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	DB     *sql.DB
	Config config.AutomationConfig
	Logger *slog.Logger

	// Optional dependency injection for testing/decoupling
	Automation *service.AutomationService
	Cache      core.CacheRepository
	Notifier   notify.OverdueNotifier
	Metrics    statsd.Sink
}

// NewRunner creates a new sweep runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if err := validateRunnerOptions(&opts); err != nil {
		return nil, err
	}

	automation, err := wireAutomationService(opts)
	if err != nil {
		return nil, fmt.Errorf("wire automation service: %w", err)
	}

	return &Runner{
		automation: automation,
		config:     opts.Config,
		logger:     opts.Logger.With("component", "sweeper"),
	}, nil
}

func validateRunnerOptions(opts *RunnerOptions) error {
	if opts.Automation == nil && opts.DB == nil {
		return errors.New("database connection is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return nil
}

func wireAutomationService(opts RunnerOptions) (*service.AutomationService, error) {
	if opts.Automation != nil {
		return opts.Automation, nil
	}

	return service.NewAutomationService(service.AutomationServiceOptions{
		Jobs:     data.NewJobRepo(opts.DB, data.RepoConfig{Logger: opts.Logger}),
		Sites:    data.NewSiteRepo(opts.DB),
		Config:   opts.Config,
		Cache:    opts.Cache,
		Notifier: opts.Notifier,
		Logger:   opts.Logger,
		Metrics:  opts.Metrics,
	})
}

// Run starts the sweep loop and runs until the context is cancelled.
// The first pass runs after a startup jitter; subsequent passes tick at the
// configured interval.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting sweep runner",
		"interval", r.config.SweepInterval,
		"overdue_after", r.config.OverdueThreshold(),
	)

	r.waitWithJitter(ctx)

	ticker := time.NewTicker(r.config.SweepInterval)
	defer ticker.Stop()

	r.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "sweep runner stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Runner) sweep(ctx context.Context) {
	result, err := r.automation.FlagOverdueApprovals(ctx, auth.System().UserID)
	if err != nil {
		r.logger.ErrorContext(ctx, "overdue-approval sweep failed", "error", err)
		return
	}
	if len(result.Errors) > 0 {
		r.logger.WarnContext(ctx, "sweep finished with per-job failures",
			"flagged", len(result.Flagged), "errors", len(result.Errors))
	}
}

// waitWithJitter adds a random delay up to 10% of the interval to prevent
// thundering herd when multiple instances start together.
func (r *Runner) waitWithJitter(ctx context.Context) {
	maxJitter := int64(r.config.SweepInterval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// If crypto/rand fails, skip jitter rather than failing startup
		r.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		return
	}

	jitterNanos := binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter)
	jitter := time.Duration(int64(jitterNanos)) // #nosec G115 - bounded by maxJitter which is int64

	select {
	case <-time.After(jitter):
	case <-ctx.Done():
	}
}
