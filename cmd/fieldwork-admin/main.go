// fieldwork-admin is an operator CLI for one-off maintenance tasks: running
// migrations, forcing a sweep pass, creating make-good jobs, and inspecting
// audit trails.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/tidyops/fieldwork/config"
	"github.com/tidyops/fieldwork/internal/bootstrap"
	"github.com/tidyops/fieldwork/internal/devseed"
	"github.com/tidyops/fieldwork/internal/domain/auth"
	"github.com/tidyops/fieldwork/internal/domain/model"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
}

const defaultMigrationTimeout = 5 * time.Minute

func main() {
	logger := bootstrap.InitLogger()

	if len(os.Args) < 2 {
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"migrate": {
			name:        "migrate",
			description: "Run database migrations",
			run:         runMigrateCommand,
		},
		"db-seed": {
			name:        "db-seed",
			description: "Run migrations and seed development data",
			run:         runDBSeed,
		},
		"sweep-overdue": {
			name:        "sweep-overdue",
			description: "Run one overdue-approval sweep pass and print the result",
			run:         runSweepOverdue,
		},
		"make-good": {
			name:        "make-good",
			description: "Create the compensating job for a cancelled, missed job",
			run:         runMakeGood,
		},
		"audit-trail": {
			name:        "audit-trail",
			description: "Print the audit trail for an entity",
			run:         runAuditTrail,
		},
		"payable": {
			name:        "payable",
			description: "List approved-payable jobs a payout batch would cover",
			run:         runPayable,
		},
		"leads": {
			name:        "leads",
			description: "Print recent contact-form leads",
			run:         runLeads,
		},
	}
}

func printUsage() error {
	if err := writef(os.Stdout, "Usage: fieldwork-admin <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(os.Stdout, "Available commands:\n"); err != nil {
		return err
	}
	for _, cmd := range commands() {
		if err := writef(os.Stdout, "  %-16s %s\n", cmd.name, cmd.description); err != nil {
			return err
		}
	}
	return nil
}

func runMigrateCommand(ctx *commandContext, _ []string) error {
	db, _, err := connectInfra(ctx.Logger, &ctx.Config, false)
	if err != nil {
		return err
	}
	defer closeQuietly(ctx.Logger, db, nil)

	migrateCtx, cancel := context.WithTimeout(ctx.Ctx, defaultMigrationTimeout)
	defer cancel()
	return bootstrap.RunMigrations(migrateCtx, db, ctx.Logger)
}

func runDBSeed(ctx *commandContext, _ []string) error {
	if !ctx.Config.IsDev {
		return fmt.Errorf("db-seed only runs in development mode (set DEV=true)")
	}

	db, _, err := connectInfra(ctx.Logger, &ctx.Config, false)
	if err != nil {
		return err
	}
	defer closeQuietly(ctx.Logger, db, nil)

	migrateCtx, cancel := context.WithTimeout(ctx.Ctx, defaultMigrationTimeout)
	defer cancel()
	if err := bootstrap.RunMigrations(migrateCtx, db, ctx.Logger); err != nil {
		return err
	}
	return devseed.Run(ctx.Ctx, db, ctx.Logger)
}

func runSweepOverdue(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("sweep-overdue", flag.ContinueOnError)
	limit := fs.Int("limit", 0, "override the sweep limit for this pass")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := ctx.Config
	if *limit > 0 {
		cfg.Automation.SweepLimit = *limit
		cfg.Automation.Sanitize()
	}

	services, cleanup, err := wireServices(ctx, &cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := services.Automation.FlagOverdueApprovals(ctx.Ctx, auth.System().UserID)
	if err != nil {
		return fmt.Errorf("sweep overdue approvals: %w", err)
	}

	if err := writef(os.Stdout, "flagged %d job(s)\n", len(result.Flagged)); err != nil {
		return err
	}
	for _, id := range result.Flagged {
		if err := writef(os.Stdout, "  %s\n", id); err != nil {
			return err
		}
	}
	for _, msg := range result.Errors {
		if err := writef(os.Stderr, "error: %s\n", msg); err != nil {
			return err
		}
	}
	return nil
}

func runMakeGood(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("make-good", flag.ContinueOnError)
	jobID := fs.String("job", "", "cancelled job ID to compensate")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*jobID) == "" {
		return fmt.Errorf("-job is required")
	}

	services, cleanup, err := wireServices(ctx, &ctx.Config)
	if err != nil {
		return err
	}
	defer cleanup()

	makeGood, err := services.Automation.CreateMakeGoodJobIfNeeded(ctx.Ctx, auth.System(), *jobID)
	if err != nil {
		return fmt.Errorf("create make-good for %s: %w", *jobID, err)
	}
	if makeGood == nil {
		return writef(os.Stdout, "no make-good created for %s\n", *jobID)
	}
	return writef(os.Stdout, "make-good %s scheduled for %s\n",
		makeGood.ID, makeGood.ScheduledStart.Format(time.RFC3339))
}

func runAuditTrail(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("audit-trail", flag.ContinueOnError)
	entityType := fs.String("type", model.EntityJob, "entity type (job, work_order, payout_batch, invoice)")
	entityID := fs.String("id", "", "entity ID")
	limit := fs.Int("limit", 50, "maximum number of entries to print")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*entityID) == "" {
		return fmt.Errorf("-id is required")
	}

	services, cleanup, err := wireServices(ctx, &ctx.Config)
	if err != nil {
		return err
	}
	defer cleanup()

	entries, err := services.Audit.ListByEntity(ctx.Ctx, *entityType, *entityID, *limit)
	if err != nil {
		return fmt.Errorf("list audit trail: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "WHEN\tACTOR\tACTION\tFROM\tTO"); err != nil {
		return err
	}
	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			e.CreatedAt.Format(time.RFC3339), e.ActorID, e.Action,
			stateLabel(e.FromState), stateLabel(e.ToState)); err != nil {
			return err
		}
	}
	return w.Flush()
}

func runPayable(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("payable", flag.ContinueOnError)
	vendorID := fs.String("vendor", "", "vendor ID to preview a batch for")
	from := fs.String("from", "", "period start (RFC3339 or YYYY-MM-DD, inclusive)")
	to := fs.String("to", "", "period end (RFC3339 or YYYY-MM-DD, exclusive)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*vendorID) == "" {
		return fmt.Errorf("-vendor is required")
	}

	periodStart, err := parseTimeFlag("from", *from)
	if err != nil {
		return err
	}
	periodEnd, err := parseTimeFlag("to", *to)
	if err != nil {
		return err
	}

	services, cleanup, err := wireServices(ctx, &ctx.Config)
	if err != nil {
		return err
	}
	defer cleanup()

	jobs, err := services.Payouts.ListPayable(ctx.Ctx, auth.System(), model.CreatePayoutBatchRequest{
		VendorID:    *vendorID,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
	})
	if err != nil {
		return fmt.Errorf("list payable jobs: %w", err)
	}
	if len(jobs) == 0 {
		return writef(os.Stdout, "no approved-payable jobs for %s in [%s, %s)\n",
			*vendorID, periodStart.Format(time.RFC3339), periodEnd.Format(time.RFC3339))
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "JOB\tWORK ORDER\tSITE\tCOMPLETED"); err != nil {
		return err
	}
	for _, j := range jobs {
		completed := "-"
		if j.CompletedAt != nil {
			completed = j.CompletedAt.Format(time.RFC3339)
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			j.ID, j.WorkOrderID, j.SiteID, completed); err != nil {
			return err
		}
	}
	return w.Flush()
}

func runLeads(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("leads", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "maximum number of leads to print")
	offset := fs.Int("offset", 0, "number of leads to skip")
	if err := fs.Parse(args); err != nil {
		return err
	}

	services, cleanup, err := wireServices(ctx, &ctx.Config)
	if err != nil {
		return err
	}
	defer cleanup()

	leads, err := services.Leads.List(ctx.Ctx, *limit, *offset)
	if err != nil {
		return fmt.Errorf("list leads: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "WHEN\tNAME\tEMAIL\tCOMPANY"); err != nil {
		return err
	}
	for _, l := range leads {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			l.CreatedAt.Format(time.RFC3339), l.Name, l.Email, l.Company); err != nil {
			return err
		}
	}
	return w.Flush()
}

func parseTimeFlag(name, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("-%s is required", name)
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("-%s: %q is not an RFC3339 timestamp or YYYY-MM-DD date", name, value)
	}
	return t, nil
}

func stateLabel(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}
