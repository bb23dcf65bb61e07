package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/tidyops/fieldwork/config"
	"github.com/tidyops/fieldwork/internal/core"
	"github.com/tidyops/fieldwork/internal/data"
	"github.com/tidyops/fieldwork/internal/observability/notify"
	"github.com/tidyops/fieldwork/internal/observability/notify/slack"
	"github.com/tidyops/fieldwork/internal/observability/statsd"
	"github.com/tidyops/fieldwork/internal/service"
)

// ServiceDeps holds shared infrastructure handed to the service container.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// Services is the wired application container.
type Services struct {
	Jobs       *service.JobService
	WorkOrders *service.WorkOrderService
	Payouts    *service.PayoutService
	Invoices   *service.InvoiceService
	Automation *service.AutomationService
	Gate       *service.CompletionGate

	Audit core.AuditRepository
	Leads core.LeadRepository
	Cache core.CacheRepository

	Metrics  statsd.Sink
	Notifier notify.OverdueNotifier
}

// NewServices wires repositories and services from shared infrastructure.
func NewServices(deps *ServiceDeps) (*Services, error) {
	if deps == nil || deps.Config == nil || deps.DB == nil {
		return nil, fmt.Errorf("config and database are required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	metricsSink, err := buildMetrics(cfg.Observability.Metrics, logger)
	if err != nil {
		return nil, fmt.Errorf("build metrics sink: %w", err)
	}

	notifier, err := buildNotifier(cfg.Observability.Notifications, logger)
	if err != nil {
		return nil, fmt.Errorf("build notifier: %w", err)
	}

	cache := buildCache(deps.RedisClient)

	repoCfg := data.RepoConfig{Logger: logger}
	jobRepo := data.NewJobRepo(deps.DB, repoCfg)
	completionRepo := data.NewCompletionRepo(deps.DB, repoCfg)
	workOrderRepo := data.NewWorkOrderRepo(deps.DB, repoCfg)
	payoutRepo := data.NewPayoutRepo(deps.DB, repoCfg)
	invoiceRepo := data.NewInvoiceRepo(deps.DB, repoCfg)
	siteRepo := data.NewSiteRepo(deps.DB)
	leadRepo := data.NewLeadRepo(deps.DB, repoCfg)
	auditRepo := data.NewAuditRepo(deps.DB, repoCfg)
	assignmentRepo := data.NewAssignmentRepo(deps.DB)

	gate, err := service.NewCompletionGate(service.CompletionGateOptions{
		Completions: completionRepo,
	})
	if err != nil {
		return nil, fmt.Errorf("build completion gate: %w", err)
	}

	workOrders, err := service.NewWorkOrderService(service.WorkOrderServiceOptions{
		Repo:   workOrderRepo,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build work order service: %w", err)
	}

	automation, err := service.NewAutomationService(service.AutomationServiceOptions{
		Jobs:     jobRepo,
		Sites:    siteRepo,
		Config:   cfg.Automation,
		Cache:    cache,
		Notifier: notifier,
		Logger:   logger,
		Metrics:  metricsSink,
	})
	if err != nil {
		return nil, fmt.Errorf("build automation service: %w", err)
	}

	jobs, err := service.NewJobService(service.JobServiceOptions{
		Jobs:        jobRepo,
		Completions: completionRepo,
		Gate:        gate,
		Assignments: assignmentRepo,
		WorkOrders:  workOrders,
		Automation:  automation,
		Cache:       cache,
		Logger:      logger,
		Metrics:     metricsSink,
	})
	if err != nil {
		return nil, fmt.Errorf("build job service: %w", err)
	}

	payouts, err := service.NewPayoutService(service.PayoutServiceOptions{
		Repo:    payoutRepo,
		Jobs:    jobRepo,
		Logger:  logger,
		Metrics: metricsSink,
	})
	if err != nil {
		return nil, fmt.Errorf("build payout service: %w", err)
	}

	invoices, err := service.NewInvoiceService(service.InvoiceServiceOptions{
		Repo:   invoiceRepo,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build invoice service: %w", err)
	}

	return &Services{
		Jobs:       jobs,
		WorkOrders: workOrders,
		Payouts:    payouts,
		Invoices:   invoices,
		Automation: automation,
		Gate:       gate,
		Audit:      auditRepo,
		Leads:      leadRepo,
		Cache:      cache,
		Metrics:    metricsSink,
		Notifier:   notifier,
	}, nil
}

//nolint:ireturn // cache backend is picked at runtime based on available infrastructure.
func buildCache(client redis.UniversalClient) core.CacheRepository {
	if client != nil {
		return data.NewRedisCacheRepo(client)
	}
	return data.NewMemoryCacheRepo(&data.RealTimeProvider{})
}

//nolint:ireturn // a disabled sink and a live client share the Sink interface.
func buildMetrics(cfg config.ObservabilityMetricsConfig, logger *slog.Logger) (statsd.Sink, error) {
	client, err := statsd.NewClient(statsd.Config{
		Enabled: cfg.IsEnabled(),
		Address: cfg.StatsdAddress,
		Prefix:  "fieldwork",
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

// buildNotifier assembles the overdue-approval fan-out from enabled channels.
// Returns nil when no channel is configured.
//
//nolint:ireturn // channel selection happens at runtime.
func buildNotifier(cfg config.ObservabilityNotificationsConfig, logger *slog.Logger) (notify.OverdueNotifier, error) {
	var channels []notify.OverdueNotifier

	if cfg.Slack.Enabled {
		client, err := slack.NewClient(slack.Config{
			WebhookURL: cfg.Slack.WebhookURL,
			Channel:    cfg.Slack.Channel,
			Username:   cfg.Slack.Username,
			Timeout:    cfg.Timeout,
			Logger:     logger,
		})
		if err != nil {
			return nil, fmt.Errorf("build slack notifier: %w", err)
		}
		channels = append(channels, client)
	}

	if cfg.Webhook.Enabled {
		sink, err := service.NewWebhookSinkService(service.WebhookSinkServiceOptions{
			Sink: service.WebhookSink{
				URL:    cfg.Webhook.URL,
				Method: cfg.Webhook.Method,
				Fields: cfg.Webhook.Fields,
			},
			Logger: logger,
		})
		if err != nil {
			return nil, fmt.Errorf("build webhook sink: %w", err)
		}
		channels = append(channels, sink)
	}

	switch len(channels) {
	case 0:
		return nil, nil
	case 1:
		return channels[0], nil
	default:
		return multiNotifier(channels), nil
	}
}

// multiNotifier fans one sweep summary out to every configured channel.
type multiNotifier []notify.OverdueNotifier

func (m multiNotifier) NotifyOverdueApprovals(ctx context.Context, payload notify.OverdueApprovalsPayload) {
	for _, n := range m {
		n.NotifyOverdueApprovals(ctx, payload)
	}
}
