package config

import (
	"strings"
	"time"
)

const defaultObservabilityName = "fieldwork"

// ObservabilityConfig groups configuration that controls metrics and
// automation notification fan-out.
type ObservabilityConfig struct {
	Metrics       ObservabilityMetricsConfig
	Notifications ObservabilityNotificationsConfig
}

// Sanitize applies guardrails to observability sub-configs.
func (c *ObservabilityConfig) Sanitize() {
	c.Metrics.Sanitize()
	c.Notifications.Sanitize()
}

// ObservabilityMetricsConfig controls emission of metrics to external sinks such as StatsD.
type ObservabilityMetricsConfig struct {
	Enabled       bool   `env:"OBSERVABILITY_METRICS_ENABLED"        envDefault:"false"`
	StatsdAddress string `env:"OBSERVABILITY_METRICS_STATSD_ADDRESS" envDefault:"127.0.0.1:8125"`
}

// Sanitize normalises derived fields and enforces safe defaults.
func (c *ObservabilityMetricsConfig) Sanitize() {
	c.StatsdAddress = strings.TrimSpace(c.StatsdAddress)
	if c.StatsdAddress == "" {
		c.Enabled = false
	}
}

// IsEnabled returns true when metrics emission is active after sanitisation.
func (c *ObservabilityMetricsConfig) IsEnabled() bool {
	return c.Enabled && c.StatsdAddress != ""
}

// ObservabilityNotificationsConfig controls outbound overdue-approval notifications.
type ObservabilityNotificationsConfig struct {
	Enabled bool                    `env:"OBSERVABILITY_NOTIFICATIONS_ENABLED" envDefault:"false"`
	Timeout time.Duration           `env:"OBSERVABILITY_NOTIFICATIONS_TIMEOUT" envDefault:"5s"`
	Slack   SlackNotificationConfig `envPrefix:"OBSERVABILITY_NOTIFICATIONS_SLACK_"`
	Webhook WebhookSinkConfig       `envPrefix:"OBSERVABILITY_NOTIFICATIONS_WEBHOOK_"`
}

// Sanitize normalises notification configuration values.
func (c *ObservabilityNotificationsConfig) Sanitize() {
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}

	c.Slack.sanitize()
	c.Webhook.sanitize()

	if !c.Enabled {
		c.Slack.Enabled = false
		c.Webhook.Enabled = false
		return
	}

	if c.Slack.Enabled && c.Slack.WebhookURL == "" {
		c.Slack.Enabled = false
	}
	if c.Webhook.Enabled && c.Webhook.URL == "" {
		c.Webhook.Enabled = false
	}
}

// SlackNotificationConfig controls Slack webhook fan-out.
type SlackNotificationConfig struct {
	Enabled    bool   `env:"ENABLED"     envDefault:"false"`
	WebhookURL string `env:"WEBHOOK_URL"`
	Channel    string `env:"CHANNEL"`
	Username   string `env:"USERNAME"    envDefault:"fieldwork"`
}

func (c *SlackNotificationConfig) sanitize() {
	c.WebhookURL = strings.TrimSpace(c.WebhookURL)
	c.Channel = strings.TrimSpace(c.Channel)
	if c.Username == "" {
		c.Username = defaultObservabilityName
	}
}

// WebhookSinkConfig controls the generic JSON webhook sink. Fields maps
// outbound body keys to JMESPath expressions evaluated against the sweep
// summary, e.g. WEBHOOK_FIELDS="count:flagged_count,ids:flagged_job_ids".
type WebhookSinkConfig struct {
	Enabled bool              `env:"ENABLED" envDefault:"false"`
	URL     string            `env:"URL"`
	Method  string            `env:"METHOD"  envDefault:"POST"`
	Fields  map[string]string `env:"FIELDS"`
}

func (c *WebhookSinkConfig) sanitize() {
	c.URL = strings.TrimSpace(c.URL)
	if c.Method = strings.TrimSpace(strings.ToUpper(c.Method)); c.Method == "" {
		c.Method = "POST"
	}
}
