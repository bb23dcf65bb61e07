package config

import (
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
)

func TestAppConfigDefaults(t *testing.T) {
	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse defaults: %v", err)
	}
	cfg.Sanitize()

	if cfg.Postgres.Host != "localhost" {
		t.Errorf("Postgres.Host = %q, want localhost", cfg.Postgres.Host)
	}
	if cfg.Postgres.Port != 5432 {
		t.Errorf("Postgres.Port = %d, want 5432", cfg.Postgres.Port)
	}
	if !cfg.Postgres.RunMigrationsOnStart {
		t.Error("RunMigrationsOnStart should default to true")
	}
	if cfg.Redis.URI != "localhost:6379" {
		t.Errorf("Redis.URI = %q, want localhost:6379", cfg.Redis.URI)
	}
	if cfg.Automation.OverdueAfter != 72*time.Hour {
		t.Errorf("Automation.OverdueAfter = %v, want 72h", cfg.Automation.OverdueAfter)
	}
	if cfg.Automation.SweepInterval != 15*time.Minute {
		t.Errorf("Automation.SweepInterval = %v, want 15m", cfg.Automation.SweepInterval)
	}
	if !cfg.Automation.SweepEnabled {
		t.Error("Automation.SweepEnabled should default to true")
	}
	if cfg.Observability.Metrics.IsEnabled() {
		t.Error("metrics should be disabled by default")
	}
}

func TestAppConfigFromEnv(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_NAME", "fieldwork_test")
	t.Setenv("AUTOMATION_OVERDUE_AFTER", "48h")
	t.Setenv("AUTOMATION_SWEEP_LIMIT", "50")
	t.Setenv("OBSERVABILITY_METRICS_ENABLED", "true")
	t.Setenv("OBSERVABILITY_METRICS_STATSD_ADDRESS", "statsd:8125")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	cfg.Sanitize()

	if cfg.Postgres.Host != "db.internal" {
		t.Errorf("Postgres.Host = %q, want db.internal", cfg.Postgres.Host)
	}
	if cfg.Postgres.Name != "fieldwork_test" {
		t.Errorf("Postgres.Name = %q, want fieldwork_test", cfg.Postgres.Name)
	}
	if cfg.Automation.OverdueAfter != 48*time.Hour {
		t.Errorf("Automation.OverdueAfter = %v, want 48h", cfg.Automation.OverdueAfter)
	}
	if cfg.Automation.SweepLimit != 50 {
		t.Errorf("Automation.SweepLimit = %d, want 50", cfg.Automation.SweepLimit)
	}
	if !cfg.Observability.Metrics.IsEnabled() {
		t.Error("metrics should be enabled")
	}
}

func TestDetectDevMode(t *testing.T) {
	tests := []struct {
		name   string
		dev    bool
		appEnv string
		want   bool
	}{
		{name: "explicit dev flag", dev: true, appEnv: "", want: true},
		{name: "app env development", dev: false, appEnv: "development", want: true},
		{name: "app env dev", dev: false, appEnv: "dev", want: true},
		{name: "app env production", dev: false, appEnv: "production", want: false},
		{name: "nothing set", dev: false, appEnv: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("APP_ENV", tt.appEnv)
			cfg := AppConfig{IsDev: tt.dev}
			cfg.Sanitize()
			if cfg.IsDev != tt.want {
				t.Errorf("IsDev = %v, want %v", cfg.IsDev, tt.want)
			}
		})
	}
}

func TestAutomationConfigSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   AutomationConfig
		want AutomationConfig
	}{
		{
			name: "zero values get defaults",
			in:   AutomationConfig{},
			want: AutomationConfig{
				OverdueAfter:  72 * time.Hour,
				SweepInterval: time.Minute,
				SweepLimit:    1,
			},
		},
		{
			name: "negative overdue window reset",
			in:   AutomationConfig{OverdueAfter: -time.Hour, SweepInterval: 5 * time.Minute, SweepLimit: 10},
			want: AutomationConfig{OverdueAfter: 72 * time.Hour, SweepInterval: 5 * time.Minute, SweepLimit: 10},
		},
		{
			name: "sub-minute interval clamped",
			in:   AutomationConfig{OverdueAfter: time.Hour, SweepInterval: time.Second, SweepLimit: 10},
			want: AutomationConfig{OverdueAfter: time.Hour, SweepInterval: time.Minute, SweepLimit: 10},
		},
		{
			name: "oversized limit clamped",
			in:   AutomationConfig{OverdueAfter: time.Hour, SweepInterval: time.Minute, SweepLimit: 50000},
			want: AutomationConfig{OverdueAfter: time.Hour, SweepInterval: time.Minute, SweepLimit: 10000},
		},
		{
			name: "valid values untouched",
			in:   AutomationConfig{OverdueAfter: 24 * time.Hour, SweepInterval: 10 * time.Minute, SweepLimit: 500, SweepEnabled: true},
			want: AutomationConfig{OverdueAfter: 24 * time.Hour, SweepInterval: 10 * time.Minute, SweepLimit: 500, SweepEnabled: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.in
			cfg.Sanitize()
			if cfg != tt.want {
				t.Errorf("Sanitize() = %+v, want %+v", cfg, tt.want)
			}
		})
	}
}

func TestOverdueThresholdFallback(t *testing.T) {
	var cfg AutomationConfig
	if got := cfg.OverdueThreshold(); got != 72*time.Hour {
		t.Errorf("OverdueThreshold() = %v, want 72h", got)
	}

	cfg.OverdueAfter = 6 * time.Hour
	if got := cfg.OverdueThreshold(); got != 6*time.Hour {
		t.Errorf("OverdueThreshold() = %v, want 6h", got)
	}
}

func TestNotificationsSanitize(t *testing.T) {
	t.Run("master switch off disables channels", func(t *testing.T) {
		cfg := ObservabilityNotificationsConfig{
			Slack:   SlackNotificationConfig{Enabled: true, WebhookURL: "https://hooks.slack.test/x"},
			Webhook: WebhookSinkConfig{Enabled: true, URL: "https://sink.test/x"},
		}
		cfg.Sanitize()
		if cfg.Slack.Enabled || cfg.Webhook.Enabled {
			t.Error("channels should be disabled when notifications are off")
		}
	})

	t.Run("missing urls disable channels", func(t *testing.T) {
		cfg := ObservabilityNotificationsConfig{
			Enabled: true,
			Slack:   SlackNotificationConfig{Enabled: true, WebhookURL: "  "},
			Webhook: WebhookSinkConfig{Enabled: true},
		}
		cfg.Sanitize()
		if cfg.Slack.Enabled {
			t.Error("slack should be disabled without a webhook url")
		}
		if cfg.Webhook.Enabled {
			t.Error("webhook sink should be disabled without a url")
		}
	})

	t.Run("defaults filled in", func(t *testing.T) {
		cfg := ObservabilityNotificationsConfig{Enabled: true}
		cfg.Sanitize()
		if cfg.Timeout != 5*time.Second {
			t.Errorf("Timeout = %v, want 5s", cfg.Timeout)
		}
		if cfg.Slack.Username != "fieldwork" {
			t.Errorf("Slack.Username = %q, want fieldwork", cfg.Slack.Username)
		}
		if cfg.Webhook.Method != "POST" {
			t.Errorf("Webhook.Method = %q, want POST", cfg.Webhook.Method)
		}
	})
}
