package config

import (
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - database.go: Database and cache configuration
//   - automation.go: Automation sweep configuration
//   - observability.go: Metrics and notification configuration
type AppConfig struct {
	// IsDev controls development mode behavior (seed data, relaxed guards).
	// Set DEV=true or APP_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// Database configuration
	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	// Automation configuration
	Automation AutomationConfig `envPrefix:"AUTOMATION_"`

	// Observability configuration
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.Automation.Sanitize()
	c.Observability.Sanitize()
	c.detectDevMode()
}

// detectDevMode checks both DEV and APP_ENV environment variables.
// This is called by Sanitize() to ensure IsDev is set correctly.
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		appEnv := strings.ToLower(os.Getenv("APP_ENV"))
		c.IsDev = appEnv == "development" || appEnv == "dev"
	}
}
