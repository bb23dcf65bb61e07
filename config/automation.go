package config

import "time"

// AutomationConfig contains automation sweep configuration.
type AutomationConfig struct {
	// OverdueAfter is how long a completion may sit awaiting approval before
	// the sweep flags it for attention.
	OverdueAfter time.Duration `env:"OVERDUE_AFTER" envDefault:"72h"`

	// SweepInterval is the overdue-approval sweep tick interval.
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"15m"`

	// SweepLimit is the maximum number of jobs flagged per sweep pass.
	// Bounding the pass prevents long scans on a large backlog; the next
	// tick picks up the remainder.
	SweepLimit int `env:"SWEEP_LIMIT" envDefault:"200"`

	// SweepEnabled controls whether the periodic sweeper runs at all.
	SweepEnabled bool `env:"SWEEP_ENABLED" envDefault:"true"`
}

// Sanitize applies guardrails to automation configuration values.
func (a *AutomationConfig) Sanitize() {
	if a.OverdueAfter <= 0 {
		a.OverdueAfter = 72 * time.Hour
	}
	// Enforce a minimum interval to prevent excessive database load.
	if a.SweepInterval < time.Minute {
		a.SweepInterval = time.Minute
	}
	if a.SweepLimit < 1 {
		a.SweepLimit = 1
	}
	if a.SweepLimit > 10000 {
		a.SweepLimit = 10000
	}
}

// OverdueThreshold returns the configured overdue window, falling back to
// the default when the config was never sanitised.
func (a *AutomationConfig) OverdueThreshold() time.Duration {
	if a.OverdueAfter <= 0 {
		return 72 * time.Hour
	}
	return a.OverdueAfter
}
