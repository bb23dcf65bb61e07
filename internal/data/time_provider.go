package data

import "time"

// TimeProvider abstracts the clock so repositories and services can be
// tested at a pinned instant. Overdue cutoffs, cache TTLs, and make-good
// scheduling all read time through it.
type TimeProvider interface {
	Now() time.Time
}

// RealTimeProvider reads the system clock.
type RealTimeProvider struct{}

// Now returns the current system time.
func (r *RealTimeProvider) Now() time.Time { return time.Now() }

// FixedTimeProvider is a settable clock for tests.
type FixedTimeProvider struct {
	current time.Time
}

// NewFixedTimeProvider returns a clock pinned to t.
func NewFixedTimeProvider(t time.Time) *FixedTimeProvider {
	return &FixedTimeProvider{current: t}
}

// Now returns the pinned time.
func (f *FixedTimeProvider) Now() time.Time { return f.current }

// SetTime moves the clock to t.
func (f *FixedTimeProvider) SetTime(t time.Time) { f.current = t }

// AddTime advances the clock by d.
func (f *FixedTimeProvider) AddTime(d time.Duration) { f.current = f.current.Add(d) }
