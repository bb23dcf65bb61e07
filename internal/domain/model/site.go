package model

import "time"

// Site is a serviced location. ServiceIntervalDays comes from the site's
// contract and drives make-good rescheduling.
type Site struct {
	ID                  string    `json:"id"                    db:"id"`
	ClientID            string    `json:"client_id"             db:"client_id"`
	Name                string    `json:"name"                  db:"name"`
	Address             string    `json:"address"               db:"address"`
	ServiceIntervalDays int       `json:"service_interval_days" db:"service_interval_days"`
	CreatedAt           time.Time `json:"created_at"            db:"created_at"`
}

// NextServiceDate returns the first contract service date strictly after now,
// stepping forward from the given anchor by the site's service interval.
// A non-positive interval falls back to weekly.
func (s Site) NextServiceDate(anchor, now time.Time) time.Time {
	interval := s.ServiceIntervalDays
	if interval <= 0 {
		interval = 7
	}
	next := anchor
	for !next.After(now) {
		next = next.AddDate(0, 0, interval)
	}
	return next
}

// Lead is a marketing contact-form submission. It has no lifecycle state
// machine and is independent of the job pipeline.
type Lead struct {
	ID        string    `json:"id"         db:"id"`
	Name      string    `json:"name"       db:"name"`
	Email     string    `json:"email"      db:"email"`
	Phone     string    `json:"phone"      db:"phone"`
	Company   string    `json:"company"    db:"company"`
	Message   string    `json:"message"    db:"message"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
