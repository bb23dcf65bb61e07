package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tidyops/fieldwork/internal/core"
	"github.com/tidyops/fieldwork/internal/domain/model"
)

// SiteRepo provides read access to serviced sites.
type SiteRepo struct {
	DB *sql.DB
}

var _ core.SiteRepository = (*SiteRepo)(nil)

// NewSiteRepo creates a new SiteRepo.
func NewSiteRepo(db *sql.DB) *SiteRepo {
	return &SiteRepo{DB: db}
}

// GetByID returns a site by its ID.
func (r *SiteRepo) GetByID(ctx context.Context, id string) (*model.Site, error) {
	var s model.Site
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, client_id, name, address, service_interval_days, created_at
		FROM sites WHERE id = $1`, id,
	).Scan(&s.ID, &s.ClientID, &s.Name, &s.Address, &s.ServiceIntervalDays, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSiteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get site %s: %w", id, err)
	}
	return &s, nil
}

// LeadRepo persists marketing contact-form submissions.
type LeadRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

var _ core.LeadRepository = (*LeadRepo)(nil)

// NewLeadRepo creates a new LeadRepo.
func NewLeadRepo(db *sql.DB, cfg RepoConfig) *LeadRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &LeadRepo{DB: db, timeProvider: tp}
}

// Create stores one lead submission.
func (r *LeadRepo) Create(ctx context.Context, lead *model.Lead) (*model.Lead, error) {
	if lead == nil {
		return nil, errors.New("lead is required")
	}
	if lead.Email == "" {
		return nil, errors.New("lead email is required")
	}

	now := r.timeProvider.Now()
	out := *lead
	out.ID = uuid.NewString()
	out.CreatedAt = now

	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO leads (id, name, email, phone, company, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		out.ID, out.Name, out.Email, out.Phone, out.Company, out.Message, now)
	if err != nil {
		return nil, fmt.Errorf("insert lead: %w", err)
	}
	return &out, nil
}

// List returns leads, newest first.
func (r *LeadRepo) List(ctx context.Context, limit, offset int) ([]*model.Lead, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, name, email, phone, company, message, created_at
		FROM leads ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	var leads []*model.Lead
	for rows.Next() {
		var l model.Lead
		if scanErr := rows.Scan(&l.ID, &l.Name, &l.Email, &l.Phone, &l.Company, &l.Message, &l.CreatedAt); scanErr != nil {
			return nil, fmt.Errorf("scan lead row: %w", scanErr)
		}
		leads = append(leads, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lead rows: %w", err)
	}
	return leads, nil
}
