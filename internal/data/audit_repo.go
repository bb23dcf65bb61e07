package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tidyops/fieldwork/internal/core"
	"github.com/tidyops/fieldwork/internal/domain/model"
)

// AuditRepo provides append-only database operations for the audit log.
type AuditRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

var _ core.AuditRepository = (*AuditRepo)(nil)

// NewAuditRepo creates a new AuditRepo.
func NewAuditRepo(db *sql.DB, cfg RepoConfig) *AuditRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &AuditRepo{DB: db, timeProvider: tp}
}

const auditColumns = `
  id,
  actor_id,
  entity_type,
  entity_id,
  action,
  from_state,
  to_state,
  metadata,
  created_at
`

// Append writes one immutable audit entry.
func (r *AuditRepo) Append(ctx context.Context, entry model.AuditEntry) (*model.AuditEntry, error) {
	now := r.timeProvider.Now()
	row := r.DB.QueryRowContext(ctx, insertAuditSQL,
		uuid.NewString(), entry.ActorID, entry.EntityType, entry.EntityID,
		entry.Action, entry.FromState, entry.ToState, nullableJSON(entry.Metadata), now,
	)
	out, err := scanAudit(row)
	if err != nil {
		return nil, fmt.Errorf("append audit entry: %w", err)
	}
	return out, nil
}

// ListByEntity returns the newest audit entries for one entity.
func (r *AuditRepo) ListByEntity(ctx context.Context, entityType, entityID string, limit int) ([]*model.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+auditColumns+`
		FROM audit_log
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC
		LIMIT $3`,
		entityType, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*model.AuditEntry
	for rows.Next() {
		e, scanErr := scanAudit(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan audit row: %w", scanErr)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit rows: %w", err)
	}
	return entries, nil
}

const insertAuditSQL = `
  INSERT INTO audit_log (id, actor_id, entity_type, entity_id, action, from_state, to_state, metadata, created_at)
  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
  RETURNING ` + auditColumns

func scanAudit(row rowScanner) (*model.AuditEntry, error) {
	var e model.AuditEntry
	err := row.Scan(
		&e.ID,
		&e.ActorID,
		&e.EntityType,
		&e.EntityID,
		&e.Action,
		&e.FromState,
		&e.ToState,
		&e.Metadata,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// appendAuditInTx writes an audit entry inside an existing transaction so the
// entry commits or rolls back together with the state change it records.
func appendAuditInTx(ctx context.Context, tx *sql.Tx, entry model.AuditEntry, now time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO audit_log (id, actor_id, entity_type, entity_id, action, from_state, to_state, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		uuid.NewString(), entry.ActorID, entry.EntityType, entry.EntityID,
		entry.Action, entry.FromState, entry.ToState, nullableJSON(entry.Metadata), now,
	)
	if err != nil {
		return fmt.Errorf("append audit entry in tx: %w", err)
	}
	return nil
}
