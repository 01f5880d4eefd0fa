package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Berkaniis/survey-tool/internal/domain"
)

// AuditRepo implements audit.Store against PostgreSQL. Insert-only.
type AuditRepo struct{ db *sql.DB }

// NewAuditRepo creates a Postgres-backed audit store.
func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{db: db} }

func (r *AuditRepo) Insert(ctx context.Context, entry domain.AuditLog) error {
	details, err := jsonMap(entry.Details)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor, action, entity_type, entity_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, entry.ID, entry.Actor, entry.Action, entry.EntityType, entry.EntityID,
		details, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}
