package domain

import "time"

// AuditLog is one append-only audit trail entry. Rows record who did what to
// which entity and are never updated or deleted.
type AuditLog struct {
	ID         string         `json:"id" db:"id"`
	Actor      string         `json:"actor" db:"actor"`
	Action     string         `json:"action" db:"action"`
	EntityType string         `json:"entity_type" db:"entity_type"`
	EntityID   string         `json:"entity_id" db:"entity_id"`
	Details    map[string]any `json:"details" db:"details"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
}
