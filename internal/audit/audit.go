// Package audit records an append-only trail of significant actions (wave
// created/started, template created, campaign created). Audit writes are
// best-effort: a failed insert is logged and swallowed, it never fails the
// action being audited.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Berkaniis/survey-tool/internal/domain"
	"github.com/Berkaniis/survey-tool/internal/pkg/logger"
)

// Store persists audit entries.
type Store interface {
	Insert(ctx context.Context, entry domain.AuditLog) error
}

// Recorder writes audit entries. A nil Recorder is valid and records nothing,
// so callers never need to guard their audit calls.
type Recorder struct {
	store Store
}

// New creates a Recorder backed by the given store.
func New(store Store) *Recorder {
	return &Recorder{store: store}
}

// Record appends one audit entry.
func (r *Recorder) Record(ctx context.Context, actor, action, entityType, entityID string, details map[string]any) {
	if r == nil || r.store == nil {
		return
	}
	entry := domain.AuditLog{
		ID:         uuid.New().String(),
		Actor:      actor,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
		CreatedAt:  time.Now().UTC(),
	}
	if err := r.store.Insert(ctx, entry); err != nil {
		logger.Warn("audit write failed",
			"action", action, "entity_type", entityType, "entity_id", entityID, "error", err)
	}
}
