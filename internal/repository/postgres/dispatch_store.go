package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Berkaniis/survey-tool/internal/dispatch"
	"github.com/Berkaniis/survey-tool/internal/domain"
)

// DispatchStore implements dispatch.Store: the persistence surface of the
// send pipeline. RecordAttempt is the status reconciler — the mail log
// append and the recipient transition commit in one transaction, so the
// audit trail and the live status can never drift apart.
type DispatchStore struct{ db *sql.DB }

// NewDispatchStore creates a Postgres-backed dispatch store.
func NewDispatchStore(db *sql.DB) *DispatchStore { return &DispatchStore{db: db} }

func (s *DispatchStore) GetTemplate(ctx context.Context, id string) (domain.EmailTemplate, error) {
	var t domain.EmailTemplate
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, subject, body, language
		FROM email_templates
		WHERE id = $1
	`, id).Scan(&t.ID, &t.Name, &t.Subject, &t.Body, &t.Language)
	if err == sql.ErrNoRows {
		return domain.EmailTemplate{}, fmt.Errorf("template %s not found", id)
	}
	if err != nil {
		return domain.EmailTemplate{}, fmt.Errorf("get template: %w", err)
	}
	return t, nil
}

func (s *DispatchStore) RecordAttempt(ctx context.Context, a dispatch.Attempt) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record attempt: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO mail_logs (id, wave_id, contact_id, template_id, status,
		                       error_message, retry_count, subject_sent, body_sent,
		                       provider_message_id, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, a.Log.ID, a.Log.WaveID, a.Log.ContactID, a.Log.TemplateID, a.Log.Status,
		a.Log.ErrorMessage, a.Log.RetryCount, a.Log.SubjectSent, a.Log.BodySent,
		a.Log.ProviderMessageID, a.Log.SentAt)
	if err != nil {
		return fmt.Errorf("insert mail log: %w", err)
	}

	if t := a.Transition; t != nil {
		if t.Status == domain.RecipientSent {
			_, err = tx.ExecContext(ctx, `
				UPDATE campaign_contacts
				SET status = $1, sent_at = $2, retry_count = $3, updated_at = NOW()
				WHERE campaign_id = $4 AND contact_id = $5
			`, t.Status, t.SentAt, t.RetryCount, t.CampaignID, t.ContactID)
		} else {
			// Failure path: record the error, leave the status for an
			// operator decision.
			_, err = tx.ExecContext(ctx, `
				UPDATE campaign_contacts
				SET error_message = $1, retry_count = $2, updated_at = NOW()
				WHERE campaign_id = $3 AND contact_id = $4
			`, t.ErrorMessage, t.RetryCount, t.CampaignID, t.ContactID)
		}
		if err != nil {
			return fmt.Errorf("update recipient: %w", err)
		}
	}

	if a.SentDelta != 0 || a.FailedDelta != 0 {
		_, err = tx.ExecContext(ctx, `
			UPDATE send_waves
			SET sent_count = sent_count + $1, failed_count = failed_count + $2
			WHERE id = $3
		`, a.SentDelta, a.FailedDelta, a.Log.WaveID)
		if err != nil {
			return fmt.Errorf("update wave counters: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record attempt: %w", err)
	}
	return nil
}

func (s *DispatchStore) CompleteWave(ctx context.Context, waveID string, status domain.WaveStatus, completedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE send_waves
		SET status = $1, completed_at = $2
		WHERE id = $3 AND status = $4
	`, status, completedAt, waveID, domain.WaveRunning)
	if err != nil {
		return fmt.Errorf("complete wave: %w", err)
	}
	return nil
}
