package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Berkaniis/survey-tool/internal/domain"
	"github.com/Berkaniis/survey-tool/internal/service/wave"
)

// WaveRepo implements wave.Repository against PostgreSQL.
type WaveRepo struct{ db *sql.DB }

// NewWaveRepo creates a Postgres-backed wave repository.
func NewWaveRepo(db *sql.DB) *WaveRepo { return &WaveRepo{db: db} }

func (r *WaveRepo) CreateWave(ctx context.Context, w *domain.SendWave) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO send_waves (id, campaign_id, kind, template_id, filter_status,
		                        initiated_by, status, contact_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, w.ID, w.CampaignID, w.Kind, w.TemplateID, string(w.Filter.Status),
		w.InitiatedBy, w.Status, w.ContactCount, w.CreatedAt)
	if err != nil {
		return fmt.Errorf("create wave: %w", err)
	}
	return nil
}

func (r *WaveRepo) GetWave(ctx context.Context, id string) (*domain.SendWave, error) {
	w := &domain.SendWave{}
	var filterStatus string
	var completedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT id, campaign_id, kind, template_id, COALESCE(filter_status,''),
		       COALESCE(initiated_by,''), status, contact_count, enumerated_count,
		       sent_count, failed_count, created_at, completed_at
		FROM send_waves
		WHERE id = $1
	`, id).Scan(
		&w.ID, &w.CampaignID, &w.Kind, &w.TemplateID, &filterStatus,
		&w.InitiatedBy, &w.Status, &w.ContactCount, &w.EnumeratedCount,
		&w.SentCount, &w.FailedCount, &w.CreatedAt, &completedAt,
	)
	if err == sql.ErrNoRows {
		return nil, wave.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get wave: %w", err)
	}
	w.Filter = domain.WaveFilter{Status: domain.RecipientStatus(filterStatus)}
	if completedAt.Valid {
		w.CompletedAt = &completedAt.Time
	}
	return w, nil
}

// MarkRunning is conditional on PENDING so two concurrent starts cannot both
// win; the loser sees ErrInvalidTransition.
func (r *WaveRepo) MarkRunning(ctx context.Context, id string, enumeratedCount int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE send_waves
		SET status = $1, enumerated_count = $2
		WHERE id = $3 AND status = $4
	`, domain.WaveRunning, enumeratedCount, id, domain.WavePending)
	if err != nil {
		return fmt.Errorf("mark wave running: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark wave running: %w", err)
	}
	if n == 0 {
		return wave.ErrInvalidTransition
	}
	return nil
}

func (r *WaveRepo) MarkFailed(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE send_waves SET status = $1, completed_at = NOW() WHERE id = $2
	`, domain.WaveFailed, id)
	if err != nil {
		return fmt.Errorf("mark wave failed: %w", err)
	}
	return nil
}

func (r *WaveRepo) MarkCompleted(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE send_waves SET status = $1, completed_at = NOW() WHERE id = $2
	`, domain.WaveCompleted, id)
	if err != nil {
		return fmt.Errorf("mark wave completed: %w", err)
	}
	return nil
}

func (r *WaveRepo) CountRecipients(ctx context.Context, campaignID string, f domain.WaveFilter) (int, error) {
	q := `SELECT COUNT(*) FROM campaign_contacts WHERE campaign_id = $1`
	args := []interface{}{campaignID}
	if !f.IsZero() {
		q += ` AND status = $2`
		args = append(args, f.Status)
	}

	var n int
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count recipients: %w", err)
	}
	return n, nil
}

func (r *WaveRepo) ListRecipients(ctx context.Context, campaignID string, f domain.WaveFilter) ([]wave.Target, error) {
	q := `
		SELECT cc.campaign_id, cc.contact_id, cc.status, cc.retry_count, cc.custom_data,
		       c.id, c.email, COALESCE(c.first_name,''), COALESCE(c.last_name,''), c.extra_data
		FROM campaign_contacts cc
		JOIN contacts c ON c.id = cc.contact_id
		WHERE cc.campaign_id = $1`
	args := []interface{}{campaignID}
	if !f.IsZero() {
		q += ` AND cc.status = $2`
		args = append(args, f.Status)
	}
	q += ` ORDER BY cc.created_at`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}
	defer rows.Close()

	var out []wave.Target
	for rows.Next() {
		var t wave.Target
		var customData, extraData []byte
		if err := rows.Scan(
			&t.Recipient.CampaignID, &t.Recipient.ContactID, &t.Recipient.Status,
			&t.Recipient.RetryCount, &customData,
			&t.Contact.ID, &t.Contact.Email, &t.Contact.FirstName, &t.Contact.LastName, &extraData,
		); err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		if err := scanJSONMap(customData, &t.Recipient.CustomData); err != nil {
			return nil, fmt.Errorf("decode custom data: %w", err)
		}
		if err := scanJSONMap(extraData, &t.Contact.ExtraData); err != nil {
			return nil, fmt.Errorf("decode extra data: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *WaveRepo) CampaignExists(ctx context.Context, campaignID string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM campaigns WHERE id = $1)`, campaignID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check campaign: %w", err)
	}
	return ok, nil
}

func (r *WaveRepo) TemplateExists(ctx context.Context, templateID string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM email_templates WHERE id = $1)`, templateID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check template: %w", err)
	}
	return ok, nil
}
