package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Berkaniis/survey-tool/internal/domain"
	"github.com/Berkaniis/survey-tool/internal/service/campaign"
)

// CampaignRepo implements campaign.Repository against PostgreSQL.
type CampaignRepo struct{ db *sql.DB }

// NewCampaignRepo creates a Postgres-backed campaign repository.
func NewCampaignRepo(db *sql.DB) *CampaignRepo { return &CampaignRepo{db: db} }

func (r *CampaignRepo) Create(ctx context.Context, c *domain.Campaign) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO campaigns (id, title, owner_id, status, launch_date,
		                       default_language, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, c.ID, c.Title, c.OwnerID, c.Status, c.LaunchDate,
		c.DefaultLanguage, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create campaign: %w", err)
	}
	return nil
}

func (r *CampaignRepo) Get(ctx context.Context, id string) (*domain.Campaign, error) {
	c := &domain.Campaign{}
	var launchDate sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT c.id, c.title, COALESCE(c.owner_id,''), c.status, c.launch_date,
		       c.default_language, c.created_at, c.updated_at,
		       COUNT(cc.contact_id),
		       COUNT(cc.contact_id) FILTER (WHERE cc.status <> 'PENDING'),
		       COUNT(cc.contact_id) FILTER (WHERE cc.status = 'RESPONDED')
		FROM campaigns c
		LEFT JOIN campaign_contacts cc ON cc.campaign_id = c.id
		WHERE c.id = $1
		GROUP BY c.id
	`, id).Scan(
		&c.ID, &c.Title, &c.OwnerID, &c.Status, &launchDate,
		&c.DefaultLanguage, &c.CreatedAt, &c.UpdatedAt,
		&c.ContactCount, &c.SentCount, &c.RespondedCount,
	)
	if err == sql.ErrNoRows {
		return nil, campaign.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	if launchDate.Valid {
		c.LaunchDate = &launchDate.Time
	}
	return c, nil
}

func (r *CampaignRepo) List(ctx context.Context) ([]domain.Campaign, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, COALESCE(owner_id,''), status, launch_date,
		       default_language, created_at, updated_at
		FROM campaigns
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var out []domain.Campaign
	for rows.Next() {
		var c domain.Campaign
		var launchDate sql.NullTime
		if err := rows.Scan(
			&c.ID, &c.Title, &c.OwnerID, &c.Status, &launchDate,
			&c.DefaultLanguage, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		if launchDate.Valid {
			c.LaunchDate = &launchDate.Time
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CampaignRepo) StatusCounts(ctx context.Context, id string) (map[domain.RecipientStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*)
		FROM campaign_contacts
		WHERE campaign_id = $1
		GROUP BY status
	`, id)
	if err != nil {
		return nil, fmt.Errorf("status counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.RecipientStatus]int)
	for rows.Next() {
		var status domain.RecipientStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// eventColumns maps each engagement event to its status and timestamp
// column. The timestamp only moves from NULL, keeping the first observation.
var eventColumns = map[domain.EngagementEvent]struct {
	status domain.RecipientStatus
	column string
}{
	domain.EventOpened:    {domain.RecipientOpened, "opened_at"},
	domain.EventResponded: {domain.RecipientResponded, "responded_at"},
	domain.EventOptOut:    {domain.RecipientOptOut, "opted_out_at"},
	domain.EventBounced:   {domain.RecipientBounced, "bounced_at"},
}

// ApplyEvent is a single conditional update: external transitions race with
// the send pipeline and with each other, and last-writer-wins is acceptable
// for these one-way flags.
func (r *CampaignRepo) ApplyEvent(ctx context.Context, campaignID, contactID string, event domain.EngagementEvent, at time.Time) error {
	cols, ok := eventColumns[event]
	if !ok {
		return campaign.ErrUnknownEvent
	}

	q := fmt.Sprintf(`
		UPDATE campaign_contacts
		SET status = $1, %s = COALESCE(%s, $2), updated_at = NOW()
		WHERE campaign_id = $3 AND contact_id = $4
	`, cols.column, cols.column)
	res, err := r.db.ExecContext(ctx, q, cols.status, at, campaignID, contactID)
	if err != nil {
		return fmt.Errorf("apply event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("apply event: %w", err)
	}
	if n == 0 {
		return campaign.ErrRecipientNotFound
	}
	return nil
}
