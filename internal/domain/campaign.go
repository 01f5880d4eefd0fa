package domain

import "time"

// CampaignStatus enumerates the lifecycle states of a survey campaign.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "DRAFT"
	CampaignActive    CampaignStatus = "ACTIVE"
	CampaignCompleted CampaignStatus = "COMPLETED"
	CampaignArchived  CampaignStatus = "ARCHIVED"
)

// Campaign represents one customer-satisfaction survey campaign. Contacts are
// attached to a campaign through Recipient records, each carrying its own
// delivery status independent of other campaigns.
type Campaign struct {
	ID              string         `json:"id" db:"id"`
	Title           string         `json:"title" db:"title"`
	OwnerID         string         `json:"owner_id" db:"owner_id"`
	Status          CampaignStatus `json:"status" db:"status"`
	LaunchDate      *time.Time     `json:"launch_date" db:"launch_date"`
	DefaultLanguage string         `json:"default_language" db:"default_language"`

	// Stats (read-only, populated by queries)
	ContactCount   int `json:"contact_count" db:"contact_count"`
	SentCount      int `json:"sent_count" db:"sent_count"`
	RespondedCount int `json:"responded_count" db:"responded_count"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsTerminal returns true if the campaign is in a final state.
func (c *Campaign) IsTerminal() bool {
	return c.Status == CampaignCompleted || c.Status == CampaignArchived
}
