package domain

import "time"

// Contact is a person that can receive survey emails. Contacts are shared
// across campaigns; per-campaign state lives on the Recipient record.
type Contact struct {
	ID        string `json:"id" db:"id"`
	Email     string `json:"email" db:"email"`
	FirstName string `json:"first_name" db:"first_name"`
	LastName  string `json:"last_name" db:"last_name"`

	// ExtraData holds additional columns captured at list import time
	// (company, department, ...). Keys become template variables.
	ExtraData map[string]any `json:"extra_data" db:"extra_data"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// RecipientStatus enumerates the states of a contact within one campaign.
// The flow is PENDING → SENT, after which external events (opens, responses,
// opt-outs, bounces) may arrive at any time. It is not strictly linear.
type RecipientStatus string

const (
	RecipientPending   RecipientStatus = "PENDING"
	RecipientSent      RecipientStatus = "SENT"
	RecipientOpened    RecipientStatus = "OPENED"
	RecipientResponded RecipientStatus = "RESPONDED"
	RecipientBounced   RecipientStatus = "BOUNCED"
	RecipientOptOut    RecipientStatus = "OPTOUT"
	RecipientError     RecipientStatus = "ERROR"
)

// Recipient is a contact in the context of one campaign. At most one
// timestamp is set per status transition; the retry count only increases.
type Recipient struct {
	CampaignID string          `json:"campaign_id" db:"campaign_id"`
	ContactID  string          `json:"contact_id" db:"contact_id"`
	Status     RecipientStatus `json:"status" db:"status"`

	SentAt      *time.Time `json:"sent_at" db:"sent_at"`
	OpenedAt    *time.Time `json:"opened_at" db:"opened_at"`
	RespondedAt *time.Time `json:"responded_at" db:"responded_at"`
	BouncedAt   *time.Time `json:"bounced_at" db:"bounced_at"`
	OptedOutAt  *time.Time `json:"opted_out_at" db:"opted_out_at"`

	ErrorMessage string `json:"error_message" db:"error_message"`
	RetryCount   int    `json:"retry_count" db:"retry_count"`

	// CustomData is specific to this campaign-contact pair and overrides
	// contact extra data during template substitution.
	CustomData map[string]any `json:"custom_data" db:"custom_data"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// EngagementEvent is an externally-observed recipient transition (opened,
// responded, opted out, bounced). These are written by collaborators, not by
// the send pipeline, and are monotonic one-way flags.
type EngagementEvent string

const (
	EventOpened    EngagementEvent = "opened"
	EventResponded EngagementEvent = "responded"
	EventOptOut    EngagementEvent = "optout"
	EventBounced   EngagementEvent = "bounced"
)
