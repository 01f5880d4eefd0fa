package domain

import "time"

// MailStatus is the recorded outcome of a single send attempt.
type MailStatus string

const (
	MailSent    MailStatus = "SENT"
	MailFailed  MailStatus = "FAILED"
	MailBounced MailStatus = "BOUNCED"
)

// MailLog is the append-only record of one send attempt. Rows are never
// mutated after insert; a retried task produces one row per attempt.
type MailLog struct {
	ID         string     `json:"id" db:"id"`
	WaveID     string     `json:"wave_id" db:"wave_id"`
	ContactID  string     `json:"contact_id" db:"contact_id"`
	TemplateID string     `json:"template_id" db:"template_id"`
	Status     MailStatus `json:"status" db:"status"`

	ErrorMessage string `json:"error_message" db:"error_message"`
	RetryCount   int    `json:"retry_count" db:"retry_count"`

	// Snapshot of the rendered content as it was handed to the provider.
	SubjectSent string `json:"subject_sent" db:"subject_sent"`
	BodySent    string `json:"body_sent" db:"body_sent"`

	ProviderMessageID string    `json:"provider_message_id" db:"provider_message_id"`
	SentAt            time.Time `json:"sent_at" db:"sent_at"`
}
