package domain

import "time"

// WaveKind distinguishes a first send from a reminder pass.
type WaveKind string

const (
	WaveInitial  WaveKind = "INITIAL"
	WaveReminder WaveKind = "REMINDER"
)

// WaveStatus enumerates the lifecycle of a send wave.
// PENDING → RUNNING → {COMPLETED | FAILED | CANCELLED}.
type WaveStatus string

const (
	WavePending   WaveStatus = "PENDING"
	WaveRunning   WaveStatus = "RUNNING"
	WaveCompleted WaveStatus = "COMPLETED"
	WaveFailed    WaveStatus = "FAILED"
	WaveCancelled WaveStatus = "CANCELLED"
)

// WaveFilter narrows the campaign's recipient set for one wave.
// Currently an equality predicate on recipient status.
type WaveFilter struct {
	Status RecipientStatus `json:"status,omitempty"`
}

// IsZero reports whether the filter matches all recipients.
func (f WaveFilter) IsZero() bool { return f.Status == "" }

// SendWave is one batch send operation: a filtered subset of a campaign's
// recipients crossed with one template. ContactCount is a snapshot taken at
// creation time; the live enumeration at start time may differ and the
// divergence is surfaced, not reconciled.
type SendWave struct {
	ID          string     `json:"id" db:"id"`
	CampaignID  string     `json:"campaign_id" db:"campaign_id"`
	Kind        WaveKind   `json:"kind" db:"kind"`
	TemplateID  string     `json:"template_id" db:"template_id"`
	Filter      WaveFilter `json:"filter" db:"filter"`
	InitiatedBy string     `json:"initiated_by" db:"initiated_by"`
	Status      WaveStatus `json:"status" db:"status"`

	// ContactCount is the snapshot taken when the wave was created.
	// EnumeratedCount is the number of tasks actually queued at start time.
	ContactCount    int `json:"contact_count" db:"contact_count"`
	EnumeratedCount int `json:"enumerated_count" db:"enumerated_count"`

	SentCount   int `json:"sent_count" db:"sent_count"`
	FailedCount int `json:"failed_count" db:"failed_count"`

	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	CompletedAt *time.Time `json:"completed_at" db:"completed_at"`
}

// IsTerminal returns true if the wave is in a final state.
func (w *SendWave) IsTerminal() bool {
	return w.Status == WaveCompleted || w.Status == WaveFailed || w.Status == WaveCancelled
}
