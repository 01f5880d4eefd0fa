package wave

import (
	"context"

	"github.com/Berkaniis/survey-tool/internal/domain"
)

// Target is one recipient joined with its contact, ready to become a
// dispatch task.
type Target struct {
	Recipient domain.Recipient
	Contact   domain.Contact
}

// Repository defines the data access contract for waves and their recipient
// enumeration. Implementations must be safe for concurrent use.
type Repository interface {
	// CreateWave inserts a new wave. The wave arrives fully populated
	// (id, snapshot count, PENDING status).
	CreateWave(ctx context.Context, w *domain.SendWave) error

	// GetWave returns a single wave. Returns ErrNotFound if it doesn't exist.
	GetWave(ctx context.Context, id string) (*domain.SendWave, error)

	// MarkRunning transitions a wave PENDING→RUNNING and records the live
	// enumeration count. Returns ErrInvalidTransition when the wave is not
	// PENDING, without mutating anything.
	MarkRunning(ctx context.Context, id string, enumeratedCount int) error

	// MarkFailed transitions a wave to FAILED after a setup error.
	MarkFailed(ctx context.Context, id string) error

	// MarkCompleted transitions a wave to COMPLETED. Used directly only for
	// waves that start with zero matching recipients; normally the dispatch
	// pipeline completes waves as their last task resolves.
	MarkCompleted(ctx context.Context, id string) error

	// CountRecipients returns how many of the campaign's recipients match
	// the filter right now.
	CountRecipients(ctx context.Context, campaignID string, f domain.WaveFilter) (int, error)

	// ListRecipients returns the campaign's recipients matching the filter,
	// joined with their contacts.
	ListRecipients(ctx context.Context, campaignID string, f domain.WaveFilter) ([]Target, error)

	// CampaignExists reports whether the campaign is known.
	CampaignExists(ctx context.Context, campaignID string) (bool, error)

	// TemplateExists reports whether the template is known.
	TemplateExists(ctx context.Context, templateID string) (bool, error)
}
