// Package campaign implements survey campaign management: campaign CRUD
// with per-status recipient counts, and the externally-driven recipient
// transitions (opened, responded, opt-out, bounced).
//
// External transitions are written concurrently with the send pipeline; the
// repository applies them as conditional single-statement updates, so
// last-writer-wins on these monotonic one-way flags is acceptable.
package campaign

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Berkaniis/survey-tool/internal/audit"
	"github.com/Berkaniis/survey-tool/internal/domain"
	"github.com/Berkaniis/survey-tool/internal/pkg/logger"
)

// Sentinel errors for the campaign service layer.
var (
	ErrNotFound          = errors.New("campaign not found")
	ErrRecipientNotFound = errors.New("recipient not found")
	ErrUnknownEvent      = errors.New("unknown engagement event")
)

// Repository defines the data access contract for campaigns and recipients.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Create inserts a new campaign.
	Create(ctx context.Context, c *domain.Campaign) error

	// Get returns a campaign with its recipient counts populated.
	// Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*domain.Campaign, error)

	// List returns all campaigns ordered by created_at DESC.
	List(ctx context.Context) ([]domain.Campaign, error)

	// StatusCounts returns the number of recipients per status for one
	// campaign.
	StatusCounts(ctx context.Context, id string) (map[domain.RecipientStatus]int, error)

	// ApplyEvent applies an engagement event to one recipient as a single
	// conditional update. Returns ErrRecipientNotFound when the
	// (campaign, contact) pair does not exist.
	ApplyEvent(ctx context.Context, campaignID, contactID string, event domain.EngagementEvent, at time.Time) error
}

// Service implements campaign business logic.
type Service struct {
	repo  Repository
	audit *audit.Recorder
}

// NewService creates a campaign service. The audit recorder may be nil.
func NewService(repo Repository, rec *audit.Recorder) *Service {
	return &Service{repo: repo, audit: rec}
}

// CreateInput holds the fields for a new campaign.
type CreateInput struct {
	Title           string
	OwnerID         string
	LaunchDate      *time.Time
	DefaultLanguage string
}

// Create validates and persists a new campaign in DRAFT status.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.Campaign, error) {
	if input.Title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if input.DefaultLanguage == "" {
		input.DefaultLanguage = "en"
	}

	now := time.Now().UTC()
	c := &domain.Campaign{
		ID:              uuid.New().String(),
		Title:           input.Title,
		OwnerID:         input.OwnerID,
		Status:          domain.CampaignDraft,
		LaunchDate:      input.LaunchDate,
		DefaultLanguage: input.DefaultLanguage,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("creating campaign: %w", err)
	}

	s.audit.Record(ctx, input.OwnerID, "campaign.created", "campaign", c.ID,
		map[string]any{"title": c.Title})
	return c, nil
}

// Get returns a campaign with its recipient counts.
func (s *Service) Get(ctx context.Context, id string) (*domain.Campaign, error) {
	return s.repo.Get(ctx, id)
}

// List returns all campaigns.
func (s *Service) List(ctx context.Context) ([]domain.Campaign, error) {
	return s.repo.List(ctx)
}

// StatusCounts returns per-status recipient counts for one campaign.
func (s *Service) StatusCounts(ctx context.Context, id string) (map[domain.RecipientStatus]int, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.StatusCounts(ctx, id)
}

// ApplyEvent records an externally-observed recipient transition. Applying
// the same event twice is idempotent.
func (s *Service) ApplyEvent(ctx context.Context, campaignID, contactID string, event domain.EngagementEvent) error {
	switch event {
	case domain.EventOpened, domain.EventResponded, domain.EventOptOut, domain.EventBounced:
	default:
		return fmt.Errorf("%q: %w", event, ErrUnknownEvent)
	}

	if err := s.repo.ApplyEvent(ctx, campaignID, contactID, event, time.Now().UTC()); err != nil {
		return err
	}
	logger.Info("engagement event applied",
		"campaign_id", campaignID, "contact_id", contactID, "event", event)
	return nil
}
