package wave

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Berkaniis/survey-tool/internal/audit"
	"github.com/Berkaniis/survey-tool/internal/dispatch"
	"github.com/Berkaniis/survey-tool/internal/domain"
	"github.com/Berkaniis/survey-tool/internal/pkg/logger"
)

// Dispatcher accepts wave tasks for asynchronous sending. Satisfied by
// *dispatch.Pipeline.
type Dispatcher interface {
	EnqueueWave(waveID string, tasks []*dispatch.Task)
}

// ConnectionValidator surfaces provider configuration problems without
// sending anything. Satisfied by provider implementations.
type ConnectionValidator interface {
	ValidateConnection(ctx context.Context) bool
}

// Service implements wave business logic: creation with a snapshot target
// count, starting (enumerate + enqueue), and status reporting.
type Service struct {
	repo       Repository
	dispatcher Dispatcher
	validator  ConnectionValidator
	audit      *audit.Recorder
}

// NewService creates a wave service. The audit recorder may be nil.
func NewService(repo Repository, dispatcher Dispatcher, validator ConnectionValidator, rec *audit.Recorder) *Service {
	return &Service{repo: repo, dispatcher: dispatcher, validator: validator, audit: rec}
}

// CreateInput holds the parameters for a new wave.
type CreateInput struct {
	CampaignID  string
	Kind        domain.WaveKind
	TemplateID  string
	InitiatedBy string
	Filter      domain.WaveFilter
}

// Create builds a PENDING wave. The target contact count is evaluated once,
// here; start-time enumeration may diverge and that divergence is surfaced
// on the wave, not reconciled.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.SendWave, error) {
	if input.CampaignID == "" {
		return nil, fmt.Errorf("campaign id is required")
	}
	if input.TemplateID == "" {
		return nil, fmt.Errorf("template id is required")
	}
	if input.Kind == "" {
		input.Kind = domain.WaveInitial
	}

	if ok, err := s.repo.CampaignExists(ctx, input.CampaignID); err != nil {
		return nil, fmt.Errorf("checking campaign: %w", err)
	} else if !ok {
		return nil, ErrCampaignNotFound
	}
	if ok, err := s.repo.TemplateExists(ctx, input.TemplateID); err != nil {
		return nil, fmt.Errorf("checking template: %w", err)
	} else if !ok {
		return nil, ErrTemplateNotFound
	}

	count, err := s.repo.CountRecipients(ctx, input.CampaignID, input.Filter)
	if err != nil {
		return nil, fmt.Errorf("counting recipients: %w", err)
	}

	w := &domain.SendWave{
		ID:           uuid.New().String(),
		CampaignID:   input.CampaignID,
		Kind:         input.Kind,
		TemplateID:   input.TemplateID,
		Filter:       input.Filter,
		InitiatedBy:  input.InitiatedBy,
		Status:       domain.WavePending,
		ContactCount: count,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.CreateWave(ctx, w); err != nil {
		return nil, fmt.Errorf("creating wave: %w", err)
	}

	logger.Info("wave created",
		"wave_id", w.ID, "campaign_id", w.CampaignID, "kind", w.Kind, "contact_count", count)
	s.audit.Record(ctx, input.InitiatedBy, "wave.created", "wave", w.ID,
		map[string]any{"campaign_id": w.CampaignID, "kind": string(w.Kind), "contact_count": count})
	return w, nil
}

// Start transitions a PENDING wave to RUNNING, re-enumerates its recipients
// and seeds the dispatch queue. Returns the number of tasks enqueued. The
// call returns once tasks are queued, not once they are sent.
//
// Starting a wave that is not PENDING is a no-op failure: nothing is mutated
// and nothing is enqueued. A failed provider connection check also refuses
// the start, leaving the wave PENDING for a later attempt.
func (s *Service) Start(ctx context.Context, id string) (int, error) {
	w, err := s.repo.GetWave(ctx, id)
	if err != nil {
		return 0, err
	}
	if w.Status != domain.WavePending {
		return 0, fmt.Errorf("wave %s is %s: %w", id, w.Status, ErrInvalidTransition)
	}

	if s.validator != nil && !s.validator.ValidateConnection(ctx) {
		return 0, ErrProviderUnavailable
	}

	targets, err := s.repo.ListRecipients(ctx, w.CampaignID, w.Filter)
	if err != nil {
		if mErr := s.repo.MarkFailed(ctx, id); mErr != nil {
			logger.Error("failed to mark wave failed", "wave_id", id, "error", mErr)
		}
		return 0, fmt.Errorf("enumerating recipients: %w", err)
	}

	if len(targets) != w.ContactCount {
		// Expected when recipient state changed between create and start.
		logger.Warn("wave enumeration diverges from creation snapshot",
			"wave_id", id, "snapshot", w.ContactCount, "enumerated", len(targets))
	}

	if err := s.repo.MarkRunning(ctx, id, len(targets)); err != nil {
		return 0, err
	}

	if len(targets) == 0 {
		if err := s.repo.MarkCompleted(ctx, id); err != nil {
			logger.Error("failed to complete empty wave", "wave_id", id, "error", err)
		}
		logger.Info("wave started with no matching recipients", "wave_id", id)
		return 0, nil
	}

	tasks := make([]*dispatch.Task, 0, len(targets))
	for _, t := range targets {
		tasks = append(tasks, &dispatch.Task{
			WaveID:     id,
			CampaignID: w.CampaignID,
			ContactID:  t.Contact.ID,
			TemplateID: w.TemplateID,
			Email:      t.Contact.Email,
			Vars:       dispatch.MergeVars(t.Contact, t.Recipient.CustomData),
		})
	}
	s.dispatcher.EnqueueWave(id, tasks)

	logger.Info("wave started", "wave_id", id, "tasks", len(tasks))
	s.audit.Record(ctx, w.InitiatedBy, "wave.started", "wave", id,
		map[string]any{"enumerated": len(tasks), "snapshot": w.ContactCount})
	return len(tasks), nil
}

// Get returns the wave with its live counters: status, snapshot and
// enumerated counts, sent/failed counters and timestamps.
func (s *Service) Get(ctx context.Context, id string) (*domain.SendWave, error) {
	return s.repo.GetWave(ctx, id)
}
