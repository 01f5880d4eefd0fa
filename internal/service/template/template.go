// Package template implements email template management: CRUD over
// templates with {variable_name} placeholders and per-contact preview
// rendering without sending.
package template

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Berkaniis/survey-tool/internal/audit"
	"github.com/Berkaniis/survey-tool/internal/dispatch"
	"github.com/Berkaniis/survey-tool/internal/domain"
)

// Sentinel errors for the template service layer.
var (
	ErrNotFound        = errors.New("template not found")
	ErrContactNotFound = errors.New("contact not found")
)

// Repository defines the data access contract for templates.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Create inserts a new template.
	Create(ctx context.Context, t *domain.EmailTemplate) error

	// Get returns a single template. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*domain.EmailTemplate, error)

	// List returns all templates, default templates first.
	List(ctx context.Context) ([]domain.EmailTemplate, error)

	// Update replaces the mutable fields of a template.
	Update(ctx context.Context, t *domain.EmailTemplate) error

	// Delete removes a template.
	Delete(ctx context.Context, id string) error

	// GetContact returns a contact for preview rendering.
	// Returns ErrContactNotFound if it doesn't exist.
	GetContact(ctx context.Context, id string) (*domain.Contact, error)
}

// Service implements template business logic.
type Service struct {
	repo  Repository
	audit *audit.Recorder
}

// NewService creates a template service. The audit recorder may be nil.
func NewService(repo Repository, rec *audit.Recorder) *Service {
	return &Service{repo: repo, audit: rec}
}

// CreateInput holds the fields for a new template.
type CreateInput struct {
	Name      string
	Subject   string
	Body      string
	Language  string
	IsDefault bool
	CreatedBy string
	Variables map[string]string
}

// Create validates and persists a new template.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.EmailTemplate, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if input.Subject == "" {
		return nil, fmt.Errorf("subject is required")
	}
	if input.Body == "" {
		return nil, fmt.Errorf("body is required")
	}
	if input.Language == "" {
		input.Language = "en"
	}

	now := time.Now().UTC()
	t := &domain.EmailTemplate{
		ID:        uuid.New().String(),
		Name:      input.Name,
		Subject:   input.Subject,
		Body:      input.Body,
		Language:  input.Language,
		IsDefault: input.IsDefault,
		CreatedBy: input.CreatedBy,
		Variables: input.Variables,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("creating template: %w", err)
	}

	s.audit.Record(ctx, input.CreatedBy, "template.created", "template", t.ID,
		map[string]any{"name": t.Name, "language": t.Language})
	return t, nil
}

// Get returns a single template.
func (s *Service) Get(ctx context.Context, id string) (*domain.EmailTemplate, error) {
	return s.repo.Get(ctx, id)
}

// List returns all templates.
func (s *Service) List(ctx context.Context) ([]domain.EmailTemplate, error) {
	return s.repo.List(ctx)
}

// UpdateInput holds the mutable fields for a template update. Nil fields
// are left unchanged.
type UpdateInput struct {
	Name      *string
	Subject   *string
	Body      *string
	Language  *string
	IsDefault *bool
	Variables map[string]string
}

// Update applies the non-nil fields of input to the template.
func (s *Service) Update(ctx context.Context, id string, input UpdateInput) (*domain.EmailTemplate, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		t.Name = *input.Name
	}
	if input.Subject != nil {
		t.Subject = *input.Subject
	}
	if input.Body != nil {
		t.Body = *input.Body
	}
	if input.Language != nil {
		t.Language = *input.Language
	}
	if input.IsDefault != nil {
		t.IsDefault = *input.IsDefault
	}
	if input.Variables != nil {
		t.Variables = input.Variables
	}
	t.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("updating template: %w", err)
	}
	return t, nil
}

// Delete removes a template.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Rendered is the output of a preview: the template applied to one contact.
type Rendered struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Preview renders the template for one contact without sending anything.
// The variable scope matches what the dispatch pipeline uses at send time,
// minus per-campaign custom data.
func (s *Service) Preview(ctx context.Context, templateID, contactID string) (*Rendered, error) {
	t, err := s.repo.Get(ctx, templateID)
	if err != nil {
		return nil, err
	}
	c, err := s.repo.GetContact(ctx, contactID)
	if err != nil {
		return nil, err
	}

	vars := dispatch.MergeVars(*c, nil)
	return &Rendered{
		Subject: dispatch.Render(t.Subject, vars),
		Body:    dispatch.Render(t.Body, vars),
	}, nil
}
