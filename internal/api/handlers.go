package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Berkaniis/survey-tool/internal/domain"
	"github.com/Berkaniis/survey-tool/internal/service/campaign"
	"github.com/Berkaniis/survey-tool/internal/service/template"
	"github.com/Berkaniis/survey-tool/internal/service/wave"
)

// WaveService is the wave surface the handlers need.
type WaveService interface {
	Create(ctx context.Context, input wave.CreateInput) (*domain.SendWave, error)
	Start(ctx context.Context, id string) (int, error)
	Get(ctx context.Context, id string) (*domain.SendWave, error)
}

// TemplateService is the template surface the handlers need.
type TemplateService interface {
	Create(ctx context.Context, input template.CreateInput) (*domain.EmailTemplate, error)
	Get(ctx context.Context, id string) (*domain.EmailTemplate, error)
	List(ctx context.Context) ([]domain.EmailTemplate, error)
	Update(ctx context.Context, id string, input template.UpdateInput) (*domain.EmailTemplate, error)
	Delete(ctx context.Context, id string) error
	Preview(ctx context.Context, templateID, contactID string) (*template.Rendered, error)
}

// CampaignService is the campaign surface the handlers need.
type CampaignService interface {
	Create(ctx context.Context, input campaign.CreateInput) (*domain.Campaign, error)
	Get(ctx context.Context, id string) (*domain.Campaign, error)
	List(ctx context.Context) ([]domain.Campaign, error)
	StatusCounts(ctx context.Context, id string) (map[domain.RecipientStatus]int, error)
	ApplyEvent(ctx context.Context, campaignID, contactID string, event domain.EngagementEvent) error
}

// ProviderStatus reports connectivity of the outbound mail provider.
type ProviderStatus interface {
	ValidateConnection(ctx context.Context) bool
	Name() string
}

// Handlers holds the services behind the HTTP surface.
type Handlers struct {
	waves     WaveService
	templates TemplateService
	campaigns CampaignService
	provider  ProviderStatus
}

// NewHandlers wires the services into the HTTP handlers.
func NewHandlers(waves WaveService, templates TemplateService, campaigns CampaignService, provider ProviderStatus) *Handlers {
	return &Handlers{waves: waves, templates: templates, campaigns: campaigns, provider: provider}
}

// HealthCheck reports liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ProviderStatusHandler surfaces provider configuration problems without
// sending anything.
func (h *Handlers) ProviderStatusHandler(w http.ResponseWriter, r *http.Request) {
	connected := h.provider.ValidateConnection(r.Context())
	status := http.StatusOK
	if !connected {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, map[string]any{
		"provider":  h.provider.Name(),
		"connected": connected,
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}
