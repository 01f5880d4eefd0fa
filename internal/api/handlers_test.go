package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Berkaniis/survey-tool/internal/domain"
	"github.com/Berkaniis/survey-tool/internal/service/campaign"
	"github.com/Berkaniis/survey-tool/internal/service/template"
	"github.com/Berkaniis/survey-tool/internal/service/wave"
)

type stubWaves struct {
	wave     *domain.SendWave
	startN   int
	startErr error
	getErr   error
}

func (s *stubWaves) Create(_ context.Context, input wave.CreateInput) (*domain.SendWave, error) {
	if input.CampaignID == "" {
		return nil, wave.ErrCampaignNotFound
	}
	return s.wave, nil
}

func (s *stubWaves) Start(context.Context, string) (int, error) { return s.startN, s.startErr }

func (s *stubWaves) Get(context.Context, string) (*domain.SendWave, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.wave, nil
}

type stubTemplates struct {
	rendered *template.Rendered
	err      error
}

func (s *stubTemplates) Create(_ context.Context, in template.CreateInput) (*domain.EmailTemplate, error) {
	return &domain.EmailTemplate{ID: "tpl-1", Name: in.Name}, s.err
}
func (s *stubTemplates) Get(context.Context, string) (*domain.EmailTemplate, error) {
	return nil, s.err
}
func (s *stubTemplates) List(context.Context) ([]domain.EmailTemplate, error) { return nil, s.err }
func (s *stubTemplates) Update(context.Context, string, template.UpdateInput) (*domain.EmailTemplate, error) {
	return nil, s.err
}
func (s *stubTemplates) Delete(context.Context, string) error { return s.err }
func (s *stubTemplates) Preview(context.Context, string, string) (*template.Rendered, error) {
	return s.rendered, s.err
}

type stubCampaigns struct {
	eventErr error
}

func (s *stubCampaigns) Create(_ context.Context, in campaign.CreateInput) (*domain.Campaign, error) {
	return &domain.Campaign{ID: "camp-1", Title: in.Title}, nil
}
func (s *stubCampaigns) Get(context.Context, string) (*domain.Campaign, error) {
	return &domain.Campaign{ID: "camp-1"}, nil
}
func (s *stubCampaigns) List(context.Context) ([]domain.Campaign, error) { return nil, nil }
func (s *stubCampaigns) StatusCounts(context.Context, string) (map[domain.RecipientStatus]int, error) {
	return map[domain.RecipientStatus]int{domain.RecipientSent: 2}, nil
}
func (s *stubCampaigns) ApplyEvent(context.Context, string, string, domain.EngagementEvent) error {
	return s.eventErr
}

type stubProvider struct{ connected bool }

func (s stubProvider) ValidateConnection(context.Context) bool { return s.connected }
func (s stubProvider) Name() string                            { return "smtp" }

func newTestRouter(waves WaveService, events error, connected bool) http.Handler {
	h := NewHandlers(
		waves,
		&stubTemplates{rendered: &template.Rendered{Subject: "Hi Ann", Body: "<p>x</p>"}},
		&stubCampaigns{eventErr: events},
		stubProvider{connected: connected},
	)
	return SetupRoutes(h)
}

func doRequest(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(&stubWaves{}, nil, true)

	rr := doRequest(t, router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestCreateWave(t *testing.T) {
	sw := &domain.SendWave{ID: "wave-1", Status: domain.WavePending, ContactCount: 3}
	router := newTestRouter(&stubWaves{wave: sw}, nil, true)

	rr := doRequest(t, router, http.MethodPost, "/api/waves",
		`{"campaign_id":"camp-1","template_id":"tpl-1","kind":"INITIAL"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	var got domain.SendWave
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "wave-1", got.ID)
	assert.Equal(t, 3, got.ContactCount)
}

func TestCreateWaveUnknownCampaign(t *testing.T) {
	router := newTestRouter(&stubWaves{}, nil, true)

	rr := doRequest(t, router, http.MethodPost, "/api/waves", `{"template_id":"tpl-1"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestStartWave(t *testing.T) {
	router := newTestRouter(&stubWaves{startN: 42}, nil, true)

	rr := doRequest(t, router, http.MethodPost, "/api/waves/wave-1/start", "")
	require.Equal(t, http.StatusAccepted, rr.Code)
	assert.Contains(t, rr.Body.String(), `"enqueued":42`)
}

func TestStartWaveConflict(t *testing.T) {
	router := newTestRouter(&stubWaves{startErr: wave.ErrInvalidTransition}, nil, true)

	rr := doRequest(t, router, http.MethodPost, "/api/waves/wave-1/start", "")
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestStartWaveProviderDown(t *testing.T) {
	router := newTestRouter(&stubWaves{startErr: wave.ErrProviderUnavailable}, nil, true)

	rr := doRequest(t, router, http.MethodPost, "/api/waves/wave-1/start", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestGetWaveNotFound(t *testing.T) {
	router := newTestRouter(&stubWaves{getErr: wave.ErrNotFound}, nil, true)

	rr := doRequest(t, router, http.MethodGet, "/api/waves/missing", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPreviewTemplate(t *testing.T) {
	router := newTestRouter(&stubWaves{}, nil, true)

	rr := doRequest(t, router, http.MethodPost, "/api/templates/tpl-1/preview",
		`{"contact_id":"c-1"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Hi Ann")
}

func TestPreviewTemplateRequiresContact(t *testing.T) {
	router := newTestRouter(&stubWaves{}, nil, true)

	rr := doRequest(t, router, http.MethodPost, "/api/templates/tpl-1/preview", `{}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestApplyRecipientEvent(t *testing.T) {
	router := newTestRouter(&stubWaves{}, nil, true)

	rr := doRequest(t, router, http.MethodPost, "/api/recipients/camp-1/c-1/events",
		`{"event":"responded"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestApplyRecipientEventUnknown(t *testing.T) {
	router := newTestRouter(&stubWaves{}, campaign.ErrUnknownEvent, true)

	rr := doRequest(t, router, http.MethodPost, "/api/recipients/camp-1/c-1/events",
		`{"event":"clicked"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestProviderStatus(t *testing.T) {
	router := newTestRouter(&stubWaves{}, nil, false)

	rr := doRequest(t, router, http.MethodGet, "/api/provider/status", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), `"connected":false`)
}
