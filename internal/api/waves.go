package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Berkaniis/survey-tool/internal/domain"
	"github.com/Berkaniis/survey-tool/internal/service/wave"
)

type createWaveRequest struct {
	CampaignID  string `json:"campaign_id"`
	Kind        string `json:"kind"`
	TemplateID  string `json:"template_id"`
	InitiatedBy string `json:"initiated_by"`
	// FilterStatus narrows the wave to recipients in one status.
	// Empty means all recipients.
	FilterStatus string `json:"filter_status"`
}

// CreateWave creates a PENDING wave with its snapshot target count.
func (h *Handlers) CreateWave(w http.ResponseWriter, r *http.Request) {
	var req createWaveRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sw, err := h.waves.Create(r.Context(), wave.CreateInput{
		CampaignID:  req.CampaignID,
		Kind:        domain.WaveKind(req.Kind),
		TemplateID:  req.TemplateID,
		InitiatedBy: req.InitiatedBy,
		Filter:      domain.WaveFilter{Status: domain.RecipientStatus(req.FilterStatus)},
	})
	if err != nil {
		switch {
		case errors.Is(err, wave.ErrCampaignNotFound), errors.Is(err, wave.ErrTemplateNotFound):
			respondError(w, http.StatusNotFound, err.Error())
		default:
			respondError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	respondJSON(w, http.StatusCreated, sw)
}

// StartWave transitions a wave to RUNNING and seeds the dispatch queue.
// Responds once tasks are enqueued, not once they are sent.
func (h *Handlers) StartWave(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	enqueued, err := h.waves.Start(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, wave.ErrNotFound):
			respondError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, wave.ErrInvalidTransition):
			respondError(w, http.StatusConflict, err.Error())
		case errors.Is(err, wave.ErrProviderUnavailable):
			respondError(w, http.StatusServiceUnavailable, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]any{
		"wave_id":  id,
		"enqueued": enqueued,
	})
}

// GetWave returns wave status: snapshot and enumerated counts, sent/failed
// counters and timestamps.
func (h *Handlers) GetWave(w http.ResponseWriter, r *http.Request) {
	sw, err := h.waves.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, wave.ErrNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, sw)
}
