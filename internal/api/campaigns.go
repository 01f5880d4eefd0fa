package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Berkaniis/survey-tool/internal/domain"
	"github.com/Berkaniis/survey-tool/internal/service/campaign"
)

type createCampaignRequest struct {
	Title           string     `json:"title"`
	OwnerID         string     `json:"owner_id"`
	LaunchDate      *time.Time `json:"launch_date"`
	DefaultLanguage string     `json:"default_language"`
}

// CreateCampaign persists a new campaign in DRAFT status.
func (h *Handlers) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req createCampaignRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.campaigns.Create(r.Context(), campaign.CreateInput{
		Title:           req.Title,
		OwnerID:         req.OwnerID,
		LaunchDate:      req.LaunchDate,
		DefaultLanguage: req.DefaultLanguage,
	})
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

// ListCampaigns returns all campaigns.
func (h *Handlers) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	out, err := h.campaigns.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, out)
}

// GetCampaign returns one campaign with recipient counts.
func (h *Handlers) GetCampaign(w http.ResponseWriter, r *http.Request) {
	c, err := h.campaigns.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, campaign.ErrNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// CampaignStatusCounts returns per-status recipient counts.
func (h *Handlers) CampaignStatusCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.campaigns.StatusCounts(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, campaign.ErrNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, counts)
}

type recipientEventRequest struct {
	Event string `json:"event"`
}

// ApplyRecipientEvent records an externally-observed transition
// (opened, responded, optout, bounced) for one recipient.
func (h *Handlers) ApplyRecipientEvent(w http.ResponseWriter, r *http.Request) {
	var req recipientEventRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	campaignID := chi.URLParam(r, "campaignID")
	contactID := chi.URLParam(r, "contactID")
	err := h.campaigns.ApplyEvent(r.Context(), campaignID, contactID, domain.EngagementEvent(req.Event))
	if err != nil {
		switch {
		case errors.Is(err, campaign.ErrUnknownEvent):
			respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, campaign.ErrRecipientNotFound):
			respondError(w, http.StatusNotFound, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"campaign_id": campaignID,
		"contact_id":  contactID,
		"event":       req.Event,
	})
}
