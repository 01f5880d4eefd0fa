package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Berkaniis/survey-tool/internal/service/template"
)

type createTemplateRequest struct {
	Name      string            `json:"name"`
	Subject   string            `json:"subject"`
	Body      string            `json:"body"`
	Language  string            `json:"language"`
	IsDefault bool              `json:"is_default"`
	CreatedBy string            `json:"created_by"`
	Variables map[string]string `json:"variables"`
}

// CreateTemplate persists a new email template.
func (h *Handlers) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req createTemplateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := h.templates.Create(r.Context(), template.CreateInput{
		Name:      req.Name,
		Subject:   req.Subject,
		Body:      req.Body,
		Language:  req.Language,
		IsDefault: req.IsDefault,
		CreatedBy: req.CreatedBy,
		Variables: req.Variables,
	})
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, t)
}

// ListTemplates returns all templates.
func (h *Handlers) ListTemplates(w http.ResponseWriter, r *http.Request) {
	out, err := h.templates.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, out)
}

// GetTemplate returns one template.
func (h *Handlers) GetTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := h.templates.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, template.ErrNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, t)
}

type updateTemplateRequest struct {
	Name      *string           `json:"name"`
	Subject   *string           `json:"subject"`
	Body      *string           `json:"body"`
	Language  *string           `json:"language"`
	IsDefault *bool             `json:"is_default"`
	Variables map[string]string `json:"variables"`
}

// UpdateTemplate applies a partial update.
func (h *Handlers) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	var req updateTemplateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := h.templates.Update(r.Context(), chi.URLParam(r, "id"), template.UpdateInput{
		Name:      req.Name,
		Subject:   req.Subject,
		Body:      req.Body,
		Language:  req.Language,
		IsDefault: req.IsDefault,
		Variables: req.Variables,
	})
	if err != nil {
		if errors.Is(err, template.ErrNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, t)
}

// DeleteTemplate removes a template.
func (h *Handlers) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := h.templates.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, template.ErrNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type previewRequest struct {
	ContactID string `json:"contact_id"`
}

// PreviewTemplate renders the template for one contact without sending.
func (h *Handlers) PreviewTemplate(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ContactID == "" {
		respondError(w, http.StatusBadRequest, "contact_id is required")
		return
	}

	rendered, err := h.templates.Preview(r.Context(), chi.URLParam(r, "id"), req.ContactID)
	if err != nil {
		switch {
		case errors.Is(err, template.ErrNotFound), errors.Is(err, template.ErrContactNotFound):
			respondError(w, http.StatusNotFound, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	respondJSON(w, http.StatusOK, rendered)
}
