package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/draftcue/draftcue/internal/store"
	"github.com/draftcue/draftcue/pkg/types"
)

// ListTemplates returns all templates.
func (h *Handlers) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.store.Templates().List(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to list templates", err)
		return
	}
	h.writeJSON(w, http.StatusOK, templates)
}

// CreateTemplate creates a content template.
func (h *Handlers) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var tmpl types.Template
	if err := json.NewDecoder(r.Body).Decode(&tmpl); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid template payload", err)
		return
	}
	if strings.TrimSpace(tmpl.Name) == "" {
		h.writeError(w, http.StatusBadRequest, "template name required", nil)
		return
	}

	if err := h.store.Templates().Create(r.Context(), &tmpl); err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to create template", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, tmpl)
}

// GetTemplate returns one template by ID.
func (h *Handlers) GetTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "templateID")
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid template id", nil)
		return
	}

	tmpl, err := h.store.Templates().GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "template not found", nil)
			return
		}
		h.writeError(w, http.StatusInternalServerError, "failed to fetch template", err)
		return
	}
	h.writeJSON(w, http.StatusOK, tmpl)
}
