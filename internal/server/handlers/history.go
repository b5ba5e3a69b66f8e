package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/draftcue/draftcue/internal/store"
	"github.com/draftcue/draftcue/pkg/types"
)

// ListHistory returns a paginated history page. List rows never include the
// generated content or the log; fetch a record by ID for those.
func (h *Handlers) ListHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := types.HistoryFilter{
		Status: types.HistoryStatus(q.Get("status")),
		Search: q.Get("search"),
	}
	if v := q.Get("templateId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid templateId", nil)
			return
		}
		filter.TemplateID = id
	}
	if v := q.Get("page"); v != "" {
		filter.Page, _ = strconv.Atoi(v)
	}
	if v := q.Get("perPage"); v != "" {
		filter.PerPage, _ = strconv.Atoi(v)
	}

	page, err := h.store.History().GetHistory(r.Context(), filter)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to list history", err)
		return
	}
	h.writeJSON(w, http.StatusOK, page)
}

// GetHistory returns one full history record including content and log.
func (h *Handlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.fetchHistory(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, rec)
}

// GetHistoryActivity returns only the activity-visible log entries of a
// history record: progress, warnings, and errors, without the AI payloads.
func (h *Handlers) GetHistoryActivity(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.fetchHistory(w, r)
	if !ok {
		return
	}

	activity := make([]types.LogEntry, 0, len(rec.Log))
	for _, entry := range rec.Log {
		if entry.Kind.ActivityVisible() {
			activity = append(activity, entry)
		}
	}
	h.writeJSON(w, http.StatusOK, activity)
}

func (h *Handlers) fetchHistory(w http.ResponseWriter, r *http.Request) (*types.HistoryRecord, bool) {
	id, ok := idParam(r, "historyID")
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid history id", nil)
		return nil, false
	}

	rec, err := h.store.History().GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "history record not found", nil)
			return nil, false
		}
		h.writeError(w, http.StatusInternalServerError, "failed to fetch history record", err)
		return nil, false
	}
	return rec, true
}
