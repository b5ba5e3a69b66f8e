// Package handlers implements HTTP request handlers for the draftcue API.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/draftcue/draftcue/internal/scheduler"
	"github.com/draftcue/draftcue/internal/store"
)

// Handlers contains all HTTP handler dependencies.
type Handlers struct {
	store  store.Store
	sched  *scheduler.Scheduler
	logger *slog.Logger
}

// New creates a new Handlers instance.
func New(st store.Store, sched *scheduler.Scheduler) *Handlers {
	return &Handlers{
		store:  st,
		sched:  sched,
		logger: slog.Default(),
	}
}

// SetLogger overrides the default logger.
func (h *Handlers) SetLogger(l *slog.Logger) {
	if l != nil {
		h.logger = l
	}
}

// writeError logs the internal error and returns a sanitized JSON error to the client.
func (h *Handlers) writeError(w http.ResponseWriter, status int, msg string, err error) {
	if err != nil {
		h.logger.Error(msg, "error", err, "status", status)
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// idParam parses a numeric chi URL parameter.
func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}
