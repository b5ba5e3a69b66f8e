package handlers

import (
	"net/http"
	"time"
)

// Health reports liveness and store reachability.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.Error("store ping failed", "error", err)
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	h.writeJSON(w, code, map[string]string{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
