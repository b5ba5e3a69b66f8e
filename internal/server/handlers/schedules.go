package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/draftcue/draftcue/internal/store"
	"github.com/draftcue/draftcue/pkg/types"
)

// ListSchedules returns all schedules.
func (h *Handlers) ListSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := h.store.Schedules().List(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to list schedules", err)
		return
	}
	h.writeJSON(w, http.StatusOK, schedules)
}

// CreateSchedule creates a single schedule.
func (h *Handlers) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var sched types.Schedule
	if err := json.NewDecoder(r.Body).Decode(&sched); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid schedule payload", err)
		return
	}

	if _, err := h.sched.SaveScheduleBulk(r.Context(), []*types.Schedule{&sched}); err != nil {
		h.writeError(w, http.StatusBadRequest, "failed to create schedule", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, sched)
}

// CreateSchedulesBulk creates a batch of schedules atomically.
func (h *Handlers) CreateSchedulesBulk(w http.ResponseWriter, r *http.Request) {
	var schedules []*types.Schedule
	if err := json.NewDecoder(r.Body).Decode(&schedules); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid schedules payload", err)
		return
	}
	if len(schedules) == 0 {
		h.writeError(w, http.StatusBadRequest, "empty schedule batch", nil)
		return
	}

	n, err := h.sched.SaveScheduleBulk(r.Context(), schedules)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "failed to create schedules", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]any{
		"created":   n,
		"schedules": schedules,
	})
}

// DeleteSchedulesBulk removes a batch of schedules. Absent ids are skipped.
func (h *Handlers) DeleteSchedulesBulk(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		IDs []int64 `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid payload", err)
		return
	}
	if len(payload.IDs) == 0 {
		h.writeError(w, http.StatusBadRequest, "no ids given", nil)
		return
	}

	n, err := h.sched.DeleteScheduleBulk(r.Context(), payload.IDs)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to delete schedules", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

// GetSchedule returns one schedule by ID.
func (h *Handlers) GetSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "scheduleID")
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid schedule id", nil)
		return
	}

	sched, err := h.store.Schedules().GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "schedule not found", nil)
			return
		}
		h.writeError(w, http.StatusInternalServerError, "failed to fetch schedule", err)
		return
	}
	h.writeJSON(w, http.StatusOK, sched)
}

// UpdateSchedule persists edits to frequency, topic, rules, and active flag.
// next_run is owned by the claim path and cannot be set here.
func (h *Handlers) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "scheduleID")
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid schedule id", nil)
		return
	}

	var sched types.Schedule
	if err := json.NewDecoder(r.Body).Decode(&sched); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid schedule payload", err)
		return
	}
	sched.ID = id

	if err := h.store.Schedules().Update(r.Context(), &sched); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "schedule not found", nil)
			return
		}
		h.writeError(w, http.StatusInternalServerError, "failed to update schedule", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// DeleteSchedule removes one schedule. Deleting an absent id is not an error.
func (h *Handlers) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "scheduleID")
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid schedule id", nil)
		return
	}

	existed, err := h.store.Schedules().Delete(r.Context(), id)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to delete schedule", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"deleted": existed})
}

// ActivateSchedule turns a schedule on.
func (h *Handlers) ActivateSchedule(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

// DeactivateSchedule turns a schedule off.
func (h *Handlers) DeactivateSchedule(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *Handlers) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	id, ok := idParam(r, "scheduleID")
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid schedule id", nil)
		return
	}

	found, err := h.store.Schedules().SetActive(r.Context(), id, active)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to update schedule", err)
		return
	}
	if !found {
		h.writeError(w, http.StatusNotFound, "schedule not found", nil)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"active": active})
}

// RunSchedule executes a schedule immediately, leaving its cadence untouched.
func (h *Handlers) RunSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "scheduleID")
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid schedule id", nil)
		return
	}

	histID, err := h.sched.RunNow(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "schedule not found", nil)
			return
		}
		// The history record captured the failure; report where to look.
		h.writeJSON(w, http.StatusBadGateway, map[string]any{
			"status":    "failed",
			"historyId": histID,
			"error":     err.Error(),
		})
		return
	}
	h.writeJSON(w, http.StatusAccepted, map[string]any{
		"status":    "completed",
		"historyId": histID,
	})
}

// ScheduleSingleEvent creates a one-shot schedule due at a given time.
func (h *Handlers) ScheduleSingleEvent(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		TemplateID int64     `json:"templateId"`
		Topic      string    `json:"topic"`
		At         time.Time `json:"at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid event payload", err)
		return
	}

	sched, err := h.sched.ScheduleSingleEvent(r.Context(), payload.TemplateID, payload.Topic, payload.At)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "failed to schedule event", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, sched)
}

// RescheduleSingleEvent moves a pending one-shot schedule to a new time,
// superseding its registered wakeup.
func (h *Handlers) RescheduleSingleEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "scheduleID")
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid schedule id", nil)
		return
	}

	var payload struct {
		At time.Time `json:"at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid event payload", err)
		return
	}

	sched, err := h.sched.RescheduleSingleEvent(r.Context(), id, payload.At)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "schedule not found", err)
			return
		}
		h.writeError(w, http.StatusBadRequest, "failed to reschedule event", err)
		return
	}
	h.writeJSON(w, http.StatusOK, sched)
}

// ProcessDue triggers one scheduling pass outside the regular tick.
func (h *Handlers) ProcessDue(w http.ResponseWriter, r *http.Request) {
	ran, err := h.sched.ProcessDue(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "scheduling pass failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int{"processed": ran})
}
