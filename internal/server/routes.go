package server

import (
	"github.com/go-chi/chi/v5"

	"github.com/draftcue/draftcue/internal/server/handlers"
)

func (s *Server) registerRoutes(r chi.Router) {
	h := handlers.New(s.store, s.sched)
	h.SetLogger(s.logger)

	r.Route("/api", func(r chi.Router) {
		// Health
		r.Get("/health", h.Health)

		// Templates
		r.Get("/templates", h.ListTemplates)
		r.Post("/templates", h.CreateTemplate)
		r.Get("/templates/{templateID}", h.GetTemplate)

		// Schedules
		r.Get("/schedules", h.ListSchedules)
		r.Post("/schedules", h.CreateSchedule)
		r.Post("/schedules/bulk", h.CreateSchedulesBulk)
		r.Delete("/schedules/bulk", h.DeleteSchedulesBulk)
		r.Get("/schedules/{scheduleID}", h.GetSchedule)
		r.Put("/schedules/{scheduleID}", h.UpdateSchedule)
		r.Delete("/schedules/{scheduleID}", h.DeleteSchedule)
		r.Post("/schedules/{scheduleID}/activate", h.ActivateSchedule)
		r.Post("/schedules/{scheduleID}/deactivate", h.DeactivateSchedule)
		r.Post("/schedules/{scheduleID}/run", h.RunSchedule)

		// Single events
		r.Post("/events", h.ScheduleSingleEvent)
		r.Put("/events/{scheduleID}", h.RescheduleSingleEvent)

		// Manual scheduling pass
		r.Post("/process", h.ProcessDue)

		// History
		r.Get("/history", h.ListHistory)
		r.Get("/history/{historyID}", h.GetHistory)
		r.Get("/history/{historyID}/activity", h.GetHistoryActivity)
	})
}
