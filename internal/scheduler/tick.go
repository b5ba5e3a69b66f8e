package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/draftcue/draftcue/internal/generate"
	"github.com/draftcue/draftcue/internal/interval"
	"github.com/draftcue/draftcue/internal/metrics"
	"github.com/draftcue/draftcue/internal/rules"
	"github.com/draftcue/draftcue/internal/store"
	"github.com/draftcue/draftcue/pkg/types"
)

// onceAdvance is how far a one-shot schedule's next_run moves on claim. The
// claim needs a value different from the old one; the schedule is deactivated
// after a successful run, so the advanced time only matters as a retry slot
// when generation fails.
const onceAdvance = 24 * time.Hour

// ProcessDue runs one scheduling pass: fetch due schedules, claim each, and
// generate for the claims won. Returns how many schedules this pass executed.
// Per-schedule failures are logged and alerted, never propagated; only the
// due query itself can fail.
func (s *Scheduler) ProcessDue(ctx context.Context) (int, error) {
	metrics.TicksTotal.Add(1)
	now := s.now()

	due, err := s.store.Schedules().GetDue(ctx, now, s.cfg.DueLimit)
	if err != nil {
		return 0, fmt.Errorf("fetching due schedules: %w", err)
	}
	metrics.SchedulesDue.Add(int64(len(due)))
	if len(due) == 0 {
		return 0, nil
	}

	s.logger.Debug("processing due schedules", "count", len(due))
	ran := 0
	for _, sched := range due {
		if s.processOne(ctx, sched) {
			ran++
		}
	}
	return ran, nil
}

// processOne claims and executes a single due schedule. Returns true when
// this instance won the claim and ran the schedule. A panic in one schedule
// must not take down the rest of the tick.
func (s *Scheduler) processOne(ctx context.Context, sched types.Schedule) (ran bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("schedule processing panicked", "schedule_id", sched.ID, "panic", r)
			ran = false
		}
	}()

	now := s.now()
	newNext, err := s.computeNext(sched, now)
	if err != nil {
		s.deactivate(ctx, sched.ID, err)
		return false
	}

	won, err := s.store.Schedules().ClaimNextRun(ctx, sched.ID, newNext, sched.NextRun)
	if err != nil {
		s.logger.Error("claim failed", "schedule_id", sched.ID, "error", err)
		return false
	}
	if !won {
		// Another instance got there first. Not an error.
		metrics.ClaimsLost.Add(1)
		s.logger.Debug("claim lost", "schedule_id", sched.ID, "next_run", sched.NextRun)
		return false
	}
	metrics.ClaimsWon.Add(1)

	if _, err := s.execute(ctx, sched); err != nil {
		return true
	}

	if sched.Frequency.IsOnce() {
		if _, err := s.store.Schedules().SetActive(ctx, sched.ID, false); err != nil {
			s.logger.Error("deactivating one-shot schedule", "schedule_id", sched.ID, "error", err)
		} else {
			metrics.SchedulesDeactivated.Add(1)
		}
	}
	return true
}

// computeNext determines the claim's replacement next_run. Rule-based
// schedules search forward for the next matching window; plain frequencies
// advance by whole periods from the due time so the anchor phase survives
// catch-up gaps.
func (s *Scheduler) computeNext(sched types.Schedule, now time.Time) (time.Time, error) {
	if sched.Frequency.IsOnce() {
		return now.Add(onceAdvance), nil
	}

	if sched.Rules != nil && len(sched.Rules.Conditions) > 0 {
		rs := rules.Sanitize(sched.Rules)
		next, err := rules.NextMatch(rs, now.Add(time.Minute), s.cfg.HorizonDays)
		if err != nil {
			return time.Time{}, fmt.Errorf("schedule %d: %w", sched.ID, err)
		}
		return next, nil
	}

	next, err := interval.Next(sched.Frequency, sched.NextRun, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("schedule %d: %w", sched.ID, err)
	}
	return next, nil
}

// deactivate turns off a schedule that can no longer compute a next run and
// raises an alert so the misconfiguration is visible.
func (s *Scheduler) deactivate(ctx context.Context, id int64, cause error) {
	level := types.AlertLevelError
	if errors.Is(cause, rules.ErrNoMatchingWindow) {
		level = types.AlertLevelWarning
	}
	s.logger.Warn("deactivating schedule", "schedule_id", id, "cause", cause)

	if _, err := s.store.Schedules().SetActive(ctx, id, false); err != nil {
		s.logger.Error("deactivation failed", "schedule_id", id, "error", err)
		return
	}
	metrics.SchedulesDeactivated.Add(1)
	s.alertFn(types.Alert{
		Level:      level,
		ScheduleID: id,
		Message:    fmt.Sprintf("schedule deactivated: %v", cause),
		Timestamp:  s.now(),
	})
}

// execute creates the history record, calls the generation backend, and
// finalizes the record exactly once. The returned history ID is valid even
// when generation failed.
func (s *Scheduler) execute(ctx context.Context, sched types.Schedule) (int64, error) {
	history := s.store.History()

	tmpl, err := s.store.Templates().GetByID(ctx, sched.TemplateID)
	if err != nil {
		rec := &types.HistoryRecord{
			TemplateID: sched.TemplateID,
			Status:     types.HistoryProcessing,
			CreatedAt:  s.now(),
		}
		if cerr := history.Create(ctx, rec); cerr != nil {
			s.logger.Error("recording missing-template failure", "schedule_id", sched.ID, "error", cerr)
			return 0, err
		}
		metrics.HistoryWrites.Add(1)
		msg := fmt.Sprintf("template %d not found", sched.TemplateID)
		s.addLog(ctx, &types.LogEntry{
			HistoryID: rec.ID,
			EntryType: "scheduler",
			Kind:      types.LogError,
			Payload:   map[string]any{"error": msg},
		})
		if ferr := history.Finalize(ctx, rec.ID, types.HistoryFailed, "", "", msg); ferr != nil {
			s.logger.Error("finalizing history", "history_id", rec.ID, "error", ferr)
		}
		s.alertFn(types.Alert{
			Level:      types.AlertLevelError,
			ScheduleID: sched.ID,
			Message:    msg,
			Timestamp:  s.now(),
		})
		return rec.ID, err
	}

	rec := &types.HistoryRecord{
		TemplateID:   tmpl.ID,
		TemplateName: tmpl.Name,
		Status:       types.HistoryProcessing,
		CreatedAt:    s.now(),
	}
	if err := history.Create(ctx, rec); err != nil {
		err = fmt.Errorf("creating history record: %w", err)
		s.logger.Error("history write failed", "schedule_id", sched.ID, "error", err)
		s.alertFn(types.Alert{
			Level:      types.AlertLevelError,
			ScheduleID: sched.ID,
			Message:    err.Error(),
			Timestamp:  s.now(),
		})
		return 0, err
	}
	metrics.HistoryWrites.Add(1)

	s.addLog(ctx, &types.LogEntry{
		HistoryID: rec.ID,
		EntryType: "generator",
		Kind:      types.LogAIRequest,
		Payload: map[string]any{
			"backend":  s.gen.Name(),
			"template": tmpl.Name,
			"topic":    sched.Topic,
		},
	})

	metrics.GenerationsTotal.Add(1)
	res, err := s.gen.Generate(ctx, generate.Request{Template: *tmpl, Topic: sched.Topic})
	if err != nil {
		metrics.GenerationsFailed.Add(1)
		s.addLog(ctx, &types.LogEntry{
			HistoryID: rec.ID,
			EntryType: "generator",
			Kind:      types.LogError,
			Payload:   map[string]any{"error": err.Error()},
		})
		if ferr := history.Finalize(ctx, rec.ID, types.HistoryFailed, "", "", err.Error()); ferr != nil {
			s.logger.Error("finalizing history", "history_id", rec.ID, "error", ferr)
		}
		s.alertFn(types.Alert{
			Level:      types.AlertLevelError,
			ScheduleID: sched.ID,
			Message:    fmt.Sprintf("generation failed: %v", err),
			Timestamp:  s.now(),
		})
		s.logger.Error("generation failed", "schedule_id", sched.ID, "history_id", rec.ID, "error", err)
		return rec.ID, err
	}

	s.addLog(ctx, &types.LogEntry{
		HistoryID: rec.ID,
		EntryType: "generator",
		Kind:      types.LogAIResponse,
		Payload: map[string]any{
			"result_id": res.ID,
			"title":     res.Title,
		},
	})
	if err := history.Finalize(ctx, rec.ID, types.HistoryCompleted, res.Title, res.Content, ""); err != nil {
		s.logger.Error("finalizing history", "history_id", rec.ID, "error", err)
		return rec.ID, err
	}
	s.logger.Info("schedule executed",
		"schedule_id", sched.ID,
		"history_id", rec.ID,
		"title", res.Title,
	)
	return rec.ID, nil
}

// addLog appends a history log entry. Failed audit writes never abort the
// run they describe, but they are not silent either.
func (s *Scheduler) addLog(ctx context.Context, entry *types.LogEntry) {
	if err := s.store.History().AddLogEntry(ctx, entry); err != nil {
		s.logger.Error("appending history log",
			"history_id", entry.HistoryID,
			"kind", entry.Kind,
			"error", err,
		)
	}
}

// RunNow executes a schedule immediately, bypassing the claim. next_run is
// left untouched so the regular cadence is unaffected. Returns the history
// record ID; store.ErrNotFound when the schedule does not exist.
func (s *Scheduler) RunNow(ctx context.Context, id int64) (int64, error) {
	sched, err := s.store.Schedules().GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	return s.execute(ctx, *sched)
}

// SaveScheduleBulk normalizes and persists a batch of schedules atomically.
// Zero next_run values are initialized from the frequency so new schedules
// fire on cadence instead of immediately.
func (s *Scheduler) SaveScheduleBulk(ctx context.Context, schedules []*types.Schedule) (int, error) {
	now := s.now()
	for _, sched := range schedules {
		if sched.TemplateID == 0 {
			return 0, fmt.Errorf("schedule missing template id")
		}
		if sched.Rules != nil {
			rs := rules.Sanitize(sched.Rules)
			sched.Rules = &rs
		}
		if sched.NextRun.IsZero() {
			next, err := s.initialNextRun(*sched, now)
			if err != nil {
				return 0, err
			}
			sched.NextRun = next
		}
	}

	n, err := s.store.Schedules().CreateBulk(ctx, schedules)
	if err != nil {
		return 0, err
	}
	for _, sched := range schedules {
		if sched.Frequency.IsOnce() && sched.Active {
			s.wakeups.Register(sched.ID, sched.NextRun)
		}
	}
	return n, nil
}

func (s *Scheduler) initialNextRun(sched types.Schedule, now time.Time) (time.Time, error) {
	if sched.Frequency.IsOnce() {
		return now, nil
	}
	if sched.Rules != nil && len(sched.Rules.Conditions) > 0 {
		return rules.NextMatch(*sched.Rules, now, s.cfg.HorizonDays)
	}
	return interval.Next(sched.Frequency, now, now)
}

// DeleteScheduleBulk removes schedules and cancels any pending wakeups.
// Absent ids are skipped; the count reflects rows that actually existed.
func (s *Scheduler) DeleteScheduleBulk(ctx context.Context, ids []int64) (int64, error) {
	for _, id := range ids {
		s.wakeups.Clear(id)
	}
	return s.store.Schedules().DeleteBulk(ctx, ids)
}

// ScheduleSingleEvent creates a one-shot schedule due at the given time and
// arms an in-process wakeup so it fires near its due time rather than on the
// next poll.
func (s *Scheduler) ScheduleSingleEvent(ctx context.Context, templateID int64, topic string, at time.Time) (*types.Schedule, error) {
	if at.Before(s.now()) {
		return nil, fmt.Errorf("single event time %s is in the past", at.Format(time.RFC3339))
	}
	if _, err := s.store.Templates().GetByID(ctx, templateID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("template %d not found", templateID)
		}
		return nil, err
	}

	sched := &types.Schedule{
		TemplateID: templateID,
		Frequency:  types.FreqOnce,
		Topic:      topic,
		NextRun:    at,
		Active:     true,
	}
	if err := s.store.Schedules().Create(ctx, sched); err != nil {
		return nil, err
	}
	s.wakeups.Register(sched.ID, at)
	return sched, nil
}

// RescheduleSingleEvent moves a pending one-shot schedule to a new time and
// re-arms its wakeup. The new registration supersedes the pending one for
// the same id.
func (s *Scheduler) RescheduleSingleEvent(ctx context.Context, id int64, at time.Time) (*types.Schedule, error) {
	if at.Before(s.now()) {
		return nil, fmt.Errorf("single event time %s is in the past", at.Format(time.RFC3339))
	}

	sched, err := s.store.Schedules().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sched.Frequency.IsOnce() {
		return nil, fmt.Errorf("schedule %d is not a single event", id)
	}
	if !sched.Active {
		return nil, fmt.Errorf("schedule %d is no longer active", id)
	}

	moved, err := s.store.Schedules().RescheduleNextRun(ctx, id, at, sched.NextRun)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, fmt.Errorf("schedule %d was claimed concurrently, not rescheduled", id)
	}

	sched.NextRun = at
	s.wakeups.Register(id, at)
	return sched, nil
}
