package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftcue/draftcue/internal/generate"
	"github.com/draftcue/draftcue/internal/store"
	"github.com/draftcue/draftcue/internal/testutil"
	"github.com/draftcue/draftcue/pkg/types"
)

type alertRecorder struct {
	mu     sync.Mutex
	alerts []types.Alert
}

func (r *alertRecorder) record(a types.Alert) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
}

func (r *alertRecorder) all() []types.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.Alert(nil), r.alerts...)
}

func newTestScheduler(t *testing.T, st *testutil.MockStore, gen *testutil.MockGenerator) (*Scheduler, *alertRecorder) {
	t.Helper()
	rec := &alertRecorder{}
	s := New(st, gen, rec.record, slog.Default(), Config{
		TickInterval: time.Minute,
		DueLimit:     store.DefaultDueLimit,
	})
	return s, rec
}

func seedTemplate(t *testing.T, st *testutil.MockStore) *types.Template {
	t.Helper()
	tmpl := &types.Template{Name: "weekly-digest", Prompt: "write a digest"}
	require.NoError(t, st.Templates().Create(context.Background(), tmpl))
	return tmpl
}

func seedSchedule(t *testing.T, st *testutil.MockStore, tmpl *types.Template, freq types.Frequency, nextRun time.Time) *types.Schedule {
	t.Helper()
	sched := &types.Schedule{
		TemplateID: tmpl.ID,
		Frequency:  freq,
		Topic:      "golang",
		NextRun:    nextRun,
		Active:     true,
	}
	require.NoError(t, st.Schedules().Create(context.Background(), sched))
	return sched
}

func TestProcessDue_ExecutesAndAdvances(t *testing.T) {
	ctx := context.Background()
	st := testutil.NewMockStore()
	gen := &testutil.MockGenerator{Result: generate.Result{ID: "res-1", Title: "Digest #1", Content: "the content"}}
	s, _ := newTestScheduler(t, st, gen)

	now := time.Date(2026, 3, 2, 9, 0, 30, 0, time.UTC)
	s.now = func() time.Time { return now }

	tmpl := seedTemplate(t, st)
	due := now.Add(-30 * time.Second)
	sched := seedSchedule(t, st, tmpl, types.FreqHourly, due)

	ran, err := s.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, ran)
	assert.Equal(t, 1, gen.CallCount())

	got, err := st.Schedules().GetByID(ctx, sched.ID)
	require.NoError(t, err)
	assert.True(t, got.NextRun.After(now), "next_run must advance past now")
	assert.Equal(t, due.Add(time.Hour), got.NextRun, "hourly cadence keeps the anchor phase")
	require.NotNil(t, got.LastRun)
	assert.True(t, got.LastRun.Equal(due), "last_run records the claimed due time")
	assert.True(t, got.Active)

	rec, err := st.LastHistory()
	require.NoError(t, err)
	assert.Equal(t, types.HistoryCompleted, rec.Status)
	assert.Equal(t, "Digest #1", rec.GeneratedTitle)
	assert.Equal(t, "the content", rec.Content)
	assert.NotNil(t, rec.CompletedAt)

	kinds := logKinds(rec.Log)
	assert.Contains(t, kinds, types.LogAIRequest)
	assert.Contains(t, kinds, types.LogAIResponse)
}

func TestProcessDue_NothingDue(t *testing.T) {
	st := testutil.NewMockStore()
	gen := &testutil.MockGenerator{}
	s, _ := newTestScheduler(t, st, gen)

	tmpl := seedTemplate(t, st)
	seedSchedule(t, st, tmpl, types.FreqHourly, time.Now().Add(time.Hour))

	ran, err := s.ProcessDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, ran)
	assert.Equal(t, 0, gen.CallCount())
}

func TestProcessDue_ClaimLostSkipsExecution(t *testing.T) {
	ctx := context.Background()
	st := testutil.NewMockStore()
	gen := &testutil.MockGenerator{}
	s, _ := newTestScheduler(t, st, gen)

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	tmpl := seedTemplate(t, st)
	sched := seedSchedule(t, st, tmpl, types.FreqHourly, now.Add(-time.Minute))

	// A competing instance claims first.
	won, err := st.Schedules().ClaimNextRun(ctx, sched.ID, now.Add(time.Hour), sched.NextRun)
	require.NoError(t, err)
	require.True(t, won)

	stale := *sched
	assert.False(t, s.processOne(ctx, stale))
	assert.Equal(t, 0, gen.CallCount())
	assert.Equal(t, 0, st.HistoryCount())
}

func TestProcessOne_GenerationFailure(t *testing.T) {
	ctx := context.Background()
	st := testutil.NewMockStore()
	gen := &testutil.MockGenerator{Err: errors.New("backend exploded")}
	s, alerts := newTestScheduler(t, st, gen)

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	tmpl := seedTemplate(t, st)
	sched := seedSchedule(t, st, tmpl, types.FreqDaily, now.Add(-time.Minute))

	assert.True(t, s.processOne(ctx, *sched), "a won claim counts as ran even when generation fails")

	rec, err := st.LastHistory()
	require.NoError(t, err)
	assert.Equal(t, types.HistoryFailed, rec.Status)
	assert.Contains(t, rec.ErrorMessage, "backend exploded")
	assert.Contains(t, logKinds(rec.Log), types.LogError)

	got, err := st.Schedules().GetByID(ctx, sched.ID)
	require.NoError(t, err)
	assert.True(t, got.NextRun.After(now), "failure must not stall the cadence")
	assert.True(t, got.Active, "failures do not deactivate recurring schedules")

	all := alerts.all()
	require.Len(t, all, 1)
	assert.Equal(t, types.AlertLevelError, all[0].Level)
	assert.Equal(t, sched.ID, all[0].ScheduleID)
}

func TestProcessOne_OnceDeactivatesAfterSuccess(t *testing.T) {
	ctx := context.Background()
	st := testutil.NewMockStore()
	gen := &testutil.MockGenerator{}
	s, _ := newTestScheduler(t, st, gen)

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	tmpl := seedTemplate(t, st)
	sched := seedSchedule(t, st, tmpl, types.FreqOnce, now.Add(-time.Second))

	assert.True(t, s.processOne(ctx, *sched))

	got, err := st.Schedules().GetByID(ctx, sched.ID)
	require.NoError(t, err)
	assert.False(t, got.Active, "one-shot schedules deactivate after success")

	rec, err := st.LastHistory()
	require.NoError(t, err)
	assert.Equal(t, types.HistoryCompleted, rec.Status)
}

func TestProcessOne_UnknownFrequencyDeactivates(t *testing.T) {
	ctx := context.Background()
	st := testutil.NewMockStore()
	gen := &testutil.MockGenerator{}
	s, alerts := newTestScheduler(t, st, gen)

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	tmpl := seedTemplate(t, st)
	sched := seedSchedule(t, st, tmpl, types.Frequency("fortnightly"), now.Add(-time.Minute))

	assert.False(t, s.processOne(ctx, *sched))
	assert.Equal(t, 0, gen.CallCount())
	assert.Equal(t, 0, st.HistoryCount())

	got, err := st.Schedules().GetByID(ctx, sched.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	all := alerts.all()
	require.Len(t, all, 1)
	assert.Equal(t, types.AlertLevelError, all[0].Level)
}

func TestProcessOne_RuleBasedNextRun(t *testing.T) {
	ctx := context.Background()
	st := testutil.NewMockStore()
	gen := &testutil.MockGenerator{}
	s, _ := newTestScheduler(t, st, gen)

	// Monday 09:30; the window is 09:00-10:00 on Mondays, so the next
	// match after this run is the following Monday at 09:00.
	now := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	tmpl := seedTemplate(t, st)
	sched := &types.Schedule{
		TemplateID: tmpl.ID,
		Frequency:  types.FreqWeekly,
		NextRun:    now.Add(-time.Minute),
		Active:     true,
		Rules: &types.RuleSet{
			Mode: types.RuleModeAll,
			Conditions: []types.Condition{
				{Kind: types.CondTimeBetween, Start: "09:00", End: "10:00"},
				{Kind: types.CondDaysOfWeek, Days: []string{"monday"}},
			},
		},
	}
	require.NoError(t, st.Schedules().Create(ctx, sched))

	assert.True(t, s.processOne(ctx, *sched))

	got, err := st.Schedules().GetByID(ctx, sched.ID)
	require.NoError(t, err)
	// 09:31 is still inside the window, so the very next matching minute
	// wins; the claim only needs a strictly later timestamp.
	assert.Equal(t, time.Date(2026, 3, 2, 9, 31, 0, 0, time.UTC), got.NextRun)
}

func TestRunNow(t *testing.T) {
	ctx := context.Background()
	st := testutil.NewMockStore()
	gen := &testutil.MockGenerator{}
	s, _ := newTestScheduler(t, st, gen)

	_, err := s.RunNow(ctx, 99)
	assert.ErrorIs(t, err, store.ErrNotFound)

	tmpl := seedTemplate(t, st)
	sched := seedSchedule(t, st, tmpl, types.FreqDaily, time.Now().Add(time.Hour))

	histID, err := s.RunNow(ctx, sched.ID)
	require.NoError(t, err)
	assert.NotZero(t, histID)

	got, err := st.Schedules().GetByID(ctx, sched.ID)
	require.NoError(t, err)
	assert.True(t, got.NextRun.Equal(sched.NextRun), "manual runs leave the cadence untouched")

	rec, err := st.History().GetByID(ctx, histID)
	require.NoError(t, err)
	assert.Equal(t, types.HistoryCompleted, rec.Status)
}

func TestSaveScheduleBulk_InitializesNextRun(t *testing.T) {
	ctx := context.Background()
	st := testutil.NewMockStore()
	gen := &testutil.MockGenerator{}
	s, _ := newTestScheduler(t, st, gen)

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	tmpl := seedTemplate(t, st)
	batch := []*types.Schedule{
		{TemplateID: tmpl.ID, Frequency: types.FreqHourly, Active: true},
		{TemplateID: tmpl.ID, Frequency: types.FreqDaily, Active: true},
	}
	n, err := s.SaveScheduleBulk(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, now.Add(time.Hour), batch[0].NextRun)
	assert.Equal(t, now.Add(24*time.Hour), batch[1].NextRun)
}

func TestSaveScheduleBulk_MissingTemplateID(t *testing.T) {
	st := testutil.NewMockStore()
	gen := &testutil.MockGenerator{}
	s, _ := newTestScheduler(t, st, gen)

	_, err := s.SaveScheduleBulk(context.Background(), []*types.Schedule{{Frequency: types.FreqDaily}})
	assert.Error(t, err)
}

func TestDeleteScheduleBulk_Idempotent(t *testing.T) {
	ctx := context.Background()
	st := testutil.NewMockStore()
	gen := &testutil.MockGenerator{}
	s, _ := newTestScheduler(t, st, gen)

	tmpl := seedTemplate(t, st)
	a := seedSchedule(t, st, tmpl, types.FreqDaily, time.Now())
	b := seedSchedule(t, st, tmpl, types.FreqDaily, time.Now())

	n, err := s.DeleteScheduleBulk(ctx, []int64{a.ID, b.ID, 999})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = s.DeleteScheduleBulk(ctx, []int64{a.ID, b.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestScheduleSingleEvent(t *testing.T) {
	ctx := context.Background()
	st := testutil.NewMockStore()
	gen := &testutil.MockGenerator{}
	s, _ := newTestScheduler(t, st, gen)
	defer s.wakeups.Stop()

	tmpl := seedTemplate(t, st)

	_, err := s.ScheduleSingleEvent(ctx, tmpl.ID, "launch", time.Now().Add(-time.Hour))
	assert.Error(t, err, "past times are rejected")

	_, err = s.ScheduleSingleEvent(ctx, 999, "launch", time.Now().Add(time.Hour))
	assert.Error(t, err, "unknown template is rejected")

	sched, err := s.ScheduleSingleEvent(ctx, tmpl.ID, "launch", time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, sched.Frequency.IsOnce())
	assert.Equal(t, 1, s.wakeups.Len())

	n, err := s.DeleteScheduleBulk(ctx, []int64{sched.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 0, s.wakeups.Len())
}

func TestProcessOne_HistoryWriteFailureIsReported(t *testing.T) {
	ctx := context.Background()
	st := testutil.NewMockStore()
	st.HistoryCreateErr = errors.New("disk full")
	gen := &testutil.MockGenerator{}
	s, alerts := newTestScheduler(t, st, gen)

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	tmpl := seedTemplate(t, st)
	sched := seedSchedule(t, st, tmpl, types.FreqDaily, now.Add(-time.Minute))

	assert.True(t, s.processOne(ctx, *sched), "the claim was won")
	assert.Equal(t, 0, gen.CallCount(), "no generation without an audit record")

	all := alerts.all()
	require.Len(t, all, 1)
	assert.Equal(t, types.AlertLevelError, all[0].Level)
	assert.Equal(t, sched.ID, all[0].ScheduleID)
	assert.Contains(t, all[0].Message, "disk full")
}

func TestProcessDue_FailingScheduleDoesNotBlockSiblings(t *testing.T) {
	ctx := context.Background()
	st := testutil.NewMockStore()
	gen := &testutil.MockGenerator{
		GenerateFunc: func(req generate.Request) (*generate.Result, error) {
			if req.Topic == "broken" {
				return nil, errors.New("backend exploded")
			}
			return &generate.Result{ID: "res-2", Title: "Sibling", Content: "body"}, nil
		},
	}
	s, alerts := newTestScheduler(t, st, gen)

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	tmpl := seedTemplate(t, st)
	a := &types.Schedule{TemplateID: tmpl.ID, Frequency: types.FreqHourly, Topic: "broken", NextRun: now.Add(-2 * time.Minute), Active: true}
	b := &types.Schedule{TemplateID: tmpl.ID, Frequency: types.FreqHourly, Topic: "healthy", NextRun: now.Add(-time.Minute), Active: true}
	require.NoError(t, st.Schedules().Create(ctx, a))
	require.NoError(t, st.Schedules().Create(ctx, b))

	ran, err := s.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, ran)

	healthyCalls := 0
	for _, call := range gen.Calls() {
		if call.Topic == "healthy" {
			healthyCalls++
		}
	}
	assert.Equal(t, 1, healthyCalls, "the sibling runs exactly once")
	assert.Equal(t, 2, st.HistoryCount())

	// Due order is a then b, so the latest record belongs to b.
	rec, err := st.LastHistory()
	require.NoError(t, err)
	assert.Equal(t, types.HistoryCompleted, rec.Status)
	assert.Equal(t, "Sibling", rec.GeneratedTitle)

	for _, sched := range []*types.Schedule{a, b} {
		got, err := st.Schedules().GetByID(ctx, sched.ID)
		require.NoError(t, err)
		assert.True(t, got.NextRun.After(now), "both cadences advance")
	}

	all := alerts.all()
	require.Len(t, all, 1)
	assert.Equal(t, a.ID, all[0].ScheduleID)
}

func TestRescheduleSingleEvent(t *testing.T) {
	ctx := context.Background()
	st := testutil.NewMockStore()
	gen := &testutil.MockGenerator{}
	s, _ := newTestScheduler(t, st, gen)
	defer s.wakeups.Stop()

	tmpl := seedTemplate(t, st)
	sched, err := s.ScheduleSingleEvent(ctx, tmpl.ID, "launch", time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, s.wakeups.Len())

	_, err = s.RescheduleSingleEvent(ctx, sched.ID, time.Now().Add(-time.Hour))
	assert.Error(t, err, "past times are rejected")

	_, err = s.RescheduleSingleEvent(ctx, 999, time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, store.ErrNotFound)

	recurring := seedSchedule(t, st, tmpl, types.FreqDaily, time.Now().Add(time.Hour))
	_, err = s.RescheduleSingleEvent(ctx, recurring.ID, time.Now().Add(2*time.Hour))
	assert.Error(t, err, "recurring schedules cannot be rescheduled as events")

	newAt := time.Now().Add(3 * time.Hour).Truncate(time.Second)
	moved, err := s.RescheduleSingleEvent(ctx, sched.ID, newAt)
	require.NoError(t, err)
	assert.True(t, moved.NextRun.Equal(newAt))
	assert.Equal(t, 1, s.wakeups.Len(), "the new registration supersedes the pending one")

	got, err := st.Schedules().GetByID(ctx, sched.ID)
	require.NoError(t, err)
	assert.True(t, got.NextRun.Equal(newAt))
	assert.Nil(t, got.LastRun, "rescheduling is not a run")
}

func TestStartStop(t *testing.T) {
	st := testutil.NewMockStore()
	gen := &testutil.MockGenerator{}
	s, _ := newTestScheduler(t, st, gen)
	s.cfg.TickInterval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Start(ctx)
	time.Sleep(30 * time.Millisecond)
	s.Stop()
}

func logKinds(entries []types.LogEntry) []types.LogKind {
	kinds := make([]types.LogKind, 0, len(entries))
	for _, e := range entries {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}
