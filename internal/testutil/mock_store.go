// Package testutil provides in-memory store and generator doubles for unit
// tests. They implement the real interfaces with maps behind a mutex and are
// not meant for production use.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/draftcue/draftcue/internal/lifecycle"
	"github.com/draftcue/draftcue/internal/store"
	"github.com/draftcue/draftcue/pkg/types"
)

// MockStore is an in-memory implementation of store.Store.
type MockStore struct {
	mu sync.Mutex

	schedules  map[int64]*types.Schedule
	history    map[int64]*types.HistoryRecord
	logEntries map[int64][]types.LogEntry
	templates  map[int64]*types.Template

	nextScheduleID int64
	nextHistoryID  int64
	nextLogID      int64
	nextTemplateID int64

	// Error injection for failure-path tests. When set, the matching
	// operation returns the error instead of running.
	GetDueErr        error
	ClaimErr         error
	CreateErr        error
	HistoryCreateErr error
	FinalizeErr      error
}

var _ store.Store = (*MockStore)(nil)
var _ store.ScheduleStore = (*mockSchedules)(nil)
var _ store.HistoryStore = (*mockHistory)(nil)
var _ store.TemplateStore = (*mockTemplates)(nil)

// NewMockStore creates an empty in-memory store.
func NewMockStore() *MockStore {
	return &MockStore{
		schedules:  make(map[int64]*types.Schedule),
		history:    make(map[int64]*types.HistoryRecord),
		logEntries: make(map[int64][]types.LogEntry),
		templates:  make(map[int64]*types.Template),
	}
}

// Schedules returns the schedule store view.
func (m *MockStore) Schedules() store.ScheduleStore { return (*mockSchedules)(m) }

// History returns the history store view.
func (m *MockStore) History() store.HistoryStore { return (*mockHistory)(m) }

// Templates returns the template store view.
func (m *MockStore) Templates() store.TemplateStore { return (*mockTemplates)(m) }

// Ping always succeeds.
func (m *MockStore) Ping(ctx context.Context) error { return nil }

// Close is a no-op.
func (m *MockStore) Close() {}

type mockSchedules MockStore

func (m *mockSchedules) Create(ctx context.Context, s *types.Schedule) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextScheduleID++
	s.ID = m.nextScheduleID
	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now
	cp := *s
	m.schedules[s.ID] = &cp
	return nil
}

func (m *mockSchedules) CreateBulk(ctx context.Context, schedules []*types.Schedule) (int, error) {
	for _, s := range schedules {
		if err := m.Create(ctx, s); err != nil {
			return 0, err
		}
	}
	return len(schedules), nil
}

func (m *mockSchedules) GetByID(ctx context.Context, id int64) (*types.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.schedules[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *mockSchedules) List(ctx context.Context) ([]types.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]types.Schedule, 0, len(m.schedules))
	for _, s := range m.schedules {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockSchedules) GetDue(ctx context.Context, now time.Time, limit int) ([]types.Schedule, error) {
	if m.GetDueErr != nil {
		return nil, m.GetDueErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var due []types.Schedule
	for _, s := range m.schedules {
		if s.Active && !s.NextRun.After(now) {
			due = append(due, *s)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].NextRun.Before(due[j].NextRun) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (m *mockSchedules) Update(ctx context.Context, s *types.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.schedules[s.ID]
	if !ok {
		return store.ErrNotFound
	}
	cur.TemplateID = s.TemplateID
	cur.Frequency = s.Frequency
	cur.Topic = s.Topic
	cur.Rules = s.Rules
	cur.Active = s.Active
	cur.UpdatedAt = time.Now()
	return nil
}

func (m *mockSchedules) ClaimNextRun(ctx context.Context, id int64, newNext, expectedOld time.Time) (bool, error) {
	if m.ClaimErr != nil {
		return false, m.ClaimErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.schedules[id]
	if !ok || !s.NextRun.Equal(expectedOld) {
		return false, nil
	}
	old := s.NextRun
	s.LastRun = &old
	s.NextRun = newNext
	s.UpdatedAt = time.Now()
	return true, nil
}

func (m *mockSchedules) RescheduleNextRun(ctx context.Context, id int64, newNext, expectedOld time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.schedules[id]
	if !ok || !s.NextRun.Equal(expectedOld) {
		return false, nil
	}
	s.NextRun = newNext
	s.UpdatedAt = time.Now()
	return true, nil
}

func (m *mockSchedules) SetActive(ctx context.Context, id int64, active bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.schedules[id]
	if !ok {
		return false, nil
	}
	s.Active = active
	s.UpdatedAt = time.Now()
	return true, nil
}

func (m *mockSchedules) Delete(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.schedules[id]; !ok {
		return false, nil
	}
	delete(m.schedules, id)
	return true, nil
}

func (m *mockSchedules) DeleteBulk(ctx context.Context, ids []int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, id := range ids {
		if _, ok := m.schedules[id]; ok {
			delete(m.schedules, id)
			n++
		}
	}
	return n, nil
}

type mockHistory MockStore

func (m *mockHistory) Create(ctx context.Context, rec *types.HistoryRecord) error {
	if m.HistoryCreateErr != nil {
		return m.HistoryCreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextHistoryID++
	rec.ID = m.nextHistoryID
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	cp := *rec
	m.history[rec.ID] = &cp
	return nil
}

func (m *mockHistory) Finalize(ctx context.Context, id int64, status types.HistoryStatus, title, content, errMsg string) error {
	if m.FinalizeErr != nil {
		return m.FinalizeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.history[id]
	if !ok {
		return store.ErrNotFound
	}
	if err := lifecycle.Transition(rec.Status, status); err != nil {
		return err
	}
	rec.Status = status
	rec.GeneratedTitle = title
	rec.Content = content
	rec.ErrorMessage = errMsg
	now := time.Now()
	rec.CompletedAt = &now
	return nil
}

func (m *mockHistory) GetByID(ctx context.Context, id int64) (*types.HistoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.history[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *rec
	cp.Log = append([]types.LogEntry(nil), m.logEntries[id]...)
	return &cp, nil
}

func (m *mockHistory) AddLogEntry(ctx context.Context, entry *types.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.history[entry.HistoryID]; !ok {
		return store.ErrNotFound
	}
	m.nextLogID++
	entry.ID = m.nextLogID
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if entry.Kind == "" {
		entry.Kind = types.LogGeneric
	}
	m.logEntries[entry.HistoryID] = append(m.logEntries[entry.HistoryID], *entry)
	return nil
}

func (m *mockHistory) GetHistory(ctx context.Context, filter types.HistoryFilter) (*types.HistoryPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []types.HistoryRecord
	for _, rec := range m.history {
		if filter.Status != "" && rec.Status != filter.Status {
			continue
		}
		if filter.TemplateID != 0 && rec.TemplateID != filter.TemplateID {
			continue
		}
		if filter.Search != "" {
			needle := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(rec.GeneratedTitle), needle) &&
				!strings.Contains(strings.ToLower(rec.TemplateName), needle) {
				continue
			}
		}
		cp := *rec
		cp.Content = ""
		cp.Log = nil
		matched = append(matched, cp)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage < 1 {
		perPage = 20
	}
	total := len(matched)
	start := (page - 1) * perPage
	if start > len(matched) {
		start = len(matched)
	}
	end := start + perPage
	if end > len(matched) {
		end = len(matched)
	}
	return &types.HistoryPage{Items: matched[start:end], Total: total}, nil
}

type mockTemplates MockStore

func (m *mockTemplates) Create(ctx context.Context, t *types.Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextTemplateID++
	t.ID = m.nextTemplateID
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	cp := *t
	m.templates[t.ID] = &cp
	return nil
}

func (m *mockTemplates) GetByID(ctx context.Context, id int64) (*types.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.templates[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *mockTemplates) List(ctx context.Context) ([]types.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]types.Template, 0, len(m.templates))
	for _, t := range m.templates {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// HistoryCount reports how many history records exist, for test assertions.
func (m *MockStore) HistoryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.history)
}

// LastHistory returns the most recently created history record with its log.
func (m *MockStore) LastHistory() (*types.HistoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.nextHistoryID == 0 {
		return nil, fmt.Errorf("no history records")
	}
	rec := m.history[m.nextHistoryID]
	cp := *rec
	cp.Log = append([]types.LogEntry(nil), m.logEntries[rec.ID]...)
	return &cp, nil
}
