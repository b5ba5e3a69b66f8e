package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftcue/draftcue/internal/scheduler"
	"github.com/draftcue/draftcue/internal/store"
	"github.com/draftcue/draftcue/internal/testutil"
	"github.com/draftcue/draftcue/pkg/types"
)

func newTestServer(t *testing.T, apiKey string) (*httptest.Server, *testutil.MockStore) {
	t.Helper()
	st := testutil.NewMockStore()
	sched := scheduler.New(st, &testutil.MockGenerator{}, nil, nil, scheduler.Config{
		TickInterval: time.Minute,
		DueLimit:     store.DefaultDueLimit,
	})
	srv := New(types.ServerConfig{APIKey: apiKey}, st, sched, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, st
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t, "")
	resp, err := http.Get(ts.URL + "/api/health")
	require.NoError(t, err)
	body := decode[map[string]string](t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestAPIKeyAuth(t *testing.T) {
	ts, _ := newTestServer(t, "sekrit")

	// Health is exempt.
	resp, err := http.Get(ts.URL + "/api/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Everything else requires the key.
	resp, err = http.Get(ts.URL + "/api/schedules")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/schedules", nil)
	require.NoError(t, err)
	req.Header.Set("X-API-Key", "sekrit")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestTemplateCRUD(t *testing.T) {
	ts, _ := newTestServer(t, "")

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/templates", types.Template{Name: "digest", Prompt: "p"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[types.Template](t, resp)
	assert.NotZero(t, created.ID)

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/templates", types.Template{Name: "  "})
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err := http.Get(fmt.Sprintf("%s/api/templates/%d", ts.URL, created.ID))
	require.NoError(t, err)
	got := decode[types.Template](t, resp)
	assert.Equal(t, "digest", got.Name)

	resp, err = http.Get(ts.URL + "/api/templates/999")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestScheduleLifecycle(t *testing.T) {
	ts, st := newTestServer(t, "")

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/templates", types.Template{Name: "digest", Prompt: "p"})
	tmpl := decode[types.Template](t, resp)

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/schedules", types.Schedule{
		TemplateID: tmpl.ID,
		Frequency:  types.FreqDaily,
		Topic:      "golang",
		Active:     true,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[types.Schedule](t, resp)
	assert.NotZero(t, created.ID)
	assert.False(t, created.NextRun.IsZero(), "next_run is initialized from the frequency")

	resp, err := http.Get(ts.URL + "/api/schedules")
	require.NoError(t, err)
	list := decode[[]types.Schedule](t, resp)
	require.Len(t, list, 1)

	// Deactivate, then verify through the store.
	resp = doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/schedules/%d/deactivate", ts.URL, created.ID), nil)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got, err := st.Schedules().GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	// Manual run executes and records history.
	resp = doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/schedules/%d/run", ts.URL, created.ID), nil)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "completed", body["status"])

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/schedules/999/run", nil)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Delete is idempotent.
	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/api/schedules/%d", ts.URL, created.ID), nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	del := decode[map[string]bool](t, resp)
	assert.True(t, del["deleted"])

	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	del = decode[map[string]bool](t, resp)
	assert.False(t, del["deleted"])
}

func TestScheduleBulkEndpoints(t *testing.T) {
	ts, _ := newTestServer(t, "")

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/templates", types.Template{Name: "digest", Prompt: "p"})
	tmpl := decode[types.Template](t, resp)

	batch := []types.Schedule{
		{TemplateID: tmpl.ID, Frequency: types.FreqHourly, Active: true},
		{TemplateID: tmpl.ID, Frequency: types.FreqDaily, Active: true},
	}
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/schedules/bulk", batch)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	out := decode[struct {
		Created   int              `json:"created"`
		Schedules []types.Schedule `json:"schedules"`
	}](t, resp)
	assert.Equal(t, 2, out.Created)
	require.Len(t, out.Schedules, 2)

	ids := []int64{out.Schedules[0].ID, out.Schedules[1].ID, 999}
	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/schedules/bulk", jsonBody(t, map[string]any{"ids": ids}))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	deleted := decode[map[string]int64](t, resp)
	assert.Equal(t, int64(2), deleted["deleted"])
}

func TestHistoryEndpoints(t *testing.T) {
	ts, _ := newTestServer(t, "")

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/templates", types.Template{Name: "digest", Prompt: "p"})
	tmpl := decode[types.Template](t, resp)

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/schedules", types.Schedule{
		TemplateID: tmpl.ID, Frequency: types.FreqDaily, Active: true,
	})
	sched := decode[types.Schedule](t, resp)

	resp = doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/schedules/%d/run", ts.URL, sched.ID), nil)
	run := decode[map[string]any](t, resp)
	histID := int64(run["historyId"].(float64))

	resp, err := http.Get(ts.URL + "/api/history")
	require.NoError(t, err)
	page := decode[types.HistoryPage](t, resp)
	require.Len(t, page.Items, 1)
	assert.Equal(t, 1, page.Total)
	assert.Empty(t, page.Items[0].Content, "list rows never carry the payload")
	assert.Empty(t, page.Items[0].Log)

	resp, err = http.Get(fmt.Sprintf("%s/api/history/%d", ts.URL, histID))
	require.NoError(t, err)
	rec := decode[types.HistoryRecord](t, resp)
	assert.Equal(t, types.HistoryCompleted, rec.Status)
	assert.NotEmpty(t, rec.Content)
	assert.NotEmpty(t, rec.Log)

	resp, err = http.Get(fmt.Sprintf("%s/api/history/%d/activity", ts.URL, histID))
	require.NoError(t, err)
	activity := decode[[]types.LogEntry](t, resp)
	for _, entry := range activity {
		assert.True(t, entry.Kind.ActivityVisible())
	}

	resp, err = http.Get(ts.URL + "/api/history/12345")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSingleEventEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, "")

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/templates", types.Template{Name: "digest", Prompt: "p"})
	tmpl := decode[types.Template](t, resp)

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/events", map[string]any{
		"templateId": tmpl.ID,
		"topic":      "launch",
		"at":         time.Now().Add(time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	sched := decode[types.Schedule](t, resp)
	assert.True(t, sched.Frequency.IsOnce())

	// Past times are rejected.
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/events", map[string]any{
		"templateId": tmpl.ID,
		"at":         time.Now().Add(-time.Hour).Format(time.RFC3339),
	})
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Rescheduling moves the pending run.
	newAt := time.Now().Add(2 * time.Hour).UTC().Truncate(time.Second)
	resp = doJSON(t, http.MethodPut, fmt.Sprintf("%s/api/events/%d", ts.URL, sched.ID), map[string]any{
		"at": newAt.Format(time.RFC3339),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	moved := decode[types.Schedule](t, resp)
	assert.True(t, moved.NextRun.Equal(newAt))

	resp = doJSON(t, http.MethodPut, ts.URL+"/api/events/999", map[string]any{
		"at": newAt.Format(time.RFC3339),
	})
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(v))
	return &buf
}
