package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/aleister1102/dataspy/internal/config"
	"github.com/aleister1102/dataspy/internal/datastore"
	"github.com/aleister1102/dataspy/internal/models"
	"github.com/aleister1102/dataspy/internal/monitor"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeMonitor struct {
	mu         sync.Mutex
	tasks      map[string]models.MonitorTask
	events     []models.ChangeEvent
	lastTaskID string
	lastLimit  int
}

func newFakeMonitor() *fakeMonitor {
	return &fakeMonitor{tasks: make(map[string]models.MonitorTask)}
}

func (m *fakeMonitor) AddTask(_ context.Context, task models.MonitorTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[task.ID] = task
	return nil
}

func (m *fakeMonitor) RemoveTask(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return models.ErrRecordNotFound
	}
	delete(m.tasks, id)
	return nil
}

func (m *fakeMonitor) GetTask(id string) (models.MonitorTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok {
		return models.MonitorTask{}, models.ErrRecordNotFound
	}
	return task, nil
}

func (m *fakeMonitor) ListTasks(enabledOnly bool) []models.MonitorTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.MonitorTask
	for _, t := range m.tasks {
		if enabledOnly && !t.Enabled {
			continue
		}
		out = append(out, t)
	}
	return out
}

func (m *fakeMonitor) CheckNow(_ context.Context, id string) (models.CheckOutcome, error) {
	if _, err := m.GetTask(id); err != nil {
		return models.CheckOutcome{}, err
	}
	return models.CheckOutcome{
		TaskID:    id,
		Status:    models.StatusChanged,
		StartedAt: fixedNow,
		Event:     &models.ChangeEvent{ID: "ev-1", TaskID: id, ChangeType: models.ChangePriceDropped, OldValue: "20", NewValue: "15"},
	}, nil
}

func (m *fakeMonitor) GetEvents(_ context.Context, taskID string, limit int) ([]models.ChangeEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastTaskID, m.lastLimit = taskID, limit
	return m.events, nil
}

func (m *fakeMonitor) Stats() monitor.StatsSnapshot {
	return monitor.StatsSnapshot{Checks: 7, Changed: 2, Tasks: len(m.tasks)}
}

type fakeExporter struct {
	query datastore.EventQuery
}

func (x *fakeExporter) Export(_ context.Context, w io.Writer, q datastore.EventQuery) (int, error) {
	x.query = q
	_, err := w.Write([]byte("PAR1"))
	return 1, err
}

func newTestServer(t *testing.T, m Monitor, opts ...Option) *httptest.Server {
	t.Helper()
	opts = append(opts, WithClock(func() time.Time { return fixedNow }))
	srv := httptest.NewServer(NewServer(config.NewDefaultAPIConfig(), m, zerolog.Nop(), opts...).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body interface{}, out interface{}) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, newFakeMonitor())
	var body map[string]string
	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/healthz", nil, &body))
	assert.Equal(t, "ok", body["status"])
}

func TestTaskLifecycle(t *testing.T) {
	m := newFakeMonitor()
	srv := newTestServer(t, m)

	spec := map[string]interface{}{
		"id":                     "widget",
		"name":                   "Widget price",
		"url":                    "https://shop.example.com/widget",
		"check_type":             "price",
		"selector":               ".price",
		"check_interval_seconds": 600,
	}
	var created models.TaskView
	require.Equal(t, http.StatusCreated, doJSON(t, http.MethodPost, srv.URL+"/api/tasks", spec, &created))
	assert.Equal(t, "widget", created.ID)
	assert.Equal(t, models.CheckTypePrice, created.CheckType)
	assert.Equal(t, int64(600), created.CheckIntervalSeconds)
	assert.True(t, created.Enabled)
	assert.True(t, created.CreatedAt.Equal(fixedNow))

	var got models.TaskView
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/api/tasks/widget", nil, &got))
	assert.Equal(t, ".price", got.Selector)

	var list []models.TaskView
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/api/tasks", nil, &list))
	assert.Len(t, list, 1)

	var outcome OutcomeView
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodPost, srv.URL+"/api/tasks/widget/check", nil, &outcome))
	assert.Equal(t, models.StatusChanged, outcome.Status)
	require.NotNil(t, outcome.Event)
	assert.Equal(t, models.ChangePriceDropped, outcome.Event.ChangeType)

	assert.Equal(t, http.StatusNoContent, doJSON(t, http.MethodDelete, srv.URL+"/api/tasks/widget", nil, nil))
	var errBody map[string]string
	assert.Equal(t, http.StatusNotFound, doJSON(t, http.MethodGet, srv.URL+"/api/tasks/widget", nil, &errBody))
	assert.NotEmpty(t, errBody["error"])
	assert.Equal(t, http.StatusNotFound, doJSON(t, http.MethodDelete, srv.URL+"/api/tasks/widget", nil, &errBody))
	assert.Equal(t, http.StatusNotFound, doJSON(t, http.MethodPost, srv.URL+"/api/tasks/widget/check", nil, &errBody))
}

func TestUpsertTask_Invalid(t *testing.T) {
	srv := newTestServer(t, newFakeMonitor())

	tests := []struct {
		name string
		body interface{}
	}{
		{name: "missing url", body: map[string]interface{}{"name": "x", "check_type": "full_page"}},
		{name: "bad check type", body: map[string]interface{}{"name": "x", "url": "https://example.com", "check_type": "screenshot"}},
		{name: "selector required", body: map[string]interface{}{"name": "x", "url": "https://example.com", "check_type": "selector"}},
		{name: "unknown field", body: map[string]interface{}{"name": "x", "url": "https://example.com", "check_type": "full_page", "color": "red"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var errBody map[string]string
			assert.Equal(t, http.StatusBadRequest, doJSON(t, http.MethodPost, srv.URL+"/api/tasks", tt.body, &errBody))
			assert.NotEmpty(t, errBody["error"])
		})
	}
}

func TestListEvents(t *testing.T) {
	m := newFakeMonitor()
	m.events = []models.ChangeEvent{{ID: "e2", TaskID: "a", ChangeType: models.ChangeContentChanged}, {ID: "e1", TaskID: "a", ChangeType: models.ChangeAvailable}}
	srv := newTestServer(t, m)

	var events []models.ChangeEvent
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/api/events?task_id=a&limit=5", nil, &events))
	assert.Len(t, events, 2)
	assert.Equal(t, "e2", events[0].ID)
	assert.Equal(t, "a", m.lastTaskID)
	assert.Equal(t, 5, m.lastLimit)

	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/api/events", nil, &events))
	assert.Equal(t, datastore.DefaultEventLimit, m.lastLimit)

	var errBody map[string]string
	assert.Equal(t, http.StatusBadRequest, doJSON(t, http.MethodGet, srv.URL+"/api/events?limit=abc", nil, &errBody))
}

func TestStats(t *testing.T) {
	srv := newTestServer(t, newFakeMonitor())
	var stats map[string]interface{}
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/api/stats", nil, &stats))
	assert.EqualValues(t, 7, stats["checks"])
	assert.EqualValues(t, 2, stats["changed"])
}

func TestExportEvents(t *testing.T) {
	disabled := newTestServer(t, newFakeMonitor())
	resp, err := http.Get(disabled.URL + "/api/events/export")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)

	exporter := &fakeExporter{}
	srv := newTestServer(t, newFakeMonitor(), WithExporter(exporter))
	resp, err = http.Get(srv.URL + "/api/events/export?task_id=a&since=2024-03-01T00:00:00Z")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/vnd.apache.parquet", resp.Header.Get("Content-Type"))
	assert.Equal(t, "PAR1", string(body))
	assert.Equal(t, "a", exporter.query.TaskID)
	assert.True(t, exporter.query.Since.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))

	bad, err := http.Get(srv.URL + "/api/events/export?since=yesterday")
	require.NoError(t, err)
	bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}
