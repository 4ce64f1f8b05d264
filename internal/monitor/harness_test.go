package monitor

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aleister1102/dataspy/internal/common"
	"github.com/aleister1102/dataspy/internal/config"
	"github.com/aleister1102/dataspy/internal/datastore"
	"github.com/aleister1102/dataspy/internal/httpclient"
	"github.com/aleister1102/dataspy/internal/models"
	"github.com/aleister1102/dataspy/internal/notifier"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeFetcher struct {
	mu          sync.Mutex
	body        []byte
	contentType string
	err         error
	panicWith   interface{}
	gate        chan struct{}
	entered     chan struct{}
	onFetch     func()
	calls       atomic.Int32
}

func (f *fakeFetcher) Serve(body, contentType string) {
	f.mu.Lock()
	f.body, f.contentType, f.err = []byte(body), contentType, nil
	f.mu.Unlock()
}

func (f *fakeFetcher) Fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string, _ map[string]string, _ time.Duration) (*httpclient.FetchResult, error) {
	f.calls.Add(1)
	f.mu.Lock()
	body, contentType, err, panicWith := f.body, f.contentType, f.err, f.panicWith
	gate, entered, onFetch := f.gate, f.entered, f.onFetch
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if onFetch != nil {
		onFetch()
	}
	if panicWith != nil {
		panic(panicWith)
	}
	if err != nil {
		return nil, err
	}
	return &httpclient.FetchResult{Body: body, StatusCode: 200, ContentType: contentType}, nil
}

// faultyStore fails CommitCheck on demand.
type faultyStore struct {
	*datastore.Store
	failCommits atomic.Bool
}

func (s *faultyStore) CommitCheck(ctx context.Context, c datastore.CheckCommit) error {
	if s.failCommits.Load() {
		return common.NewPersistenceError("commit check", errors.New("disk full"))
	}
	return s.Store.CommitCheck(ctx, c)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []models.ChangeEvent
}

func (n *recordingNotifier) Name() string { return "recording" }

func (n *recordingNotifier) Notify(_ context.Context, _ models.MonitorTask, event models.ChangeEvent) error {
	n.mu.Lock()
	n.events = append(n.events, event)
	n.mu.Unlock()
	return nil
}

func (n *recordingNotifier) Events() []models.ChangeEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]models.ChangeEvent(nil), n.events...)
}

type harness struct {
	t        *testing.T
	store    *faultyStore
	fetcher  *fakeFetcher
	clock    *manualClock
	notified *recordingNotifier
	memory   atomic.Value
	svc      *MonitoringService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()

	storeCfg := config.NewDefaultStorageConfig()
	storeCfg.SQLitePath = filepath.Join(dir, "dataspy.db")
	store, err := datastore.Open(context.Background(), storeCfg, zerolog.Nop())
	require.NoError(t, err)

	blobs, err := datastore.NewFileBlobStore(filepath.Join(dir, "snapshots"), zerolog.Nop())
	require.NoError(t, err)

	h := &harness{
		t:        t,
		store:    &faultyStore{Store: store},
		fetcher:  &fakeFetcher{},
		clock:    &manualClock{now: t0},
		notified: &recordingNotifier{},
	}
	h.memory.Store(10.0)

	cfg := config.NewDefaultMonitorConfig()
	cfg.MaxConcurrentChecks = 2
	cfg.TickIntervalSeconds = 3600

	notifyCfg := config.NewDefaultNotificationConfig()
	notifyCfg.RetryAttempts = 1
	dispatcher := notifier.NewDispatcher(notifyCfg, []notifier.Notifier{h.notified}, zerolog.Nop())

	h.svc = NewMonitoringService(cfg, ServiceDeps{
		Store:       h.store,
		Blobs:       blobs,
		Fetcher:     h.fetcher,
		Dispatcher:  dispatcher,
		Clock:       h.clock.Now,
		MemoryUsage: func() (float64, error) { return h.memory.Load().(float64), nil },
	}, zerolog.Nop())
	require.NoError(t, h.svc.Init(context.Background(), nil))
	t.Cleanup(func() { h.svc.Close() })
	return h
}

func (h *harness) addTask(id string, strategy models.CheckStrategy, interval time.Duration) models.MonitorTask {
	h.t.Helper()
	task := models.MonitorTask{
		ID:            id,
		Name:          "task " + id,
		URL:           "https://example.com/" + id,
		Strategy:      strategy,
		CheckInterval: interval,
		Enabled:       true,
		CreatedAt:     t0,
	}
	require.NoError(h.t, h.svc.AddTask(context.Background(), task))
	return task
}

func (h *harness) check(id string) models.CheckOutcome {
	h.t.Helper()
	outcome, err := h.svc.CheckNow(context.Background(), id)
	require.NoError(h.t, err)
	return outcome
}

func (h *harness) events(id string) []models.ChangeEvent {
	h.t.Helper()
	events, err := h.svc.GetEvents(context.Background(), id, 0)
	require.NoError(h.t, err)
	return events
}

func (h *harness) snapshots(id string) []models.Snapshot {
	h.t.Helper()
	snaps, err := h.store.ListSnapshots(context.Background(), id, 0)
	require.NoError(h.t, err)
	return snaps
}

func (h *harness) task(id string) models.MonitorTask {
	h.t.Helper()
	task, err := h.svc.GetTask(id)
	require.NoError(h.t, err)
	return task
}

func (h *harness) storedTask(id string) models.MonitorTask {
	h.t.Helper()
	task, err := h.store.GetTask(context.Background(), id)
	require.NoError(h.t, err)
	return task
}
