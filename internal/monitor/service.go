package monitor

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/aleister1102/dataspy/internal/common"
	"github.com/aleister1102/dataspy/internal/config"
	"github.com/aleister1102/dataspy/internal/datastore"
	"github.com/aleister1102/dataspy/internal/models"
	"github.com/aleister1102/dataspy/internal/notifier"
	"github.com/rs/zerolog"
)

// Store is everything the service needs from durable storage.
type Store interface {
	TaskStore
	SnapshotReader
	ListEvents(ctx context.Context, taskID string, limit int) ([]models.ChangeEvent, error)
	Close() error
}

// ServiceDeps are the collaborators of a MonitoringService.
type ServiceDeps struct {
	Store      Store
	Blobs      datastore.BlobStore
	Fetcher    Fetcher
	Dispatcher *notifier.Dispatcher
	// Clock defaults to time.Now.
	Clock func() time.Time
	// MemoryUsage defaults to SystemMemoryUsage.
	MemoryUsage MemoryUsageFunc
}

// MonitoringService wires the registry, executor and scheduler together and
// is the entry point used by the CLI and the HTTP API.
type MonitoringService struct {
	cfg        config.MonitorConfig
	store      Store
	blobs      datastore.BlobStore
	registry   *TaskRegistry
	executor   *CheckExecutor
	scheduler  *Scheduler
	guard      *InFlightGuard
	stats      *Stats
	dispatcher *notifier.Dispatcher
	logger     zerolog.Logger

	notifyWG  sync.WaitGroup
	closeOnce sync.Once
}

// NewMonitoringService creates a service. Call Init before Start.
func NewMonitoringService(cfg config.MonitorConfig, deps ServiceDeps, baseLogger zerolog.Logger) *MonitoringService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	registry := NewTaskRegistry(deps.Store, baseLogger)
	executor := NewCheckExecutor(deps.Fetcher, registry, deps.Blobs, baseLogger,
		WithClock(clock),
		WithFetchTimeout(cfg.HTTPTimeout()),
		WithSnapshotReader(deps.Store),
	)
	guard := NewInFlightGuard()
	stats := &Stats{}
	resources := NewResourceGuard(cfg.MaxMemoryPercent, deps.MemoryUsage, baseLogger)

	s := &MonitoringService{
		cfg:        cfg,
		store:      deps.Store,
		blobs:      deps.Blobs,
		registry:   registry,
		executor:   executor,
		guard:      guard,
		stats:      stats,
		dispatcher: deps.Dispatcher,
		logger:     baseLogger.With().Str("component", "MonitoringService").Logger(),
	}
	s.scheduler = NewScheduler(cfg, registry, executor, guard, resources, stats, baseLogger)
	s.scheduler.SetClock(clock)
	s.scheduler.SetOutcomeHandler(s.handleOutcome)
	return s
}

// Init hydrates the registry from the store and registers seed tasks whose
// ids are not stored yet.
func (s *MonitoringService) Init(ctx context.Context, seeds []models.MonitorTask) error {
	if err := s.registry.Load(ctx); err != nil {
		return err
	}
	for _, task := range seeds {
		added, err := s.registry.Seed(ctx, task)
		if err != nil {
			return common.WrapErrorf(err, "failed to seed task %s", task.ID)
		}
		if added {
			s.logger.Info().Str("task_id", task.ID).Str("url", task.URL).Msg("Seeded task from configuration")
		}
	}
	return nil
}

// Start begins scheduling.
func (s *MonitoringService) Start(ctx context.Context) error {
	s.logger.Info().Int("tasks", s.registry.Len()).Msg("Starting MonitoringService...")
	return s.scheduler.Start(ctx)
}

// Stop stops scheduling and waits for running checks and notifications.
func (s *MonitoringService) Stop() {
	s.scheduler.Stop()
	s.notifyWG.Wait()
	s.logger.Info().Msg("MonitoringService stopped.")
}

// Close stops the service and releases the store and blob store.
func (s *MonitoringService) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.Stop()
		s.registry.Close()
		var errs common.ErrorCollector
		if closer, ok := s.blobs.(io.Closer); ok {
			errs.AddWithContext(closer.Close(), "close blob store")
		}
		if s.store != nil {
			errs.AddWithContext(s.store.Close(), "close store")
		}
		err = errs.Error()
	})
	return err
}

// AddTask registers or replaces a task.
func (s *MonitoringService) AddTask(ctx context.Context, task models.MonitorTask) error {
	return s.registry.Add(ctx, task)
}

// UpdateTask changes a task's definition and keeps its observed state.
func (s *MonitoringService) UpdateTask(ctx context.Context, task models.MonitorTask) error {
	return s.registry.Update(ctx, task)
}

// RemoveTask unregisters a task. Its history is kept.
func (s *MonitoringService) RemoveTask(ctx context.Context, id string) error {
	return s.registry.Remove(ctx, id)
}

// GetTask returns a registered task.
func (s *MonitoringService) GetTask(id string) (models.MonitorTask, error) {
	task, ok := s.registry.Get(id)
	if !ok {
		return models.MonitorTask{}, models.ErrRecordNotFound
	}
	return task, nil
}

// ListTasks returns registered tasks sorted by id.
func (s *MonitoringService) ListTasks(enabledOnly bool) []models.MonitorTask {
	return s.registry.List(enabledOnly)
}

// CheckNow runs a check of one task immediately, regardless of its
// schedule. A check already in flight yields a skipped outcome.
func (s *MonitoringService) CheckNow(ctx context.Context, id string) (models.CheckOutcome, error) {
	ref, ok := s.registry.Ref(id)
	if !ok {
		return models.CheckOutcome{}, models.ErrRecordNotFound
	}
	return s.scheduler.RunCheck(ctx, ref), nil
}

// GetEvents returns up to limit events of a task, newest first. An empty
// taskID returns events of all tasks.
func (s *MonitoringService) GetEvents(ctx context.Context, taskID string, limit int) ([]models.ChangeEvent, error) {
	return s.store.ListEvents(ctx, taskID, limit)
}

// Stats returns the current counters.
func (s *MonitoringService) Stats() StatsSnapshot {
	snap := s.stats.Snapshot()
	snap.Tasks = s.registry.Len()
	snap.InFlight = s.guard.Count()
	return snap
}

// Wait blocks until dispatched checks and their notifications are done.
func (s *MonitoringService) Wait() {
	s.scheduler.Wait()
	s.notifyWG.Wait()
}

func (s *MonitoringService) handleOutcome(ctx context.Context, task models.MonitorTask, outcome models.CheckOutcome) {
	if outcome.Status != models.StatusChanged || outcome.Event == nil || !s.dispatcher.Enabled() {
		return
	}
	event := *outcome.Event
	s.notifyWG.Add(1)
	go func() {
		defer s.notifyWG.Done()
		if err := s.dispatcher.Dispatch(ctx, task, event); err != nil {
			s.logger.Warn().Err(err).Str("task_id", task.ID).Str("event_id", event.ID).Msg("Change recorded but notification failed")
		}
	}()
}
