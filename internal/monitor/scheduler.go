package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/aleister1102/dataspy/internal/config"
	"github.com/aleister1102/dataspy/internal/models"
	"github.com/rs/zerolog"
)

// OutcomeHandler receives every finished check.
type OutcomeHandler func(ctx context.Context, task models.MonitorTask, outcome models.CheckOutcome)

// Scheduler wakes on a fixed tick and dispatches checks of due tasks.
type Scheduler struct {
	logger    zerolog.Logger
	registry  *TaskRegistry
	executor  *CheckExecutor
	guard     *InFlightGuard
	resources *ResourceGuard
	stats     *Stats
	onOutcome OutcomeHandler

	tick time.Duration
	now  func() time.Time
	sem  chan struct{}

	ctx        context.Context
	cancelFunc context.CancelFunc
	checksWG   sync.WaitGroup
	loopDone   chan struct{}
	active     bool
	mu         sync.Mutex
}

// NewScheduler creates a scheduler. It does nothing until Start.
func NewScheduler(
	cfg config.MonitorConfig,
	registry *TaskRegistry,
	executor *CheckExecutor,
	guard *InFlightGuard,
	resources *ResourceGuard,
	stats *Stats,
	logger zerolog.Logger,
) *Scheduler {
	schedLogger := logger.With().Str("component", "MonitorScheduler").Logger()

	workers := cfg.MaxConcurrentChecks
	if workers <= 0 {
		schedLogger.Warn().Int("configured_workers", cfg.MaxConcurrentChecks).Msg("MaxConcurrentChecks is not configured or invalid, defaulting to 1.")
		workers = 1
	}

	return &Scheduler{
		logger:    schedLogger,
		registry:  registry,
		executor:  executor,
		guard:     guard,
		resources: resources,
		stats:     stats,
		tick:      cfg.TickInterval(),
		now:       time.Now,
		sem:       make(chan struct{}, workers),
	}
}

// SetOutcomeHandler registers the callback run after each check.
func (s *Scheduler) SetOutcomeHandler(h OutcomeHandler) {
	s.onOutcome = h
}

// SetClock overrides the time source used for due checks.
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}

// Start runs one evaluation immediately and then one per tick until ctx is
// done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		s.logger.Warn().Msg("MonitorScheduler already active.")
		return nil
	}
	s.active = true
	s.ctx, s.cancelFunc = context.WithCancel(ctx)
	s.loopDone = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info().Dur("tick", s.tick).Int("max_concurrent_checks", cap(s.sem)).Msg("Starting MonitorScheduler")

	go s.loop()
	return nil
}

func (s *Scheduler) loop() {
	ticker := time.NewTicker(s.tick)
	defer func() {
		ticker.Stop()
		close(s.loopDone)
	}()

	s.RunOnce()
	for {
		select {
		case <-s.ctx.Done():
			s.logger.Info().Msg("MonitorScheduler context cancelled, main loop stopping.")
			return
		case <-ticker.C:
			s.RunOnce()
		}
	}
}

// RunOnce evaluates every enabled task and dispatches the due ones. It
// returns the number of dispatched checks and does not wait for them.
func (s *Scheduler) RunOnce() int {
	ctx := s.runContext()
	if ctx.Err() != nil {
		return 0
	}
	s.stats.ticks.Add(1)

	if !s.resources.Allow() {
		s.stats.throttledTicks.Add(1)
		return 0
	}

	due := s.registry.Due(s.now())
	dispatched := 0
	for _, ref := range due {
		if !s.guard.TryAcquire(ref.Task.ID) {
			s.logger.Debug().Str("task_id", ref.Task.ID).Msg("Check still in flight, skipping")
			s.record(ctx, ref.Task, models.CheckOutcome{TaskID: ref.Task.ID, Status: models.StatusSkipped, StartedAt: s.now()})
			continue
		}
		s.checksWG.Add(1)
		go s.dispatch(ctx, ref)
		dispatched++
	}

	if len(due) > 0 {
		s.logger.Debug().Int("due", len(due)).Int("dispatched", dispatched).Msg("Monitor tick")
	}
	return dispatched
}

// dispatch waits for a free slot and runs the check. A stop before the slot
// frees up drops the check.
func (s *Scheduler) dispatch(ctx context.Context, ref TaskRef) {
	defer s.checksWG.Done()
	defer s.guard.Release(ref.Task.ID)

	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		s.logger.Debug().Str("task_id", ref.Task.ID).Msg("Scheduler stopping, dropping queued check")
		return
	}
	defer func() { <-s.sem }()

	if ctx.Err() != nil {
		return
	}
	// started checks run to completion; the fetch timeout bounds them
	outcome := s.executor.Execute(context.WithoutCancel(ctx), ref)
	s.record(ctx, ref.Task, outcome)
}

// RunCheck checks one task now unless a check of it is already in flight.
func (s *Scheduler) RunCheck(ctx context.Context, ref TaskRef) models.CheckOutcome {
	if !s.guard.TryAcquire(ref.Task.ID) {
		outcome := models.CheckOutcome{TaskID: ref.Task.ID, Status: models.StatusSkipped, StartedAt: s.now()}
		s.record(ctx, ref.Task, outcome)
		return outcome
	}
	defer s.guard.Release(ref.Task.ID)

	outcome := s.executor.Execute(ctx, ref)
	s.record(ctx, ref.Task, outcome)
	return outcome
}

func (s *Scheduler) record(ctx context.Context, task models.MonitorTask, outcome models.CheckOutcome) {
	s.stats.Record(outcome)
	logOutcome(s.logger, task, outcome)
	if s.onOutcome != nil && outcome.Status != models.StatusSkipped {
		s.onOutcome(context.WithoutCancel(ctx), task, outcome)
	}
}

// Stop stops dispatching, drops queued checks and waits for running ones.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		s.logger.Info().Msg("MonitorScheduler was not active.")
		return
	}
	s.active = false
	cancel, loopDone := s.cancelFunc, s.loopDone
	s.mu.Unlock()

	s.logger.Info().Msg("Attempting to stop MonitorScheduler...")
	cancel()
	<-loopDone
	s.checksWG.Wait()
	s.logger.Info().Msg("MonitorScheduler stopped successfully.")
}

// Wait blocks until every dispatched check has finished.
func (s *Scheduler) Wait() {
	s.checksWG.Wait()
}

func (s *Scheduler) runContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil {
		return context.Background()
	}
	return s.ctx
}

func logOutcome(logger zerolog.Logger, task models.MonitorTask, o models.CheckOutcome) {
	var ev *zerolog.Event
	switch o.Status {
	case models.StatusFailed:
		ev = logger.Warn().Err(o.Err).Str("failure", string(o.ErrKind))
	case models.StatusChanged:
		ev = logger.Info().Str("change_type", string(o.Event.ChangeType))
	default:
		ev = logger.Debug()
	}
	ev.Str("task_id", task.ID).
		Str("url", task.URL).
		Str("status", string(o.Status)).
		Dur("duration", o.Duration).
		Msg("Check finished")
}
