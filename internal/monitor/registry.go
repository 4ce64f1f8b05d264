package monitor

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/aleister1102/dataspy/internal/common"
	"github.com/aleister1102/dataspy/internal/datastore"
	"github.com/aleister1102/dataspy/internal/models"
	"github.com/rs/zerolog"
)

// ErrStaleTask is returned when a check commits against a task that was
// replaced, updated or removed after the check started.
var ErrStaleTask = errors.New("task changed while check was running")

// TaskStore is the durable side of the registry.
type TaskStore interface {
	ListTasks(ctx context.Context, enabledOnly bool) ([]models.MonitorTask, error)
	UpsertTask(ctx context.Context, task models.MonitorTask) error
	InsertTaskIfMissing(ctx context.Context, task models.MonitorTask) (bool, error)
	UpdateTask(ctx context.Context, task models.MonitorTask) error
	DeleteTask(ctx context.Context, id string) error
	CommitCheck(ctx context.Context, c datastore.CheckCommit) error
}

// TaskRef is a task copy paired with the registry revision it was read at.
type TaskRef struct {
	Task     models.MonitorTask
	Revision uint64
}

type registryEntry struct {
	task     models.MonitorTask
	revision uint64
}

// TaskRegistry is the in-memory task map, kept in step with the durable
// store. Every write goes to the store first and reaches memory only when
// the store accepted it.
type TaskRegistry struct {
	store  TaskStore
	locks  *TaskMutexManager
	logger zerolog.Logger

	mu           sync.RWMutex
	entries      map[string]*registryEntry
	nextRevision uint64
}

// NewTaskRegistry creates an empty registry backed by store.
func NewTaskRegistry(store TaskStore, logger zerolog.Logger) *TaskRegistry {
	return &TaskRegistry{
		store:   store,
		locks:   NewTaskMutexManager(logger),
		logger:  logger.With().Str("component", "TaskRegistry").Logger(),
		entries: make(map[string]*registryEntry),
	}
}

// Load hydrates the registry from the store, replacing its content.
func (r *TaskRegistry) Load(ctx context.Context) error {
	tasks, err := r.store.ListTasks(ctx, false)
	if err != nil {
		return common.WrapError(err, "failed to load tasks")
	}

	r.mu.Lock()
	r.entries = make(map[string]*registryEntry, len(tasks))
	ids := make([]string, 0, len(tasks))
	for _, task := range tasks {
		r.entries[task.ID] = &registryEntry{task: task, revision: r.bumpLocked()}
		ids = append(ids, task.ID)
	}
	r.mu.Unlock()

	r.locks.CleanupUnusedMutexes(ids)
	r.logger.Info().Int("count", len(tasks)).Msg("Task registry loaded")
	return nil
}

// Add registers a task. An existing id is replaced, including its observed
// state.
func (r *TaskRegistry) Add(ctx context.Context, task models.MonitorTask) error {
	if err := task.Validate(); err != nil {
		return common.NewValidationError("task", task.ID, err.Error())
	}
	unlock := r.locks.Lock(task.ID)
	defer unlock()

	if err := r.store.UpsertTask(ctx, task); err != nil {
		return err
	}
	r.put(task.Clone())
	r.logger.Info().Str("task_id", task.ID).Str("url", task.URL).Str("check_type", string(task.CheckType())).Msg("Task registered")
	return nil
}

// Seed inserts a task only if its id is not registered yet. It reports
// whether the task was added.
func (r *TaskRegistry) Seed(ctx context.Context, task models.MonitorTask) (bool, error) {
	if err := task.Validate(); err != nil {
		return false, common.NewValidationError("task", task.ID, err.Error())
	}
	unlock := r.locks.Lock(task.ID)
	defer unlock()

	inserted, err := r.store.InsertTaskIfMissing(ctx, task)
	if err != nil || !inserted {
		return false, err
	}
	r.put(task.Clone())
	return true, nil
}

// Update changes a task's definition. The last check time is kept, and so
// is the comparable unless the strategy changed, in which case the next check
// is a new baseline. In-flight checks of the previous definition become stale.
func (r *TaskRegistry) Update(ctx context.Context, task models.MonitorTask) error {
	if err := task.Validate(); err != nil {
		return common.NewValidationError("task", task.ID, err.Error())
	}
	unlock := r.locks.Lock(task.ID)
	defer unlock()

	r.mu.RLock()
	entry, ok := r.entries[task.ID]
	r.mu.RUnlock()
	if !ok {
		return models.ErrRecordNotFound
	}

	if err := r.store.UpdateTask(ctx, task); err != nil {
		return err
	}

	updated := task.Clone()
	updated.CreatedAt = entry.task.CreatedAt
	updated.LastCheck = entry.task.LastCheck
	updated.LastContentHash = nil
	updated.LastValue = nil
	if models.SameStrategy(entry.task.Strategy, task.Strategy) {
		updated.LastContentHash = copyString(entry.task.LastContentHash)
		updated.LastValue = copyString(entry.task.LastValue)
	} else {
		r.logger.Info().Str("task_id", task.ID).Str("check_type", string(task.CheckType())).Msg("Strategy changed, next check records a new baseline")
	}
	r.put(updated)
	return nil
}

// Remove deletes a task. Its events and snapshots stay in the store.
func (r *TaskRegistry) Remove(ctx context.Context, id string) error {
	unlock := r.locks.Lock(id)
	defer unlock()

	if err := r.store.DeleteTask(ctx, id); err != nil {
		return err
	}
	r.mu.Lock()
	delete(r.entries, id)
	r.mu.Unlock()
	r.logger.Info().Str("task_id", id).Msg("Task removed")
	return nil
}

// Get returns a copy of a task.
func (r *TaskRegistry) Get(id string) (models.MonitorTask, bool) {
	ref, ok := r.Ref(id)
	return ref.Task, ok
}

// Ref returns a copy of a task together with its current revision.
func (r *TaskRegistry) Ref(id string) (TaskRef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[id]
	if !ok {
		return TaskRef{}, false
	}
	return TaskRef{Task: entry.task.Clone(), Revision: entry.revision}, true
}

// List returns copies of the registered tasks sorted by id.
func (r *TaskRegistry) List(enabledOnly bool) []models.MonitorTask {
	refs := r.refs(enabledOnly)
	tasks := make([]models.MonitorTask, len(refs))
	for i, ref := range refs {
		tasks[i] = ref.Task
	}
	return tasks
}

// Due returns the enabled tasks that should be checked at now.
func (r *TaskRegistry) Due(now time.Time) []TaskRef {
	refs := r.refs(true)
	due := refs[:0]
	for _, ref := range refs {
		if ref.Task.IsDue(now) {
			due = append(due, ref)
		}
	}
	return due
}

// Len returns the number of registered tasks.
func (r *TaskRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// CommitCheck persists a check result for the task at revision and then
// applies it to memory. LastCheck never moves backwards.
func (r *TaskRegistry) CommitCheck(ctx context.Context, revision uint64, commit datastore.CheckCommit) (models.MonitorTask, error) {
	unlock := r.locks.Lock(commit.TaskID)
	defer unlock()

	r.mu.RLock()
	entry, ok := r.entries[commit.TaskID]
	r.mu.RUnlock()
	if !ok || entry.revision != revision {
		return models.MonitorTask{}, ErrStaleTask
	}

	if last := entry.task.LastCheck; last != nil && last.After(commit.LastCheck) {
		commit.LastCheck = *last
	}

	if err := r.store.CommitCheck(ctx, commit); err != nil {
		if errors.Is(err, models.ErrRecordNotFound) {
			return models.MonitorTask{}, ErrStaleTask
		}
		return models.MonitorTask{}, err
	}

	updated := entry.task.Clone()
	lastCheck := commit.LastCheck
	updated.LastCheck = &lastCheck
	if commit.UpdateComparable {
		updated.LastContentHash = copyString(commit.LastContentHash)
		updated.LastValue = copyString(commit.LastValue)
	}

	r.mu.Lock()
	r.entries[commit.TaskID] = &registryEntry{task: updated, revision: revision}
	r.mu.Unlock()
	return updated.Clone(), nil
}

// Close drops the in-memory state.
func (r *TaskRegistry) Close() {
	r.mu.Lock()
	r.entries = make(map[string]*registryEntry)
	r.mu.Unlock()
	r.locks.CleanupUnusedMutexes(nil)
}

func (r *TaskRegistry) put(task models.MonitorTask) {
	r.mu.Lock()
	r.entries[task.ID] = &registryEntry{task: task, revision: r.bumpLocked()}
	r.mu.Unlock()
}

func (r *TaskRegistry) bumpLocked() uint64 {
	r.nextRevision++
	return r.nextRevision
}

func (r *TaskRegistry) refs(enabledOnly bool) []TaskRef {
	r.mu.RLock()
	refs := make([]TaskRef, 0, len(r.entries))
	for _, entry := range r.entries {
		if enabledOnly && !entry.task.Enabled {
			continue
		}
		refs = append(refs, TaskRef{Task: entry.task.Clone(), Revision: entry.revision})
	}
	r.mu.RUnlock()

	sort.Slice(refs, func(i, j int) bool { return refs[i].Task.ID < refs[j].Task.ID })
	return refs
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
