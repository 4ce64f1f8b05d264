package monitor

import (
	"sync"

	"github.com/rs/zerolog"
)

// TaskMutexManager hands out one mutex per task id so writes to a task
// record are serialized.
type TaskMutexManager struct {
	logger   zerolog.Logger
	mutexes  map[string]*sync.Mutex
	mapMutex sync.RWMutex
}

// NewTaskMutexManager creates a new TaskMutexManager
func NewTaskMutexManager(logger zerolog.Logger) *TaskMutexManager {
	return &TaskMutexManager{
		logger:  logger.With().Str("component", "TaskMutexManager").Logger(),
		mutexes: make(map[string]*sync.Mutex),
	}
}

// GetMutex gets or creates the mutex of a task id.
func (m *TaskMutexManager) GetMutex(taskID string) *sync.Mutex {
	m.mapMutex.RLock()
	mutex := m.mutexes[taskID]
	m.mapMutex.RUnlock()
	if mutex != nil {
		return mutex
	}

	m.mapMutex.Lock()
	defer m.mapMutex.Unlock()

	// another goroutine may have created it between the two locks
	if mutex, exists := m.mutexes[taskID]; exists {
		return mutex
	}
	mutex = &sync.Mutex{}
	m.mutexes[taskID] = mutex
	return mutex
}

// Lock locks the mutex of taskID and returns its unlock function.
func (m *TaskMutexManager) Lock(taskID string) func() {
	mutex := m.GetMutex(taskID)
	mutex.Lock()
	return mutex.Unlock
}

// CleanupUnusedMutexes drops mutexes of task ids that are no longer registered.
func (m *TaskMutexManager) CleanupUnusedMutexes(activeIDs []string) int {
	active := make(map[string]struct{}, len(activeIDs))
	for _, id := range activeIDs {
		active[id] = struct{}{}
	}

	m.mapMutex.Lock()
	defer m.mapMutex.Unlock()

	removed := 0
	for id := range m.mutexes {
		if _, ok := active[id]; !ok {
			delete(m.mutexes, id)
			removed++
		}
	}
	if removed > 0 {
		m.logger.Debug().
			Int("removed_mutexes", removed).
			Int("remaining_mutexes", len(m.mutexes)).
			Msg("Cleaned up unused task mutexes")
	}
	return removed
}

// Count returns the current number of mutexes.
func (m *TaskMutexManager) Count() int {
	m.mapMutex.RLock()
	defer m.mapMutex.RUnlock()
	return len(m.mutexes)
}
