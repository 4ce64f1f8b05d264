package monitor

import "sync"

// InFlightGuard tracks which tasks have a check running.
type InFlightGuard struct {
	mu      sync.Mutex
	running map[string]struct{}
}

// NewInFlightGuard creates an empty guard.
func NewInFlightGuard() *InFlightGuard {
	return &InFlightGuard{running: make(map[string]struct{})}
}

// TryAcquire marks taskID as running. It returns false if a check of the
// task is already in flight.
func (g *InFlightGuard) TryAcquire(taskID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.running[taskID]; busy {
		return false
	}
	g.running[taskID] = struct{}{}
	return true
}

// Release clears the running mark of taskID.
func (g *InFlightGuard) Release(taskID string) {
	g.mu.Lock()
	delete(g.running, taskID)
	g.mu.Unlock()
}

// Count returns the number of checks in flight.
func (g *InFlightGuard) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.running)
}
