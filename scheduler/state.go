package scheduler

import (
	"sync"

	"github.com/maccontainer/buildengine/errdefs"
)

// outcome is the terminal state a node's waiters are woken with.
type outcome struct {
	completed bool
	err       error
}

// ExecutionState is the cross-task dependency barrier: every node id
// maps to either a resolved outcome or a list of suspended waiters,
// and completion/failure atomically transitions and wakes every
// waiter exactly once.
type ExecutionState struct {
	mu sync.Mutex

	cancelled      bool
	operationCount int
	cacheHits      int
	failedNodes    map[string]struct{}
	completedNodes map[string]struct{}
	nodeRetries    map[string]int
	resolved       map[string]outcome
	waiters        map[string][]chan outcome
}

// NewExecutionState returns a fresh ExecutionState; the scheduler must
// call this (or Reset) before each execute.
func NewExecutionState() *ExecutionState {
	s := &ExecutionState{}
	s.Reset()
	return s
}

// Reset clears all state; must be called before each execute on a
// reused scheduler instance.
func (s *ExecutionState) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = false
	s.operationCount = 0
	s.cacheHits = 0
	s.failedNodes = make(map[string]struct{})
	s.completedNodes = make(map[string]struct{})
	s.nodeRetries = make(map[string]int)
	s.resolved = make(map[string]outcome)
	s.waiters = make(map[string][]chan outcome)
}

// MarkNodeCompleted records id as completed and wakes every waiter on
// it with a completed outcome.
func (s *ExecutionState) MarkNodeCompleted(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completedNodes[id] = struct{}{}
	s.resolve(id, outcome{completed: true})
}

// MarkNodeFailed records id as failed and wakes every waiter on it; a
// waiter that observes this failure fails itself with a
// dependencyFailed error naming id, distinct from id's own
// operationFailed report which the scheduler emits separately.
func (s *ExecutionState) MarkNodeFailed(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failedNodes[id] = struct{}{}
	s.resolve(id, outcome{completed: false, err: dependencyFailedError(id)})
}

// resolve must be called with s.mu held.
func (s *ExecutionState) resolve(id string, o outcome) {
	s.resolved[id] = o
	for _, ch := range s.waiters[id] {
		ch <- o
		close(ch)
	}
	delete(s.waiters, id)
}

// WaitForNode blocks until id is completed, failed, or the state is
// cancelled, returning an error in the latter two cases.
func (s *ExecutionState) WaitForNode(id string) error {
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		return errdefs.Cancelled()
	}
	if o, ok := s.resolved[id]; ok {
		s.mu.Unlock()
		return o.err
	}
	ch := make(chan outcome, 1)
	s.waiters[id] = append(s.waiters[id], ch)
	s.mu.Unlock()

	o := <-ch
	return o.err
}

// Cancel sets the sticky cancelled flag and rejects every outstanding
// waiter with errdefs.Cancelled.
func (s *ExecutionState) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled {
		return
	}
	s.cancelled = true
	for id, chans := range s.waiters {
		for _, ch := range chans {
			ch <- outcome{err: errdefs.Cancelled()}
			close(ch)
		}
		delete(s.waiters, id)
	}
}

// Cancelled reports whether Cancel has been called since the last Reset.
func (s *ExecutionState) Cancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

// IncrementRetryCount records one more retry attempt for id and
// returns the new count.
func (s *ExecutionState) IncrementRetryCount(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodeRetries[id]++
	return s.nodeRetries[id]
}

// RecordDispatch counts one executor dispatch (used for
// ExecutionMetrics; cache hits are not dispatches).
func (s *ExecutionState) RecordDispatch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.operationCount++
}

// RecordCacheHit counts one cache hit.
func (s *ExecutionState) RecordCacheHit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cacheHits++
}

// Counts returns the accumulated dispatch/cache-hit/retry counters.
func (s *ExecutionState) Counts() (dispatches, cacheHits int, retries map[string]int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := make(map[string]int, len(s.nodeRetries))
	for k, v := range s.nodeRetries {
		r[k] = v
	}
	return s.operationCount, s.cacheHits, r
}

// IsFailed reports whether id has been marked failed.
func (s *ExecutionState) IsFailed(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.failedNodes[id]
	return ok
}

func dependencyFailedError(id string) error {
	return errdefs.Internal("dependency " + id + " failed")
}
