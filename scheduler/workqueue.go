package scheduler

import (
	"math/rand"
	"sync"
)

// Task is a unit of work a WorkQueue holds. WorkQueueManager is a
// standalone load-balancing substrate: Scheduler does not submit its
// node executions here, and correctness never depends on this ordering.
type Task func()

// WorkQueue is one worker's FIFO, with a pointer back to its manager
// so it can steal from peers when its own queue is empty.
type WorkQueue struct {
	mu      sync.Mutex
	tasks   []Task
	manager *WorkQueueManager
	index   int
}

func (q *WorkQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

func (q *WorkQueue) pushBack(t Task) {
	q.mu.Lock()
	q.tasks = append(q.tasks, t)
	q.mu.Unlock()
}

func (q *WorkQueue) popFront() (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return nil, false
	}
	t := q.tasks[0]
	q.tasks = q.tasks[1:]
	return t, true
}

// popTail removes and returns the queue's tail task, for a peer to
// steal: LIFO stealing minimizes contention with the queue's own
// owner, which services the head.
func (q *WorkQueue) popTail() (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.tasks)
	if n == 0 {
		return nil, false
	}
	t := q.tasks[n-1]
	q.tasks = q.tasks[:n-1]
	return t, true
}

// WorkQueueManager owns one WorkQueue per worker and implements
// submit-to-least-loaded plus random-peer stealing.
type WorkQueueManager struct {
	mu     sync.Mutex
	queues []*WorkQueue
	closed bool
	wake   chan struct{}
}

// NewWorkQueueManager returns a manager with workers WorkQueues.
func NewWorkQueueManager(workers int) *WorkQueueManager {
	if workers < 1 {
		workers = 1
	}
	m := &WorkQueueManager{wake: make(chan struct{}, workers)}
	m.queues = make([]*WorkQueue, workers)
	for i := range m.queues {
		m.queues[i] = &WorkQueue{manager: m, index: i}
	}
	return m
}

// Submit picks the currently least-loaded queue (ties go to the
// lowest index) and appends t to it.
func (m *WorkQueueManager) Submit(t Task) {
	m.mu.Lock()
	best := 0
	bestLen := m.queues[0].len()
	for i := 1; i < len(m.queues); i++ {
		l := m.queues[i].len()
		if l < bestLen {
			best, bestLen = i, l
		}
	}
	m.mu.Unlock()

	m.queues[best].pushBack(t)
	m.notify()
}

func (m *WorkQueueManager) notify() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Next returns the next task for worker index: its own queue's head
// if non-empty, otherwise a tail task stolen from a randomly shuffled
// peer.
func (m *WorkQueueManager) Next(workerIndex int) (Task, bool) {
	own := m.queues[workerIndex]
	if t, ok := own.popFront(); ok {
		return t, true
	}

	order := rand.Perm(len(m.queues))
	for _, i := range order {
		if i == workerIndex {
			continue
		}
		if t, ok := m.queues[i].popTail(); ok {
			return t, true
		}
	}
	return nil, false
}

// Drain empties every queue, discarding pending tasks, and wakes any
// worker blocked waiting for new work.
func (m *WorkQueueManager) Drain() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()

	for _, q := range m.queues {
		q.mu.Lock()
		q.tasks = nil
		q.mu.Unlock()
	}
	close(m.wake)
}
