package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/maccontainer/buildengine/errdefs"
)

// UtilizationSource reports how many concurrency slots the host can
// currently sustain, e.g. derived from live CPU/memory pressure; the
// background monitoring task calls it once per monitoringInterval tick.
type UtilizationSource interface {
	AvailableSlots() int
}

// ResourceMonitor throttles concurrent node execution to a bounded
// number of slots: WaitForResources suspends until enough slots are
// free, then reserves them; ReleaseResources returns slots and wakes
// the oldest waiter whose request now fits.
type ResourceMonitor struct {
	mu        sync.Mutex
	available int
	waiters   []*resourceWaiter

	// capacity is the slot count the monitor was constructed with,
	// raised (never lowered) when SetAvailable/StartMonitoring widens
	// available past it. Acquire and release leave it unchanged, so
	// callers can size a single bulk acquire against it.
	capacity int

	availableGauge prometheus.Gauge
	waitersGauge   prometheus.Gauge
}

type resourceWaiter struct {
	n     int
	ready chan struct{}
}

// NewResourceMonitor returns a ResourceMonitor with availableSlots
// initial capacity and no metrics registered; call RegisterMetrics to
// expose its gauges.
func NewResourceMonitor(availableSlots int) *ResourceMonitor {
	if availableSlots < 1 {
		availableSlots = 1
	}
	m := &ResourceMonitor{available: availableSlots, capacity: availableSlots}
	m.availableGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "buildengine_resource_available_slots",
		Help: "Concurrency slots currently free for node dispatch.",
	})
	m.waitersGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "buildengine_resource_waiters",
		Help: "Node groups currently blocked waiting for slots.",
	})
	m.availableGauge.Set(float64(availableSlots))
	return m
}

// RegisterMetrics registers the monitor's gauges with reg; it is
// additive instrumentation the monitor works correctly without, so a
// nil reg or a registration error (e.g. a gauge already registered
// under the same name in tests) is simply ignored.
func (m *ResourceMonitor) RegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		return
	}
	_ = reg.Register(m.availableGauge)
	_ = reg.Register(m.waitersGauge)
}

// WaitForResources blocks until n slots are available and reserves
// them atomically (a bulk acquire, so a group of tasks never starts
// partially resourced), or returns errdefs.Cancelled if ctx is done
// first.
func (m *ResourceMonitor) WaitForResources(ctx context.Context, n int) error {
	m.mu.Lock()
	if m.available >= n && len(m.waiters) == 0 {
		m.available -= n
		m.availableGauge.Set(float64(m.available))
		m.mu.Unlock()
		return nil
	}
	w := &resourceWaiter{n: n, ready: make(chan struct{})}
	m.waiters = append(m.waiters, w)
	m.waitersGauge.Set(float64(len(m.waiters)))
	m.mu.Unlock()

	select {
	case <-w.ready:
		return nil
	case <-ctx.Done():
		m.cancelWaiter(w)
		return errdefs.Cancelled()
	}
}

func (m *ResourceMonitor) cancelWaiter(w *resourceWaiter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, ww := range m.waiters {
		if ww == w {
			m.waiters = append(m.waiters[:i], m.waiters[i+1:]...)
			m.waitersGauge.Set(float64(len(m.waiters)))
			return
		}
	}
}

// ReleaseResources returns n slots and wakes waiters (in FIFO order)
// whose request now fits.
func (m *ResourceMonitor) ReleaseResources(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available += n
	for len(m.waiters) > 0 {
		w := m.waiters[0]
		if w.n > m.available {
			break
		}
		m.available -= w.n
		m.waiters = m.waiters[1:]
		close(w.ready)
	}
	m.availableGauge.Set(float64(m.available))
	m.waitersGauge.Set(float64(len(m.waiters)))
}

// Available returns the current free-slot count, for diagnostics.
func (m *ResourceMonitor) Available() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available
}

// Capacity returns the monitor's slot ceiling: the construction-time
// count, or a larger count a later SetAvailable set. A single
// WaitForResources(ctx, n) call with n above it waits until a
// SetAvailable widens the monitor; callers bulk-acquiring more than a
// layer's worth of work must chunk against it instead.
func (m *ResourceMonitor) Capacity() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.capacity
}

// SetAvailable widens or narrows the slot count, e.g. from a
// monitoringInterval poll of system utilization; it never drops below
// 1 so a runnable node is never permanently starved.
func (m *ResourceMonitor) SetAvailable(n int) {
	if n < 1 {
		n = 1
	}
	m.mu.Lock()
	m.available = n
	if n > m.capacity {
		m.capacity = n
	}
	m.mu.Unlock()
	m.wake()
}

// StartMonitoring polls source every interval and applies its reading
// via SetAvailable, until ctx is done. It runs in the calling
// goroutine; callers launch it with `go` (Scheduler.Execute does not
// start it).
func (m *ResourceMonitor) StartMonitoring(ctx context.Context, interval time.Duration, source UtilizationSource) {
	if source == nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SetAvailable(source.AvailableSlots())
		}
	}
}

func (m *ResourceMonitor) wake() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for len(m.waiters) > 0 {
		w := m.waiters[0]
		if w.n > m.available {
			break
		}
		m.available -= w.n
		m.waiters = m.waiters[1:]
		close(w.ready)
	}
	m.availableGauge.Set(float64(m.available))
	m.waitersGauge.Set(float64(len(m.waiters)))
}
