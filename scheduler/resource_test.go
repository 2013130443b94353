package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type fixedUtilization struct{ slots int }

func (f fixedUtilization) AvailableSlots() int { return f.slots }

func TestResourceMonitorStartMonitoringAppliesUtilization(t *testing.T) {
	m := NewResourceMonitor(8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go m.StartMonitoring(ctx, 5*time.Millisecond, fixedUtilization{slots: 2})

	deadline := time.After(time.Second)
	for {
		if m.Available() == 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("Available() never converged to 2, got %d", m.Available())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestResourceMonitorRegisterMetricsIsOptional(t *testing.T) {
	m := NewResourceMonitor(4)
	m.RegisterMetrics(nil) // must not panic

	reg := prometheus.NewRegistry()
	m.RegisterMetrics(reg)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(metrics) != 2 {
		t.Fatalf("Gather() returned %d metric families, want 2", len(metrics))
	}
}

func TestResourceMonitorAcquireReleaseWithinCapacity(t *testing.T) {
	m := NewResourceMonitor(4)

	if err := m.WaitForResources(context.Background(), 3); err != nil {
		t.Fatalf("WaitForResources(3) = %v, want nil", err)
	}
	if got := m.Available(); got != 1 {
		t.Fatalf("Available() = %d, want 1", got)
	}

	m.ReleaseResources(3)
	if got := m.Available(); got != 4 {
		t.Fatalf("Available() after release = %d, want 4", got)
	}
}

func TestResourceMonitorBulkAcquireBlocksUntilAllSlotsFit(t *testing.T) {
	m := NewResourceMonitor(2)

	if err := m.WaitForResources(context.Background(), 2); err != nil {
		t.Fatalf("WaitForResources(2) = %v, want nil", err)
	}

	acquired := make(chan struct{})
	go func() {
		_ = m.WaitForResources(context.Background(), 2)
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatalf("second WaitForResources(2) returned before slots were released")
	case <-time.After(20 * time.Millisecond):
	}

	m.ReleaseResources(2)

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatalf("second WaitForResources(2) never unblocked after release")
	}
}

func TestResourceMonitorNeverDropsBelowOneSlot(t *testing.T) {
	m := NewResourceMonitor(4)
	m.SetAvailable(0)
	if got := m.Available(); got != 1 {
		t.Fatalf("Available() after SetAvailable(0) = %d, want 1", got)
	}

	m2 := NewResourceMonitor(0)
	if got := m2.Available(); got != 1 {
		t.Fatalf("NewResourceMonitor(0).Available() = %d, want 1", got)
	}
}

func TestResourceMonitorCancellationUnblocksWaiter(t *testing.T) {
	m := NewResourceMonitor(1)
	if err := m.WaitForResources(context.Background(), 1); err != nil {
		t.Fatalf("WaitForResources(1) = %v, want nil", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- m.WaitForResources(ctx, 1)
	}()
	cancel()

	if err := <-errCh; err == nil {
		t.Fatalf("WaitForResources returned nil after cancellation, want an error")
	}

	// The cancelled waiter must not remain queued blocking a later caller.
	m.ReleaseResources(1)
	if err := m.WaitForResources(context.Background(), 1); err != nil {
		t.Fatalf("WaitForResources after cancellation cleanup = %v, want nil", err)
	}
}

func TestResourceMonitorCapacityIsConstructionCeiling(t *testing.T) {
	m := NewResourceMonitor(4)
	if got := m.Capacity(); got != 4 {
		t.Fatalf("Capacity() = %d, want 4", got)
	}

	if err := m.WaitForResources(context.Background(), 4); err != nil {
		t.Fatalf("WaitForResources(4) = %v, want nil", err)
	}
	m.ReleaseResources(4)
	if got := m.Capacity(); got != 4 {
		t.Fatalf("Capacity() after acquire/release = %d, want unchanged 4", got)
	}

	m.SetAvailable(10)
	if got := m.Capacity(); got != 10 {
		t.Fatalf("Capacity() after SetAvailable(10) = %d, want 10 (ceiling widened)", got)
	}
}

func TestResourceMonitorFIFOOrdering(t *testing.T) {
	m := NewResourceMonitor(1)
	if err := m.WaitForResources(context.Background(), 1); err != nil {
		t.Fatalf("WaitForResources(1) = %v, want nil", err)
	}

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Stagger goroutine start so waiters queue in order.
			time.Sleep(time.Duration(i) * 5 * time.Millisecond)
			if err := m.WaitForResources(context.Background(), 1); err == nil {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				m.ReleaseResources(1)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	m.ReleaseResources(1)
	wg.Wait()

	if len(order) != 3 {
		t.Fatalf("order = %v, want 3 entries", order)
	}
	for i, got := range order {
		if got != i {
			t.Fatalf("order = %v, want [0 1 2] (FIFO)", order)
		}
	}
}
