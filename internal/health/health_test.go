package health

import (
	"sync"
	"testing"
)

func TestEmptyMonitorIsHealthy(t *testing.T) {
	m := NewMonitor()
	if got := m.Overall(); got != Healthy {
		t.Fatalf("Overall() on empty monitor = %q, want %q", got, Healthy)
	}
}

func TestOverallReturnsWorstStatus(t *testing.T) {
	m := NewMonitor()
	m.Update("capture", Healthy, "")
	m.Update("stream", Degraded, "slow viewer")
	if got := m.Overall(); got != Degraded {
		t.Fatalf("Overall() = %q, want %q", got, Degraded)
	}

	m.Update("capture", Unhealthy, "device lost")
	if got := m.Overall(); got != Unhealthy {
		t.Fatalf("Overall() = %q, want %q", got, Unhealthy)
	}
}

func TestUpdateReplacesCheck(t *testing.T) {
	m := NewMonitor()
	m.Update("capture", Degraded, "waiting for monitor")
	m.Update("capture", Healthy, "")

	if got := m.Overall(); got != Healthy {
		t.Fatalf("Overall() = %q, want %q after recovery", got, Healthy)
	}
	if n := len(m.All()); n != 1 {
		t.Fatalf("All() returned %d checks, want 1", n)
	}
}

func TestConcurrentUpdates(t *testing.T) {
	m := NewMonitor()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Update("capture", Healthy, "")
				m.Overall()
				m.All()
			}
		}()
	}
	wg.Wait()
}
