// Package health tracks per-subsystem status for the /healthz endpoint.
package health

import (
	"sync"
	"time"

	"github.com/lumencast/agent/internal/logging"
)

var log = logging.L("health")

// Status is the health state of a single subsystem.
type Status string

const (
	Healthy   Status = "healthy"
	Degraded  Status = "degraded"
	Unhealthy Status = "unhealthy"
)

// Check is the latest recorded result for a named subsystem.
type Check struct {
	Name      string    `json:"name"`
	Status    Status    `json:"status"`
	Message   string    `json:"message,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Monitor aggregates checks from multiple subsystems.
type Monitor struct {
	mu     sync.RWMutex
	checks map[string]Check
}

func NewMonitor() *Monitor {
	return &Monitor{checks: make(map[string]Check)}
}

// Update records the status for a named subsystem. Only transitions away
// from the previous status are logged, so callers may update every tick.
func (m *Monitor) Update(name string, status Status, message string) {
	m.mu.Lock()
	prev, known := m.checks[name]
	m.checks[name] = Check{
		Name:      name,
		Status:    status,
		Message:   message,
		UpdatedAt: time.Now(),
	}
	m.mu.Unlock()

	if status != Healthy && (!known || prev.Status != status) {
		log.Warn("subsystem degraded", "subsystem", name, "status", string(status), "message", message)
	}
}

// Overall returns the worst status across all checks, or Healthy when no
// checks have been recorded yet.
func (m *Monitor) Overall() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	worst := Healthy
	for _, c := range m.checks {
		if rank(c.Status) > rank(worst) {
			worst = c.Status
		}
	}
	return worst
}

// All returns a snapshot of the current checks.
func (m *Monitor) All() []Check {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Check, 0, len(m.checks))
	for _, c := range m.checks {
		out = append(out, c)
	}
	return out
}

func rank(s Status) int {
	switch s {
	case Degraded:
		return 1
	case Unhealthy:
		return 2
	default:
		return 0
	}
}
