// Package budget enforces a per-session dollar cap on external API spend.
// Every paid call must pass the monitor's gate before it is issued.
package budget

import (
	"sync"

	"github.com/rotisserie/eris"
)

// Status classifies a session's spend relative to its limit.
type Status string

const (
	StatusOK       Status = "ok"
	StatusWarning  Status = "warning"  // spend ≥ 80% of limit
	StatusExceeded Status = "exceeded" // spend ≥ 100% of limit
)

// warningFraction is the spend fraction at which the status turns to warning.
const warningFraction = 0.8

// ErrInvalidLimit is returned for a negative session limit. A zero limit is
// valid: it means the session makes no paid calls at all.
var ErrInvalidLimit = eris.New("budget: limit must not be negative")

// Monitor tracks cumulative spend for exactly one grouping session. It is
// owned by that session and never shared.
type Monitor struct {
	mu    sync.Mutex
	limit float64
	spent float64
	calls int
}

// New creates a Monitor with the given dollar limit.
func New(limit float64) (*Monitor, error) {
	if limit < 0 {
		return nil, ErrInvalidLimit
	}
	return &Monitor{limit: limit}, nil
}

// AddCost records spend for one issued call and returns the resulting status
// and whether further paid calls may continue.
func (m *Monitor) AddCost(amount float64) (Status, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if amount > 0 {
		m.spent += amount
	}
	m.calls++

	status := m.statusLocked()
	return status, status != StatusExceeded
}

// CanAfford reports whether an additional estimated cost fits in the budget.
func (m *Monitor) CanAfford(estimate float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.spent+estimate <= m.limit
}

// Status returns the current budget status.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusLocked()
}

// Spent returns the cumulative recorded spend.
func (m *Monitor) Spent() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.spent
}

// Limit returns the session's dollar limit.
func (m *Monitor) Limit() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.limit
}

// Calls returns the number of calls recorded via AddCost.
func (m *Monitor) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *Monitor) statusLocked() Status {
	// A zero-limit session is exhausted from the start.
	if m.limit == 0 {
		return StatusExceeded
	}
	switch frac := m.spent / m.limit; {
	case frac >= 1.0:
		return StatusExceeded
	case frac >= warningFraction:
		return StatusWarning
	default:
		return StatusOK
	}
}
