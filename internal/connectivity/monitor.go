// Package connectivity tracks a single process-wide online/offline
// status fed by transport-layer failure signals. It classifies and
// announces; retry policy stays with the transports.
package connectivity

import (
	"sync"
	"time"

	"github.com/Imrannnnn/Skillconnect-sub001/internal/bus"
)

// Status is the process-wide connectivity value.
type Status string

const (
	Online  Status = "ONLINE"
	Offline Status = "OFFLINE"
)

// Change is the payload for connectivity.changed bus events and
// subscriber callbacks.
type Change struct {
	Status    Status
	ChangedAt time.Time
}

// Handler receives the current status immediately on subscription and
// again on every transition.
type Handler func(Change)

// Monitor owns the connectivity status. It starts optimistic-online;
// only transport failure/recovery reports move it.
type Monitor struct {
	mu        sync.Mutex
	current   Status
	changedAt time.Time
	bus       *bus.Bus
	handlers  map[int]Handler
	next      int
}

// NewMonitor creates a monitor in the Online state.
func NewMonitor(b *bus.Bus) *Monitor {
	return &Monitor{
		current:   Online,
		changedAt: time.Now(),
		bus:       b,
		handlers:  make(map[int]Handler),
	}
}

// Current returns the status and the time of its last transition.
func (m *Monitor) Current() Change {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Change{Status: m.current, ChangedAt: m.changedAt}
}

// ReportFailure records a transport-level network failure. Transitions
// to Offline are fire-and-forget broadcasts; repeated reports while
// already offline are no-ops.
func (m *Monitor) ReportFailure() {
	m.transition(Offline)
}

// ReportRecovery records a successful transport round-trip, flipping
// the status back to Online.
func (m *Monitor) ReportRecovery() {
	m.transition(Online)
}

// Subscribe registers a handler, invokes it with the current status
// immediately, and returns an unsubscribe function.
func (m *Monitor) Subscribe(h Handler) func() {
	m.mu.Lock()
	id := m.next
	m.next++
	m.handlers[id] = h
	current := Change{Status: m.current, ChangedAt: m.changedAt}
	m.mu.Unlock()

	h(current)

	return func() {
		m.mu.Lock()
		delete(m.handlers, id)
		m.mu.Unlock()
	}
}

func (m *Monitor) transition(to Status) {
	m.mu.Lock()
	if m.current == to {
		m.mu.Unlock()
		return
	}
	m.current = to
	m.changedAt = time.Now()
	change := Change{Status: to, ChangedAt: m.changedAt}
	handlers := make([]Handler, 0, len(m.handlers))
	for _, h := range m.handlers {
		handlers = append(handlers, h)
	}
	m.mu.Unlock()

	for _, h := range handlers {
		h(change)
	}
	if m.bus != nil {
		m.bus.Publish(bus.Event{
			Kind:      bus.KindConnectivityChanged,
			Timestamp: change.ChangedAt,
			Payload:   change,
		})
	}
}
