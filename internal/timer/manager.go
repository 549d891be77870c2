// Package timer schedules the one-shot auto-checkout deadline for each
// checked-in reservation.
package timer

import (
	"log"
	"sync"
	"time"

	"meeting-room-backend/internal/clock"
)

// FireFunc is invoked when a reservation's deadline passes. The callee must
// tolerate the reservation already being terminal: the expiry sweeper may
// have beaten the timer to the same transition.
type FireFunc func(reservationID string)

// Manager keeps at most one armed timer per reservation id. Timers are not
// persisted; on process start the booking service re-derives them from the
// store's CHECKED_IN rows.
type Manager struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
	clock  clock.Clock
	fire   FireFunc
}

// NewManager creates a Manager. The fire callback runs on the timer
// goroutine and is shielded from panics so a bad fire never kills the
// schedule.
func NewManager(clk clock.Clock, fire FireFunc) *Manager {
	return &Manager{
		timers: make(map[string]*time.Timer),
		clock:  clk,
		fire:   fire,
	}
}

// Arm schedules (or reschedules) the deadline for a reservation. A prior
// timer for the same id is canceled first. A deadline at or before now fires
// right away, on its own goroutine: callers arm while holding lifecycle
// locks the fire callback needs to re-acquire.
func (m *Manager) Arm(id string, fireAt time.Time) {
	delay := fireAt.Sub(m.clock.Now())
	if delay <= 0 {
		m.Cancel(id)
		go m.safeFire(id)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.timers[id]; ok {
		prev.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		// A timer that expired concurrently with a re-Arm reaches here
		// after its replacement is in the map; it must neither remove
		// that entry nor fire.
		m.mu.Lock()
		stale := m.timers[id] != t
		if !stale {
			delete(m.timers, id)
		}
		m.mu.Unlock()
		if stale {
			return
		}
		m.safeFire(id)
	})
	m.timers[id] = t
}

// Cancel stops the timer for a reservation. Absent timers are a no-op.
func (m *Manager) Cancel(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.timers[id]; ok {
		t.Stop()
		delete(m.timers, id)
	}
}

// Armed reports whether a timer is currently scheduled for the reservation.
func (m *Manager) Armed(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.timers[id]
	return ok
}

// Stop cancels every armed timer. Used on shutdown.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, t := range m.timers {
		t.Stop()
		delete(m.timers, id)
	}
}

func (m *Manager) safeFire(id string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("timer fire for reservation %s panicked: %v", id, r)
		}
	}()
	m.fire(id)
}
