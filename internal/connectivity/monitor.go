// Package connectivity tracks online/offline transitions and exposes
// the single connectivity view the rest of the client reads.
package connectivity

import (
	"sync"

	"github.com/eduplatform/edusync/internal/logging"
)

// Monitor owns the process-wide online/offline flag. It is seeded from
// the platform's current reachability signal at construction and
// updated only through SetOnline, which the platform shell calls on
// each transition event. No polling.
type Monitor struct {
	mu        sync.RWMutex
	online    bool
	onOnline  []func()
	onOffline []func()
}

// NewMonitor creates a Monitor seeded with the platform's current
// connectivity status.
func NewMonitor(initiallyOnline bool) *Monitor {
	return &Monitor{online: initiallyOnline}
}

// Online reports the current connectivity status. This is the single
// read accessor; no other component queries the platform directly.
func (m *Monitor) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// OnOnline registers a callback fired on each offline-to-online
// transition. The queue manager registers its replay pass here.
func (m *Monitor) OnOnline(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onOnline = append(m.onOnline, fn)
}

// OnOffline registers a callback fired on each online-to-offline
// transition.
func (m *Monitor) OnOffline(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onOffline = append(m.onOffline, fn)
}

// SetOnline records a platform connectivity event. Callbacks fire only
// on an actual transition; repeated events with the same status are
// ignored. Callbacks run on the caller's goroutine after the status is
// visible to readers.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online

	var callbacks []func()
	if online {
		callbacks = append(callbacks, m.onOnline...)
	} else {
		callbacks = append(callbacks, m.onOffline...)
	}
	m.mu.Unlock()

	if online {
		logging.Info("network online")
	} else {
		logging.Info("network offline")
	}

	for _, fn := range callbacks {
		fn()
	}
}
