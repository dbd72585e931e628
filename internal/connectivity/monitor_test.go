// Package connectivity provides unit tests for the monitor.
package connectivity

import "testing"

// TestInitialStatus tests that the seed value is exposed unchanged.
func TestInitialStatus(t *testing.T) {
	if !NewMonitor(true).Online() {
		t.Error("Expected monitor seeded online to report online")
	}
	if NewMonitor(false).Online() {
		t.Error("Expected monitor seeded offline to report offline")
	}
}

// TestTransitionCallbacks tests that callbacks fire on transitions only.
func TestTransitionCallbacks(t *testing.T) {
	m := NewMonitor(false)

	var onlineFired, offlineFired int
	m.OnOnline(func() { onlineFired++ })
	m.OnOffline(func() { offlineFired++ })

	m.SetOnline(true)
	if onlineFired != 1 {
		t.Errorf("Expected 1 online callback, got %d", onlineFired)
	}
	if !m.Online() {
		t.Error("Expected online after transition")
	}

	// Repeated event with the same status is not a transition.
	m.SetOnline(true)
	if onlineFired != 1 {
		t.Errorf("Expected repeated online event to be ignored, got %d callbacks", onlineFired)
	}

	m.SetOnline(false)
	if offlineFired != 1 {
		t.Errorf("Expected 1 offline callback, got %d", offlineFired)
	}

	m.SetOnline(true)
	if onlineFired != 2 {
		t.Errorf("Expected second online callback after round trip, got %d", onlineFired)
	}
}

// TestStatusVisibleInsideCallback tests that a callback observes the
// new status, so a replay pass triggered by the transition sees online.
func TestStatusVisibleInsideCallback(t *testing.T) {
	m := NewMonitor(false)

	var observed bool
	m.OnOnline(func() { observed = m.Online() })

	m.SetOnline(true)
	if !observed {
		t.Error("Expected callback to observe online status")
	}
}

// TestMultipleSubscribers tests that every registered callback fires.
func TestMultipleSubscribers(t *testing.T) {
	m := NewMonitor(false)

	fired := make([]bool, 3)
	for i := range fired {
		i := i
		m.OnOnline(func() { fired[i] = true })
	}

	m.SetOnline(true)
	for i, f := range fired {
		if !f {
			t.Errorf("Expected subscriber %d to fire", i)
		}
	}
}
