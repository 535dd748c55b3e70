// Package stage tracks the life cycle of a matchmaking unit as an atomic
// value, so observers outside the owning goroutine can read it safely.
package stage

import (
	"sync/atomic"
)

type Stage string

const (
	Running Stage = "Running" // The session has slots remaining and accepts tickets
	Filled  Stage = "Filled"  // Capacity is exhausted; awaiting the final claim
	Closing Stage = "Closing" // Shutting down; tickets are forwarded back to the lobby
	Stopped Stage = "Stopped" // Terminal; the unit's goroutine has exited
)

type Manager struct {
	current *atomic.Value
}

func NewManager(initial Stage) *Manager {
	m := &Manager{
		current: &atomic.Value{},
	}
	m.Store(initial)
	return m
}

func (m *Manager) CompareAndSwap(oldStage, newStage Stage) (swapped bool) {
	return m.current.CompareAndSwap(oldStage, newStage)
}

func (m *Manager) Current() Stage {
	return m.current.Load().(Stage)
}

func (m *Manager) Store(val Stage) {
	m.current.Store(val)
}

func (m *Manager) Swap(newStage Stage) (oldStage Stage) {
	return m.current.Swap(newStage).(Stage)
}
