package stage

import (
	"testing"

	"pkg.world.dev/world-engine/assert"
)

func TestManagerStartsAtInitialStage(t *testing.T) {
	m := NewManager(Running)
	assert.Equal(t, Running, m.Current())

	got := m.Swap(Closing)
	assert.Equal(t, Running, got)
	assert.Equal(t, Closing, m.Current())
}

func TestCompareAndSwap(t *testing.T) {
	m := NewManager(Running)
	ok := m.CompareAndSwap(Filled, Closing)
	assert.Check(t, !ok, "swap should fail with the wrong old stage")

	ok = m.CompareAndSwap(Running, Filled)
	assert.Check(t, ok, "swap should succeed with the correct old stage")
	assert.Equal(t, Filled, m.Current())
}

func TestOnlyOneCompareAndSwapSuccess(t *testing.T) {
	successCh := make(chan bool)
	m := NewManager(Running)

	for i := 0; i < 10; i++ {
		go func() {
			successCh <- m.CompareAndSwap(Running, Stopped)
		}()
	}

	successCount := 0
	for i := 0; i < 10; i++ {
		if <-successCh {
			successCount++
		}
	}
	assert.Equal(t, 1, successCount)
}
