package mailbox

import (
	"testing"

	"pkg.world.dev/world-engine/assert"
)

func TestPushPopPreservesOrder(t *testing.T) {
	m := New()
	for i := 0; i < 5; i++ {
		assert.Check(t, m.Push(i))
	}
	for i := 0; i < 5; i++ {
		msg, ok := m.Pop()
		assert.Check(t, ok)
		assert.Equal(t, i, msg)
	}
	_, ok := m.Pop()
	assert.Check(t, !ok, "drained mailbox should be empty")
}

func TestReadySignalIsCoalesced(t *testing.T) {
	m := New()
	m.Push("a")
	m.Push("b")

	<-m.C()
	// Both messages must be reachable after a single signal.
	_, ok := m.Pop()
	assert.Check(t, ok)
	_, ok = m.Pop()
	assert.Check(t, ok)

	select {
	case <-m.C():
		// A second buffered signal is allowed but must find an empty queue.
		_, ok := m.Pop()
		assert.Check(t, !ok)
	default:
	}
}

func TestClosedMailboxRejectsPushes(t *testing.T) {
	m := New()
	m.Push("queued before close")
	m.Close()

	assert.Check(t, !m.Push("late"), "closed mailbox should reject pushes")

	msg, ok := m.Pop()
	assert.Check(t, ok, "queued messages should remain poppable after close")
	assert.Equal(t, "queued before close", msg)
}

func TestLen(t *testing.T) {
	m := New()
	assert.Equal(t, 0, m.Len())
	m.Push(struct{}{})
	m.Push(struct{}{})
	assert.Equal(t, 2, m.Len())
	m.Pop()
	assert.Equal(t, 1, m.Len())
}
