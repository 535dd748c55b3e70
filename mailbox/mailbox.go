// Package mailbox provides the unbounded FIFO queues that back each lobby and
// session goroutine. Pushes never block, which keeps two units that forward
// messages to each other from deadlocking on full buffers.
package mailbox

import (
	"sync"

	"github.com/eapache/queue"
)

type Mailbox struct {
	mu     sync.Mutex
	q      *queue.Queue
	ready  chan struct{}
	closed bool
}

func New() *Mailbox {
	return &Mailbox{
		q:     queue.New(),
		ready: make(chan struct{}, 1),
	}
}

// Push enqueues a message and reports whether the mailbox accepted it. A
// closed mailbox rejects all messages.
func (m *Mailbox) Push(msg any) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.q.Add(msg)
	m.mu.Unlock()

	select {
	case m.ready <- struct{}{}:
	default:
	}
	return true
}

// Pop dequeues the oldest message. ok is false when the mailbox is empty.
func (m *Mailbox) Pop() (msg any, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.q.Length() == 0 {
		return nil, false
	}
	return m.q.Remove(), true
}

// C signals when the mailbox may have messages. The signal is coalesced, so a
// receiver must drain with Pop until it returns false.
func (m *Mailbox) C() <-chan struct{} {
	return m.ready
}

func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.q.Length()
}

// Close rejects all future pushes. Messages already queued remain poppable so
// the owning goroutine can drain before exiting.
func (m *Mailbox) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}
