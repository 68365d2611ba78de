package protocol

import (
	"sync"
	"sync/atomic"

	"github.com/wagiedev/tsserver-go/internal/pending"
)

// Sequence hands out request sequence numbers. The first number is 0 and
// numbers are never reused, even across reconnections.
type Sequence struct {
	issued atomic.Int64
}

// Next returns the next sequence number.
func (s *Sequence) Next() int64 {
	return s.issued.Add(1) - 1
}

// Last returns the most recently issued number, -1 if none.
func (s *Sequence) Last() int64 {
	return s.issued.Load() - 1
}

// outbound is a serialized request waiting to be written.
type outbound struct {
	seq     int64
	command string
	data    []byte

	// entry is nil for commands that get no response.
	entry *pending.Entry
}

// writeQueue is an unbounded FIFO of outbound requests. Pushing never
// blocks; the writer is woken through ready.
type writeQueue struct {
	mu    sync.Mutex
	items []outbound
	ready chan struct{}
}

func newWriteQueue() *writeQueue {
	return &writeQueue{
		items: make([]outbound, 0, 16),
		ready: make(chan struct{}, 1),
	}
}

func (q *writeQueue) push(item outbound) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// drain removes and returns everything queued so far.
func (q *writeQueue) drain() []outbound {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil
	}

	items := q.items
	q.items = make([]outbound, 0, 16)

	return items
}
