package pending

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/wagiedev/tsserver-go/internal/errors"
	"github.com/wagiedev/tsserver-go/internal/message"
)

// Info describes an outstanding request.
type Info struct {
	Seq     int64
	Command string
	Started time.Time
}

// Entry is an outstanding request. It settles exactly once.
type Entry struct {
	Info

	once sync.Once
	done chan struct{}
	resp *message.Message
	err  error
}

func newEntry(seq int64, command string, started time.Time) *Entry {
	return &Entry{
		Info: Info{Seq: seq, Command: command, Started: started},
		done: make(chan struct{}),
	}
}

// Resolve settles the entry with a response. It returns false if the entry
// had already settled.
func (e *Entry) Resolve(resp *message.Message) bool {
	return e.settle(resp, nil)
}

// Reject settles the entry with an error. It returns false if the entry had
// already settled.
func (e *Entry) Reject(err error) bool {
	return e.settle(nil, err)
}

func (e *Entry) settle(resp *message.Message, err error) bool {
	settled := false

	e.once.Do(func() {
		e.resp = resp
		e.err = err
		settled = true

		close(e.done)
	})

	return settled
}

// Done returns a channel that is closed once the entry has settled.
func (e *Entry) Done() <-chan struct{} {
	return e.done
}

// Result returns the outcome. It must only be called after Done is closed.
func (e *Entry) Result() (*message.Message, error) {
	return e.resp, e.err
}

// Wait blocks until the entry settles or ctx is done. Giving up on ctx does
// not remove the entry; it stays pending until its response arrives or the
// connection is torn down.
func (e *Entry) Wait(ctx context.Context) (*message.Message, error) {
	select {
	case <-e.done:
		return e.resp, e.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Table maps sequence numbers to outstanding requests.
type Table struct {
	mu      sync.Mutex
	entries map[int64]*Entry

	// notifyMu serializes change notifications so listeners observe
	// snapshots in mutation order.
	notifyMu sync.Mutex
	onChange func([]Info)

	now func() time.Time
}

// NewTable creates an empty table. onChange may be nil.
//
// onChange runs while the table serializes notifications, so it must not
// block or call back into the table. Hand the snapshot to another goroutine,
// as event.Dispatcher does.
func NewTable(onChange func([]Info)) *Table {
	return &Table{
		entries:  make(map[int64]*Entry, 10),
		onChange: onChange,
		now:      time.Now,
	}
}

// Add registers a request. A sequence number that is already pending is a
// programming error and fails with ErrDuplicateSequence.
func (t *Table) Add(seq int64, command string) (*Entry, error) {
	t.notifyMu.Lock()
	defer t.notifyMu.Unlock()

	t.mu.Lock()

	if _, exists := t.entries[seq]; exists {
		t.mu.Unlock()

		return nil, fmt.Errorf("%w: %d", errors.ErrDuplicateSequence, seq)
	}

	entry := newEntry(seq, command, t.now())
	t.entries[seq] = entry
	snapshot := t.snapshotLocked()

	t.mu.Unlock()

	t.notify(snapshot)

	return entry, nil
}

// Remove detaches the entry for seq. The second result is false when no
// such entry exists, which is normal for fire-and-forget commands and for
// responses that arrive after teardown.
func (t *Table) Remove(seq int64) (*Entry, bool) {
	t.notifyMu.Lock()
	defer t.notifyMu.Unlock()

	t.mu.Lock()

	entry, exists := t.entries[seq]
	if !exists {
		t.mu.Unlock()

		return nil, false
	}

	delete(t.entries, seq)
	snapshot := t.snapshotLocked()

	t.mu.Unlock()

	t.notify(snapshot)

	return entry, true
}

// RejectAll detaches every entry and rejects it with err. It returns the
// number of entries rejected. The table is empty afterwards.
func (t *Table) RejectAll(err error) int {
	t.notifyMu.Lock()
	defer t.notifyMu.Unlock()

	t.mu.Lock()

	if len(t.entries) == 0 {
		t.mu.Unlock()

		return 0
	}

	detached := t.entries
	t.entries = make(map[int64]*Entry, 10)

	t.mu.Unlock()

	for _, entry := range detached {
		entry.Reject(err)
	}

	t.notify([]Info{})

	return len(detached)
}

// Snapshot returns the pending requests ordered by sequence number.
func (t *Table) Snapshot() []Info {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.snapshotLocked()
}

// Len returns the number of pending requests.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.entries)
}

func (t *Table) snapshotLocked() []Info {
	infos := make([]Info, 0, len(t.entries))
	for _, entry := range t.entries {
		infos = append(infos, entry.Info)
	}

	slices.SortFunc(infos, func(a, b Info) int {
		return cmp.Compare(a.Seq, b.Seq)
	})

	return infos
}

func (t *Table) notify(snapshot []Info) {
	if t.onChange != nil {
		t.onChange(snapshot)
	}
}
