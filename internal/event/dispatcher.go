package event

import "sync"

// Publisher accepts payloads for the handlers of an event name.
type Publisher interface {
	Publish(name string, payload any)
}

// Compile-time verification that both publishers satisfy Publisher.
var (
	_ Publisher = (*Bus)(nil)
	_ Publisher = (*Dispatcher)(nil)
)

type posted struct {
	name    string
	payload any
}

// Dispatcher delivers payloads to a Bus from its own goroutine, in the order
// they were published.
//
// Publish never blocks, so it may be called with locks held or from a
// connection's read loop. Handlers run outside both and may issue requests
// and wait for their responses; later payloads queue until they return.
type Dispatcher struct {
	bus *Bus

	mu     sync.Mutex
	queue  []posted
	closed bool

	ready chan struct{}
	done  chan struct{}
}

// NewDispatcher starts a dispatcher for bus. Call Close to stop it.
func NewDispatcher(bus *Bus) *Dispatcher {
	d := &Dispatcher{
		bus:   bus,
		queue: make([]posted, 0, 16),
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}

	go d.run()

	return d
}

// Publish queues payload for the handlers of name. Payloads published after
// Close are dropped.
func (d *Dispatcher) Publish(name string, payload any) {
	d.mu.Lock()

	if d.closed {
		d.mu.Unlock()

		return
	}

	d.queue = append(d.queue, posted{name: name, payload: payload})
	d.mu.Unlock()

	d.wake()
}

// Close stops accepting payloads. Queued payloads are still delivered and
// Done is closed after the last one. Close does not wait, so a handler may
// call it.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	d.wake()
}

// Done returns a channel that is closed once the dispatcher has delivered
// everything queued before Close.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

func (d *Dispatcher) wake() {
	select {
	case d.ready <- struct{}{}:
	default:
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)

	for {
		<-d.ready

		for {
			batch, closed := d.take()

			for _, p := range batch {
				d.bus.Publish(p.name, p.payload)
			}

			if len(batch) > 0 {
				continue
			}

			if closed {
				return
			}

			break
		}
	}
}

// take removes everything queued so far.
func (d *Dispatcher) take() ([]posted, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.queue) == 0 {
		return nil, d.closed
	}

	batch := d.queue
	d.queue = make([]posted, 0, 16)

	return batch, d.closed
}
