package event

import (
	"log/slog"
	"runtime/debug"
	"slices"
	"sync"
	"sync/atomic"
)

// Handler receives the payload of a published event.
type Handler func(payload any)

type subscription struct {
	handler Handler
	active  atomic.Bool
}

// Bus dispatches payloads to the handlers subscribed to an event name.
type Bus struct {
	log *slog.Logger

	mu   sync.RWMutex
	subs map[string][]*subscription
}

// NewBus creates an empty bus. Handler panics are recovered and logged to log.
func NewBus(log *slog.Logger) *Bus {
	return &Bus{
		log:  log.With("component", "event_bus"),
		subs: make(map[string][]*subscription, 8),
	}
}

// Subscribe registers handler for name and returns a function that removes
// it. The returned function is idempotent.
func (b *Bus) Subscribe(name string, handler Handler) (unsubscribe func()) {
	sub := &subscription{handler: handler}
	sub.active.Store(true)

	b.mu.Lock()
	b.subs[name] = append(b.subs[name], sub)
	b.mu.Unlock()

	return func() {
		if !sub.active.Swap(false) {
			return
		}

		b.mu.Lock()
		defer b.mu.Unlock()

		b.subs[name] = slices.DeleteFunc(slices.Clone(b.subs[name]), func(s *subscription) bool {
			return s == sub
		})

		if len(b.subs[name]) == 0 {
			delete(b.subs, name)
		}
	}
}

// Publish invokes every handler subscribed to name, in subscription order.
func (b *Bus) Publish(name string, payload any) {
	b.mu.RLock()
	subs := b.subs[name]
	b.mu.RUnlock()

	// subs is never mutated in place; Subscribe appends and unsubscribe
	// replaces the slice, so this is a stable snapshot.
	for _, sub := range subs {
		if !sub.active.Load() {
			continue
		}

		b.dispatch(name, sub.handler, payload)
	}
}

// Count returns the number of handlers subscribed to name.
func (b *Bus) Count(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.subs[name])
}

func (b *Bus) dispatch(name string, handler Handler, payload any) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("Event handler panicked",
				"event", name,
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()

	handler(payload)
}
