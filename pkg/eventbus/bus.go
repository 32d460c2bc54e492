// Package eventbus implements the Event Bus component: synchronous,
// super-type-aware fan-out of lifecycle events to subscribed handlers.
package eventbus

import (
	"sync"

	"github.com/systmms/secretaccess/internal/logging"
)

// Handler receives a published event. A handler that panics or is slow
// delays later handlers of the same publish call but must never prevent
// them from running — the bus recovers panics and continues.
type Handler func(Event)

const defaultHistoryLimit = 256

// Bus is safe for concurrent use. Delivery is synchronous on the
// publishing goroutine; ordering across handlers of one publish call is
// unspecified.
type Bus struct {
	mu           sync.RWMutex
	handlers     map[Kind][]Handler
	history      []Event
	historyLimit int
	log          logging.Logger
}

// Option configures a Bus at construction.
type Option func(*Bus)

// WithHistoryLimit bounds the optional publishedHistory buffer. A limit of
// 0 disables history retention entirely.
func WithHistoryLimit(limit int) Option {
	return func(b *Bus) { b.historyLimit = limit }
}

// WithLogger overrides the logger used to report handler failures.
func WithLogger(l logging.Logger) Option {
	return func(b *Bus) { b.log = l }
}

// New constructs an empty Bus with a bounded debugging history.
func New(opts ...Option) *Bus {
	b := &Bus{
		handlers:     make(map[Kind][]Handler),
		historyLimit: defaultHistoryLimit,
		log:          logging.NopLogger{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers handler for events of kind (or KindAny for every
// event).
func (b *Bus) Subscribe(kind Kind, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[kind] = append(b.handlers[kind], handler)
}

// UnsubscribeAll removes every handler registered for kind.
func (b *Bus) UnsubscribeAll(kind Kind) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, kind)
}

// Publish dispatches event to every handler registered for its kind or any
// supertype it satisfies, synchronously, on the calling goroutine. A nil
// event is a no-op. A handler that panics is recovered and logged; later
// handlers still run.
func (b *Bus) Publish(event Event) {
	if event == nil {
		return
	}

	b.mu.Lock()
	if b.historyLimit > 0 {
		b.history = append(b.history, event)
		if over := len(b.history) - b.historyLimit; over > 0 {
			b.history = b.history[over:]
		}
	}
	var toRun []Handler
	for _, kind := range ancestors(event.Kind()) {
		toRun = append(toRun, b.handlers[kind]...)
	}
	b.mu.Unlock()

	for _, h := range toRun {
		b.invoke(h, event)
	}
}

func (b *Bus) invoke(h Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event bus handler panicked", "kind", event.Kind(), "panic", r)
		}
	}()
	h(event)
}

// PublishedHistory returns a snapshot of recently published events, most
// recent last, bounded by the configured history limit. An optional
// debugging view; callers must not rely on unbounded retention.
func (b *Bus) PublishedHistory() []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Event, len(b.history))
	copy(out, b.history)
	return out
}

// ClearHistory empties the debugging history buffer.
func (b *Bus) ClearHistory() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history = nil
}
