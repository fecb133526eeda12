// Package emitter is a synchronous publish/subscribe registry keyed by event name.
//
// Handlers for one event run in subscription order. Emit works on a snapshot of
// the handler list, so handlers added while an event is being delivered only see
// later events, while handlers removed mid-delivery are skipped if their turn has
// not come yet. A failing or panicking handler never stops delivery to the rest;
// all failures are combined into the error returned by Emit.
package emitter

import (
	"fmt"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/multierr"
)

// Handler receives the payload of an event.
type Handler[T any] func(T) error

type listener[T any] struct {
	handler Handler[T]
	removed atomic.Bool
}

type Emitter[T any] struct {
	mu        sync.Mutex
	listeners map[string][]*listener[T]
}

func New[T any]() *Emitter[T] {
	return &Emitter[T]{
		listeners: make(map[string][]*listener[T]),
	}
}

// On registers h for event and returns the handle that removes it.
func (e *Emitter[T]) On(event string, h Handler[T]) *Subscription {
	l := &listener[T]{handler: h}

	e.mu.Lock()
	e.listeners[event] = append(e.listeners[event], l)
	e.mu.Unlock()

	return &Subscription{
		event:  event,
		cancel: func() { e.remove(event, l) },
	}
}

// Emit delivers payload to every handler of event.
func (e *Emitter[T]) Emit(event string, payload T) error {
	e.mu.Lock()
	snapshot := e.listeners[event]
	e.mu.Unlock()

	var errs error
	for _, l := range snapshot {
		if l.removed.Load() {
			continue
		}
		errs = multierr.Append(errs, call(event, l.handler, payload))
	}

	return errs
}

// ListenerCount returns the number of handlers registered for event.
func (e *Emitter[T]) ListenerCount(event string) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return len(e.listeners[event])
}

func (e *Emitter[T]) remove(event string, l *listener[T]) {
	l.removed.Store(true)

	e.mu.Lock()
	defer e.mu.Unlock()

	current := e.listeners[event]
	for i, x := range current {
		if x != l {
			continue
		}

		// copy so that snapshots held by running Emit calls stay intact
		next := make([]*listener[T], 0, len(current)-1)
		next = append(next, current[:i]...)
		next = append(next, current[i+1:]...)

		if len(next) == 0 {
			delete(e.listeners, event)
		} else {
			e.listeners[event] = next
		}
		return
	}
}

func call[T any](event string, h Handler[T], payload T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener of %s panicked: %v", event, r)
		}
	}()

	if err := h(payload); err != nil {
		return fmt.Errorf("listener of %s: %w", event, err)
	}

	return nil
}
