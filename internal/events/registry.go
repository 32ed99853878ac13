// Package events keeps per-event-name listener lists for messages pushed by
// the engine.
package events

import (
	"encoding/json"
	"sync"
)

// Listener wraps a handler function so it has a stable identity that can be
// removed later. Adding the same *Listener twice to one event is a no-op.
type Listener struct {
	fn func(data json.RawMessage)
}

// NewListener returns a Listener that calls fn with each event's data.
func NewListener(fn func(data json.RawMessage)) *Listener {
	return &Listener{fn: fn}
}

// Registry maps event names to listeners kept in registration order.
type Registry struct {
	mu        sync.Mutex
	listeners map[string][]*Listener
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{listeners: map[string][]*Listener{}}
}

// AddListener appends l to the listeners for event. It reports false when l
// was already registered for that event.
func (r *Registry) AddListener(event string, l *Listener) bool {
	if l == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.listeners[event] {
		if existing == l {
			return false
		}
	}
	r.listeners[event] = append(r.listeners[event], l)
	return true
}

// RemoveListener removes l from event. Removing a listener that is not
// registered is a no-op and reports false.
func (r *Registry) RemoveListener(event string, l *Listener) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.listeners[event]
	for i, existing := range list {
		if existing != l {
			continue
		}
		next := make([]*Listener, 0, len(list)-1)
		next = append(next, list[:i]...)
		next = append(next, list[i+1:]...)
		if len(next) == 0 {
			delete(r.listeners, event)
		} else {
			r.listeners[event] = next
		}
		return true
	}
	return false
}

// Listeners returns a copy of the listeners registered for event.
func (r *Registry) Listeners(event string) []*Listener {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.listeners[event]
	if len(list) == 0 {
		return nil
	}
	out := make([]*Listener, len(list))
	copy(out, list)
	return out
}

// Len returns the number of listeners registered for event.
func (r *Registry) Len(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners[event])
}

// Clear drops every listener.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.listeners = map[string][]*Listener{}
	r.mu.Unlock()
}

// Dispatch calls every listener registered for event, in registration order,
// on the calling goroutine. The list is captured before the first call, so
// listeners may add or remove listeners while dispatch is running; such
// changes apply to the next event. A panicking listener is recovered and
// passed to onPanic (when non-nil) and the remaining listeners still run.
// Dispatch returns the number of listeners invoked.
func (r *Registry) Dispatch(event string, data json.RawMessage, onPanic func(l *Listener, v any)) int {
	list := r.Listeners(event)
	for _, l := range list {
		invoke(l, data, onPanic)
	}
	return len(list)
}

func invoke(l *Listener, data json.RawMessage, onPanic func(*Listener, any)) {
	defer func() {
		if v := recover(); v != nil && onPanic != nil {
			onPanic(l, v)
		}
	}()
	if l.fn != nil {
		l.fn(data)
	}
}
