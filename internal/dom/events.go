// Package dom is a small in-process model of the browser elements the
// slice viewer drives: a drawing canvas, a range slider and an image
// element, each able to carry event listeners.
package dom

import (
	"io"
	"sync"
)

// Event types dispatched by the viewer's host.
const (
	EventWheel          = "wheel"
	EventDOMMouseScroll = "DOMMouseScroll"
	EventInput          = "input"
)

// Event is a dispatched host event. Only the fields relevant to Type are
// set: WheelDelta for wheel, Detail for DOMMouseScroll, Value for input.
type Event struct {
	Type       string
	WheelDelta int
	Detail     int
	Value      int

	defaultPrevented bool
}

// PreventDefault marks the event as handled.
func (e *Event) PreventDefault() { e.defaultPrevented = true }

// DefaultPrevented reports whether a listener called PreventDefault.
func (e *Event) DefaultPrevented() bool { return e.defaultPrevented }

// Listener handles an event.
type Listener func(*Event)

// Registration identifies an attached listener.
type Registration struct {
	target *Target
	typ    string
	id     uint64
}

// Remove detaches the listener. Removing twice is a no-op.
func (r Registration) Remove() {
	if r.target != nil {
		r.target.RemoveEventListener(r)
	}
}

// Target holds the listeners of one element.
type Target struct {
	mu        sync.Mutex
	nextID    uint64
	listeners map[string][]registered
}

type registered struct {
	id uint64
	fn Listener
}

// AddEventListener attaches fn for events of type typ.
func (t *Target) AddEventListener(typ string, fn Listener) Registration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.listeners == nil {
		t.listeners = make(map[string][]registered)
	}
	t.nextID++
	t.listeners[typ] = append(t.listeners[typ], registered{id: t.nextID, fn: fn})
	return Registration{target: t, typ: typ, id: t.nextID}
}

// RemoveEventListener detaches a listener previously returned by
// AddEventListener.
func (t *Target) RemoveEventListener(r Registration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	list := t.listeners[r.typ]
	for i, l := range list {
		if l.id == r.id {
			t.listeners[r.typ] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// ListenerCount returns how many listeners are attached for typ.
func (t *Target) ListenerCount(typ string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.listeners[typ])
}

// Dispatch runs every listener for ev.Type in registration order. It
// returns false if a listener prevented the default action.
func (t *Target) Dispatch(ev *Event) bool {
	t.mu.Lock()
	list := append([]registered(nil), t.listeners[ev.Type]...)
	t.mu.Unlock()

	for _, l := range list {
		l.fn(ev)
	}
	return !ev.DefaultPrevented()
}

// File is one entry of a file selection.
type File struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// FileSelectEvent carries the files picked in a file input.
type FileSelectEvent struct {
	Files []File
}
