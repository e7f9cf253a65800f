// Package debounce collapses bursts of calls into a single trailing call.
//
// Two flavors are provided. Do uses one package-wide pending slot shared by
// every caller, so two unrelated call sites cancel each other's pending
// call: only the most recent Do in a burst ever runs. Wrap returns a
// function that owns its own slot and never interferes with other
// wrappers. Prefer Wrap unless the cross-call-site cancellation is what you
// actually want.
package debounce

import (
	"sync"
	"time"

	"github.com/coder/quartz"
)

// Debouncer holds a single pending-timer slot. Each Trigger cancels the
// pending call, if any, and schedules fn after the delay.
type Debouncer struct {
	clock quartz.Clock
	delay time.Duration

	mu    sync.Mutex
	timer *quartz.Timer
	gen   uint64
}

// Option configures a Debouncer.
type Option func(*Debouncer)

// WithClock sets the clock used to schedule calls. Tests pass a
// quartz mock.
func WithClock(clock quartz.Clock) Option {
	return func(d *Debouncer) {
		d.clock = clock
	}
}

// New creates a Debouncer with the given delay.
func New(delay time.Duration, opts ...Option) *Debouncer {
	d := &Debouncer{
		clock: quartz.NewReal(),
		delay: delay,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Trigger schedules fn to run once the delay has elapsed without another
// Trigger.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scheduleLocked(d.delay, fn)
}

func (d *Debouncer) scheduleLocked(delay time.Duration, fn func()) {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = d.clock.AfterFunc(delay, func() {
		d.mu.Lock()
		// A Trigger that raced with this timer firing owns the slot now.
		if d.gen != gen {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()
		fn()
	})
}

// Stop cancels the pending call. It reports whether a call was pending.
func (d *Debouncer) Stop() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer == nil {
		return false
	}
	d.gen++
	stopped := d.timer.Stop()
	d.timer = nil
	return stopped
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Wrap returns a function that runs fn after delay, restarting the delay on
// every call. Each wrapper has its own slot.
func Wrap(fn func(), delay time.Duration, opts ...Option) func() {
	d := New(delay, opts...)
	return func() {
		d.Trigger(fn)
	}
}

var shared = &sharedSlot{clock: quartz.NewReal()}

type sharedSlot struct {
	mu    sync.Mutex
	clock quartz.Clock
	d     *Debouncer
}

// Do schedules fn after delay on the package-wide slot, cancelling
// whatever any other caller of Do had pending.
func Do(fn func(), delay time.Duration) {
	shared.mu.Lock()
	if shared.d == nil {
		shared.d = New(delay, WithClock(shared.clock))
	}
	d := shared.d
	shared.mu.Unlock()

	d.mu.Lock()
	defer d.mu.Unlock()
	d.scheduleLocked(delay, fn)
}

// Cancel drops the call pending on the package-wide slot.
func Cancel() bool {
	shared.mu.Lock()
	d := shared.d
	shared.mu.Unlock()
	if d == nil {
		return false
	}
	return d.Stop()
}
