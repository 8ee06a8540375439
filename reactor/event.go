// File: reactor/event.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Event is component C of spec §4.3: a lifecycle handle binding
// {reactor, fd|delay, type, callback}. It does not itself touch the OS;
// every operation delegates to the owning Reactor.

package reactor

import (
	"errors"
	"time"
)

// EventType distinguishes a plain fd-driven event from a timer.
type EventType uint8

const (
	// TypeEvent is a plain fd-driven event.
	TypeEvent EventType = iota
	// TypeTimer is a reactor-internal self-pipe timer.
	TypeTimer
)

// ErrNotStarted is returned by Mode/Del when the Event has not been
// started.
var ErrNotStarted = errors.New("reactor: event not started")

// ErrMissingFD is returned by Start for a TypeEvent with no fd set.
var ErrMissingFD = errors.New("reactor: event has no fd")

// ErrMissingDelay is returned by Start for a TypeTimer with delay<=0.
var ErrMissingDelay = errors.New("reactor: timer has no delay")

// Event is the Event wrapper of spec §4.3.
type Event struct {
	r        *Reactor
	kind     EventType
	fd       int
	delay    time.Duration
	series   bool
	callback Callback

	id      EventID
	started bool
}

// NewEvent constructs an unstarted fd-driven Event against r.
func NewEvent(r *Reactor, fd int, cb Callback) *Event {
	return &Event{r: r, kind: TypeEvent, fd: fd, callback: cb}
}

// NewTimer constructs an unstarted timer Event against r.
func NewTimer(r *Reactor, delay time.Duration, series bool, cb Callback) *Event {
	return &Event{r: r, kind: TypeTimer, delay: delay, series: series, callback: cb}
}

// SetFD changes the target fd. If the event is currently started, it is
// restarted against the new fd.
func (e *Event) SetFD(fd int) error {
	e.fd = fd
	if e.started {
		if err := e.Stop(); err != nil {
			return err
		}
		return e.Start()
	}
	return nil
}

// SetCallback replaces the callback invoked on dispatch.
func (e *Event) SetCallback(cb Callback) {
	e.callback = cb
}

// Start registers the event with its reactor.
func (e *Event) Start() error {
	if e.started {
		return nil
	}
	if e.kind == TypeEvent && e.fd < 0 {
		return ErrMissingFD
	}
	if e.kind == TypeTimer && e.delay <= 0 {
		return ErrMissingDelay
	}

	delay := time.Duration(0)
	if e.kind == TypeTimer {
		delay = e.delay
	}
	id, err := e.r.Add(e.fd, e.callback, delay, e.series)
	if err != nil {
		return err
	}
	e.id = id
	if e.kind == TypeTimer {
		// the timer's internal read fd becomes the addressable fd.
		if it, ok := e.r.slab.get(id); ok {
			e.fd = it.fd
		}
	}
	e.started = true
	return nil
}

// Stop unregisters the event. Safe to call when not started.
func (e *Event) Stop() error {
	if !e.started {
		return nil
	}
	err := e.r.DelID(e.id, e.fd)
	e.started = false
	return err
}

// Mode toggles kind on/off without unregistering.
func (e *Event) Mode(kind Kind, state bool) (bool, error) {
	if !e.started {
		return false, ErrNotStarted
	}
	return e.r.Mode(e.id, e.fd, kind, state)
}

// Del disables one kind without unregistering the record.
func (e *Event) Del(kind Kind) error {
	if !e.started {
		return ErrNotStarted
	}
	return e.r.DelKind(e.id, e.fd, kind)
}

// ID returns the current EventID, valid only while started.
func (e *Event) ID() EventID { return e.id }

// FD returns the currently bound fd (the self-pipe read fd for timers).
func (e *Event) FD() int { return e.fd }
