// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Reactor is the OS-portable event reactor of spec §4.2: it multiplexes
// readiness events over epoll/kqueue/WSAPoll, serializes mutation under a
// recursive mutex, and dispatches every callback for one fd strictly
// serialized on its own owning goroutine.

package reactor

import (
	"errors"
	"time"

	"github.com/momentics/corenet/api"
	"github.com/momentics/corenet/logging"
	"github.com/momentics/corenet/metrics"
)

var (
	// ErrLimitReached is returned by Add when the configured maximum
	// monitored-item count is reached, per spec §4.2.
	ErrLimitReached = errors.New("reactor: monitored item limit reached")
	// ErrInvalidFD is returned by Add for a non-timer item with an
	// invalid fd, per spec §8 boundary behaviour.
	ErrInvalidFD = errors.New("reactor: invalid file descriptor")
	// ErrWrongThread is returned by Rebase when called while the loop is
	// running, from a goroutine other than the one running Start.
	ErrWrongThread = errors.New("reactor: must run on owning goroutine")
	// ErrAlreadyStarted is returned by a reentrant Start call.
	ErrAlreadyStarted = errors.New("reactor: already started")
	// ErrDuplicateFD is returned by Add when fd is already monitored,
	// enforcing the "no two items share the same fd" invariant.
	ErrDuplicateFD = errors.New("reactor: fd already monitored")
)

const defaultBaseDelayMS = 100
const defaultEasilyFrequencyMS = 5

// Reactor implements spec §4.2. Construct with New; Start must be called
// from the goroutine that is to own the loop for its lifetime.
type Reactor struct {
	mu      *recursiveMutex
	backend backend
	log     logging.Logger
	metrics metrics.Recorder

	items    map[int]*item
	slab     *slab
	maxItems int

	upstreams      map[uint64]*Upstream
	nextUpstreamID uint64

	ownerGID    uint64
	started     bool
	frozen      bool
	easilyMode  bool
	frequencyMS int
	baseDelayMS int

	stopCh chan struct{}
	doneCh chan struct{}
}

// New constructs a Reactor with the given maximum monitored-item count
// (0 = unlimited) and logger (nil = no-op).
func New(maxItems int, log logging.Logger) (*Reactor, error) {
	if log == nil {
		log = logging.NoOp()
	}
	b, err := newBackend()
	if err != nil {
		return nil, api.NewError(api.KindConfiguration, "reactor.New", "backend init failed", err)
	}
	if err := b.open(); err != nil {
		return nil, api.NewError(api.KindConfiguration, "reactor.New", "backend open failed", err)
	}
	return &Reactor{
		mu:          newRecursiveMutex(),
		backend:     b,
		log:         log,
		metrics:     metrics.NoOp(),
		items:       make(map[int]*item),
		slab:        newSlab(),
		maxItems:    maxItems,
		upstreams:   make(map[uint64]*Upstream),
		baseDelayMS: defaultBaseDelayMS,
		frequencyMS: defaultEasilyFrequencyMS,
	}, nil
}

// SetMetrics attaches a Recorder observing dispatch counts and the live
// monitored-item gauge. Safe to call before or after Start.
func (r *Reactor) SetMetrics(m metrics.Recorder) {
	if m == nil {
		m = metrics.NoOp()
	}
	r.mu.Lock()
	r.metrics = m
	r.metrics.ReactorItems(r.slab.len())
	r.mu.Unlock()
}

// Add begins monitoring fd. delay>0 creates a timer: fd is ignored and an
// internal self-pipe is created instead; series selects one-shot vs
// periodic re-arming. Returns ErrLimitReached once maxItems monitored items
// are reached.
func (r *Reactor) Add(fd int, cb Callback, delay time.Duration, series bool) (EventID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.maxItems > 0 && r.slab.len() >= r.maxItems {
		return EventID{}, ErrLimitReached
	}

	if delay > 0 {
		return r.addTimerLocked(cb, delay, series)
	}

	if fd < 0 {
		return EventID{}, ErrInvalidFD
	}
	if _, exists := r.items[fd]; exists {
		return EventID{}, ErrDuplicateFD
	}

	it := &item{fd: fd, timerReadFD: -1, cb: cb, enabled: KindRead | KindWrite | KindClose}
	id := r.slab.alloc(it)
	r.items[fd] = it

	if err := r.backend.add(fd, it.enabled&^KindClose); err != nil {
		r.slab.free_(id)
		delete(r.items, fd)
		return EventID{}, api.NewError(api.KindTransport, "reactor.Add", "backend add failed", err)
	}
	r.metrics.ReactorItems(r.slab.len())
	return id, nil
}

func (r *Reactor) addTimerLocked(cb Callback, delay time.Duration, series bool) (EventID, error) {
	readFD, writeFD, err := newPipePair()
	if err != nil {
		return EventID{}, api.NewError(api.KindConfiguration, "reactor.Add", "timer pipe failed", err)
	}
	_ = setPipeNonBlocking(readFD, true)

	it := &item{
		fd:          readFD,
		timerReadFD: readFD,
		timerWrFD:   writeFD,
		timerStop:   make(chan struct{}),
		delayMS:     int(delay / time.Millisecond),
		series:      series,
		cb:          cb,
		enabled:     KindRead | KindTimer,
	}
	id := r.slab.alloc(it)
	r.items[readFD] = it

	if err := r.backend.add(readFD, KindRead); err != nil {
		r.slab.free_(id)
		delete(r.items, readFD)
		closePipeFD(readFD)
		closePipeFD(writeFD)
		return EventID{}, api.NewError(api.KindTransport, "reactor.Add", "backend add failed", err)
	}

	r.metrics.ReactorItems(r.slab.len())
	go runTimer(writeFD, it.delayMS, series, it.timerStop)
	return id, nil
}

func runTimer(writeFD int, delayMS int, series bool, stop chan struct{}) {
	d := time.Duration(delayMS) * time.Millisecond
	if series {
		t := time.NewTicker(d)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				if writePipeToken(writeFD, 1) != nil {
					return
				}
			}
		}
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-stop:
		return
	case <-t.C:
		_ = writePipeToken(writeFD, 1)
	}
}

// Del removes every record for fd.
func (r *Reactor) Del(fd int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[fd]
	if !ok {
		return nil
	}
	return r.removeItemLocked(it)
}

// DelID removes the record identified by id if it currently maps to fd.
func (r *Reactor) DelID(id EventID, fd int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.slab.get(id)
	if !ok || it.fd != fd {
		return nil
	}
	return r.removeItemLocked(it)
}

func (r *Reactor) removeItemLocked(it *item) error {
	_ = r.backend.remove(it.fd)
	delete(r.items, it.fd)
	r.slab.free_(it.id)
	if it.timerStop != nil {
		close(it.timerStop)
		closePipeFD(it.timerReadFD)
		closePipeFD(it.timerWrFD)
	}
	r.metrics.ReactorItems(r.slab.len())
	return nil
}

// DelKind disables one kind without removing the record.
func (r *Reactor) DelKind(id EventID, fd int, kind Kind) error {
	_, err := r.Mode(id, fd, kind, false)
	return err
}

// Mode toggles kind on/off for the item, returning true if the state
// actually transitioned.
func (r *Reactor) Mode(id EventID, fd int, kind Kind, state bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.slab.get(id)
	if !ok || it.fd != fd {
		return false, ErrInvalidFD
	}
	was := it.enabled.has(kind)
	if was == state {
		return false, nil
	}
	if state {
		it.enabled |= kind
	} else {
		it.enabled &^= kind
	}
	if kind == KindRead || kind == KindWrite {
		if err := r.backend.modify(it.fd, it.enabled&(KindRead|KindWrite)); err != nil {
			return false, api.NewError(api.KindTransport, "reactor.Mode", "backend modify failed", err)
		}
	}
	return true, nil
}

// Start runs the dispatch loop on the calling goroutine until Stop is
// called. It must be the same goroutine for the reactor's entire lifetime
// (re-entrant calls to Rebase excepted).
func (r *Reactor) Start() error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return ErrAlreadyStarted
	}
	r.started = true
	r.ownerGID = goroutineID()
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.mu.Unlock()

	defer close(r.doneCh)

	buf := make([]ready, 256)
	for {
		select {
		case <-r.stopCh:
			r.mu.Lock()
			r.started = false
			r.mu.Unlock()
			return nil
		default:
		}

		if r.isFrozen() {
			time.Sleep(time.Duration(r.frequencyMS) * time.Millisecond)
			continue
		}

		timeout := r.baseDelayMS
		n, err := r.backend.wait(timeout, buf)
		if err != nil {
			r.log.Warnf("reactor: wait error: %v", err)
			continue
		}
		batch := append([]ready(nil), buf[:n]...)
		for _, rd := range batch {
			r.dispatch(rd)
		}
		if r.easilyMode {
			time.Sleep(time.Duration(r.frequencyMS) * time.Millisecond)
		}
	}
}

func (r *Reactor) isFrozen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frozen
}

// dispatch classifies and invokes callbacks for one readiness notification
// in the spec-mandated order: READ, WRITE, CLOSE.
func (r *Reactor) dispatch(rd ready) {
	r.mu.Lock()
	it, ok := r.items[rd.fd]
	if !ok {
		r.mu.Unlock()
		return
	}
	id := it.id
	enabled := it.enabled
	isTimer := it.timerReadFD >= 0
	series := it.series
	timerFD := it.timerReadFD
	cb := it.cb
	r.mu.Unlock()

	if rd.kinds.has(KindRead) && enabled.has(KindRead) {
		if isTimer {
			_, _ = readPipeTokens(timerFD)
			if enabled.has(KindTimer) && cb != nil {
				r.metrics.ReactorDispatch("timer")
				cb(id, rd.fd, KindTimer)
			}
			if !series {
				_ = r.DelID(id, rd.fd)
			}
		} else if cb != nil {
			r.metrics.ReactorDispatch("read")
			cb(id, rd.fd, KindRead)
		}
	}
	if rd.kinds.has(KindWrite) && enabled.has(KindWrite) && !isTimer && cb != nil {
		r.metrics.ReactorDispatch("write")
		cb(id, rd.fd, KindWrite)
	}
	if rd.kinds.has(KindClose) {
		_ = r.DelID(id, rd.fd)
		if enabled.has(KindClose) && cb != nil {
			r.metrics.ReactorDispatch("close")
			cb(id, rd.fd, KindClose)
		}
	}
}

// Stop is idempotent and safe from any goroutine.
func (r *Reactor) Stop() {
	r.mu.Lock()
	ch := r.stopCh
	r.mu.Unlock()
	if ch == nil {
		return
	}
	select {
	case <-ch:
	default:
		close(ch)
	}
}

// Rebase stops the loop, tears down the OS backend and re-registers every
// currently-known item against a freshly opened backend. Callable only on
// the owning goroutine.
func (r *Reactor) Rebase() error {
	r.mu.Lock()
	if r.started && goroutineID() != r.ownerGID {
		r.mu.Unlock()
		return ErrWrongThread
	}
	running := r.started
	items := r.slab.all()
	old := r.backend
	r.mu.Unlock()

	r.Stop()
	// While running, only a callback on the owning goroutine gets here; the
	// loop returns once that callback does, so waiting for it would block.
	if r.doneCh != nil && !running {
		<-r.doneCh
	}

	_ = old.close()
	nb, err := newBackend()
	if err != nil {
		return api.NewError(api.KindConfiguration, "reactor.Rebase", "backend init failed", err)
	}
	if err := nb.open(); err != nil {
		return api.NewError(api.KindConfiguration, "reactor.Rebase", "backend open failed", err)
	}

	r.mu.Lock()
	r.backend = nb
	r.mu.Unlock()

	for _, it := range items {
		if it.timerReadFD >= 0 {
			if err := nb.add(it.fd, KindRead); err != nil {
				return err
			}
			continue
		}
		if err := nb.add(it.fd, it.enabled&(KindRead|KindWrite)); err != nil {
			return err
		}
	}
	return nil
}

// Freeze pauses readiness dispatch without unregistering any item.
func (r *Reactor) Freeze(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = on
}

// Easily toggles "simple" mode: bounded-burst draining with a sleep between
// polls, governed by Frequency.
func (r *Reactor) Easily(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.easilyMode = on
}

// Frequency sets the sleep interval (ms) used in Easily mode and while
// frozen.
func (r *Reactor) Frequency(ms int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ms > 0 {
		r.frequencyMS = ms
	}
}

// Close releases the reactor's OS backend and every remaining item. Safe to
// call after Stop.
func (r *Reactor) Close() error {
	r.Stop()
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range r.slab.all() {
		_ = r.backend.remove(it.fd)
		if it.timerStop != nil {
			select {
			case <-it.timerStop:
			default:
				close(it.timerStop)
			}
			closePipeFD(it.timerReadFD)
			closePipeFD(it.timerWrFD)
		}
	}
	r.items = make(map[int]*item)
	r.slab = newSlab()
	return r.backend.close()
}
