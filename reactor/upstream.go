// File: reactor/upstream.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Upstream is component D of spec §4.4: a cross-thread wake channel. Any
// goroutine may call LaunchUpstream; delivery is surfaced on the reactor's
// own dispatch loop, preserving the single-threaded callback guarantee.

package reactor

import (
	"sync"
	"sync/atomic"
)

// Upstream is one registered cross-thread channel. sid is stable for the
// life of the registration and is the handle passed to LaunchUpstream/
// EraseUpstream.
type Upstream struct {
	sid     uint64
	readFD  int
	writeFD int
	id      EventID
	cb      func(token uint64)
	r       *Reactor

	closeOnce sync.Once
}

// EmplaceUpstream registers a new upstream channel and returns its sid.
// cb is invoked on the reactor's dispatch loop once per delivered token.
func (r *Reactor) EmplaceUpstream(cb func(token uint64)) (uint64, error) {
	readFD, writeFD, err := newPipePair()
	if err != nil {
		return 0, err
	}
	if err := setPipeNonBlocking(readFD, true); err != nil {
		closePipeFD(readFD)
		closePipeFD(writeFD)
		return 0, err
	}

	sid := atomic.AddUint64(&r.nextUpstreamID, 1)
	up := &Upstream{sid: sid, readFD: readFD, writeFD: writeFD, cb: cb, r: r}

	wrapped := func(id EventID, fd int, kind Kind) {
		if kind != KindRead && kind != KindClose {
			return
		}
		tokens, err := readPipeTokens(fd)
		if kind == KindClose || (err != nil && len(tokens) == 0) {
			r.log.Warnf("reactor: upstream %d read end closed, erasing", sid)
			_ = r.EraseUpstream(sid)
			return
		}
		for _, t := range tokens {
			if up.cb != nil {
				up.cb(t)
			}
		}
	}

	id, err := r.Add(readFD, wrapped, 0, false)
	if err != nil {
		closePipeFD(readFD)
		closePipeFD(writeFD)
		return 0, err
	}
	up.id = id

	r.mu.Lock()
	r.upstreams[sid] = up
	r.mu.Unlock()
	return sid, nil
}

// LaunchUpstream delivers token to the upstream channel identified by sid.
// Safe to call from any goroutine; at-most-once per call, strictly ordered
// per caller.
func (r *Reactor) LaunchUpstream(sid uint64, token uint64) error {
	r.mu.Lock()
	up, ok := r.upstreams[sid]
	r.mu.Unlock()
	if !ok {
		return ErrInvalidFD
	}
	return writePipeToken(up.writeFD, token)
}

// EraseUpstream unregisters and closes the channel identified by sid.
func (r *Reactor) EraseUpstream(sid uint64) error {
	r.mu.Lock()
	up, ok := r.upstreams[sid]
	if ok {
		delete(r.upstreams, sid)
	}
	r.mu.Unlock()
	if !ok {
		return nil
	}
	err := r.DelID(up.id, up.readFD)
	up.closeOnce.Do(func() {
		closePipeFD(up.readFD)
		closePipeFD(up.writeFD)
	})
	return err
}
