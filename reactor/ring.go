//go:build darwin || freebsd || netbsd || openbsd
// +build darwin freebsd netbsd openbsd

// File: reactor/ring.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// changeRing buffers pending kqueue change descriptors between Add/Modify/
// Remove calls and the next flush, backed by eapache/queue's ring-buffer
// growth strategy rather than a plain slice.

package reactor

import (
	"sync"

	"github.com/eapache/queue"
	"golang.org/x/sys/unix"
)

type changeRing struct {
	mu sync.Mutex
	q  *queue.Queue
}

func newChangeRing() *changeRing {
	return &changeRing{q: queue.New()}
}

func (r *changeRing) push(kv unix.Kevent_t) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.q.Add(kv)
}

// drain removes and returns every buffered change descriptor in FIFO order.
func (r *changeRing) drain() []unix.Kevent_t {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.q.Length()
	if n == 0 {
		return nil
	}
	out := make([]unix.Kevent_t, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, r.q.Peek().(unix.Kevent_t))
		r.q.Remove()
	}
	return out
}
