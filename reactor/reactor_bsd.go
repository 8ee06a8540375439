//go:build darwin || freebsd || netbsd || openbsd
// +build darwin freebsd netbsd openbsd

// File: reactor/reactor_bsd.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// kqueue backend, edge-triggered (EV_CLEAR) per spec §4.2. Change
// descriptors are buffered in a ring and flushed to the kernel in one
// kevent() call at the end of each add/modify/remove; wait submits none.

package reactor

import (
	"sync"

	"golang.org/x/sys/unix"
)

type kqueueBackend struct {
	mu       sync.Mutex
	kq       int
	interest map[int]Kind
	pending  *changeRing
}

func newBackend() (backend, error) {
	return &kqueueBackend{interest: make(map[int]Kind), pending: newChangeRing()}, nil
}

func (b *kqueueBackend) open() error {
	fd, err := unix.Kqueue()
	if err != nil {
		return err
	}
	b.kq = fd
	return nil
}

func (b *kqueueBackend) queueFilter(fd int, filter int16, enable bool) {
	flags := uint16(unix.EV_ADD | unix.EV_CLEAR)
	if !enable {
		flags = unix.EV_DELETE
	}
	b.pending.push(unix.Kevent_t{
		Ident:  uint64(fd),
		Filter: filter,
		Flags:  flags,
	})
}

func (b *kqueueBackend) add(fd int, want Kind) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queueFilter(fd, unix.EVFILT_READ, want.has(KindRead))
	b.queueFilter(fd, unix.EVFILT_WRITE, want.has(KindWrite))
	b.interest[fd] = want
	return b.flushLocked()
}

func (b *kqueueBackend) modify(fd int, want Kind) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	prev := b.interest[fd]
	if prev.has(KindRead) != want.has(KindRead) {
		b.queueFilter(fd, unix.EVFILT_READ, want.has(KindRead))
	}
	if prev.has(KindWrite) != want.has(KindWrite) {
		b.queueFilter(fd, unix.EVFILT_WRITE, want.has(KindWrite))
	}
	b.interest[fd] = want
	return b.flushLocked()
}

func (b *kqueueBackend) remove(fd int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	prev, ok := b.interest[fd]
	if !ok {
		return nil
	}
	if prev.has(KindRead) {
		b.queueFilter(fd, unix.EVFILT_READ, false)
	}
	if prev.has(KindWrite) {
		b.queueFilter(fd, unix.EVFILT_WRITE, false)
	}
	delete(b.interest, fd)
	return b.flushLocked()
}

// flushLocked applies every buffered change descriptor to the kernel in one
// kevent() call with no output events requested.
func (b *kqueueBackend) flushLocked() error {
	changes := b.pending.drain()
	if len(changes) == 0 {
		return nil
	}
	_, err := unix.Kevent(b.kq, changes, nil, nil)
	if err == unix.ENOENT {
		return nil
	}
	return err
}

func (b *kqueueBackend) wait(timeoutMS int, out []ready) (int, error) {
	var ts *unix.Timespec
	if timeoutMS >= 0 {
		t := unix.NsecToTimespec(int64(timeoutMS) * int64(1e6))
		ts = &t
	}
	raw := make([]unix.Kevent_t, len(out))
	n, err := unix.Kevent(b.kq, nil, raw, ts)
	if err == unix.EINTR {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	merged := make(map[int]Kind, n)
	order := make([]int, 0, n)
	for i := 0; i < n; i++ {
		fd := int(raw[i].Ident)
		var k Kind
		switch raw[i].Filter {
		case unix.EVFILT_READ:
			k = KindRead
		case unix.EVFILT_WRITE:
			k = KindWrite
		}
		if raw[i].Flags&(unix.EV_EOF|unix.EV_ERROR) != 0 {
			k |= KindClose
		}
		if _, seen := merged[fd]; !seen {
			order = append(order, fd)
		}
		merged[fd] |= k
	}
	count := 0
	for _, fd := range order {
		out[count] = ready{fd: fd, kinds: merged[fd]}
		count++
	}
	return count, nil
}

func (b *kqueueBackend) close() error {
	return unix.Close(b.kq)
}
