//go:build linux
// +build linux

// File: reactor/reactor_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// epoll backend, edge-triggered per spec §4.2. Interest bitmasks are kept
// purely in Go-side maps; nothing stashes a Go pointer inside the kernel
// epoll_event struct (see design notes §9).

package reactor

import (
	"sync"

	"golang.org/x/sys/unix"
)

type epollBackend struct {
	mu       sync.Mutex
	epfd     int
	interest map[int]Kind
}

func newBackend() (backend, error) {
	return &epollBackend{interest: make(map[int]Kind)}, nil
}

func (b *epollBackend) open() error {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return err
	}
	b.epfd = fd
	return nil
}

func epollEventsFor(want Kind) uint32 {
	var ev uint32 = unix.EPOLLET | unix.EPOLLRDHUP
	if want.has(KindRead) {
		ev |= unix.EPOLLIN
	}
	if want.has(KindWrite) {
		ev |= unix.EPOLLOUT
	}
	return ev
}

func (b *epollBackend) add(fd int, want Kind) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	ev := &unix.EpollEvent{Events: epollEventsFor(want), Fd: int32(fd)}
	if err := unix.EpollCtl(b.epfd, unix.EPOLL_CTL_ADD, fd, ev); err != nil {
		return err
	}
	b.interest[fd] = want
	return nil
}

func (b *epollBackend) modify(fd int, want Kind) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	ev := &unix.EpollEvent{Events: epollEventsFor(want), Fd: int32(fd)}
	if err := unix.EpollCtl(b.epfd, unix.EPOLL_CTL_MOD, fd, ev); err != nil {
		return err
	}
	b.interest[fd] = want
	return nil
}

func (b *epollBackend) remove(fd int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.interest, fd)
	err := unix.EpollCtl(b.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	if err == unix.ENOENT {
		return nil
	}
	return err
}

func (b *epollBackend) wait(timeoutMS int, out []ready) (int, error) {
	raw := make([]unix.EpollEvent, len(out))
	n, err := unix.EpollWait(b.epfd, raw, timeoutMS)
	if err == unix.EINTR {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	count := 0
	for i := 0; i < n; i++ {
		fd := int(raw[i].Fd)
		var k Kind
		if raw[i].Events&(unix.EPOLLHUP|unix.EPOLLERR|unix.EPOLLRDHUP) != 0 {
			k |= KindClose
		}
		if raw[i].Events&unix.EPOLLIN != 0 {
			k |= KindRead
		}
		if raw[i].Events&unix.EPOLLOUT != 0 {
			k |= KindWrite
		}
		if k == 0 {
			continue
		}
		out[count] = ready{fd: fd, kinds: k}
		count++
	}
	return count, nil
}

func (b *epollBackend) close() error {
	return unix.Close(b.epfd)
}
