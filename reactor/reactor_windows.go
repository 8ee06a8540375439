//go:build windows
// +build windows

// File: reactor/reactor_windows.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// WSAPoll backend over a flat pollfd array, per spec's explicit platform
// choice (WSAPoll rather than IOCP).

package reactor

import (
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

// WSAPoll is not wrapped by golang.org/x/sys/windows, so it is bound
// directly off ws2_32.dll, matching the WSAPOLLFD layout from winsock2.h.
var (
	modws2_32   = windows.NewLazySystemDLL("ws2_32.dll")
	procWSAPoll = modws2_32.NewProc("WSAPoll")
)

const (
	pollRDNORM int16 = 0x0100
	pollRDBAND int16 = 0x0200
	pollIn           = pollRDNORM | pollRDBAND
	pollWRNORM int16 = 0x0010
	pollOut          = pollWRNORM
	pollErr    int16 = 0x0001
	pollHUp    int16 = 0x0002
	pollNVal   int16 = 0x0004
)

type wsaPollFD struct {
	Fd      windows.Handle
	Events  int16
	REvents int16
}

func wsaPoll(fds []wsaPollFD, timeoutMS int) (int, error) {
	if len(fds) == 0 {
		return 0, nil
	}
	r1, _, e1 := procWSAPoll.Call(
		uintptr(unsafe.Pointer(&fds[0])),
		uintptr(len(fds)),
		uintptr(int32(timeoutMS)),
	)
	n := int(int32(r1))
	if n < 0 {
		return 0, e1
	}
	return n, nil
}

type wsaPollBackend struct {
	mu       sync.Mutex
	interest map[int]Kind
}

func newBackend() (backend, error) {
	return &wsaPollBackend{interest: make(map[int]Kind)}, nil
}

func (b *wsaPollBackend) open() error { return nil }

func (b *wsaPollBackend) add(fd int, want Kind) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.interest[fd] = want
	return nil
}

func (b *wsaPollBackend) modify(fd int, want Kind) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.interest[fd] = want
	return nil
}

func (b *wsaPollBackend) remove(fd int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.interest, fd)
	return nil
}

func eventsFor(want Kind) int16 {
	var ev int16
	if want.has(KindRead) {
		ev |= pollIn
	}
	if want.has(KindWrite) {
		ev |= pollOut
	}
	return ev
}

func (b *wsaPollBackend) wait(timeoutMS int, out []ready) (int, error) {
	b.mu.Lock()
	fds := make([]wsaPollFD, 0, len(b.interest))
	order := make([]int, 0, len(b.interest))
	for fd, want := range b.interest {
		fds = append(fds, wsaPollFD{Fd: windows.Handle(fd), Events: eventsFor(want)})
		order = append(order, fd)
	}
	b.mu.Unlock()

	if len(fds) == 0 {
		windows.Sleep(uint32(timeoutMS))
		return 0, nil
	}

	n, err := wsaPoll(fds, timeoutMS)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}

	count := 0
	for i, pfd := range fds {
		if pfd.REvents == 0 {
			continue
		}
		var k Kind
		if pfd.REvents&(pollHUp|pollErr|pollNVal) != 0 {
			k |= KindClose
		}
		if pfd.REvents&pollIn != 0 {
			k |= KindRead
		}
		if pfd.REvents&pollOut != 0 {
			k |= KindWrite
		}
		if k == 0 {
			continue
		}
		if count >= len(out) {
			break
		}
		out[count] = ready{fd: order[i], kinds: k}
		count++
	}
	return count, nil
}

func (b *wsaPollBackend) close() error { return nil }
