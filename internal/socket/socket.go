// File: internal/socket/socket.go
// Package socket
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Non-blocking socket abstraction: component A of the core. Wraps raw file
// descriptors with address-family/type creation, buffer sizing, and
// blackhole suppression of spurious signals, per spec §4.1. No hidden
// retries: every operation returns a typed api.Error on failure.

package socket

import (
	"fmt"

	"github.com/momentics/corenet/api"
)

// Family enumerates address families the core creates sockets for.
type Family int

const (
	FamilyIPv4 Family = iota
	FamilyIPv6
	FamilyUnix
)

// Type enumerates socket types the core creates.
type Type int

const (
	TypeTCP Type = iota
	TypeUDP
	TypeTLS
	TypeDTLS
	TypeSCTP
)

// Handle is a raw OS socket descriptor plus the metadata needed to
// translate errors and report its origin in log fields.
type Handle struct {
	FD     uintptr
	Family Family
	Type   Type
}

// Create opens a new socket of (family, type, protocol). The protocol
// argument follows the platform's raw protocol numbering (0 = default for
// the socket type).
func Create(family Family, typ Type, protocol int) (Handle, error) {
	fd, err := create(family, typ, protocol)
	if err != nil {
		return Handle{}, api.NewError(api.KindTransport, "socket.Create", translate(err), err)
	}
	return Handle{FD: fd, Family: family, Type: typ}, nil
}

// SetNonBlocking toggles O_NONBLOCK (POSIX) / the nonblocking ioctl
// (Windows) on the handle.
func SetNonBlocking(h Handle, nonBlocking bool) error {
	if err := setNonBlocking(h.FD, nonBlocking); err != nil {
		return api.NewError(api.KindTransport, "socket.SetNonBlocking", translate(err), err)
	}
	return nil
}

// SetReuseAddr toggles SO_REUSEADDR.
func SetReuseAddr(h Handle, reuse bool) error {
	if err := setReuseAddr(h.FD, reuse); err != nil {
		return api.NewError(api.KindTransport, "socket.SetReuseAddr", translate(err), err)
	}
	return nil
}

// SetBufferSizes configures the kernel send/receive buffer sizes. A zero
// value leaves that buffer untouched.
func SetBufferSizes(h Handle, sendBytes, recvBytes int) error {
	if err := setBufferSizes(h.FD, sendBytes, recvBytes); err != nil {
		return api.NewError(api.KindTransport, "socket.SetBufferSizes", translate(err), err)
	}
	return nil
}

// BufferSizes queries the kernel send/receive buffer sizes currently set.
func BufferSizes(h Handle) (sendBytes, recvBytes int, err error) {
	sendBytes, recvBytes, err = bufferSizes(h.FD)
	if err != nil {
		return 0, 0, api.NewError(api.KindTransport, "socket.BufferSizes", translate(err), err)
	}
	return sendBytes, recvBytes, nil
}

// SuppressSignals disables delivery of SIGPIPE for operations on this
// socket where the platform has a per-socket option (SO_NOSIGPIPE on
// BSD/macOS), per spec §4.1 "blackhole suppression of spurious signals".
// It is a no-op on Linux and Windows, and SIGILL is not suppressed on any
// platform.
func SuppressSignals(h Handle) error {
	if err := suppressSignals(h.FD); err != nil {
		return api.NewError(api.KindTransport, "socket.SuppressSignals", translate(err), err)
	}
	return nil
}

// Close releases the OS handle.
func Close(h Handle) error {
	if err := closeFD(h.FD); err != nil {
		return api.NewError(api.KindTransport, "socket.Close", translate(err), err)
	}
	return nil
}

func translate(err error) string {
	return fmt.Sprintf("errno: %v", TranslateErrno(err))
}
