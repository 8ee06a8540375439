//go:build windows
// +build windows

// File: internal/socket/socket_windows.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Windows socket primitives backing component A, built on
// golang.org/x/sys/windows. Lazily initializes WinSock via WSAStartup per
// spec §6 "Environment", tearing it down only if this module performed the
// init.

package socket

import (
	"sync"

	"golang.org/x/sys/windows"
)

var (
	wsaOnce     sync.Once
	wsaOwnsInit bool
)

func ensureWSAStartup() {
	wsaOnce.Do(func() {
		var data windows.WSAData
		if err := windows.WSAStartup(uint32(0x0202), &data); err == nil {
			wsaOwnsInit = true
		}
	})
}

// ShutdownWinsock tears down WinSock if this module performed WSAStartup.
// No-op otherwise; safe to call multiple times.
func ShutdownWinsock() {
	if wsaOwnsInit {
		_ = windows.WSACleanup()
		wsaOwnsInit = false
	}
}

func domainFor(f Family) int {
	switch f {
	case FamilyIPv6:
		return windows.AF_INET6
	case FamilyUnix:
		return windows.AF_UNIX
	default:
		return windows.AF_INET
	}
}

func sockTypeFor(t Type) (int, int) {
	switch t {
	case TypeUDP, TypeDTLS:
		return windows.SOCK_DGRAM, windows.IPPROTO_UDP
	default:
		return windows.SOCK_STREAM, windows.IPPROTO_TCP
	}
}

func create(family Family, typ Type, protocol int) (uintptr, error) {
	ensureWSAStartup()
	domain := domainFor(family)
	sockType, defaultProto := sockTypeFor(typ)
	if protocol == 0 {
		protocol = defaultProto
	}
	fd, err := windows.Socket(domain, sockType, protocol)
	if err != nil {
		return 0, err
	}
	return uintptr(fd), nil
}

func setNonBlocking(fd uintptr, nonBlocking bool) error {
	mode := uint32(0)
	if nonBlocking {
		mode = 1
	}
	return windows.IoctlSocket(windows.Handle(fd), windows.FIONBIO, &mode)
}

func setReuseAddr(fd uintptr, reuse bool) error {
	v := int32(0)
	if reuse {
		v = 1
	}
	return windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_REUSEADDR, int(v))
}

func setBufferSizes(fd uintptr, sendBytes, recvBytes int) error {
	if sendBytes > 0 {
		if err := windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_SNDBUF, sendBytes); err != nil {
			return err
		}
	}
	if recvBytes > 0 {
		if err := windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_RCVBUF, recvBytes); err != nil {
			return err
		}
	}
	return nil
}

func bufferSizes(fd uintptr) (sendBytes, recvBytes int, err error) {
	sendBytes, err = windows.GetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_SNDBUF)
	if err != nil {
		return 0, 0, err
	}
	recvBytes, err = windows.GetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_RCVBUF)
	if err != nil {
		return 0, 0, err
	}
	return sendBytes, recvBytes, nil
}

// suppressSignals is a no-op on Windows: there is no SIGPIPE-equivalent
// signal raised by socket writes.
func suppressSignals(fd uintptr) error {
	return nil
}

func closeFD(fd uintptr) error {
	return windows.Closesocket(windows.Handle(fd))
}

// TranslateErrno renders an OS error in a stable, loggable form.
func TranslateErrno(err error) string {
	if err == nil {
		return "ok"
	}
	if errno, ok := err.(windows.Errno); ok {
		return errno.Error()
	}
	return err.Error()
}
