//go:build linux || darwin || freebsd || netbsd || openbsd
// +build linux darwin freebsd netbsd openbsd

// File: internal/socket/socket_unix.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// POSIX socket primitives backing component A, built on golang.org/x/sys/unix
// (the teacher's existing dependency) rather than net.Conn, so the reactor
// can register raw fds directly.

package socket

import (
	"golang.org/x/sys/unix"
)

func domainFor(f Family) int {
	switch f {
	case FamilyIPv6:
		return unix.AF_INET6
	case FamilyUnix:
		return unix.AF_UNIX
	default:
		return unix.AF_INET
	}
}

func sockTypeFor(t Type) (int, int) {
	switch t {
	case TypeUDP, TypeDTLS:
		return unix.SOCK_DGRAM, unix.IPPROTO_UDP
	default:
		return unix.SOCK_STREAM, unix.IPPROTO_TCP
	}
}

func create(family Family, typ Type, protocol int) (uintptr, error) {
	domain := domainFor(family)
	sockType, defaultProto := sockTypeFor(typ)
	if protocol == 0 {
		protocol = defaultProto
	}
	fd, err := unix.Socket(domain, sockType, protocol)
	if err != nil {
		return 0, err
	}
	return uintptr(fd), nil
}

func setNonBlocking(fd uintptr, nonBlocking bool) error {
	return unix.SetNonblock(int(fd), nonBlocking)
}

func setReuseAddr(fd uintptr, reuse bool) error {
	v := 0
	if reuse {
		v = 1
	}
	return unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, v)
}

func setBufferSizes(fd uintptr, sendBytes, recvBytes int) error {
	if sendBytes > 0 {
		if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_SNDBUF, sendBytes); err != nil {
			return err
		}
	}
	if recvBytes > 0 {
		if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, recvBytes); err != nil {
			return err
		}
	}
	return nil
}

func bufferSizes(fd uintptr) (sendBytes, recvBytes int, err error) {
	sendBytes, err = unix.GetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_SNDBUF)
	if err != nil {
		return 0, 0, err
	}
	recvBytes, err = unix.GetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF)
	if err != nil {
		return 0, 0, err
	}
	return sendBytes, recvBytes, nil
}

func closeFD(fd uintptr) error {
	return unix.Close(int(fd))
}

// TranslateErrno renders an OS error in a stable, loggable form.
func TranslateErrno(err error) string {
	if errno, ok := err.(unix.Errno); ok {
		return errno.Error()
	}
	if err == nil {
		return "ok"
	}
	return err.Error()
}
