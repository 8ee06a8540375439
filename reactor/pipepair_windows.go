//go:build windows
// +build windows

// File: reactor/pipepair_windows.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Windows cannot WSAPoll() an anonymous pipe, so the self-wake channel is a
// pair of connected loopback TCP sockets instead, per spec §4.4.

package reactor

import (
	"encoding/binary"

	"golang.org/x/sys/windows"
)

func platformPipePair() (readFD, writeFD int, err error) {
	listener, err := windows.Socket(windows.AF_INET, windows.SOCK_STREAM, windows.IPPROTO_TCP)
	if err != nil {
		return 0, 0, err
	}
	defer windows.Closesocket(listener)

	addr := &windows.SockaddrInet4{Addr: [4]byte{127, 0, 0, 1}, Port: 0}
	if err := windows.Bind(listener, addr); err != nil {
		return 0, 0, err
	}
	if err := windows.Listen(listener, 1); err != nil {
		return 0, 0, err
	}
	boundAny, err := windows.Getsockname(listener)
	if err != nil {
		return 0, 0, err
	}
	bound := boundAny.(*windows.SockaddrInet4)

	writer, err := windows.Socket(windows.AF_INET, windows.SOCK_STREAM, windows.IPPROTO_TCP)
	if err != nil {
		return 0, 0, err
	}
	connectAddr := &windows.SockaddrInet4{Addr: [4]byte{127, 0, 0, 1}, Port: bound.Port}
	if err := windows.Connect(writer, connectAddr); err != nil {
		windows.Closesocket(writer)
		return 0, 0, err
	}

	reader, _, err := windows.Accept(listener)
	if err != nil {
		windows.Closesocket(writer)
		return 0, 0, err
	}

	return int(reader), int(writer), nil
}

func platformClosePipeFD(fd int) error {
	return windows.Closesocket(windows.Handle(fd))
}

func platformWritePipeToken(fd int, token uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], token)
	for written := 0; written < len(buf); {
		n, err := windows.Send(windows.Handle(fd), buf[written:], 0)
		if err != nil {
			return err
		}
		written += n
	}
	return nil
}

func platformReadPipeTokens(fd int) ([]uint64, error) {
	var tokens []uint64
	buf := make([]byte, 4096)
	for {
		n, err := windows.Recv(windows.Handle(fd), buf, 0)
		if err == windows.WSAEWOULDBLOCK {
			break
		}
		if err != nil {
			return tokens, err
		}
		if n == 0 {
			break
		}
		for off := 0; off+8 <= n; off += 8 {
			tokens = append(tokens, binary.LittleEndian.Uint64(buf[off:off+8]))
		}
		if n < len(buf) {
			break
		}
	}
	return tokens, nil
}

func platformSetPipeNonBlocking(fd int, nonBlocking bool) error {
	mode := uint32(0)
	if nonBlocking {
		mode = 1
	}
	return windows.IoctlSocket(windows.Handle(fd), windows.FIONBIO, &mode)
}
