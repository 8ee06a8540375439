//go:build linux || darwin || freebsd || netbsd || openbsd
// +build linux darwin freebsd netbsd openbsd

// File: reactor/pipepair_unix.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package reactor

import (
	"encoding/binary"

	"golang.org/x/sys/unix"
)

func platformPipePair() (readFD, writeFD int, err error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_CLOEXEC); err != nil {
		return 0, 0, err
	}
	return fds[0], fds[1], nil
}

func platformClosePipeFD(fd int) error {
	return unix.Close(fd)
}

// platformWritePipeToken writes one 8-byte token atomically. Pipe writes up
// to PIPE_BUF (at least 512 bytes on every POSIX system) are guaranteed
// atomic by POSIX, so concurrent producers never interleave partial tokens.
func platformWritePipeToken(fd int, token uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], token)
	for {
		_, err := unix.Write(fd, buf[:])
		if err == unix.EINTR {
			continue
		}
		return err
	}
}

// platformReadPipeTokens drains every complete token currently buffered.
func platformReadPipeTokens(fd int) ([]uint64, error) {
	var tokens []uint64
	buf := make([]byte, 4096)
	for {
		n, err := unix.Read(fd, buf)
		if err == unix.EINTR {
			continue
		}
		if err == unix.EAGAIN {
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
	return unix.SetNonblock(fd, nonBlocking)
}
