//go:build darwin || freebsd || netbsd || openbsd
// +build darwin freebsd netbsd openbsd

// File: internal/socket/socket_nosigpipe_bsd.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package socket

import "golang.org/x/sys/unix"

// suppressSignals sets SO_NOSIGPIPE so writes to a half-closed peer return
// EPIPE instead of raising SIGPIPE, per spec §4.1.
func suppressSignals(fd uintptr) error {
	return unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_NOSIGPIPE, 1)
}
