// File: transport/netconn.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// NetConn adapts a stdlib net.Conn to api.NetConn, exposing the raw fd via
// SyscallConn so it can be registered directly with the reactor.

package transport

import (
	"net"
	"syscall"

	"github.com/momentics/corenet/api"
)

// NetConn implements api.NetConn over a stdlib net.Conn.
type NetConn struct {
	conn net.Conn
	fd   uintptr
}

var _ api.NetConn = (*NetConn)(nil)

// NewNetConn wraps conn, resolving its raw fd up front via SyscallConn
// when available (TCP/UDP/Unix conns on every supported platform).
func NewNetConn(conn net.Conn) *NetConn {
	n := &NetConn{conn: conn}
	if sc, ok := conn.(syscall.Conn); ok {
		rc, err := sc.SyscallConn()
		if err == nil {
			_ = rc.Control(func(fd uintptr) { n.fd = fd })
		}
	}
	return n
}

func (n *NetConn) Read(p []byte) (int, error)  { return n.conn.Read(p) }
func (n *NetConn) Write(p []byte) (int, error) { return n.conn.Write(p) }
func (n *NetConn) Close() error                { return n.conn.Close() }
func (n *NetConn) RawFD() uintptr              { return n.fd }
