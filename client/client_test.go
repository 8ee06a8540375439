// File: client/client_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package client

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/momentics/corenet/api"
	"github.com/momentics/corenet/logging"
	"github.com/momentics/corenet/reactor"
	"github.com/stretchr/testify/require"
)

// fakeDNS resolves every lookup to a fixed IP, delivering the continuation
// through the registered callback on a goroutine after a 1ms delay, as a
// real async resolver would.
type fakeDNS struct {
	ip       string
	cb       func(requestID uint64, ip string, family int)
	nextID   uint64
	canceled map[uint64]bool
}

func newFakeDNS(ip string, cb func(uint64, string, int)) *fakeDNS {
	return &fakeDNS{ip: ip, cb: cb, canceled: make(map[uint64]bool)}
}

func (f *fakeDNS) Resolve(ctx context.Context, domain string, family int) (uint64, error) {
	f.nextID++
	id := f.nextID
	go func() {
		time.Sleep(time.Millisecond)
		f.cb(id, f.ip, family)
	}()
	return id, nil
}

func (f *fakeDNS) Cancel(requestID uint64)        { f.canceled[requestID] = true }
func (f *fakeDNS) Blacklist(family int, ip string) {}
func (f *fakeDNS) Flush()                          {}

var _ api.DNSResolver = (*fakeDNS)(nil)

func TestClientResolveBlockingDeliversIP(t *testing.T) {
	r, err := reactor.New(64, logging.NoOp())
	require.NoError(t, err)
	defer r.Close()

	c := New(r, nil, nil, logging.NoOp())
	dns := newFakeDNS("127.0.0.1", c.HandleDNSResult)
	c.dns = dns

	s := NewScheme("example.test", 9999, 0, 0, false)
	ip, err := c.resolveBlocking(context.Background(), s)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1", ip)
}

func TestClientResolveBlockingRespectsCancellation(t *testing.T) {
	r, err := reactor.New(64, logging.NoOp())
	require.NoError(t, err)
	defer r.Close()

	c := New(r, nil, nil, logging.NoOp())
	blocked := make(chan struct{})
	dns := &fakeDNS{ip: "10.0.0.1", canceled: make(map[uint64]bool)}
	dns.cb = func(id uint64, ip string, family int) { <-blocked } // never fires in time
	c.dns = dns

	s := NewScheme("example.test", 9999, 0, 0, false)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	_, err = c.resolveBlocking(ctx, s)
	require.ErrorIs(t, err, ErrResolveCanceled)
	close(blocked)
}

func TestSchemeBeginConnectGuardsReentrance(t *testing.T) {
	s := NewScheme("example.test", 80, 0, 0, false)
	require.True(t, s.beginConnect())
	require.False(t, s.beginConnect(), "reentrant connect must be rejected while in flight")
	s.endConnect(true)
	require.True(t, s.beginConnect())
}

func TestClientCloseCancelsPendingReconnectTimer(t *testing.T) {
	r, err := reactor.New(64, logging.NoOp())
	require.NoError(t, err)
	defer r.Close()
	startErr := make(chan error, 1)
	go func() { startErr <- r.Start() }()
	defer func() {
		// Start returns only after Stop; Stop again in case it ran before Start began.
		require.Eventually(t, func() bool {
			r.Stop()
			select {
			case err := <-startErr:
				return err == nil
			default:
				return false
			}
		}, 2*time.Second, 10*time.Millisecond)
	}()

	c := New(r, nil, nil, logging.NoOp())
	s := NewScheme("example.test", 80, 0, 0, false)
	s.reconnectDelay = time.Hour // long enough it would never fire in the test

	c.scheduleReconnect(s)
	require.NotNil(t, s.reconnectTimer)

	require.NoError(t, c.Close(s))
	require.Nil(t, s.reconnectTimer)
	require.False(t, s.isAlive())
}

func TestAdjutantRegistryPutGetDelete(t *testing.T) {
	reg := NewAdjutantRegistry(4)
	s := NewScheme("a.test", 1, 0, 0, false)
	reg.Put("a.test:1", s)

	got, ok := reg.Get("a.test:1")
	require.True(t, ok)
	require.Same(t, s, got)

	reg.Delete("a.test:1")
	_, ok = reg.Get("a.test:1")
	require.False(t, ok)
}

// TestClientConnectAgainstLoopbackListener exercises Connect end-to-end against a real TCP listener,
// with DNS/TLS collaborators nil'd out so only the socket path is driven.
func TestClientConnectAgainstLoopbackListener(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			_ = conn.Close()
		}
	}()

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	_ = portStr

	r, err := reactor.New(64, logging.NoOp())
	require.NoError(t, err)
	defer r.Close()

	c := New(r, nil, nil, logging.NoOp())
	port := ln.Addr().(*net.TCPAddr).Port
	s := NewScheme(host, uint16(port), 0, 0, false)

	connected := make(chan struct{})
	s.OnConnect = func() { close(connected) }

	err = c.Connect(context.Background(), s)
	require.NoError(t, err)

	select {
	case <-connected:
	case <-time.After(time.Second):
		t.Fatal("OnConnect was not invoked")
	}
	require.Equal(t, StatusConnected, s.Status())
}
