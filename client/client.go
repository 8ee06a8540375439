// File: client/client.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Client drives the connection algorithm of spec §4.7: resolve, create,
// configure, connect, (optionally) wrap TLS, and invoke the user callback.
// The shared Reactor drives only the reconnect timer; the connection is
// not registered with it and no READ interest is enabled.
// Grounded on the teacher's client/client.go reconnect-loop shape, rebuilt
// around api.DNSResolver/api.TLSEngine collaborators instead of an
// in-package resolver.

package client

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/momentics/corenet/api"
	"github.com/momentics/corenet/internal/socket"
	"github.com/momentics/corenet/logging"
	"github.com/momentics/corenet/reactor"
	"github.com/momentics/corenet/transport"
)

// ErrResolveCanceled is returned by resolveBlocking when ctx is canceled
// before the DNSResolver delivers a result.
var ErrResolveCanceled = errors.New("client: resolve canceled")

// Client is the client core of spec §4.7, operating one Reactor shared
// across every Scheme it manages.
//
// HandleDNSResult must be wired as the api.DNSCallback of the DNSResolver
// passed to New — the DNSResolver interface itself has no way to register
// one, so whoever constructs the concrete resolver is responsible for
// pointing its callback at the Client's HandleDNSResult method.
type Client struct {
	r   *reactor.Reactor
	log logging.Logger
	dns api.DNSResolver
	tls api.TLSEngine
	reg *AdjutantRegistry

	pendingMu sync.Mutex
	pending   map[uint64]chan dnsResult
}

type dnsResult struct {
	ip     string
	family int
}

// New constructs a Client over r. dns/tls may be nil to skip resolution /
// TLS wrapping entirely.
func New(r *reactor.Reactor, dns api.DNSResolver, tls api.TLSEngine, log logging.Logger) *Client {
	if log == nil {
		log = logging.NoOp()
	}
	return &Client{
		r:       r,
		log:     log,
		dns:     dns,
		tls:     tls,
		reg:     NewAdjutantRegistry(16),
		pending: make(map[uint64]chan dnsResult),
	}
}

// HandleDNSResult delivers an asynchronous DNSResolver.Resolve continuation.
// Register this as the resolver's DNSCallback.
func (c *Client) HandleDNSResult(requestID uint64, ip string, family int) {
	c.pendingMu.Lock()
	ch, ok := c.pending[requestID]
	if ok {
		delete(c.pending, requestID)
	}
	c.pendingMu.Unlock()
	if ok {
		ch <- dnsResult{ip: ip, family: family}
	}
}

// Connect runs the six-step algorithm of spec §4.7 against s.
func (c *Client) Connect(ctx context.Context, s *Scheme) error {
	if !s.beginConnect() {
		return nil // simultaneous-connect guard: reentrant call early-returns
	}

	key := s.Host + ":" + strconv.Itoa(int(s.Port))
	c.reg.Put(key, s)

	ip := s.Host
	if c.dns != nil && s.resolvedIP == "" && s.Host != "" {
		resolved, err := c.resolveBlocking(ctx, s)
		if err != nil {
			s.endConnect(false)
			c.scheduleReconnectOrFail(s, err)
			return err
		}
		ip = resolved
		s.resolvedIP = resolved
	}

	h, err := socket.Create(s.Family, s.Type, 0)
	if err != nil {
		s.endConnect(false)
		c.scheduleReconnectOrFail(s, err)
		return err
	}
	s.handle = h

	_ = socket.SetNonBlocking(h, true)
	_ = socket.SetReuseAddr(h, true)
	_ = socket.SetBufferSizes(h, 256*1024, 256*1024)

	conn, err := c.dial(ip, s.Port)
	if err != nil {
		_ = socket.Close(h)
		if c.dns != nil {
			c.dns.Blacklist(int(s.Family), ip)
		}
		s.endConnect(false)
		if s.isAlive() {
			c.scheduleReconnect(s)
			return nil
		}
		c.fireDisconnect(s, err)
		return err
	}

	if s.TLS && c.tls != nil {
		wrapped, err := c.tls.WrapClient(ctx, conn, s.Host)
		if err != nil {
			_ = conn.Close()
			s.endConnect(false)
			c.fireDisconnect(s, err)
			return err
		}
		conn = wrapped
	}

	s.conn = conn
	s.endConnect(true)

	if s.proxy && s.OnConnectProxy != nil {
		s.OnConnectProxy()
	} else if s.OnConnect != nil {
		s.OnConnect()
	}
	return nil
}

// resolveBlocking starts an asynchronous Resolve and waits for its
// continuation (delivered via HandleDNSResult) or ctx cancellation.
func (c *Client) resolveBlocking(ctx context.Context, s *Scheme) (string, error) {
	requestID, err := c.dns.Resolve(ctx, s.Host, int(s.Family))
	if err != nil {
		return "", err
	}

	ch := make(chan dnsResult, 1)
	c.pendingMu.Lock()
	c.pending[requestID] = ch
	c.pendingMu.Unlock()

	select {
	case res := <-ch:
		if res.ip == "" {
			return "", api.ErrInvalidArgument
		}
		return res.ip, nil
	case <-ctx.Done():
		c.dns.Cancel(requestID)
		c.pendingMu.Lock()
		delete(c.pending, requestID)
		c.pendingMu.Unlock()
		return "", ErrResolveCanceled
	}
}

func (c *Client) dial(ip string, port uint16) (api.NetConn, error) {
	addr := net.JoinHostPort(ip, strconv.Itoa(int(port)))
	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return nil, err
	}
	return transport.NewNetConn(conn), nil
}

// Close cancels any pending reconnect and tears down the connection.
func (c *Client) Close(s *Scheme) error {
	s.SetAlive(false)
	s.cancelReconnect()
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (c *Client) scheduleReconnect(s *Scheme) {
	ev := reactor.NewTimer(c.r, s.reconnectDelay, false, func(id reactor.EventID, fd int, kind reactor.Kind) {
		if kind == reactor.KindTimer {
			_ = c.Connect(context.Background(), s)
		}
	})
	if err := ev.Start(); err != nil {
		c.log.Warnf("client: failed to schedule reconnect for %s: %v", s.Host, err)
		return
	}
	s.setReconnectTimer(ev)
}

func (c *Client) scheduleReconnectOrFail(s *Scheme, err error) {
	if s.isAlive() {
		c.scheduleReconnect(s)
		return
	}
	c.fireDisconnect(s, err)
}

func (c *Client) fireDisconnect(s *Scheme, err error) {
	if s.OnDisconnect != nil {
		s.OnDisconnect(err)
	}
}

// SwitchProxy preserves the connection but rewraps it with TLS using the
// ultimate destination's SNI and clears the proxy flag; scheme status is
// left intact. It does not register READ interest with the Reactor.
func (c *Client) SwitchProxy(ctx context.Context, s *Scheme, destinationSNI string) error {
	if !s.TLS || c.tls == nil || s.conn == nil {
		return api.ErrInvalidArgument
	}
	wrapped, err := c.tls.WrapClient(ctx, s.conn, destinationSNI)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.conn = wrapped
	s.proxy = false
	s.mu.Unlock()
	return nil
}
