// File: client/scheme.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Scheme is the connection record of spec §3/§4.7 (glossary "Scheme": the
// data model driving one client connection's lifecycle) and "Adjutant": a
// connection record tracked by the cluster-facing registry. Guarded by a
// plain sync.Mutex, which is not re-entrant (unlike the reactor's
// recursive mutex).

package client

import (
	"sync"
	"time"

	"github.com/momentics/corenet/api"
	"github.com/momentics/corenet/internal/socket"
	"github.com/momentics/corenet/reactor"
)

// WorkState is the simultaneous-connect guard of spec §4.7: "during
// connect, work=DISALLOW; any reentrant connect() on the same scheme
// early-returns until the attempt completes or errors."
type WorkState uint8

const (
	WorkAllow WorkState = iota
	WorkDisallow
)

// Status is the three-valued connection status referenced throughout
// spec §4.7 (disconnected → connecting → connected, falling back to
// disconnected when an attempt fails).
type Status uint8

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
)

// Scheme holds one client connection's full lifecycle state.
type Scheme struct {
	mu sync.Mutex

	Host   string
	Port   uint16
	Family socket.Family
	Type   socket.Type
	TLS    bool

	status Status
	work   WorkState

	resolvedIP string
	alive      bool // reconnect-on-failure policy
	proxy      bool

	conn   api.NetConn
	handle socket.Handle

	reconnectTimer *reactor.Event
	reconnectDelay time.Duration

	OnConnect      func()
	OnConnectProxy func()
	OnDisconnect   func(err error)
}

// NewScheme constructs an idle Scheme targeting host:port.
func NewScheme(host string, port uint16, family socket.Family, typ socket.Type, tls bool) *Scheme {
	return &Scheme{
		Host:           host,
		Port:           port,
		Family:         family,
		Type:           typ,
		TLS:            tls,
		alive:          true,
		reconnectDelay: 5 * time.Second,
	}
}

// Status reports the current connection status.
func (s *Scheme) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// beginConnect enforces the simultaneous-per-scheme guard; returns false
// if a connect attempt is already in flight.
func (s *Scheme) beginConnect() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.work == WorkDisallow {
		return false
	}
	s.work = WorkDisallow
	s.status = StatusConnecting
	return true
}

func (s *Scheme) endConnect(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.work = WorkAllow
	if connected {
		s.status = StatusConnected
	} else {
		s.status = StatusDisconnected
	}
}

// SetAlive toggles the reconnect-on-failure policy.
func (s *Scheme) SetAlive(alive bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alive = alive
}

func (s *Scheme) isAlive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alive
}

// setReconnectTimer stores the Event driving a pending reconnect attempt,
// stopping any previously scheduled one first.
func (s *Scheme) setReconnectTimer(e *reactor.Event) {
	s.mu.Lock()
	prev := s.reconnectTimer
	s.reconnectTimer = e
	s.mu.Unlock()
	if prev != nil {
		_ = prev.Stop()
	}
}

// cancelReconnect stops and clears any pending reconnect timer.
func (s *Scheme) cancelReconnect() {
	s.mu.Lock()
	t := s.reconnectTimer
	s.reconnectTimer = nil
	s.mu.Unlock()
	if t != nil {
		_ = t.Stop()
	}
}
