// File: server/server.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package server wires internal/h2 (the HTTP/2 engine) and transport.Pump
// (the transfer controller) behind a minimal net/http-shaped listener: one
// net.Listener, one goroutine per accepted connection, protocol selected by
// ALPN (TLS) or the h2c prior-knowledge client preface (plaintext),
// otherwise handed to the standard library's HTTP/1.1 parser. No routing,
// no middleware chain — a single http.Handler per spec's Non-goals.

package server

import (
	"bufio"
	"crypto/tls"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/momentics/corenet/logging"
	"github.com/momentics/corenet/metrics"
	"github.com/momentics/corenet/transport"
)

// h2cPreface is RFC 7540 §3.5's connection preface, used to detect
// prior-knowledge HTTP/2 over plaintext.
const h2cPreface = "PRI * HTTP/2.0\r\n\r\nSM\r\n\r\n"

// Config configures a Server.
type Config struct {
	Addr        string
	Handler     http.Handler
	TLSConfig   *tls.Config // nil disables TLS/ALPN; h2 is then only reachable via h2c preface
	Watermarks  transport.Watermarks
	IdleTimeout time.Duration
	Logger      logging.Logger
	Metrics     metrics.Recorder
}

// Server accepts HTTP/1.1 and HTTP/2 connections on one listener.
type Server struct {
	cfg     Config
	log     logging.Logger
	met     metrics.Recorder
	ln      net.Listener
	wg      sync.WaitGroup
	closing chan struct{}
}

// New constructs a Server. Handler must not be nil.
func New(cfg Config) *Server {
	if cfg.Watermarks == (transport.Watermarks{}) {
		cfg.Watermarks = transport.DefaultWatermarks()
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 90 * time.Second
	}
	log := cfg.Logger
	if log == nil {
		log = logging.NoOp()
	}
	met := cfg.Metrics
	if met == nil {
		met = metrics.NoOp()
	}
	return &Server{cfg: cfg, log: log, met: met, closing: make(chan struct{})}
}

// ListenAndServe binds cfg.Addr and serves until Close is called.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	if s.cfg.TLSConfig != nil {
		tlsCfg := s.cfg.TLSConfig.Clone()
		if len(tlsCfg.NextProtos) == 0 {
			tlsCfg.NextProtos = []string{"h2", "http/1.1"}
		}
		ln = tls.NewListener(ln, tlsCfg)
	}
	return s.Serve(ln)
}

// Serve accepts connections off ln until Close is called.
func (s *Server) Serve(ln net.Listener) error {
	s.ln = ln
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.closing:
				return nil
			default:
				return err
			}
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

// Close stops accepting new connections and waits for in-flight ones to
// finish.
func (s *Server) Close() error {
	close(s.closing)
	var err error
	if s.ln != nil {
		err = s.ln.Close()
	}
	s.wg.Wait()
	return err
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	if tc, ok := conn.(*tls.Conn); ok {
		if err := tc.Handshake(); err != nil {
			s.log.Warnf("server: tls handshake failed: %v", err)
			return
		}
		if tc.ConnectionState().NegotiatedProtocol == "h2" {
			s.serveH2(conn)
			return
		}
		s.serveHTTP1(conn)
		return
	}

	br := bufio.NewReaderSize(conn, len(h2cPreface))
	peek, err := br.Peek(len(h2cPreface))
	if err == nil && string(peek) == h2cPreface {
		// serveH2 itself consumes the preface via io.ReadFull; it comes
		// out of br's buffer first since Peek does not advance it.
		s.serveH2(bufConn{Conn: conn, r: br})
		return
	}
	s.serveHTTP1(bufConn{Conn: conn, r: br})
}

func (s *Server) serveHTTP1(conn net.Conn) {
	ln := newSingleConnListener(conn)
	srv := &http.Server{
		Handler:     s.cfg.Handler,
		IdleTimeout: s.cfg.IdleTimeout,
		ConnState: func(_ net.Conn, state http.ConnState) {
			if state == http.StateClosed || state == http.StateHijacked {
				ln.Close()
			}
		},
	}
	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		s.log.Warnf("server: http/1.1 serve error: %v", err)
	}
}

// bufConn prepends a bufio.Reader's already-buffered bytes (consumed while
// peeking for the h2c preface) ahead of further raw reads from conn.
type bufConn struct {
	net.Conn
	r *bufio.Reader
}

func (b bufConn) Read(p []byte) (int, error) { return b.r.Read(p) }

// singleConnListener adapts one already-accepted net.Conn into the
// net.Listener shape net/http.Server.Serve expects, so HTTP/1.1 wire
// parsing is delegated to the standard library per connection instead of
// reimplementing it — this engine's in-scope component is the HTTP/2
// engine (internal/h2), not an HTTP/1.1 parser.
type singleConnListener struct {
	connCh chan net.Conn
	closed chan struct{}
	once   sync.Once
	addr   net.Addr
}

func newSingleConnListener(conn net.Conn) *singleConnListener {
	ch := make(chan net.Conn, 1)
	ch <- conn
	return &singleConnListener{connCh: ch, closed: make(chan struct{}), addr: conn.LocalAddr()}
}

func (l *singleConnListener) Accept() (net.Conn, error) {
	select {
	case c, ok := <-l.connCh:
		if !ok {
			return nil, http.ErrServerClosed
		}
		return c, nil
	case <-l.closed:
		return nil, http.ErrServerClosed
	}
}

func (l *singleConnListener) Close() error {
	l.once.Do(func() { close(l.closed) })
	return nil
}
func (l *singleConnListener) Addr() net.Addr { return l.addr }
