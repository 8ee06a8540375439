// File: server/h2conn.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Bridges one HTTP/2 connection: internal/h2.Session parses/emits frames,
// transport.Pump moves the wire bytes, and this file translates decoded
// streams into http.Handler calls. Request bodies and response bodies are
// buffered whole rather than streamed — this engine delivers a complete
// decoded header block synchronously per HEADERS frame (no CONTINUATION
// support), so the simplest correct bridge dispatches the handler once a
// stream's END_STREAM arrives, matching spec's Non-goal of not prescribing
// a handler threading model.

package server

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"sync"

	"github.com/momentics/corenet/internal/h2"
	"github.com/momentics/corenet/transport"
)

const h2cPrefaceLen = len(h2cPreface)

type h2streamState struct {
	headers []h2.Header
	body    bytes.Buffer
}

func (s *Server) serveH2(conn net.Conn) {
	var preface [h2cPrefaceLen]byte
	if _, err := io.ReadFull(conn, preface[:]); err != nil || string(preface[:]) != h2cPreface {
		s.log.Warnf("server: missing or invalid http/2 connection preface")
		return
	}

	sess := h2.New(h2.ModeServer)
	sess.SetMetrics(s.met)
	if err := sess.Init(nil); err != nil {
		s.log.Warnf("server: h2 session init failed: %v", err)
		return
	}

	var mu sync.Mutex
	streams := make(map[uint32]*h2streamState)
	done := make(chan struct{})
	var closeOnce sync.Once
	closeDone := func() { closeOnce.Do(func() { close(done) }) }
	var ended []uint32 // streams whose END_STREAM arrived in the current Frame call

	var pump *transport.Pump
	sess.Callback(h2.Callbacks{
		OnFrameSend: func(b []byte) { pump.Write(b) },
		OnStreamBegin: func(sid uint32) {
			mu.Lock()
			streams[sid] = &h2streamState{}
			mu.Unlock()
		},
		OnHeader: func(sid uint32, h h2.Header) {
			mu.Lock()
			if st, ok := streams[sid]; ok {
				st.headers = append(st.headers, h)
			}
			mu.Unlock()
		},
		OnChunk: func(sid uint32, data []byte) {
			mu.Lock()
			if st, ok := streams[sid]; ok {
				st.body.Write(data)
			}
			mu.Unlock()
		},
		OnFrameReceived: func(sid uint32, t h2.FrameType, flags h2.Flag) {
			if flags.Has(h2.FlagEndStream) && (t == h2.FrameHeaders || t == h2.FrameData) {
				ended = append(ended, sid)
			}
		},
		OnStreamClose: func(sid uint32, code h2.ErrorCode) {
			mu.Lock()
			st, ok := streams[sid]
			delete(streams, sid)
			mu.Unlock()
			if ok && code == h2.ErrCodeNo {
				go s.dispatchH2(sess, sid, st)
			}
		},
		OnError: func(e *h2.Error) {
			s.log.Warnf("server: h2 session error: %v", e)
		},
	})

	pump = transport.New(transport.NewNetConn(conn), s.cfg.Watermarks, false, transport.Callbacks{
		OnRead: func(data []byte) {
			if err := sess.Frame(data); err != nil {
				s.log.Warnf("server: h2 frame error: %v", err)
				closeDone()
			}
			mu.Lock()
			for _, sid := range ended {
				if st, ok := streams[sid]; ok {
					delete(streams, sid)
					go s.dispatchH2(sess, sid, st)
				}
			}
			ended = ended[:0]
			mu.Unlock()
		},
		OnClosed: func() { closeDone() },
		OnError: func(err error) {
			s.log.Warnf("server: h2 connection error: %v", err)
			closeDone()
		},
	})

	for {
		pump.OnReadable()
		select {
		case <-done:
			_ = sess.Close()
			return
		default:
		}
	}
}

// dispatchH2 builds an *http.Request from the decoded pseudo/regular
// headers and buffered body, runs cfg.Handler, and translates the result
// back into HEADERS/DATA frames.
func (s *Server) dispatchH2(sess *h2.Session, sid uint32, st *h2streamState) {
	var method, path, scheme, authority string
	hdr := make(http.Header)
	for _, h := range st.headers {
		switch h.Name {
		case ":method":
			method = h.Value
		case ":path":
			path = h.Value
		case ":scheme":
			scheme = h.Value
		case ":authority":
			authority = h.Value
		default:
			if strings.HasPrefix(h.Name, ":") {
				continue
			}
			hdr.Add(textproto.CanonicalMIMEHeaderKey(h.Name), h.Value)
		}
	}
	if method == "" {
		method = http.MethodGet
	}
	if path == "" {
		path = "/"
	}

	req, err := http.NewRequest(method, scheme+"://"+authority+path, bytes.NewReader(st.body.Bytes()))
	if err != nil {
		_ = sess.Reject(sid, h2.ErrCodeInternal)
		return
	}
	req.Header = hdr
	req.Host = authority
	req.ContentLength = int64(st.body.Len())

	w := &h2ResponseWriter{header: make(http.Header)}
	s.cfg.Handler.ServeHTTP(w, req)
	w.finish()

	headers := make([]h2.Header, 0, len(w.header)+1)
	headers = append(headers, h2.Header{Name: ":status", Value: strconv.Itoa(w.status)})
	for k, vs := range w.header {
		for _, v := range vs {
			headers = append(headers, h2.Header{Name: strings.ToLower(k), Value: v})
		}
	}

	if w.body.Len() == 0 {
		if _, err := sess.SendHeaders(sid, headers, h2.FlagEndStream); err != nil {
			s.log.Warnf("server: h2 send headers failed: %v", err)
		}
		return
	}
	if _, err := sess.SendHeaders(sid, headers, 0); err != nil {
		s.log.Warnf("server: h2 send headers failed: %v", err)
		return
	}
	if err := sess.SendData(sid, w.body.Bytes(), h2.FlagEndStream); err != nil {
		s.log.Warnf("server: h2 send data failed: %v", err)
	}
}

// h2ResponseWriter buffers one handler's output for translation into
// HEADERS/DATA frames, since frames can only be emitted once the handler
// has decided on a final status.
type h2ResponseWriter struct {
	header      http.Header
	body        bytes.Buffer
	status      int
	wroteHeader bool
}

func (w *h2ResponseWriter) Header() http.Header { return w.header }

func (w *h2ResponseWriter) Write(p []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.body.Write(p)
}

func (w *h2ResponseWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.status = status
}

func (w *h2ResponseWriter) finish() {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if w.header.Get("Content-Length") == "" {
		w.header.Set("Content-Length", fmt.Sprintf("%d", w.body.Len()))
	}
}
