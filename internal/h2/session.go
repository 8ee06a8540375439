// File: internal/h2/session.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Session implements the HTTP/2 engine of spec §4.5: the public contract,
// the event-in-progress discipline, and the flow-control drain algorithm.
// Grounded on original_source/src/http/http2.cpp's event_t/completed
// pattern (an nghttp2-style embedded-callback session), re-expressed with
// Go-native locking instead of a single-threaded libuv-style reactor
// assumption, and using golang.org/x/net/http2/hpack for header codecs
// (see hpack.go) rather than reimplementing HPACK.

package h2

import (
	"errors"
	"sync"

	"github.com/momentics/corenet/metrics"
)

// Mode selects client or server session behaviour.
type Mode uint8

const (
	ModeClient Mode = iota
	ModeServer
)

// Event is the "event in progress" marker of spec §4.5.
type Event uint8

const (
	EventNone Event = iota
	EventSendPing
	EventSendShutdown
	EventRecvFrame
	EventSendReject
	EventSendOrigin
	EventSendAltSvc
	EventSendTrailers
	EventSendData
	EventSendPush
	EventSendHeaders
	EventSendGoAway
)

var (
	// ErrEventInProgress is returned by init (re-init) while another
	// event is active.
	ErrEventInProgress = errors.New("h2: event in progress")
	// ErrNotServer gates server-only ops.
	ErrNotServer = errors.New("h2: operation is server-only")
	// ErrUnknownStream is returned for an sid with no live Stream.
	ErrUnknownStream = errors.New("h2: unknown stream id")
	// ErrSessionClosed is returned by any send operation after close.
	ErrSessionClosed = errors.New("h2: session closed")
)

// Callbacks is the typed registry of spec §4.5 "callback(registry)".
type Callbacks struct {
	OnFrameSend    func(b []byte)
	OnStreamBegin  func(sid uint32)
	OnStreamClose  func(sid uint32, code ErrorCode)
	OnChunk        func(sid uint32, data []byte)
	OnHeader       func(sid uint32, h Header)
	OnFrameReceived func(sid uint32, t FrameType, flags Flag)
	OnFrameCreated func(sid uint32, t FrameType, flags Flag)
	OnOrigin       func(origins []string)
	OnAltSvc       func(sid uint32, origin, value string)
	OnError        func(e *Error)
	// OnIdle is the one-shot trigger of spec §4.5, fired the next time
	// no event is in progress; cleared after firing.
	OnIdle func()
}

// Session is the HTTP/2 engine instance of spec §4.5.
type Session struct {
	mu   sync.Mutex
	mode Mode

	settings     map[Setting]uint32
	peerSettings map[Setting]uint32

	streams          map[uint32]*Stream
	nextStreamID     uint32
	lastPeerStreamID uint32

	sessionSendWindow int64
	sessionRecvWindow int64

	outCodec *headerCodec
	inCodec  *headerCodec

	decodingStreamID uint32 // sid whose header block inCodec is currently decoding
	recvBuf          []byte // undigested tail of the last Frame() call

	cb Callbacks

	event         Event
	pendingClose  bool
	closed        bool
	goAwaySent    bool
	lastGoodSID   uint32

	met metrics.Recorder
}

// New constructs an uninitialized Session; Init must be called before any
// send/frame operation.
func New(mode Mode) *Session {
	s := &Session{mode: mode, streams: make(map[uint32]*Stream), met: metrics.NoOp()}
	if mode == ModeClient {
		s.nextStreamID = 1
	} else {
		s.nextStreamID = 2
	}
	return s
}

// SetMetrics attaches a Recorder observing frames sent and received.
func (s *Session) SetMetrics(m metrics.Recorder) {
	if m == nil {
		m = metrics.NoOp()
	}
	s.mu.Lock()
	s.met = m
	s.mu.Unlock()
}

// Init applies settings and (re)builds the header codecs. Refuses to
// re-init while another event is in progress, per spec §4.5.
func (s *Session) Init(settings map[Setting]uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.event != EventNone {
		return ErrEventInProgress
	}
	merged := defaultSettings()
	for k, v := range settings {
		merged[k] = v
	}
	s.settings = merged
	s.peerSettings = defaultSettings()
	s.sessionSendWindow = int64(merged[SettingInitialWindowSize])
	s.sessionRecvWindow = int64(merged[SettingInitialWindowSize])

	s.outCodec = newHeaderCodec(merged[SettingHeaderTableSize], func(Header) {})
	s.inCodec = newHeaderCodec(merged[SettingHeaderTableSize], s.onDecodedHeader)
	return nil
}

func (s *Session) onDecodedHeader(h Header) {
	if s.cb.OnHeader != nil {
		s.cb.OnHeader(s.decodingStreamID, h)
	}
}

// Callback installs the typed callback registry.
func (s *Session) Callback(cb Callbacks) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cb = cb
}

// beginEvent sets the active event; caller must already hold s.mu.
func (s *Session) beginEvent(e Event) { s.event = e }

// completed implements spec §4.5's event-in-progress discipline: restores
// event=NONE if it still matches, fires the one-shot idle trigger, then
// performs a deferred close if one was requested while busy.
func (s *Session) completed(e Event) {
	s.mu.Lock()
	if s.event == e {
		s.event = EventNone
	}
	idle := s.event == EventNone
	var fire func()
	if idle && s.cb.OnIdle != nil {
		fire = s.cb.OnIdle
		s.cb.OnIdle = nil
	}
	doClose := idle && s.pendingClose
	s.mu.Unlock()

	if fire != nil {
		fire()
	}
	if doClose {
		s.doClose()
	}
}

// Ping sends a PING frame.
func (s *Session) Ping(opaque [8]byte) error {
	s.mu.Lock()
	if s.event != EventNone {
		s.mu.Unlock()
		return ErrEventInProgress
	}
	s.beginEvent(EventSendPing)
	s.mu.Unlock()

	buf := make([]byte, frameHeaderLen+8)
	writeFrameHeader(buf, frameHeader{Length: 8, Type: FramePing, StreamID: 0})
	copy(buf[frameHeaderLen:], opaque[:])
	s.emit(0, FramePing, 0, buf)

	s.completed(EventSendPing)
	return nil
}

// Shutdown sends a final GOAWAY(NO_ERROR) and marks the session as
// shutting down. Server only.
func (s *Session) Shutdown() error {
	if s.mode != ModeServer {
		return ErrNotServer
	}
	return s.GoAway(s.lastPeerStreamID, ErrCodeNo, nil)
}

// GoAway sends a GOAWAY frame. Server only.
func (s *Session) GoAway(lastStreamID uint32, code ErrorCode, debug []byte) error {
	if s.mode != ModeServer {
		return ErrNotServer
	}
	s.mu.Lock()
	if s.event != EventNone {
		s.mu.Unlock()
		return ErrEventInProgress
	}
	s.beginEvent(EventSendGoAway)
	s.goAwaySent = true
	s.mu.Unlock()

	payload := make([]byte, 8+len(debug))
	payload[0] = byte(lastStreamID >> 24)
	payload[1] = byte(lastStreamID >> 16)
	payload[2] = byte(lastStreamID >> 8)
	payload[3] = byte(lastStreamID)
	payload[4] = byte(code >> 24)
	payload[5] = byte(code >> 16)
	payload[6] = byte(code >> 8)
	payload[7] = byte(code)
	copy(payload[8:], debug)

	buf := make([]byte, frameHeaderLen+len(payload))
	writeFrameHeader(buf, frameHeader{Length: uint32(len(payload)), Type: FrameGoAway, StreamID: 0})
	copy(buf[frameHeaderLen:], payload)
	s.emit(0, FrameGoAway, 0, buf)

	s.completed(EventSendGoAway)
	return nil
}

// Reject resets one stream. Server only.
func (s *Session) Reject(sid uint32, code ErrorCode) error {
	if s.mode != ModeServer {
		return ErrNotServer
	}
	s.mu.Lock()
	if s.event != EventNone {
		s.mu.Unlock()
		return ErrEventInProgress
	}
	s.beginEvent(EventSendReject)
	st, ok := s.streams[sid]
	if ok {
		st.state = StateClosed
	}
	s.mu.Unlock()

	buf := make([]byte, frameHeaderLen+4)
	writeFrameHeader(buf, frameHeader{Length: 4, Type: FrameRSTStream, StreamID: sid})
	buf[frameHeaderLen] = byte(code >> 24)
	buf[frameHeaderLen+1] = byte(code >> 16)
	buf[frameHeaderLen+2] = byte(code >> 8)
	buf[frameHeaderLen+3] = byte(code)
	s.emit(sid, FrameRSTStream, 0, buf)

	if ok && s.cb.OnStreamClose != nil {
		s.cb.OnStreamClose(sid, code)
	}
	s.completed(EventSendReject)
	return nil
}

// emit hands encoded bytes to the frame-send callback and fires the
// frame-created callback, matching the "FRAME_CREATED" notification of
// spec §4.5.
func (s *Session) emit(sid uint32, t FrameType, flags Flag, b []byte) {
	s.met.H2Frame(t.String(), "send")
	if s.cb.OnFrameCreated != nil {
		s.cb.OnFrameCreated(sid, t, flags)
	}
	if s.cb.OnFrameSend != nil {
		s.cb.OnFrameSend(b)
	}
}

func (s *Session) reportError(code ErrorCode, sev Severity, category, msg string) {
	if s.cb.OnError != nil {
		s.cb.OnError(&Error{Code: code, Severity: sev, Category: category, Message: msg})
	}
}

func (s *Session) doClose() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	streams := make([]uint32, 0, len(s.streams))
	for sid := range s.streams {
		streams = append(streams, sid)
	}
	s.mu.Unlock()

	for _, sid := range streams {
		if s.cb.OnStreamClose != nil {
			s.cb.OnStreamClose(sid, ErrCodeCancel)
		}
	}
}

// Close terminates the session immediately if no event is in progress;
// otherwise defers until the in-flight event completes.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.event != EventNone {
		s.pendingClose = true
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()
	s.doClose()
	return nil
}
