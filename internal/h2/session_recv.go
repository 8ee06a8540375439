// File: internal/h2/session_recv.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Frame implements spec §4.5 "frame(bytes) -> ok — feed received bytes.
// Runs embedded callbacks synchronously", parsing every complete frame in
// buf within a single RECV_FRAME event, matching
// original_source/src/http/http2.cpp's single nghttp2_session_mem_recv2
// call per Frame() invocation.

package h2

// Frame feeds received bytes through the parser. Complete frames are
// consumed and dispatched synchronously; a trailing partial frame is
// buffered until the next call.
func (s *Session) Frame(buf []byte) error {
	s.mu.Lock()
	if s.event != EventNone {
		s.mu.Unlock()
		return ErrEventInProgress
	}
	s.beginEvent(EventRecvFrame)
	s.recvBuf = append(s.recvBuf, buf...)
	s.mu.Unlock()

	s.mu.Lock()
	for {
		if len(s.recvBuf) < frameHeaderLen {
			break
		}
		h := readFrameHeader(s.recvBuf)
		total := frameHeaderLen + int(h.Length)
		if len(s.recvBuf) < total {
			break
		}
		payload := s.recvBuf[frameHeaderLen:total]
		s.recvBuf = s.recvBuf[total:]
		s.dispatchFrameLocked(h, payload)
	}
	s.mu.Unlock()

	s.completed(EventRecvFrame)
	return nil
}

func (s *Session) dispatchFrameLocked(h frameHeader, payload []byte) {
	s.met.H2Frame(h.Type.String(), "recv")
	if s.cb.OnFrameReceived != nil {
		s.mu.Unlock()
		s.cb.OnFrameReceived(h.StreamID, h.Type, h.Flags)
		s.mu.Lock()
	}

	switch h.Type {
	case FrameData:
		s.onDataLocked(h, payload)
	case FrameHeaders:
		s.onHeadersLocked(h, payload)
	case FrameRSTStream:
		s.onRSTStreamLocked(h, payload)
	case FrameSettings:
		s.onSettingsLocked(h, payload)
	case FramePing:
		s.onPingLocked(h, payload)
	case FrameGoAway:
		s.onGoAwayLocked(h, payload)
	case FrameWindowUpdate:
		s.onWindowUpdateLocked(h, payload)
	case FrameOrigin:
		s.onOriginLocked(payload)
	case FrameAltSvc:
		s.onAltSvcLocked(h, payload)
	case FramePushPromise, FrameContinuation, FramePriority:
		// acknowledged at the wire level; no dedicated callback beyond
		// FrameReceived above.
	}
}

func (s *Session) onDataLocked(h frameHeader, payload []byte) {
	st, ok := s.streams[h.StreamID]
	if !ok {
		return
	}
	st.consumeRecvWindow(uint32(len(payload)))
	if len(payload) > 0 && s.cb.OnChunk != nil {
		s.mu.Unlock()
		s.cb.OnChunk(h.StreamID, payload)
		s.mu.Lock()
	}
	if h.Flags.Has(FlagEndStream) {
		_, firedClose := st.transition(true, false, false)
		if firedClose && s.cb.OnStreamClose != nil {
			s.mu.Unlock()
			s.cb.OnStreamClose(h.StreamID, ErrCodeNo)
			s.mu.Lock()
		}
	}
}

func (s *Session) onHeadersLocked(h frameHeader, payload []byte) {
	st, ok := s.streams[h.StreamID]
	isNew := !ok
	if isNew {
		st = newStream(h.StreamID, uint32(s.settings[SettingInitialWindowSize]), uint32(s.settings[SettingInitialWindowSize]))
		s.streams[h.StreamID] = st
		if h.StreamID > s.lastPeerStreamID {
			s.lastPeerStreamID = h.StreamID
		}
	}
	s.decodingStreamID = h.StreamID
	s.mu.Unlock()
	_ = s.inCodec.Decode(payload)
	s.mu.Lock()

	if isNew && s.cb.OnStreamBegin != nil {
		s.mu.Unlock()
		s.cb.OnStreamBegin(h.StreamID)
		s.mu.Lock()
	}
	if h.Flags.Has(FlagEndStream) {
		_, firedClose := st.transition(true, false, false)
		if firedClose && s.cb.OnStreamClose != nil {
			s.mu.Unlock()
			s.cb.OnStreamClose(h.StreamID, ErrCodeNo)
			s.mu.Lock()
		}
	}
}

func (s *Session) onRSTStreamLocked(h frameHeader, payload []byte) {
	st, ok := s.streams[h.StreamID]
	if !ok || len(payload) < 4 {
		return
	}
	code := ErrorCode(uint32(payload[0])<<24 | uint32(payload[1])<<16 | uint32(payload[2])<<8 | uint32(payload[3]))
	st.state = StateClosed
	if s.cb.OnStreamClose != nil {
		s.mu.Unlock()
		s.cb.OnStreamClose(h.StreamID, code)
		s.mu.Lock()
	}
}

func (s *Session) onSettingsLocked(h frameHeader, payload []byte) {
	if h.Flags.Has(FlagAck) {
		return
	}
	for i := 0; i+6 <= len(payload); i += 6 {
		id := Setting(uint16(payload[i])<<8 | uint16(payload[i+1]))
		val := uint32(payload[i+2])<<24 | uint32(payload[i+3])<<16 | uint32(payload[i+4])<<8 | uint32(payload[i+5])
		s.peerSettings[id] = val
	}
	ack := make([]byte, frameHeaderLen)
	writeFrameHeader(ack, frameHeader{Length: 0, Type: FrameSettings, Flags: FlagAck, StreamID: 0})
	s.mu.Unlock()
	s.emit(0, FrameSettings, FlagAck, ack)
	s.mu.Lock()
}

func (s *Session) onPingLocked(h frameHeader, payload []byte) {
	if h.Flags.Has(FlagAck) {
		return
	}
	buf := make([]byte, frameHeaderLen+8)
	writeFrameHeader(buf, frameHeader{Length: 8, Type: FramePing, Flags: FlagAck, StreamID: 0})
	copy(buf[frameHeaderLen:], payload)
	s.mu.Unlock()
	s.emit(0, FramePing, FlagAck, buf)
	s.mu.Lock()
}

func (s *Session) onGoAwayLocked(h frameHeader, payload []byte) {
	if len(payload) < 8 {
		return
	}
	code := ErrorCode(uint32(payload[4])<<24 | uint32(payload[5])<<16 | uint32(payload[6])<<8 | uint32(payload[7]))
	if s.cb.OnError != nil {
		s.mu.Unlock()
		s.cb.OnError(&Error{Code: code, Severity: SeverityWarning, Category: "goaway", Message: code.String()})
		s.mu.Lock()
	}
}

func (s *Session) onWindowUpdateLocked(h frameHeader, payload []byte) {
	if len(payload) < 4 {
		return
	}
	delta := uint32(payload[0])<<24 | uint32(payload[1])<<16 | uint32(payload[2])<<8 | uint32(payload[3])
	delta &= 0x7fffffff
	if h.StreamID == 0 {
		s.sessionSendWindow += int64(delta)
		ids := make([]uint32, 0, len(s.streams))
		for id := range s.streams {
			ids = append(ids, id)
		}
		sortUint32(ids)
		for _, id := range ids {
			s.drainStreamLocked(s.streams[id])
		}
		return
	}
	if st, ok := s.streams[h.StreamID]; ok {
		st.applyWindowUpdate(delta)
		s.drainStreamLocked(st)
	}
}

func (s *Session) onOriginLocked(payload []byte) {
	var origins []string
	for len(payload) >= 2 {
		l := int(payload[0])<<8 | int(payload[1])
		payload = payload[2:]
		if l > len(payload) {
			break
		}
		origins = append(origins, string(payload[:l]))
		payload = payload[l:]
	}
	if s.cb.OnOrigin != nil {
		s.mu.Unlock()
		s.cb.OnOrigin(origins)
		s.mu.Lock()
	}
}

func (s *Session) onAltSvcLocked(h frameHeader, payload []byte) {
	if len(payload) < 2 {
		return
	}
	l := int(payload[0])<<8 | int(payload[1])
	if 2+l > len(payload) {
		return
	}
	origin := string(payload[2 : 2+l])
	value := string(payload[2+l:])
	if s.cb.OnAltSvc != nil {
		s.mu.Unlock()
		s.cb.OnAltSvc(h.StreamID, origin, value)
		s.mu.Lock()
	}
}
