// File: internal/h2/session_send.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Send-side operations of spec §4.5: sendHeaders/sendTrailers/sendPush/
// sendData/windowUpdate/sendOrigin/sendAltSvc, plus the flow-control drain
// algorithm.

package h2

const maxFramePayloadDefault = 16384

// SendHeaders opens a new stream (client) or answers one (server) with a
// HEADERS frame, honouring FlagEndStream. Returns the new stream id, or a
// negative value on failure (spec's "new_sid_or_neg").
func (s *Session) SendHeaders(sid uint32, headers []Header, flag Flag) (int64, error) {
	s.mu.Lock()
	if s.event != EventNone {
		s.mu.Unlock()
		return -1, ErrEventInProgress
	}
	s.beginEvent(EventSendHeaders)

	newStreamID := sid
	var st *Stream
	if sid == 0 {
		newStreamID = s.nextStreamID
		s.nextStreamID += 2
		st = newStream(newStreamID, uint32(s.settings[SettingInitialWindowSize]), uint32(s.settings[SettingInitialWindowSize]))
		s.streams[newStreamID] = st
	} else {
		st = s.streams[sid]
	}
	s.mu.Unlock()

	if st == nil {
		s.completed(EventSendHeaders)
		return -1, ErrUnknownStream
	}

	block, err := s.outCodec.Encode(headers)
	if err != nil {
		s.completed(EventSendHeaders)
		return -1, err
	}

	buf := make([]byte, frameHeaderLen+len(block))
	writeFrameHeader(buf, frameHeader{
		Length:   uint32(len(block)),
		Type:     FrameHeaders,
		Flags:    flag | FlagEndHeaders,
		StreamID: newStreamID,
	})
	copy(buf[frameHeaderLen:], block)
	s.emit(newStreamID, FrameHeaders, flag|FlagEndHeaders, buf)

	s.mu.Lock()
	_, firedClose := st.transition(false, flag.Has(FlagEndStream), false)
	s.mu.Unlock()

	if sid == 0 && s.cb.OnStreamBegin != nil {
		s.cb.OnStreamBegin(newStreamID)
	}
	if firedClose && s.cb.OnStreamClose != nil {
		s.cb.OnStreamClose(newStreamID, ErrCodeNo)
	}

	s.completed(EventSendHeaders)
	return int64(newStreamID), nil
}

// SendTrailers sends a final header block with END_STREAM set.
func (s *Session) SendTrailers(sid uint32, headers []Header) error {
	s.mu.Lock()
	if s.event != EventNone {
		s.mu.Unlock()
		return ErrEventInProgress
	}
	s.beginEvent(EventSendTrailers)
	st, ok := s.streams[sid]
	s.mu.Unlock()
	if !ok {
		s.completed(EventSendTrailers)
		return ErrUnknownStream
	}

	block, err := s.outCodec.Encode(headers)
	if err != nil {
		s.completed(EventSendTrailers)
		return err
	}
	buf := make([]byte, frameHeaderLen+len(block))
	writeFrameHeader(buf, frameHeader{
		Length:   uint32(len(block)),
		Type:     FrameHeaders,
		Flags:    FlagEndHeaders | FlagEndStream,
		StreamID: sid,
	})
	copy(buf[frameHeaderLen:], block)
	s.emit(sid, FrameHeaders, FlagEndHeaders|FlagEndStream, buf)

	_, firedClose := st.transition(false, true, false)
	if firedClose && s.cb.OnStreamClose != nil {
		s.cb.OnStreamClose(sid, ErrCodeNo)
	}
	s.completed(EventSendTrailers)
	return nil
}

// SendPush issues a server push promise as a child of parentSID. Server
// only.
func (s *Session) SendPush(parentSID uint32, headers []Header, flag Flag) (int64, error) {
	if s.mode != ModeServer {
		return -1, ErrNotServer
	}
	s.mu.Lock()
	if s.event != EventNone {
		s.mu.Unlock()
		return -1, ErrEventInProgress
	}
	s.beginEvent(EventSendPush)
	if s.settings[SettingEnablePush] == 0 {
		s.mu.Unlock()
		s.completed(EventSendPush)
		return -1, ErrEventInProgress
	}
	pushSID := s.nextStreamID
	s.nextStreamID += 2
	st := newStream(pushSID, uint32(s.settings[SettingInitialWindowSize]), uint32(s.settings[SettingInitialWindowSize]))
	st.parentID = parentSID
	s.streams[pushSID] = st
	s.mu.Unlock()

	block, err := s.outCodec.Encode(headers)
	if err != nil {
		s.completed(EventSendPush)
		return -1, err
	}
	payload := make([]byte, 4+len(block))
	payload[0] = byte(pushSID >> 24)
	payload[1] = byte(pushSID >> 16)
	payload[2] = byte(pushSID >> 8)
	payload[3] = byte(pushSID)
	copy(payload[4:], block)

	buf := make([]byte, frameHeaderLen+len(payload))
	writeFrameHeader(buf, frameHeader{
		Length:   uint32(len(payload)),
		Type:     FramePushPromise,
		Flags:    flag | FlagEndHeaders,
		StreamID: parentSID,
	})
	copy(buf[frameHeaderLen:], payload)
	s.emit(parentSID, FramePushPromise, flag|FlagEndHeaders, buf)

	if s.cb.OnStreamBegin != nil {
		s.cb.OnStreamBegin(pushSID)
	}
	s.completed(EventSendPush)
	return int64(pushSID), nil
}

// SendData enqueues bytes on sid's send queue and drains as much as the
// session/stream windows allow, per spec §4.5's flow-control algorithm.
func (s *Session) SendData(sid uint32, data []byte, flag Flag) error {
	s.mu.Lock()
	if s.event != EventNone {
		s.mu.Unlock()
		return ErrEventInProgress
	}
	s.beginEvent(EventSendData)
	st, ok := s.streams[sid]
	if !ok {
		s.mu.Unlock()
		s.completed(EventSendData)
		return ErrUnknownStream
	}
	st.enqueueSend(data, flag.Has(FlagEndStream))
	s.drainStreamLocked(st)
	s.mu.Unlock()

	s.completed(EventSendData)
	return nil
}

// drainStreamLocked moves queued bytes into wire DATA frames, chunked to
// at most maxFramePayloadDefault and bounded by min(session, stream)
// window; caller must hold s.mu.
func (s *Session) drainStreamLocked(st *Stream) {
	for len(st.sendQueue) > 0 || len(st.sendBuf) > 0 {
		budget := s.sessionSendWindow
		if st.sendWindow < budget {
			budget = st.sendWindow
		}
		if budget <= 0 {
			return
		}
		if int64(len(st.sendBuf)) < budget {
			st.drain(budget - int64(len(st.sendBuf)))
		}
		if len(st.sendBuf) == 0 {
			return
		}
		chunk := st.sendBuf
		if int64(len(chunk)) > budget {
			chunk = chunk[:budget]
		}
		if len(chunk) > maxFramePayloadDefault {
			chunk = chunk[:maxFramePayloadDefault]
		}
		isLast := len(chunk) == len(st.sendBuf) && len(st.sendQueue) == 0

		flag := Flag(0)
		if isLast && st.pendingEndStream() {
			flag = FlagEndStream
		}

		buf := make([]byte, frameHeaderLen+len(chunk))
		writeFrameHeader(buf, frameHeader{Length: uint32(len(chunk)), Type: FrameData, Flags: flag, StreamID: st.id})
		copy(buf[frameHeaderLen:], chunk)

		st.sendBuf = st.sendBuf[len(chunk):]
		st.sendWindow -= int64(len(chunk))
		s.sessionSendWindow -= int64(len(chunk))

		s.emit(st.id, FrameData, flag, buf)

		if flag.Has(FlagEndStream) {
			st.endStreamPending = false
			_, firedClose := st.transition(false, true, false)
			if firedClose && s.cb.OnStreamClose != nil {
				s.cb.OnStreamClose(st.id, ErrCodeNo)
			}
		}
	}
}

// pendingEndStream reports whether the already-dequeued tail in sendBuf
// represents the final bytes of an END_STREAM record with nothing left
// queued behind it.
func (s *Stream) pendingEndStream() bool {
	return len(s.sendQueue) == 0 && s.endStreamPending
}

// WindowUpdate applies a WINDOW_UPDATE and drains pending sends it
// unblocks. sid==0 updates the session window and drains every stream in
// id order; sid!=0 updates and drains only that stream.
func (s *Session) WindowUpdate(sid uint32, delta uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sid == 0 {
		s.sessionSendWindow += int64(delta)
		ids := make([]uint32, 0, len(s.streams))
		for id := range s.streams {
			ids = append(ids, id)
		}
		sortUint32(ids)
		for _, id := range ids {
			s.drainStreamLocked(s.streams[id])
		}
		return nil
	}
	st, ok := s.streams[sid]
	if !ok {
		return ErrUnknownStream
	}
	st.applyWindowUpdate(delta)
	s.drainStreamLocked(st)
	return nil
}

func sortUint32(a []uint32) {
	for i := 1; i < len(a); i++ {
		for j := i; j > 0 && a[j-1] > a[j]; j-- {
			a[j-1], a[j] = a[j], a[j-1]
		}
	}
}

// SendOrigin sends an ORIGIN frame (RFC 8336). Server only.
func (s *Session) SendOrigin(origins []string) error {
	if s.mode != ModeServer {
		return ErrNotServer
	}
	s.mu.Lock()
	if s.event != EventNone {
		s.mu.Unlock()
		return ErrEventInProgress
	}
	s.beginEvent(EventSendOrigin)
	s.mu.Unlock()

	var payload []byte
	for _, o := range origins {
		l := len(o)
		payload = append(payload, byte(l>>8), byte(l))
		payload = append(payload, []byte(o)...)
	}
	buf := make([]byte, frameHeaderLen+len(payload))
	writeFrameHeader(buf, frameHeader{Length: uint32(len(payload)), Type: FrameOrigin, StreamID: 0})
	copy(buf[frameHeaderLen:], payload)
	s.emit(0, FrameOrigin, 0, buf)

	s.completed(EventSendOrigin)
	return nil
}

// SendAltSvc sends an ALTSVC frame (RFC 7838) scoped to sid (0 = origin
// scoped via the Origin field). Server only.
func (s *Session) SendAltSvc(sid uint32, origin, value string) error {
	if s.mode != ModeServer {
		return ErrNotServer
	}
	s.mu.Lock()
	if s.event != EventNone {
		s.mu.Unlock()
		return ErrEventInProgress
	}
	s.beginEvent(EventSendAltSvc)
	s.mu.Unlock()

	payload := make([]byte, 2+len(origin)+len(value))
	payload[0] = byte(len(origin) >> 8)
	payload[1] = byte(len(origin))
	copy(payload[2:], origin)
	copy(payload[2+len(origin):], value)

	buf := make([]byte, frameHeaderLen+len(payload))
	writeFrameHeader(buf, frameHeader{Length: uint32(len(payload)), Type: FrameAltSvc, StreamID: sid})
	copy(buf[frameHeaderLen:], payload)
	s.emit(sid, FrameAltSvc, 0, buf)

	if s.cb.OnAltSvc != nil {
		s.cb.OnAltSvc(sid, origin, value)
	}
	s.completed(EventSendAltSvc)
	return nil
}
