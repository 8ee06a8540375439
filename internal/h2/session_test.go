package h2

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSessionSendHeadersAssignsOddStreamIDForClient(t *testing.T) {
	s := New(ModeClient)
	require.NoError(t, s.Init(nil))

	var sent [][]byte
	s.Callback(Callbacks{OnFrameSend: func(b []byte) { sent = append(sent, b) }})

	sid, err := s.SendHeaders(0, []Header{{Name: ":method", Value: "GET"}}, FlagEndStream)
	require.NoError(t, err)
	require.Equal(t, int64(1), sid)
	require.Len(t, sent, 1)

	sid2, err := s.SendHeaders(0, []Header{{Name: ":method", Value: "GET"}}, FlagEndStream)
	require.NoError(t, err)
	require.Equal(t, int64(3), sid2)
}

func TestSessionSendDataRespectsWindow(t *testing.T) {
	s := New(ModeServer)
	require.NoError(t, s.Init(map[Setting]uint32{SettingInitialWindowSize: 10}))

	var frames int
	s.Callback(Callbacks{OnFrameSend: func(b []byte) { frames++ }})

	sid, err := s.SendHeaders(0, []Header{{Name: ":status", Value: "200"}}, 0)
	require.NoError(t, err)

	err = s.SendData(uint32(sid), make([]byte, 25), FlagEndStream)
	require.NoError(t, err)

	// only 10 bytes should have gone out under the initial window; the
	// HEADERS frame plus exactly one DATA frame should have been emitted.
	require.Equal(t, 2, frames)

	require.NoError(t, s.WindowUpdate(0, 20))
	require.NoError(t, s.WindowUpdate(uint32(sid), 20))
	require.Equal(t, 3, frames)
}

func TestSessionFrameParsesPing(t *testing.T) {
	s := New(ModeServer)
	require.NoError(t, s.Init(nil))

	var acked bool
	s.Callback(Callbacks{OnFrameSend: func(b []byte) {
		if len(b) >= frameHeaderLen && FrameType(b[3]) == FramePing && Flag(b[4]).Has(FlagAck) {
			acked = true
		}
	}})

	buf := make([]byte, frameHeaderLen+8)
	writeFrameHeader(buf, frameHeader{Length: 8, Type: FramePing, StreamID: 0})
	require.NoError(t, s.Frame(buf))
	require.True(t, acked)
}

func TestSessionRejectClosesStream(t *testing.T) {
	s := New(ModeServer)
	require.NoError(t, s.Init(nil))

	var closedCode ErrorCode
	s.Callback(Callbacks{OnStreamClose: func(sid uint32, code ErrorCode) { closedCode = code }})

	sid, err := s.SendHeaders(0, []Header{{Name: ":status", Value: "200"}}, 0)
	require.NoError(t, err)

	require.NoError(t, s.Reject(uint32(sid), ErrCodeCancel))
	require.Equal(t, ErrCodeCancel, closedCode)
}

func TestSessionCloseDefersWhileEventInProgress(t *testing.T) {
	s := New(ModeServer)
	require.NoError(t, s.Init(nil))
	s.beginEvent(EventSendHeaders)

	require.NoError(t, s.Close())
	s.mu.Lock()
	pending := s.pendingClose
	closed := s.closed
	s.mu.Unlock()
	require.True(t, pending)
	require.False(t, closed)

	s.completed(EventSendHeaders)
	s.mu.Lock()
	closed = s.closed
	s.mu.Unlock()
	require.True(t, closed)
}
