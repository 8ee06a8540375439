package transport

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeConn is a minimal api.NetConn backed by in-memory buffers, used to
// drive the Pump without a real socket.
type fakeConn struct {
	mu      sync.Mutex
	inbound *bytes.Buffer
	written bytes.Buffer
	closed  bool
}

func newFakeConn(seed []byte) *fakeConn {
	return &fakeConn{inbound: bytes.NewBuffer(seed)}
}

func (f *fakeConn) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inbound.Len() == 0 {
		return 0, errWouldBlockTest
	}
	return f.inbound.Read(p)
}

func (f *fakeConn) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.written.Write(p)
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) RawFD() uintptr { return 0 }

var errWouldBlockTest = errors.New("would block")

func TestPumpDeliversReadInChunks(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 10)
	conn := newFakeConn(data)

	var got []byte
	p := New(conn, Watermarks{ReadMax: 4, WriteMax: 4, WriteMin: 1}, false, Callbacks{
		OnRead: func(b []byte) { got = append(got, b...) },
	})

	p.OnReadable()
	require.Equal(t, data, got)
}

func TestPumpWriteDrainsInChunks(t *testing.T) {
	conn := newFakeConn(nil)
	p := New(conn, Watermarks{ReadMax: 16, WriteMax: 3, WriteMin: 1}, false, Callbacks{})

	p.Write([]byte("hello world"))
	require.Equal(t, "hello world", conn.written.String())
}

func TestPumpWriteYieldsBelowWriteMin(t *testing.T) {
	conn := newFakeConn(nil)
	var ready bool
	p := New(conn, Watermarks{ReadMax: 16, WriteMax: 64, WriteMin: 10}, false, Callbacks{
		OnReadyForMore: func() { ready = true },
	})

	p.Write([]byte("ab"))
	require.True(t, ready)
	require.Equal(t, 0, conn.written.Len())
}

func TestPumpUDPSuspendsReadWhileWriting(t *testing.T) {
	conn := newFakeConn([]byte("data"))
	p := New(conn, Watermarks{ReadMax: 16, WriteMax: 64, WriteMin: 1}, true, Callbacks{})

	p.mu.Lock()
	p.suspendReadForWrite = true
	p.mu.Unlock()

	called := false
	p.cb.OnRead = func([]byte) { called = true }
	p.OnReadable()
	require.False(t, called, "read must be suspended while outbound bytes remain")
}

func TestClassifyReadEOF(t *testing.T) {
	require.Equal(t, ReadClosed, classifyRead(0, io.EOF))
	require.Equal(t, ReadResult(5), classifyRead(5, nil))
}
