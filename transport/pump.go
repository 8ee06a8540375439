// File: transport/pump.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Pump is the transfer controller of spec §4.6: a per-connection pump with
// four sub-events (read, write, read-timeout, write-timeout), grounded on
// the teacher's lowlevel/client/transport.go Send/Recv shape, generalized
// to the watermark- and classification-driven algorithm the spec mandates
// instead of one Read()/one Write() per call.

package transport

import (
	"net"
	"sync"
	"time"

	"github.com/momentics/corenet/api"
	"github.com/momentics/corenet/metrics"
)

// ReadResult classifies the outcome of one OS read, per spec §4.6: a
// positive byte count, 0 for peer-closed, -1 for would-block, -2 for
// retry-immediately.
type ReadResult int

const (
	ReadWouldBlock ReadResult = -1
	ReadRetry      ReadResult = -2
	ReadClosed     ReadResult = 0
)

// Watermarks bounds the pump's read/write chunking, per spec §4.6.
type Watermarks struct {
	ReadMax  int // chop large reads into deliveries of at most this size
	WriteMax int // drain outbound buffer in chunks of at most this size
	WriteMin int // minimum batch size before a write is attempted
}

// DefaultWatermarks mirrors common stack-buffer sizing in the teacher's
// transport layer.
func DefaultWatermarks() Watermarks {
	return Watermarks{ReadMax: 64 * 1024, WriteMax: 64 * 1024, WriteMin: 1}
}

// Callbacks is the set of sub-event handlers a Pump drives.
type Callbacks struct {
	OnRead         func(data []byte)
	OnReadTimeout  func()
	OnWriteTimeout func()
	OnReadyForMore func() // fired when write yields due to WriteMin
	OnClosed       func()
	OnError        func(err error)
}

// Pump is one connection's read/write engine.
type Pump struct {
	conn api.NetConn
	wm   Watermarks
	cb   Callbacks
	met  metrics.Recorder

	isUDP bool

	mu       sync.Mutex
	outbox   []byte
	writing  bool
	suspendReadForWrite bool // UDP: suspend read while outbound bytes remain

	readBuf []byte

	readTimeout  time.Duration
	writeTimeout time.Duration
	lastRead     time.Time
	lastWrite    time.Time
}

// New constructs a Pump over conn with the given watermarks. isUDP enables
// the "read suspended while writing" rule of spec §4.6.
func New(conn api.NetConn, wm Watermarks, isUDP bool, cb Callbacks) *Pump {
	return &Pump{
		conn:    conn,
		wm:      wm,
		cb:      cb,
		met:     metrics.NoOp(),
		isUDP:   isUDP,
		readBuf: make([]byte, wm.ReadMax),
	}
}

// SetMetrics attaches a Recorder observing bytes moved in each direction.
func (p *Pump) SetMetrics(m metrics.Recorder) {
	if m == nil {
		m = metrics.NoOp()
	}
	p.mu.Lock()
	p.met = m
	p.mu.Unlock()
}

// SetTimeouts configures the read/write idle timeouts checked by
// CheckTimeouts.
func (p *Pump) SetTimeouts(read, write time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readTimeout = read
	p.writeTimeout = write
}

// OnReadable must be called when the reactor signals the fd is readable.
// It reads into the pump's fixed read buffer, classifies the result, and delivers
// or rearms accordingly.
func (p *Pump) OnReadable() {
	p.mu.Lock()
	if p.isUDP && p.suspendReadForWrite {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	for {
		n, err := p.conn.Read(p.readBuf)
		res := classifyRead(n, err)
		switch {
		case res == ReadClosed:
			if p.cb.OnClosed != nil {
				p.cb.OnClosed()
			}
			return
		case res == ReadWouldBlock:
			return
		case res == ReadRetry:
			continue
		default:
			p.mu.Lock()
			p.lastRead = time.Now()
			p.mu.Unlock()
			p.met.TransportBytes("read", n)
			p.deliver(p.readBuf[:n])
			if n < p.wm.ReadMax {
				return
			}
		}
	}
}

// deliver chops data into ReadMax-sized callbacks, per spec §4.6's
// watermark rule.
func (p *Pump) deliver(data []byte) {
	for len(data) > 0 {
		chunk := data
		if len(chunk) > p.wm.ReadMax {
			chunk = chunk[:p.wm.ReadMax]
		}
		if p.cb.OnRead != nil {
			p.cb.OnRead(chunk)
		}
		data = data[len(chunk):]
	}
}

func classifyRead(n int, err error) ReadResult {
	if err == nil {
		if n == 0 {
			return ReadClosed
		}
		return ReadResult(n)
	}
	if isWouldBlock(err) {
		return ReadWouldBlock
	}
	if isRetryable(err) {
		return ReadRetry
	}
	return ReadClosed
}

// Write appends data to the outbound buffer and attempts an immediate
// drain.
func (p *Pump) Write(data []byte) {
	p.mu.Lock()
	p.outbox = append(p.outbox, data...)
	if p.isUDP {
		p.suspendReadForWrite = true
	}
	p.mu.Unlock()
	p.OnWritable()
}

// OnWritable must be called when the reactor signals the fd is writable.
// It drains the outbound buffer in WriteMax chunks, respecting WriteMin.
func (p *Pump) OnWritable() {
	for {
		p.mu.Lock()
		if len(p.outbox) == 0 {
			p.writing = false
			if p.isUDP {
				p.suspendReadForWrite = false
			}
			p.mu.Unlock()
			return
		}
		if len(p.outbox) < p.wm.WriteMin {
			p.mu.Unlock()
			if p.cb.OnReadyForMore != nil {
				p.cb.OnReadyForMore()
			}
			return
		}
		chunk := p.outbox
		if len(chunk) > p.wm.WriteMax {
			chunk = chunk[:p.wm.WriteMax]
		}
		p.writing = true
		p.mu.Unlock()

		n, err := p.conn.Write(chunk)
		if err != nil {
			if isWouldBlock(err) {
				return
			}
			if p.cb.OnError != nil {
				p.cb.OnError(err)
			}
			return
		}

		p.mu.Lock()
		p.outbox = p.outbox[n:]
		p.lastWrite = time.Now()
		p.mu.Unlock()
		p.met.TransportBytes("write", n)
	}
}

// CheckTimeouts fires the read-timeout / write-timeout sub-events if the
// configured idle durations have elapsed. Intended to be driven by a
// reactor timer item.
func (p *Pump) CheckTimeouts(now time.Time) {
	p.mu.Lock()
	readTO, writeTO := p.readTimeout, p.writeTimeout
	lastRead, lastWrite := p.lastRead, p.lastWrite
	p.mu.Unlock()

	if readTO > 0 && !lastRead.IsZero() && now.Sub(lastRead) > readTO {
		if p.cb.OnReadTimeout != nil {
			p.cb.OnReadTimeout()
		}
	}
	if writeTO > 0 && !lastWrite.IsZero() && now.Sub(lastWrite) > writeTO {
		if p.cb.OnWriteTimeout != nil {
			p.cb.OnWriteTimeout()
		}
	}
}

func isWouldBlock(err error) bool {
	if ne, ok := err.(net.Error); ok {
		return ne.Timeout()
	}
	return false
}

func isRetryable(err error) bool {
	return false
}
