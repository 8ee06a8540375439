// File: internal/h2/frame.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Wire-level frame types and flags (RFC 7540 §6), numerically aligned with
// golang.org/x/net/http2's unexported constants but re-declared locally so
// this package owns its own wire contract rather than depending on that
// package's frame reader/writer internals; HPACK itself is still reused
// from golang.org/x/net/http2/hpack (see hpack.go).

package h2

const frameHeaderLen = 9

// FrameType is the one-byte RFC 7540 §6 frame type.
type FrameType uint8

const (
	FrameData         FrameType = 0x0
	FrameHeaders      FrameType = 0x1
	FramePriority     FrameType = 0x2
	FrameRSTStream    FrameType = 0x3
	FrameSettings     FrameType = 0x4
	FramePushPromise  FrameType = 0x5
	FramePing         FrameType = 0x6
	FrameGoAway       FrameType = 0x7
	FrameWindowUpdate FrameType = 0x8
	FrameContinuation FrameType = 0x9
	FrameOrigin       FrameType = 0xc // RFC 8336
	FrameAltSvc       FrameType = 0xa // RFC 7838
)

// String names a FrameType for metrics/logging labels.
func (t FrameType) String() string {
	switch t {
	case FrameData:
		return "data"
	case FrameHeaders:
		return "headers"
	case FramePriority:
		return "priority"
	case FrameRSTStream:
		return "rst_stream"
	case FrameSettings:
		return "settings"
	case FramePushPromise:
		return "push_promise"
	case FramePing:
		return "ping"
	case FrameGoAway:
		return "goaway"
	case FrameWindowUpdate:
		return "window_update"
	case FrameContinuation:
		return "continuation"
	case FrameOrigin:
		return "origin"
	case FrameAltSvc:
		return "altsvc"
	default:
		return "unknown"
	}
}

// Flag is a frame-type-relative bit; meaning depends on FrameType.
type Flag uint8

const (
	FlagEndStream  Flag = 0x1
	FlagAck        Flag = 0x1
	FlagEndHeaders Flag = 0x4
	FlagPadded     Flag = 0x8
	FlagPriority   Flag = 0x20
)

func (f Flag) Has(o Flag) bool { return f&o != 0 }

// Setting is the closed enum of spec §4.5 "settings is a mapping from a
// closed enum ... to 32-bit values".
type Setting uint16

const (
	SettingHeaderTableSize      Setting = 0x1
	SettingEnablePush           Setting = 0x2
	SettingMaxConcurrentStreams Setting = 0x3
	SettingInitialWindowSize    Setting = 0x4
	SettingMaxFrameSize         Setting = 0x5
	SettingMaxHeaderListSize    Setting = 0x6
	SettingEnableConnect        Setting = 0x8
	SettingEnableAltSvc         Setting = 0x9 // vendor extension bit, ACK-gated locally
	SettingEnableOrigin         Setting = 0xa // vendor extension bit, ACK-gated locally
)

// frameHeader is the common 9-byte prefix of every frame.
type frameHeader struct {
	Length   uint32 // 24 bits on the wire
	Type     FrameType
	Flags    Flag
	StreamID uint32 // 31 bits on the wire, high bit reserved
}

func writeFrameHeader(buf []byte, h frameHeader) {
	buf[0] = byte(h.Length >> 16)
	buf[1] = byte(h.Length >> 8)
	buf[2] = byte(h.Length)
	buf[3] = byte(h.Type)
	buf[4] = byte(h.Flags)
	buf[5] = byte(h.StreamID >> 24)
	buf[6] = byte(h.StreamID >> 16)
	buf[7] = byte(h.StreamID >> 8)
	buf[8] = byte(h.StreamID)
}

func readFrameHeader(buf []byte) frameHeader {
	raw := uint32(buf[5])<<24 | uint32(buf[6])<<16 | uint32(buf[7])<<8 | uint32(buf[8])
	return frameHeader{
		Length:   uint32(buf[0])<<16 | uint32(buf[1])<<8 | uint32(buf[2]),
		Type:     FrameType(buf[3]),
		Flags:    Flag(buf[4]),
		StreamID: raw & 0x7fffffff,
	}
}

// defaultSettings mirrors RFC 7540's initial values, except that
// MaxConcurrentStreams (100) and MaxHeaderListSize (1 MiB), which the RFC
// leaves unlimited, are given finite defaults.
func defaultSettings() map[Setting]uint32 {
	return map[Setting]uint32{
		SettingHeaderTableSize:      4096,
		SettingEnablePush:           1,
		SettingMaxConcurrentStreams: 100,
		SettingInitialWindowSize:    65535,
		SettingMaxFrameSize:         16384,
		SettingMaxHeaderListSize:    1 << 20,
	}
}
