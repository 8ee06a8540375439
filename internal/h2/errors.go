// File: internal/h2/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The error taxonomy of spec §4.5, mapped one-to-one onto the HTTP/2 error
// code space (RFC 7540 §7). Kept as a closed enum rather than re-exporting
// golang.org/x/net/http2's own (unexported) constants, so the close
// callback and the wire GOAWAY/RST_STREAM code agree by construction.

package h2

// ErrorCode is a closed enum of HTTP/2 stream/connection error codes.
type ErrorCode uint32

const (
	ErrCodeNo                 ErrorCode = 0x0
	ErrCodeProtocol           ErrorCode = 0x1
	ErrCodeInternal           ErrorCode = 0x2
	ErrCodeFlowControl        ErrorCode = 0x3
	ErrCodeSettingsTimeout    ErrorCode = 0x4
	ErrCodeStreamClosed       ErrorCode = 0x5
	ErrCodeFrameSize          ErrorCode = 0x6
	ErrCodeRefusedStream      ErrorCode = 0x7
	ErrCodeCancel             ErrorCode = 0x8
	ErrCodeCompression        ErrorCode = 0x9
	ErrCodeConnect            ErrorCode = 0xa
	ErrCodeEnhanceYourCalm    ErrorCode = 0xb
	ErrCodeInadequateSecurity ErrorCode = 0xc
	ErrCodeHTTP11Required     ErrorCode = 0xd
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeNo:
		return "NO_ERROR"
	case ErrCodeProtocol:
		return "PROTOCOL_ERROR"
	case ErrCodeInternal:
		return "INTERNAL_ERROR"
	case ErrCodeFlowControl:
		return "FLOW_CONTROL_ERROR"
	case ErrCodeSettingsTimeout:
		return "SETTINGS_TIMEOUT"
	case ErrCodeStreamClosed:
		return "STREAM_CLOSED"
	case ErrCodeFrameSize:
		return "FRAME_SIZE_ERROR"
	case ErrCodeRefusedStream:
		return "REFUSED_STREAM"
	case ErrCodeCancel:
		return "CANCEL"
	case ErrCodeCompression:
		return "COMPRESSION_ERROR"
	case ErrCodeConnect:
		return "CONNECT_ERROR"
	case ErrCodeEnhanceYourCalm:
		return "ENHANCE_YOUR_CALM"
	case ErrCodeInadequateSecurity:
		return "INADEQUATE_SECURITY"
	case ErrCodeHTTP11Required:
		return "HTTP_1_1_REQUIRED"
	default:
		return "UNKNOWN_ERROR"
	}
}

// Severity classifies an error for the logging-oriented error callback.
type Severity uint8

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

// Error carries a protocol error alongside its severity/category/message,
// the payload of the error callback in spec §4.5 "callback(registry)".
type Error struct {
	Code     ErrorCode
	Severity Severity
	Category string
	Message  string
	StreamID uint32
}

func (e *Error) Error() string {
	return e.Category + ": " + e.Message
}

// StreamError describes a single-stream reset. Session does not construct
// one: Session.Reject and peer RST_STREAM frames report the reset through
// the OnStreamClose callback.
type StreamError struct {
	StreamID uint32
	Code     ErrorCode
}

func (e *StreamError) Error() string {
	return "h2: stream " + itoa(e.StreamID) + " reset: " + e.Code.String()
}

// ConnectionError describes a session-level error of the kind a GOAWAY
// carries. Session does not construct one: a received GOAWAY is reported
// through the OnError callback.
type ConnectionError struct {
	LastStreamID uint32
	Code         ErrorCode
	Debug        []byte
}

func (e *ConnectionError) Error() string {
	return "h2: connection error: " + e.Code.String()
}

func itoa(v uint32) string {
	if v == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
