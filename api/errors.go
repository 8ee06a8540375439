// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for the core networking
// library. The typed Error is returned by the reactor and internal/socket
// packages; the HTTP/2 engine, transfer controller, client and cluster
// return their own plain sentinel errors instead.

package api

import "fmt"

// ErrorKind classifies a failure into one of the categories from the
// error-handling design: Configuration, Protocol, Transport, ResourceLimit,
// Lifecycle.
type ErrorKind int

const (
	// KindUnknown is the zero value; never returned intentionally.
	KindUnknown ErrorKind = iota
	// KindConfiguration covers invalid SETTINGS, missing TLS material,
	// empty ORIGIN lists passed to an ORIGIN call, and similar setup errors.
	KindConfiguration
	// KindProtocol covers HTTP/2 protocol errors mapped onto the wire
	// error-code taxonomy.
	KindProtocol
	// KindTransport covers socket I/O failures: would-block, closed,
	// system error.
	KindTransport
	// KindResourceLimit covers reactor capacity and similar bounded
	// resource exhaustion.
	KindResourceLimit
	// KindLifecycle covers recursive close, close-on-wrong-thread, and
	// close-during-in-progress-event conditions.
	KindLifecycle
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindProtocol:
		return "protocol"
	case KindTransport:
		return "transport"
	case KindResourceLimit:
		return "resource_limit"
	case KindLifecycle:
		return "lifecycle"
	default:
		return "unknown"
	}
}

// Error is the structured error type returned by the reactor and
// internal/socket packages. It wraps an optional underlying cause and carries enough
// context (Kind, Op, a short message) for a caller's logger to render a
// useful message without the core prescribing a log format.
type Error struct {
	Kind ErrorKind
	Op   string // the operation that failed, e.g. "reactor.Add", "h2.SendData"
	Msg  string
	Err  error // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Kind, e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Op, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is supports errors.Is comparisons by Kind when the target is itself an
// *Error with no Op/Msg/Err set (a sentinel-by-kind comparison).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Msg == "" && t.Err == nil
}

// NewError constructs a structured Error.
func NewError(kind ErrorKind, op, msg string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg, Err: cause}
}

// Sentinel kind-only errors for use with errors.Is(err, api.ErrConfigurationKind).
var (
	ErrConfigurationKind = &Error{Kind: KindConfiguration}
	ErrProtocolKind      = &Error{Kind: KindProtocol}
	ErrTransportKind     = &Error{Kind: KindTransport}
	ErrResourceLimitKind = &Error{Kind: KindResourceLimit}
	ErrLifecycleKind     = &Error{Kind: KindLifecycle}
)

// Common sentinel errors used across the library, preserved from the
// teacher's flat error set for call sites that do not need full Kind
// context (buffer pool exhaustion, transport already closed, ...).
var (
	ErrTransportClosed   = fmt.Errorf("transport is closed")
	ErrBufferPoolClosed  = fmt.Errorf("buffer pool is closed")
	ErrInvalidArgument   = fmt.Errorf("invalid argument")
	ErrResourceExhausted = fmt.Errorf("resource exhausted")
	ErrOperationTimeout  = fmt.Errorf("operation timeout")
	ErrNotSupported      = fmt.Errorf("operation not supported")
	ErrAlreadyExists     = fmt.Errorf("resource already exists")
	ErrNotFound          = fmt.Errorf("resource not found")
	// ErrWouldBlock signals a non-blocking operation has no data/space
	// available right now; the caller should rearm and wait for readiness.
	ErrWouldBlock = fmt.Errorf("would block")
	// ErrRetry signals the underlying collaborator (typically a TLS engine
	// mid-renegotiation) wants an immediate retry without rearming
	// readiness — distinct from ErrWouldBlock per the open question on
	// the transfer controller's -1/-2 codes (see DESIGN.md).
	ErrRetry = fmt.Errorf("retry immediately")
)
