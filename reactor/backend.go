// File: reactor/backend.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The platform-specific multiplexer backends (epoll/kqueue/WSAPoll) all
// implement this narrow interface; reactor.go contains the shared
// dispatch loop and item bookkeeping.

package reactor

// Kind is a bitmask of the four event kinds a monitored item can enable,
// per spec §3 "a mapping from event kind ({READ, WRITE, CLOSE, TIMER}) to
// enablement state".
type Kind uint8

const (
	KindRead Kind = 1 << iota
	KindWrite
	KindClose
	KindTimer
)

func (k Kind) has(f Kind) bool { return k&f != 0 }

// ready is one readiness notification surfaced by a backend's Wait call.
type ready struct {
	fd    int
	kinds Kind // READ/WRITE/CLOSE/ERROR folded into CLOSE per dispatch rule
}

// backend is the narrow contract a platform multiplexer must satisfy.
type backend interface {
	// open initializes the OS-level multiplexer (one epoll/kqueue fd).
	open() error
	// add registers fd for the given interest set.
	add(fd int, want Kind) error
	// modify updates fd's interest set in place.
	modify(fd int, want Kind) error
	// remove unregisters fd.
	remove(fd int) error
	// wait blocks up to timeoutMS (< 0 = forever) and appends ready
	// notifications to out, returning the number appended.
	wait(timeoutMS int, out []ready) (int, error)
	// close releases the OS-level multiplexer.
	close() error
}
