// File: reactor/threadid.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Goroutine fingerprinting: Start records the goroutine running the loop as
// the reactor's owner, and Rebase refuses any other goroutine while the loop
// runs, per spec §4.2 "start() must execute on the
// owning thread (id() fingerprint)".

package reactor

import (
	"bytes"
	"runtime"
	"strconv"
)

// goroutineID extracts the numeric id Go prints at the head of a goroutine's
// stack trace. It is not a public Go API; this is the common idiom used
// when a component needs a cheap thread/goroutine fingerprint without
// carrying one explicitly through every call.
func goroutineID() uint64 {
	buf := make([]byte, 64)
	n := runtime.Stack(buf, false)
	buf = buf[:n]
	// Format: "goroutine 123 [running]: ..."
	buf = bytes.TrimPrefix(buf, []byte("goroutine "))
	if idx := bytes.IndexByte(buf, ' '); idx >= 0 {
		buf = buf[:idx]
	}
	id, _ := strconv.ParseUint(string(buf), 10, 64)
	return id
}
