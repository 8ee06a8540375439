// File: reactor/pipepair.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A pipePair is the lowest-level primitive shared by timer items (§4.2) and
// the Upstream channel (§4.4): "a pipe (two fds on POSIX; one loopback
// socket on Windows)". newPipePair is implemented per-OS in
// pipepair_unix.go / pipepair_windows.go.

package reactor

// newPipePair returns (readFD, writeFD) for a self-wake channel. The write
// end is safe to write from any goroutine/thread; the read end is intended
// to be registered with a single reactor's backend.
func newPipePair() (readFD, writeFD int, err error) {
	return platformPipePair()
}

func closePipeFD(fd int) error {
	return platformClosePipeFD(fd)
}

func writePipeToken(fd int, token uint64) error {
	return platformWritePipeToken(fd, token)
}

func readPipeTokens(fd int) ([]uint64, error) {
	return platformReadPipeTokens(fd)
}

func setPipeNonBlocking(fd int, nonBlocking bool) error {
	return platformSetPipeNonBlocking(fd, nonBlocking)
}
