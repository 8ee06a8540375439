//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd && !windows
// +build !linux,!darwin,!freebsd,!netbsd,!openbsd,!windows

// File: reactor/reactor_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Fallback for platforms with no supported multiplexer backend.

package reactor

import "errors"

// ErrUnsupportedPlatform is returned by New on a platform with no
// epoll/kqueue/WSAPoll backend.
var ErrUnsupportedPlatform = errors.New("reactor: unsupported platform")

type stubBackend struct{}

func newBackend() (backend, error) {
	return nil, ErrUnsupportedPlatform
}

func (stubBackend) open() error                             { return ErrUnsupportedPlatform }
func (stubBackend) add(int, Kind) error                      { return ErrUnsupportedPlatform }
func (stubBackend) modify(int, Kind) error                   { return ErrUnsupportedPlatform }
func (stubBackend) remove(int) error                         { return ErrUnsupportedPlatform }
func (stubBackend) wait(int, []ready) (int, error)           { return 0, ErrUnsupportedPlatform }
func (stubBackend) close() error                             { return ErrUnsupportedPlatform }
