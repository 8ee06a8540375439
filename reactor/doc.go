// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor implements the OS-portable I/O event reactor: components
// B (event reactor), C (event wrapper) and D (upstream channel) of the
// core. One Reactor multiplexes readiness events over epoll (Linux),
// kqueue (BSD/macOS) or WSAPoll (Windows) on exactly one owning goroutine,
// plus timers realized as self-pipes and cross-thread wake-ups realized as
// Upstream channels.
package reactor
