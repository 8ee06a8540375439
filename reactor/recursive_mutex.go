// File: reactor/recursive_mutex.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A goroutine-aware recursive mutex. Go's sync.Mutex is not reentrant; the
// reactor's mutation API (Add/Del/Mode/Rebase/Freeze) must tolerate being
// called reentrantly from within a dispatched callback running on the
// owning goroutine, per spec §5 "Reactor state: guarded by one recursive
// mutex; readers and writers both acquire."

package reactor

import "sync"

type recursiveMutex struct {
	mu    sync.Mutex
	cond  *sync.Cond
	owner uint64
	count int
}

func newRecursiveMutex() *recursiveMutex {
	m := &recursiveMutex{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

func (m *recursiveMutex) Lock() {
	gid := goroutineID()
	m.mu.Lock()
	defer m.mu.Unlock()
	for m.owner != 0 && m.owner != gid {
		m.cond.Wait()
	}
	m.owner = gid
	m.count++
}

func (m *recursiveMutex) Unlock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count--
	if m.count < 0 {
		panic("reactor: recursiveMutex unlock without matching lock")
	}
	if m.count == 0 {
		m.owner = 0
		m.cond.Signal()
	}
}
