package reactor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRecursiveMutexReentrant(t *testing.T) {
	m := newRecursiveMutex()
	m.Lock()
	m.Lock()
	m.Lock()
	m.Unlock()
	m.Unlock()
	m.Unlock()
}

func TestRecursiveMutexBlocksOtherGoroutine(t *testing.T) {
	m := newRecursiveMutex()
	m.Lock()

	acquired := make(chan struct{})
	go func() {
		m.Lock()
		close(acquired)
		m.Unlock()
	}()

	select {
	case <-acquired:
		t.Fatal("second goroutine acquired lock while held")
	case <-time.After(50 * time.Millisecond):
	}

	m.Unlock()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second goroutine never acquired lock")
	}
}

func TestRecursiveMutexUnlockPanicsOnImbalance(t *testing.T) {
	m := newRecursiveMutex()
	require.Panics(t, func() { m.Unlock() })
}
