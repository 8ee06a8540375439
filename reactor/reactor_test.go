//go:build linux || darwin || freebsd || netbsd || openbsd
// +build linux darwin freebsd netbsd openbsd

package reactor

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReactorFDReadDispatch(t *testing.T) {
	r, err := New(0, nil)
	require.NoError(t, err)
	defer r.Close()

	readFD, writeFD, err := newPipePair()
	require.NoError(t, err)
	defer closePipeFD(writeFD)
	require.NoError(t, setPipeNonBlocking(readFD, true))

	var mu sync.Mutex
	var gotRead bool
	done := make(chan struct{}, 1)

	_, err = r.Add(readFD, func(id EventID, fd int, kind Kind) {
		if kind == KindRead {
			mu.Lock()
			gotRead = true
			mu.Unlock()
			select {
			case done <- struct{}{}:
			default:
			}
		}
	}, 0, false)
	require.NoError(t, err)

	go func() {
		_ = r.Start()
	}()
	defer r.Stop()

	require.NoError(t, writePipeToken(writeFD, 42))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for read dispatch")
	}

	mu.Lock()
	defer mu.Unlock()
	require.True(t, gotRead)
}

func TestReactorTimerOneShot(t *testing.T) {
	r, err := New(0, nil)
	require.NoError(t, err)
	defer r.Close()

	fired := make(chan struct{}, 1)
	_, err = r.Add(-1, func(id EventID, fd int, kind Kind) {
		if kind == KindTimer {
			select {
			case fired <- struct{}{}:
			default:
			}
		}
	}, 20*time.Millisecond, false)
	require.NoError(t, err)

	go func() { _ = r.Start() }()
	defer r.Stop()

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
	}
}

func TestReactorUpstreamDelivery(t *testing.T) {
	r, err := New(0, nil)
	require.NoError(t, err)
	defer r.Close()

	got := make(chan uint64, 1)
	sid, err := r.EmplaceUpstream(func(token uint64) {
		select {
		case got <- token:
		default:
		}
	})
	require.NoError(t, err)

	go func() { _ = r.Start() }()
	defer r.Stop()

	require.NoError(t, r.LaunchUpstream(sid, 99))

	select {
	case tok := <-got:
		require.Equal(t, uint64(99), tok)
	case <-time.After(2 * time.Second):
		t.Fatal("upstream token never delivered")
	}
}

func TestReactorAddDuplicateFD(t *testing.T) {
	r, err := New(0, nil)
	require.NoError(t, err)
	defer r.Close()

	readFD, writeFD, err := newPipePair()
	require.NoError(t, err)
	defer closePipeFD(readFD)
	defer closePipeFD(writeFD)

	_, err = r.Add(readFD, func(EventID, int, Kind) {}, 0, false)
	require.NoError(t, err)

	_, err = r.Add(readFD, func(EventID, int, Kind) {}, 0, false)
	require.ErrorIs(t, err, ErrDuplicateFD)
}

func TestReactorLimitReached(t *testing.T) {
	r, err := New(1, nil)
	require.NoError(t, err)
	defer r.Close()

	fd1, wfd1, err := newPipePair()
	require.NoError(t, err)
	defer closePipeFD(fd1)
	defer closePipeFD(wfd1)

	_, err = r.Add(fd1, func(EventID, int, Kind) {}, 0, false)
	require.NoError(t, err)

	fd2, wfd2, err := newPipePair()
	require.NoError(t, err)
	defer closePipeFD(fd2)
	defer closePipeFD(wfd2)

	_, err = r.Add(fd2, func(EventID, int, Kind) {}, 0, false)
	require.ErrorIs(t, err, ErrLimitReached)
}
