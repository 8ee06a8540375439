//go:build linux || darwin || freebsd || netbsd || openbsd
// +build linux darwin freebsd netbsd openbsd

package socket

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateSetOptionsClose(t *testing.T) {
	h, err := Create(FamilyIPv4, TypeTCP, 0)
	require.NoError(t, err)
	require.NotZero(t, h.FD)

	require.NoError(t, SetNonBlocking(h, true))
	require.NoError(t, SetReuseAddr(h, true))
	require.NoError(t, SetBufferSizes(h, 1<<16, 1<<16))
	require.NoError(t, SuppressSignals(h))

	sendBytes, recvBytes, err := BufferSizes(h)
	require.NoError(t, err)
	require.Greater(t, sendBytes, 0)
	require.Greater(t, recvBytes, 0)

	require.NoError(t, Close(h))
}

func TestCreateInvalidFamily(t *testing.T) {
	// still constructible; the OS will reject nonsensical protocol combos,
	// not this package, consistent with "no hidden retries".
	h, err := Create(FamilyUnix, TypeTCP, 0)
	if err == nil {
		require.NoError(t, Close(h))
	}
}
