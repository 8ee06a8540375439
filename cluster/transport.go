//go:build !windows

// File: cluster/transport.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Transport primitives backing the two Transfer modes: an AF_UNIX
// socketpair for TransferPipe (inherited across exec like the original's
// shared-memory-adjacent PIPE transfer), and a named unix-domain socket at
// /tmp/<name>_cluster_<pid>.sock for TransferIPC. Grounded on
// original_source/src/cluster/cluster.cpp's transfer_t::PIPE / transfer_t::IPC
// split, and on reactor/pipepair.go's cross-platform self-pipe idiom for the
// socketpair half.

package cluster

import (
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

const ipcSocketEnvVar = "CORENET_CLUSTER_SOCK"

// socketpair opens an AF_UNIX, SOCK_STREAM connected pair suitable for
// handing one end to a child process via exec.Cmd.ExtraFiles.
func socketpair() (parent, child *os.File, err error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("cluster: socketpair: %w", err)
	}
	parent = os.NewFile(uintptr(fds[0]), "cluster-pipe-parent")
	child = os.NewFile(uintptr(fds[1]), "cluster-pipe-child")
	return parent, child, nil
}

// newIPCListener opens the unix-domain socket a to-be-spawned worker dials
// back into, named after clusterName and this process's pid so multiple
// clusters on one host never collide.
func newIPCListener(clusterName string) (*net.UnixListener, string, error) {
	if clusterName == "" {
		clusterName = "corenet"
	}
	path := fmt.Sprintf("/tmp/%s_cluster_%d.sock", clusterName, os.Getpid())
	_ = os.Remove(path) // stale socket from a prior crashed run

	ln, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, "", fmt.Errorf("cluster: listen %s: %w", path, err)
	}
	return ln, path, nil
}
