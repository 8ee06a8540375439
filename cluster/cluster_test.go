//go:build !windows

// File: cluster/cluster_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package cluster

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseWorkerID(t *testing.T) {
	id, err := parseWorkerID("42")
	require.NoError(t, err)
	require.Equal(t, uint16(42), id)

	_, err = parseWorkerID("not-a-number")
	require.Error(t, err)
}

func TestIsWorkerFalseWithoutEnv(t *testing.T) {
	os.Unsetenv(WorkerEnvVar)
	_, ok := IsWorker()
	require.False(t, ok)
}

func TestIsWorkerTrueWithEnv(t *testing.T) {
	t.Setenv(WorkerEnvVar, "7")
	id, ok := IsWorker()
	require.True(t, ok)
	require.Equal(t, uint16(7), id)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, 1, cfg.Workers)
	require.True(t, cfg.AutoRestart)
	require.Equal(t, TransferIPC, cfg.Transfer)
}

func TestNewClusterRejectsZeroWorkers(t *testing.T) {
	c := New(Config{Workers: 0}, Callbacks{}, nil)
	require.Equal(t, 1, c.cfg.Workers)
}
