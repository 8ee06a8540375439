// File: config/config_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 4096, cfg.Reactor.MaxItems)
	require.Equal(t, ":8443", cfg.Server.ListenAddr)
	require.Equal(t, 1, cfg.Cluster.Workers)
	require.Equal(t, "ipc", cfg.Cluster.Transfer)
	require.Equal(t, 180*time.Second, cfg.Cluster.YoungChildThreshold)
	require.Equal(t, "info", cfg.Logging.Level)
	require.True(t, cfg.Metrics.Enabled)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("CORENET_CLUSTER_WORKERS", "4")
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 4, cfg.Cluster.Workers)
}
