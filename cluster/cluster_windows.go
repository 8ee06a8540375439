//go:build windows

// File: cluster/cluster_windows.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The fork/reap multi-process worker pool has no Windows implementation,
// matching original_source/src/cluster/cluster.cpp's own
// "#if !defined(_WIN32) && !defined(_WIN64)" split: the original never
// offered a process-pool cluster on Windows either. Framing (framing.go)
// remains cross-platform; only process spawning/reaping is unsupported
// here.

package cluster

import (
	"context"
	"errors"
	"time"

	"github.com/momentics/corenet/logging"
	"github.com/momentics/corenet/metrics"
)

// ErrUnsupportedPlatform is returned by every error-returning Cluster
// operation on Windows.
var ErrUnsupportedPlatform = errors.New("cluster: multi-process pool not supported on windows")

type Transfer uint8

const (
	TransferPipe Transfer = iota
	TransferIPC
)

const WorkerEnvVar = "CORENET_CLUSTER_WORKER_ID"

var (
	ErrNotMaster     = ErrUnsupportedPlatform
	ErrUnknownWorker = ErrUnsupportedPlatform
	ErrAlreadyRunning = ErrUnsupportedPlatform
)

type Config struct {
	Name                      string
	Workers                   int
	Transfer                  Transfer
	AutoRestart               bool
	YoungChildThreshold       time.Duration
	RestartBackoff            time.Duration
	MaxConsecutiveYoungDeaths int
}

func DefaultConfig() Config { return Config{Workers: 1} }

type Callbacks struct {
	OnMessage     func(workerID uint16, payload []byte)
	OnWorkerExit  func(workerID uint16, err error)
	OnWorkerStart func(workerID uint16, pid int)
}

// Cluster is a stub on windows; every method that returns an error returns
// ErrUnsupportedPlatform, and Broadcast and SetMetrics do nothing.
type Cluster struct{}

func New(cfg Config, cb Callbacks, log logging.Logger) *Cluster { return &Cluster{} }

func IsWorker() (uint16, bool) { return 0, false }

func (c *Cluster) Start(ctx context.Context) error       { return ErrUnsupportedPlatform }
func (c *Cluster) Stop() error                           { return ErrUnsupportedPlatform }
func (c *Cluster) Broadcast(payload []byte)              {}
func (c *Cluster) Send(workerID uint16, payload []byte) error {
	return ErrUnsupportedPlatform
}
func (c *Cluster) Erase(workerID uint16) error { return ErrUnsupportedPlatform }
func (c *Cluster) SetMetrics(m metrics.Recorder) {}
