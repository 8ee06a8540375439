//go:build !windows

// File: cluster/cluster.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Cluster is component H of spec §6: a multi-process worker pool. The
// master process re-execs itself N times (Go has no fork() safe for a
// multi-threaded runtime, so "fork" here means spawn-via-exec carrying a
// worker identity in the environment, the idiomatic Go preforking pattern),
// reaps children via SIGCHLD, autorestarts young deaths with backoff, and
// exchanges length-prefixed frames with every worker over a transport
// selected per Config.Transfer. Grounded on original_source/src/cluster/
// cluster.cpp's fork/reap/broker bookkeeping, reshaped into Go idiom (no
// fork(2), no raw signal-handler-side bookkeeping).

package cluster

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/momentics/corenet/logging"
	"github.com/momentics/corenet/metrics"
)

// Transfer selects the IPC mechanism used between master and workers.
type Transfer uint8

const (
	// TransferPipe uses an inherited socketpair fd (AF_UNIX, SOCK_STREAM)
	// passed to the child via exec.Cmd.ExtraFiles.
	TransferPipe Transfer = iota
	// TransferIPC uses a named unix-domain socket the child dials back
	// into after start.
	TransferIPC
)

// WorkerEnvVar is set in a spawned worker's environment to its assigned id;
// the worker process checks it at startup to decide it is not the master.
const WorkerEnvVar = "CORENET_CLUSTER_WORKER_ID"

var (
	// ErrNotMaster is returned by master-only operations when called from
	// a worker process.
	ErrNotMaster = errors.New("cluster: not the master process")
	// ErrUnknownWorker is returned when a worker id has no broker entry.
	ErrUnknownWorker = errors.New("cluster: unknown worker id")
	// ErrAlreadyRunning is returned by Start when the cluster is already
	// active.
	ErrAlreadyRunning = errors.New("cluster: already running")
)

// Config configures a Cluster's topology.
type Config struct {
	// Name identifies this cluster in the IPC socket path and logs.
	Name string
	// Workers is the number of child processes the master spawns.
	Workers int
	// Transfer selects the IPC transport.
	Transfer Transfer
	// AutoRestart respawns a worker that exits; YoungChildThreshold draws
	// the line between a crash-looping young worker (backed off) and a
	// worker that served for a while before exiting (restarted immediately).
	AutoRestart               bool
	YoungChildThreshold       time.Duration
	RestartBackoff            time.Duration
	MaxConsecutiveYoungDeaths int
}

// DefaultConfig returns spec §6's defaults.
func DefaultConfig() Config {
	return Config{
		Workers:                   1,
		Transfer:                  TransferIPC,
		AutoRestart:               true,
		YoungChildThreshold:       180 * time.Second,
		RestartBackoff:            time.Second,
		MaxConsecutiveYoungDeaths: 5,
	}
}

// Callbacks receives cluster lifecycle notifications.
type Callbacks struct {
	// OnMessage delivers one decoded frame from workerID.
	OnMessage func(workerID uint16, payload []byte)
	// OnWorkerExit fires after a worker process exits, before any
	// autorestart decision is acted on.
	OnWorkerExit func(workerID uint16, err error)
	// OnWorkerStart fires once a worker's transport is ready.
	OnWorkerStart func(workerID uint16, pid int)
}

// Cluster manages the master side of a worker pool. A Cluster constructed
// inside a spawned worker process (IsWorker() true) spawns no children:
// Start returns ErrNotMaster. Worker-side messaging goes through the
// Encoder/Decoder returned by RunWorker, not through a Cluster.
type Cluster struct {
	mu  sync.Mutex
	cfg Config
	log logging.Logger
	cb  Callbacks
	met metrics.Recorder

	brokers map[uint16]*broker
	nextID  uint16

	running  bool
	stopCh   chan struct{}
	reapDone chan struct{}

	selfBinary string
}

// New constructs a Cluster master. log may be nil (NoOp).
func New(cfg Config, cb Callbacks, log logging.Logger) *Cluster {
	if log == nil {
		log = logging.NoOp()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Cluster{
		cfg:     cfg,
		log:     log,
		cb:      cb,
		met:     metrics.NoOp(),
		brokers: make(map[uint16]*broker),
	}
}

// SetMetrics attaches a Recorder observing worker restarts and the live
// worker-count gauge.
func (c *Cluster) SetMetrics(m metrics.Recorder) {
	if m == nil {
		m = metrics.NoOp()
	}
	c.mu.Lock()
	c.met = m
	c.met.ClusterWorkers(len(c.brokers))
	c.mu.Unlock()
}

// IsWorker reports whether the current process was spawned as a cluster
// worker (i.e. WorkerEnvVar is set in its environment).
func IsWorker() (uint16, bool) {
	v := os.Getenv(WorkerEnvVar)
	if v == "" {
		return 0, false
	}
	id, err := parseWorkerID(v)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Start spawns cfg.Workers children and begins reaping them. Start is a
// master-only operation: calling it from a process where IsWorker() is
// true returns ErrNotMaster.
func (c *Cluster) Start(ctx context.Context) error {
	if _, isWorker := IsWorker(); isWorker {
		return ErrNotMaster
	}

	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	c.running = true
	c.stopCh = make(chan struct{})
	c.reapDone = make(chan struct{})
	c.mu.Unlock()

	self, err := os.Executable()
	if err != nil {
		return err
	}
	c.selfBinary = self

	for i := 0; i < c.cfg.Workers; i++ {
		if _, err := c.spawn(0); err != nil {
			c.log.Errorf("cluster: spawn worker %d failed: %v", i, err)
		}
	}

	go c.reapLoop(ctx)
	return nil
}

// Stop signals every worker to exit and stops reaping.
func (c *Cluster) Stop() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = false
	ids := make([]uint16, 0, len(c.brokers))
	for id := range c.brokers {
		ids = append(ids, id)
	}
	stopCh := c.stopCh
	c.mu.Unlock()

	for _, id := range ids {
		_ = c.erase(id, true)
	}
	close(stopCh)
	<-c.reapDone
	return nil
}

// Broadcast encodes payload as a GENERAL frame and writes it to every live
// worker. Per-worker errors are logged, not returned, matching the
// fire-and-forget broadcast of spec §6.
func (c *Cluster) Broadcast(payload []byte) {
	c.mu.Lock()
	brokers := make([]*broker, 0, len(c.brokers))
	for _, b := range c.brokers {
		brokers = append(brokers, b)
	}
	c.mu.Unlock()

	for _, b := range brokers {
		if err := b.send(MessageGeneral, payload); err != nil {
			c.log.Warnf("cluster: broadcast to worker %d failed: %v", b.id, err)
		}
	}
}

// Send delivers payload to one worker.
func (c *Cluster) Send(workerID uint16, payload []byte) error {
	c.mu.Lock()
	b, ok := c.brokers[workerID]
	c.mu.Unlock()
	if !ok {
		return ErrUnknownWorker
	}
	return b.send(MessageGeneral, payload)
}

// Erase terminates and removes one worker without restarting it.
func (c *Cluster) Erase(workerID uint16) error {
	return c.erase(workerID, true)
}

func (c *Cluster) erase(workerID uint16, kill bool) error {
	c.mu.Lock()
	b, ok := c.brokers[workerID]
	delete(c.brokers, workerID)
	c.met.ClusterWorkers(len(c.brokers))
	c.mu.Unlock()
	if !ok {
		return ErrUnknownWorker
	}
	if kill && b.cmd.Process != nil {
		_ = b.cmd.Process.Signal(syscall.SIGTERM)
	}
	return b.close()
}

func (c *Cluster) spawn(youngDeaths int) (*broker, error) {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.mu.Unlock()

	b, err := spawnWorker(id, c.selfBinary, c.cfg.Transfer, c.cfg.Name)
	if err != nil {
		return nil, err
	}
	b.consecutiveYoungDeaths = youngDeaths

	c.mu.Lock()
	c.brokers[id] = b
	c.met.ClusterWorkers(len(c.brokers))
	c.mu.Unlock()

	if c.cb.OnWorkerStart != nil {
		c.cb.OnWorkerStart(id, b.cmd.Process.Pid)
	}
	go c.recvLoop(b)
	return b, nil
}

func (c *Cluster) recvLoop(b *broker) {
	for {
		mt, payload, err := b.recv()
		if err != nil {
			c.handleWorkerExit(b, err)
			return
		}
		if mt == MessageGeneral && c.cb.OnMessage != nil {
			c.cb.OnMessage(b.id, payload)
		}
	}
}

func (c *Cluster) handleWorkerExit(b *broker, err error) {
	if c.cb.OnWorkerExit != nil {
		c.cb.OnWorkerExit(b.id, err)
	}

	c.mu.Lock()
	running := c.running
	_, registered := c.brokers[b.id] // false once Erase/Stop removed it
	delete(c.brokers, b.id)
	c.met.ClusterWorkers(len(c.brokers))
	c.mu.Unlock()
	_ = b.close()

	if !running || !registered || !c.cfg.AutoRestart {
		return
	}

	young := time.Since(b.startedAt) < c.cfg.YoungChildThreshold
	youngDeaths := 0
	if young {
		b.consecutiveYoungDeaths++
		youngDeaths = b.consecutiveYoungDeaths
		if b.consecutiveYoungDeaths > c.cfg.MaxConsecutiveYoungDeaths {
			c.log.Errorf("cluster: worker %d crash-looping, giving up", b.id)
			return
		}
		time.Sleep(c.cfg.RestartBackoff)
	}
	c.met.ClusterWorkerRestart(b.id)
	if _, err := c.spawn(youngDeaths); err != nil {
		c.log.Errorf("cluster: restart of worker %d failed: %v", b.id, err)
	}
}

// reapLoop waits for SIGCHLD and reaps zombie children without blocking the
// master on any single worker's exit.
func (c *Cluster) reapLoop(ctx context.Context) {
	defer close(c.reapDone)

	sigCh := make(chan os.Signal, 16)
	signal.Notify(sigCh, syscall.SIGCHLD)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-c.stopCh:
			return
		case <-ctx.Done():
			return
		case <-sigCh:
			for {
				var status syscall.WaitStatus
				pid, err := syscall.Wait4(-1, &status, syscall.WNOHANG, nil)
				if err != nil || pid <= 0 {
					break
				}
			}
		}
	}
}

func parseWorkerID(s string) (uint16, error) {
	var id uint64
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, errors.New("cluster: invalid worker id")
		}
		id = id*10 + uint64(r-'0')
	}
	return uint16(id), nil
}
