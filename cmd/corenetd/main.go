// File: cmd/corenetd/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// corenetd is the thin example binary demonstrating how the components
// wire together: config loads a typed tree, logging/metrics are built from
// it, the worker cluster (on POSIX) re-execs this same binary per worker,
// and each worker runs the HTTP/1.1 + HTTP/2 server over internal/h2 +
// transport.Pump.

package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/momentics/corenet/cluster"
	"github.com/momentics/corenet/config"
	"github.com/momentics/corenet/logging"
	"github.com/momentics/corenet/metrics"
	"github.com/momentics/corenet/server"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (yaml/toml/json); env CORENET_* always applies")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		os.Stderr.WriteString("corenetd: config load failed: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logging.New(cfg.Logging.Level, os.Stderr)

	var rec metrics.Recorder = metrics.NoOp()
	if cfg.Metrics.Enabled {
		prom := metrics.NewPrometheusRecorder(cfg.Metrics.Namespace)
		rec = prom
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", prom.Handler())
			if err := http.ListenAndServe(cfg.Metrics.ListenAddr, mux); err != nil {
				log.Warnf("corenetd: metrics listener stopped: %v", err)
			}
		}()
	}

	if workerID, isWorker := cluster.IsWorker(); isWorker {
		runWorker(workerID, cfg, log, rec)
		return
	}
	runMaster(cfg, log, rec)
}

func runMaster(cfg *config.Config, log logging.Logger, rec metrics.Recorder) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Cluster.Workers > 0 {
		cl := cluster.New(clusterConfig(cfg), cluster.Callbacks{
			OnWorkerStart: func(id uint16, pid int) { log.Infof("corenetd: worker %d started (pid %d)", id, pid) },
			OnWorkerExit:  func(id uint16, err error) { log.Warnf("corenetd: worker %d exited: %v", id, err) },
		}, log)
		cl.SetMetrics(rec)
		if err := cl.Start(ctx); err != nil {
			log.Errorf("corenetd: cluster start failed: %v", err)
			os.Exit(1)
		}
		<-ctx.Done()
		_ = cl.Stop()
		return
	}

	runServer(ctx, cfg, log, rec)
}

func runWorker(workerID uint16, cfg *config.Config, log logging.Logger, rec metrics.Recorder) {
	log = log.WithField("worker_id", workerID)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	runServer(ctx, cfg, log, rec)
}

func runServer(ctx context.Context, cfg *config.Config, log logging.Logger, rec metrics.Recorder) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("corenet\n"))
	})

	srv := server.New(server.Config{
		Addr:    cfg.Server.ListenAddr,
		Handler: handler,
		Logger:  log,
		Metrics: rec,
	})

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	log.Infof("corenetd: listening on %s", cfg.Server.ListenAddr)
	if err := srv.ListenAndServe(); err != nil {
		log.Errorf("corenetd: server stopped: %v", err)
	}
}

func clusterConfig(cfg *config.Config) cluster.Config {
	transfer := cluster.TransferIPC
	if cfg.Cluster.Transfer == "pipe" {
		transfer = cluster.TransferPipe
	}
	return cluster.Config{
		Name:                      cfg.Cluster.Name,
		Workers:                   cfg.Cluster.Workers,
		Transfer:                  transfer,
		AutoRestart:               cfg.Cluster.AutoRestart,
		YoungChildThreshold:       cfg.Cluster.YoungChildThreshold,
		RestartBackoff:            cfg.Cluster.RestartBackoff,
		MaxConsecutiveYoungDeaths: cfg.Cluster.MaxConsecutiveYoungDeaths,
	}
}
