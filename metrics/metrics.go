// File: metrics/metrics.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Recorder is the narrow metrics surface every component calls into:
// reactor dispatch counts, transfer-controller byte counters, HTTP/2 frame
// counters, and cluster worker lifecycle events. Grounded on the ambient
// logging package's Logger-as-narrow-interface shape (logging/logging.go),
// backed by github.com/prometheus/client_golang.

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is implemented by PrometheusRecorder and NoOp. Components never
// call through a nil Recorder: each SetMetrics replaces nil with NoOp(), and
// components default to NoOp() when none is configured.
type Recorder interface {
	// ReactorDispatch counts one callback dispatch of the given kind
	// ("read", "write", "close", "timer").
	ReactorDispatch(kind string)
	// ReactorItems sets the current monitored-item gauge.
	ReactorItems(n int)
	// TransportBytes counts bytes moved by a Pump in the given direction
	// ("read" or "write").
	TransportBytes(direction string, n int)
	// H2Frame counts one HTTP/2 frame of frameType sent or received
	// ("send" or "recv").
	H2Frame(frameType, direction string)
	// ClusterWorkerRestart counts one autorestart of workerID.
	ClusterWorkerRestart(workerID uint16)
	// ClusterWorkers sets the current live-worker gauge.
	ClusterWorkers(n int)
}

// PrometheusRecorder implements Recorder against its own prometheus
// registry so multiple Clusters/Reactors in one process (e.g. under test)
// never collide on global default-registry registration.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	reactorDispatch *prometheus.CounterVec
	reactorItems    prometheus.Gauge
	transportBytes  *prometheus.CounterVec
	h2Frames        *prometheus.CounterVec
	clusterRestarts *prometheus.CounterVec
	clusterWorkers  prometheus.Gauge
}

// NewPrometheusRecorder constructs a Recorder with all series registered
// under namespace (e.g. "corenet").
func NewPrometheusRecorder(namespace string) *PrometheusRecorder {
	reg := prometheus.NewRegistry()
	r := &PrometheusRecorder{
		registry: reg,
		reactorDispatch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "reactor", Name: "dispatch_total",
			Help: "Total reactor callback dispatches by kind.",
		}, []string{"kind"}),
		reactorItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "reactor", Name: "items",
			Help: "Current number of monitored reactor items.",
		}),
		transportBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "transport", Name: "bytes_total",
			Help: "Total bytes moved by transfer-controller pumps by direction.",
		}, []string{"direction"}),
		h2Frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http2", Name: "frames_total",
			Help: "Total HTTP/2 frames by type and direction.",
		}, []string{"type", "direction"}),
		clusterRestarts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cluster", Name: "worker_restarts_total",
			Help: "Total worker autorestarts by worker id.",
		}, []string{"worker_id"}),
		clusterWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "cluster", Name: "workers",
			Help: "Current number of live cluster workers.",
		}),
	}
	reg.MustRegister(
		r.reactorDispatch, r.reactorItems, r.transportBytes,
		r.h2Frames, r.clusterRestarts, r.clusterWorkers,
	)
	return r
}

func (r *PrometheusRecorder) ReactorDispatch(kind string) {
	r.reactorDispatch.WithLabelValues(kind).Inc()
}

func (r *PrometheusRecorder) ReactorItems(n int) {
	r.reactorItems.Set(float64(n))
}

func (r *PrometheusRecorder) TransportBytes(direction string, n int) {
	r.transportBytes.WithLabelValues(direction).Add(float64(n))
}

func (r *PrometheusRecorder) H2Frame(frameType, direction string) {
	r.h2Frames.WithLabelValues(frameType, direction).Inc()
}

func (r *PrometheusRecorder) ClusterWorkerRestart(workerID uint16) {
	r.clusterRestarts.WithLabelValues(itoa(workerID)).Inc()
}

func (r *PrometheusRecorder) ClusterWorkers(n int) {
	r.clusterWorkers.Set(float64(n))
}

// Handler exposes the registry's series for scraping.
func (r *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func itoa(v uint16) string {
	if v == 0 {
		return "0"
	}
	var buf [5]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

// noOpRecorder discards every observation.
type noOpRecorder struct{}

// NoOp returns a Recorder that does nothing, for components constructed
// without metrics configured.
func NoOp() Recorder { return noOpRecorder{} }

func (noOpRecorder) ReactorDispatch(string)      {}
func (noOpRecorder) ReactorItems(int)            {}
func (noOpRecorder) TransportBytes(string, int)  {}
func (noOpRecorder) H2Frame(string, string)      {}
func (noOpRecorder) ClusterWorkerRestart(uint16) {}
func (noOpRecorder) ClusterWorkers(int)          {}

var _ Recorder = (*PrometheusRecorder)(nil)
var _ Recorder = noOpRecorder{}
