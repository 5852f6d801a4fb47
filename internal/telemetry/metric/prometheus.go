// Package metric provides Prometheus metrics for blazar.
package metric

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "blazar"

// Result label values.
const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultTimeout = "timeout"
)

// Registry holds all proxy metrics. A nil *Registry is valid and records
// nothing, so components can run without metrics in tests.
type Registry struct {
	reg *prometheus.Registry

	// Client metrics
	ClientConnections prometheus.Gauge
	CommandsTotal     *prometheus.CounterVec
	ProtocolErrors    *prometheus.CounterVec

	// Backend metrics
	BackendRequests *prometheus.CounterVec
	BackendLatency  *prometheus.HistogramVec
	QueueDepth      *prometheus.GaugeVec
	Reconnects      *prometheus.CounterVec
}

// NewRegistry creates the proxy metrics on a dedicated Prometheus registry
// that also carries the Go runtime and process collectors.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		ClientConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "connections",
			Help:      "Number of open client connections.",
		}),
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "commands_total",
			Help:      "Client commands by name and result.",
		}, []string{"command", "result"}),
		ProtocolErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "protocol_errors_total",
			Help:      "Malformed frames received, by peer side.",
		}, []string{"side"}),
		BackendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "requests_total",
			Help:      "Commands forwarded to a shard, by result.",
		}, []string{"shard", "result"}),
		BackendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "request_duration_seconds",
			Help:      "Time from write to reply for forwarded commands.",
			Buckets:   []float64{.0001, .0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"shard"}),
		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "queue_depth",
			Help:      "Commands waiting in a shard session queue.",
		}, []string{"shard"}),
		Reconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "reconnects_total",
			Help:      "Successful reconnections after a backend failure.",
		}, []string{"shard"}),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.ClientConnections,
		r.CommandsTotal,
		r.ProtocolErrors,
		r.BackendRequests,
		r.BackendLatency,
		r.QueueDepth,
		r.Reconnects,
	)
	return r
}

// Register adds extra collectors, such as a shard state Collector.
func (r *Registry) Register(cs ...prometheus.Collector) error {
	for _, c := range cs {
		if err := r.reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Gatherer exposes the underlying registry for tests and custom handlers.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// ClientConnected records a new client connection.
func (r *Registry) ClientConnected() {
	if r == nil {
		return
	}
	r.ClientConnections.Inc()
}

// ClientDisconnected records a closed client connection.
func (r *Registry) ClientDisconnected() {
	if r == nil {
		return
	}
	r.ClientConnections.Dec()
}

// ObserveCommand counts one client command.
func (r *Registry) ObserveCommand(command, result string) {
	if r == nil {
		return
	}
	r.CommandsTotal.WithLabelValues(command, result).Inc()
}

// ObserveProtocolError counts a malformed frame from "client" or "backend".
func (r *Registry) ObserveProtocolError(side string) {
	if r == nil {
		return
	}
	r.ProtocolErrors.WithLabelValues(side).Inc()
}

// ObserveBackend records one forwarded command.
func (r *Registry) ObserveBackend(shard int, result string, d time.Duration) {
	if r == nil {
		return
	}
	label := strconv.Itoa(shard)
	r.BackendRequests.WithLabelValues(label, result).Inc()
	if result == ResultOK {
		r.BackendLatency.WithLabelValues(label).Observe(d.Seconds())
	}
}

// SetQueueDepth records the current queue length of a shard session.
func (r *Registry) SetQueueDepth(shard, n int) {
	if r == nil {
		return
	}
	r.QueueDepth.WithLabelValues(strconv.Itoa(shard)).Set(float64(n))
}

// ObserveReconnect counts a reconnection to a shard.
func (r *Registry) ObserveReconnect(shard int) {
	if r == nil {
		return
	}
	r.Reconnects.WithLabelValues(strconv.Itoa(shard)).Inc()
}
