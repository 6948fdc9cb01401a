// Package metrics exposes openvis internals as Prometheus metrics.
//
// A [Registry] owns its own prometheus.Registry and implements every hook
// interface of pkg/observability, so wiring it up is:
//
//	m := metrics.NewRegistry()
//	m.Install()
//	http.Handle("/metrics", m.Handler())
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/4ry1337/openvis/pkg/observability"
)

// Registry holds all metrics for the application.
type Registry struct {
	// Controller metrics
	ProbesTotal         *prometheus.CounterVec
	ProbeDuration       *prometheus.HistogramVec
	StatusTransitions   *prometheus.CounterVec
	ControllersByStatus *prometheus.GaugeVec
	SnapshotsTotal      *prometheus.CounterVec
	StreamErrorsTotal   *prometheus.CounterVec

	// Reconciler metrics
	MergesTotal     *prometheus.CounterVec
	MergeDuration   prometheus.Histogram
	NodesRemoved    prometheus.Counter
	NodesRevived    prometheus.Counter
	NodesPurged     *prometheus.CounterVec
	GraphNodes      prometheus.Gauge
	GraphLinks      prometheus.Gauge
	GraphFadingNode prometheus.Gauge

	// Layout metrics
	TicksTotal   prometheus.Counter
	TickDuration prometheus.Histogram
	Alpha        prometheus.Gauge
	ReheatsTotal *prometheus.CounterVec
	FramesTotal  prometheus.Counter
	FrameNodes   prometheus.Gauge

	// Controller API client metrics
	ClientRequestsTotal   *prometheus.CounterVec
	ClientRequestDuration *prometheus.HistogramVec
	ClientErrorsTotal     *prometheus.CounterVec

	// HTTP server metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	SSEClients           prometheus.Gauge

	registry *prometheus.Registry

	mu       sync.Mutex
	statuses map[string]string // url -> last reported status
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry.
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a registry with every metric initialized, plus the Go
// runtime and process collectors.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Registry{
		registry: reg,
		statuses: make(map[string]string),
	}
	r.initConnectionMetrics()
	r.initReconcileMetrics()
	r.initLayoutMetrics()
	r.initHTTPMetrics()
	return r
}

// Install registers r as the global observability hooks.
func (r *Registry) Install() {
	observability.SetConnectionHooks(r)
	observability.SetReconcileHooks(r)
	observability.SetLayoutHooks(r)
	observability.SetHTTPHooks(r)
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// GetPrometheusRegistry returns the underlying Prometheus registry.
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
