package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initConnectionMetrics() {
	f := promauto.With(r.registry)

	r.ProbesTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "openvis_controller_probes_total",
			Help: "Total number of controller health probes",
		},
		[]string{"controller", "result"},
	)

	r.ProbeDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "openvis_controller_probe_duration_seconds",
			Help:    "Controller health probe latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"controller"},
	)

	r.StatusTransitions = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "openvis_controller_status_transitions_total",
			Help: "Controller status transitions",
		},
		[]string{"from", "to"},
	)

	r.ControllersByStatus = f.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "openvis_controllers",
			Help: "Number of registered controllers per status",
		},
		[]string{"status"},
	)

	r.SnapshotsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "openvis_snapshots_total",
			Help: "Topology snapshots received per controller",
		},
		[]string{"controller"},
	)

	r.StreamErrorsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "openvis_stream_errors_total",
			Help: "Stream error events per controller and code",
		},
		[]string{"controller", "code", "fatal"},
	)
}

func (r *Registry) initReconcileMetrics() {
	f := promauto.With(r.registry)

	r.MergesTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "openvis_merges_total",
			Help: "Snapshot merges, by whether the graph changed",
		},
		[]string{"changed"},
	)

	r.MergeDuration = f.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "openvis_merge_duration_seconds",
			Help:    "Snapshot merge latency in seconds",
			Buckets: []float64{.00001, .0001, .0005, .001, .005, .01, .05, .1},
		},
	)

	r.NodesRemoved = f.NewCounter(prometheus.CounterOpts{
		Name: "openvis_nodes_faded_total",
		Help: "Nodes that started fading after disappearing from a snapshot",
	})

	r.NodesRevived = f.NewCounter(prometheus.CounterOpts{
		Name: "openvis_nodes_revived_total",
		Help: "Fading nodes that reappeared before expiry",
	})

	r.NodesPurged = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "openvis_nodes_purged_total",
			Help: "Nodes hard-deleted from the graph",
		},
		[]string{"reason"},
	)

	r.GraphNodes = f.NewGauge(prometheus.GaugeOpts{
		Name: "openvis_graph_nodes",
		Help: "Nodes in the merged graph",
	})
	r.GraphLinks = f.NewGauge(prometheus.GaugeOpts{
		Name: "openvis_graph_links",
		Help: "Links in the merged graph",
	})
	r.GraphFadingNode = f.NewGauge(prometheus.GaugeOpts{
		Name: "openvis_graph_fading_nodes",
		Help: "Nodes currently fading out",
	})
}

func (r *Registry) initLayoutMetrics() {
	f := promauto.With(r.registry)

	r.TicksTotal = f.NewCounter(prometheus.CounterOpts{
		Name: "openvis_layout_ticks_total",
		Help: "Simulation steps executed",
	})

	r.TickDuration = f.NewHistogram(prometheus.HistogramOpts{
		Name:    "openvis_layout_tick_duration_seconds",
		Help:    "Simulation step latency in seconds",
		Buckets: []float64{.00001, .0001, .0005, .001, .005, .01, .016, .05},
	})

	r.Alpha = f.NewGauge(prometheus.GaugeOpts{
		Name: "openvis_layout_alpha",
		Help: "Current simulation alpha",
	})

	r.ReheatsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "openvis_layout_reheats_total",
			Help: "Simulation reheats by cause",
		},
		[]string{"cause"},
	)

	r.FramesTotal = f.NewCounter(prometheus.CounterOpts{
		Name: "openvis_frames_total",
		Help: "Frames published to subscribers",
	})

	r.FrameNodes = f.NewGauge(prometheus.GaugeOpts{
		Name: "openvis_frame_nodes",
		Help: "Nodes in the last published frame",
	})
}

func (r *Registry) initHTTPMetrics() {
	f := promauto.With(r.registry)

	r.ClientRequestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "openvis_controller_api_requests_total",
			Help: "Requests sent to controller REST APIs",
		},
		[]string{"host", "path", "status"},
	)

	r.ClientRequestDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "openvis_controller_api_request_duration_seconds",
			Help:    "Controller REST API latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"host", "path"},
	)

	r.ClientErrorsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "openvis_controller_api_errors_total",
			Help: "Controller REST API transport failures",
		},
		[]string{"host", "path"},
	)

	r.HTTPRequestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "openvis_http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"method", "route", "status"},
	)

	r.HTTPRequestDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "openvis_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	r.HTTPRequestsInFlight = f.NewGauge(prometheus.GaugeOpts{
		Name: "openvis_http_requests_in_flight",
		Help: "Current number of HTTP requests being served",
	})

	r.SSEClients = f.NewGauge(prometheus.GaugeOpts{
		Name: "openvis_sse_clients",
		Help: "Connected server-sent event clients",
	})
}
