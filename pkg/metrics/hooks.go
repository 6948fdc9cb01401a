package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/4ry1337/openvis/pkg/observability"
)

var (
	_ observability.ConnectionHooks = (*Registry)(nil)
	_ observability.ReconcileHooks  = (*Registry)(nil)
	_ observability.LayoutHooks     = (*Registry)(nil)
	_ observability.HTTPHooks       = (*Registry)(nil)
)

// OnProbe implements observability.ConnectionHooks.
func (r *Registry) OnProbe(_ context.Context, url string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.ProbesTotal.WithLabelValues(url, result).Inc()
	r.ProbeDuration.WithLabelValues(url).Observe(d.Seconds())
}

// OnStatusChange implements observability.ConnectionHooks.
func (r *Registry) OnStatusChange(url, from, to string) {
	r.StatusTransitions.WithLabelValues(from, to).Inc()

	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.statuses[url]; ok {
		r.ControllersByStatus.WithLabelValues(prev).Dec()
	}
	if to == "disconnected" {
		delete(r.statuses, url)
		return
	}
	r.statuses[url] = to
	r.ControllersByStatus.WithLabelValues(to).Inc()
}

// OnSnapshot implements observability.ConnectionHooks.
func (r *Registry) OnSnapshot(url string, _, _ int) {
	r.SnapshotsTotal.WithLabelValues(url).Inc()
}

// OnStreamError implements observability.ConnectionHooks.
func (r *Registry) OnStreamError(url, code string, fatal bool) {
	r.StreamErrorsTotal.WithLabelValues(url, code, strconv.FormatBool(fatal)).Inc()
}

// OnMerge implements observability.ReconcileHooks.
func (r *Registry) OnMerge(_ string, changed bool, removed, revived int, d time.Duration) {
	r.MergesTotal.WithLabelValues(strconv.FormatBool(changed)).Inc()
	r.MergeDuration.Observe(d.Seconds())
	r.NodesRemoved.Add(float64(removed))
	r.NodesRevived.Add(float64(revived))
}

// OnPurge implements observability.ReconcileHooks.
func (r *Registry) OnPurge(reason string, nodes int) {
	r.NodesPurged.WithLabelValues(reason).Add(float64(nodes))
}

// OnGraphSize implements observability.ReconcileHooks.
func (r *Registry) OnGraphSize(nodes, links, fading int) {
	r.GraphNodes.Set(float64(nodes))
	r.GraphLinks.Set(float64(links))
	r.GraphFadingNode.Set(float64(fading))
}

// OnTick implements observability.LayoutHooks.
func (r *Registry) OnTick(alpha float64, d time.Duration) {
	r.TicksTotal.Inc()
	r.TickDuration.Observe(d.Seconds())
	r.Alpha.Set(alpha)
}

// OnReheat implements observability.LayoutHooks.
func (r *Registry) OnReheat(cause string) {
	r.ReheatsTotal.WithLabelValues(cause).Inc()
}

// OnFrame implements observability.LayoutHooks.
func (r *Registry) OnFrame(nodes, _ int) {
	r.FramesTotal.Inc()
	r.FrameNodes.Set(float64(nodes))
}

// OnRequest implements observability.HTTPHooks.
func (r *Registry) OnRequest(context.Context, string, string, string) {}

// OnResponse implements observability.HTTPHooks.
func (r *Registry) OnResponse(_ context.Context, _, host, path string, status int, d time.Duration) {
	r.ClientRequestsTotal.WithLabelValues(host, path, strconv.Itoa(status)).Inc()
	r.ClientRequestDuration.WithLabelValues(host, path).Observe(d.Seconds())
}

// OnError implements observability.HTTPHooks.
func (r *Registry) OnError(_ context.Context, _, host, path string, _ error) {
	r.ClientErrorsTotal.WithLabelValues(host, path).Inc()
}

// RecordHTTPRequest records one request served by the HTTP API.
func (r *Registry) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
