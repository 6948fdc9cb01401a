package metrics

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/4ry1337/openvis/pkg/observability"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return m.Counter.GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return m.Gauge.GetValue()
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r.ProbesTotal == nil || r.MergesTotal == nil || r.TicksTotal == nil || r.HTTPRequestsTotal == nil {
		t.Fatal("metrics not initialized")
	}
	if r.GetPrometheusRegistry() == nil {
		t.Error("Prometheus registry not initialized")
	}
}

func TestDefaultRegistry(t *testing.T) {
	if DefaultRegistry() != DefaultRegistry() {
		t.Error("DefaultRegistry() should return the same instance")
	}
}

func TestOnProbe(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	r.OnProbe(ctx, "http://c1", time.Millisecond, nil)
	r.OnProbe(ctx, "http://c1", time.Millisecond, errors.New("refused"))
	r.OnProbe(ctx, "http://c1", time.Millisecond, errors.New("refused"))

	if got := counterValue(t, r.ProbesTotal.WithLabelValues("http://c1", "ok")); got != 1 {
		t.Errorf("ok probes = %v, want 1", got)
	}
	if got := counterValue(t, r.ProbesTotal.WithLabelValues("http://c1", "error")); got != 2 {
		t.Errorf("failed probes = %v, want 2", got)
	}
}

func TestOnStatusChangeTracksGauge(t *testing.T) {
	r := NewRegistry()

	r.OnStatusChange("http://c1", "", "connecting")
	r.OnStatusChange("http://c2", "", "connecting")
	r.OnStatusChange("http://c1", "connecting", "connected")
	r.OnStatusChange("http://c2", "connecting", "unreachable")

	tests := []struct {
		status string
		want   float64
	}{
		{"connecting", 0},
		{"connected", 1},
		{"unreachable", 1},
	}
	for _, tt := range tests {
		if got := gaugeValue(t, r.ControllersByStatus.WithLabelValues(tt.status)); got != tt.want {
			t.Errorf("%s = %v, want %v", tt.status, got, tt.want)
		}
	}

	r.OnStatusChange("http://c1", "connected", "disconnected")
	if got := gaugeValue(t, r.ControllersByStatus.WithLabelValues("connected")); got != 0 {
		t.Errorf("connected after disconnect = %v, want 0", got)
	}
	if got := counterValue(t, r.StatusTransitions.WithLabelValues("connecting", "connected")); got != 1 {
		t.Errorf("transitions = %v, want 1", got)
	}
}

func TestOnMerge(t *testing.T) {
	r := NewRegistry()

	r.OnMerge("http://c1", true, 2, 1, time.Millisecond)
	r.OnMerge("http://c1", false, 0, 0, time.Millisecond)
	r.OnPurge("expired", 2)
	r.OnGraphSize(5, 4, 1)

	if got := counterValue(t, r.MergesTotal.WithLabelValues("true")); got != 1 {
		t.Errorf("changed merges = %v, want 1", got)
	}
	if got := counterValue(t, r.NodesRemoved); got != 2 {
		t.Errorf("removed = %v, want 2", got)
	}
	if got := counterValue(t, r.NodesPurged.WithLabelValues("expired")); got != 2 {
		t.Errorf("purged = %v, want 2", got)
	}
	if got := gaugeValue(t, r.GraphLinks); got != 4 {
		t.Errorf("links = %v, want 4", got)
	}
}

func TestInstallAndHandler(t *testing.T) {
	defer observability.Reset()

	r := NewRegistry()
	r.Install()
	observability.Layout().OnTick(0.5, time.Millisecond)
	observability.Layout().OnReheat("drag")
	observability.HTTP().OnResponse(context.Background(), "GET", "c1:8080", "/wm/device/", 200, time.Millisecond)
	r.RecordHTTPRequest("GET", "/api/graph", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, want := range []string{
		"openvis_layout_ticks_total 1",
		"openvis_layout_alpha 0.5",
		`openvis_layout_reheats_total{cause="drag"} 1`,
		`openvis_controller_api_requests_total{host="c1:8080",path="/wm/device/",status="200"} 1`,
		`openvis_http_requests_total{method="GET",route="/api/graph",status="200"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
