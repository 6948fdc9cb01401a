package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/4ry1337/openvis/pkg/connection"
	"github.com/4ry1337/openvis/pkg/engine"
	"github.com/4ry1337/openvis/pkg/errors"
	"github.com/4ry1337/openvis/pkg/layout"
	"github.com/4ry1337/openvis/pkg/metrics"
	"github.com/4ry1337/openvis/pkg/source/file"
	"github.com/4ry1337/openvis/pkg/store"
	"github.com/4ry1337/openvis/pkg/topology"
)

const waitFor = 5 * time.Second

type fixture struct {
	srv  *Server
	e    *engine.Engine
	root string
	reg  *metrics.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b, err := store.NewFileBackend(t.TempDir())
	require.NoError(t, err)
	clk := testingclock.NewFakeClock(time.Unix(1700000000, 0))
	logger := log.New(io.Discard)
	root := t.TempDir()

	e, err := engine.New(context.Background(), engine.Config{
		Source: file.New(root, file.WithClock(clk), file.WithLogger(logger)),
		Store:  store.New(b, store.DefaultPrefix),
		Clock:  clk,
		Logger: logger,
		Layout: layout.Config{Seed: 1},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		e.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		e.Close()
		<-done
	})

	reg := metrics.NewRegistry()
	return &fixture{
		srv:  New(e, WithMetrics(reg), WithLogger(logger), WithHeartbeat(time.Hour)),
		e:    e,
		root: root,
		reg:  reg,
	}
}

func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func (f *fixture) replay(t *testing.T, host, body string) {
	t.Helper()
	dir := filepath.Join(f.root, host)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "001.json"), []byte(body), 0o644))
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int, code errors.Code) {
	t.Helper()
	assert.Equal(t, status, rec.Code, rec.Body.String())
	body := decodeBody[errorResponse](t, rec)
	assert.Equal(t, code, body.Error)
	assert.NotEmpty(t, body.Message)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code errors.Code
		want int
	}{
		{errors.ErrCodeInvalidInput, http.StatusBadRequest},
		{errors.ErrCodeInvalidURL, http.StatusBadRequest},
		{errors.ErrCodeInvalidInterval, http.StatusBadRequest},
		{errors.ErrCodeAlreadyConnected, http.StatusConflict},
		{errors.ErrCodeNotConnected, http.StatusNotFound},
		{errors.ErrCodeTimeout, http.StatusGatewayTimeout},
		{errors.ErrCodeNetwork, http.StatusServiceUnavailable},
		{errors.ErrCodeUnreachable, http.StatusServiceUnavailable},
		{errors.ErrCodeEndpointNotFound, http.StatusBadGateway},
		{errors.ErrCodeValidation, http.StatusBadGateway},
		{errors.ErrCodeFetch, http.StatusBadGateway},
		{errors.ErrCodeInternal, http.StatusInternalServerError},
		{"SOMETHING_NEW", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.code))
		})
	}
}

func TestHealthAndVersion(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	health := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, f.e.ID(), health["session"])

	rec = f.do(t, http.MethodGet, "/api/version", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"version"`)
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestControllerLifecycle(t *testing.T) {
	f := newFixture(t)
	f.replay(t, "ctrl-a_8080", `{"nodes":[{"id":"s1","type":"switch"},{"id":"h1","type":"host"}],"links":[{"source_id":"s1","target_id":"h1"}]}`)

	rec := f.do(t, http.MethodPost, "/api/controllers", `{"url":"http://ctrl-a:8080/","interval":1000}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	view := decodeBody[controllerView](t, rec)
	assert.Equal(t, "http://ctrl-a:8080", view.URL)
	assert.Equal(t, int64(1000), view.Interval)
	assert.Equal(t, connection.StatusConnected, view.Status)

	rec = f.do(t, http.MethodPost, "/api/controllers", `{"url":"http://ctrl-a:8080","interval":1000}`)
	assertError(t, rec, http.StatusConflict, errors.ErrCodeAlreadyConnected)

	require.Eventually(t, func() bool {
		rec := f.do(t, http.MethodGet, "/api/graph", "")
		return len(decodeBody[topology.Graph](t, rec).Nodes) == 2
	}, waitFor, time.Millisecond)

	rec = f.do(t, http.MethodGet, "/api/controllers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]controllerView](t, rec), 1)

	rec = f.do(t, http.MethodDelete, "/api/controllers?url=http://ctrl-a:8080", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decodeBody[engine.Stats](t, rec)
	assert.Zero(t, stats.Nodes)
	assert.Zero(t, stats.Controllers)

	rec = f.do(t, http.MethodDelete, "/api/controllers?url=http://ctrl-a:8080", "")
	assertError(t, rec, http.StatusNotFound, errors.ErrCodeNotConnected)
}

func TestConnectErrors(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name   string
		body   string
		status int
		code   errors.Code
	}{
		{"malformed", `{"url":`, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"unknown field", `{"url":"http://a:1","extra":1}`, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"missing url", `{"interval":1000}`, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"negative interval", `{"url":"http://a:1","interval":-5}`, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"bad scheme", `{"url":"ftp://a:1"}`, http.StatusBadRequest, errors.ErrCodeInvalidURL},
		{"short interval", `{"url":"http://a:1","interval":10}`, http.StatusBadRequest, errors.ErrCodeInvalidInterval},
		{"unreachable", `{"url":"http://ctrl-b:8080"}`, http.StatusServiceUnavailable, errors.ErrCodeUnreachable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/controllers", tt.body)
			assertError(t, rec, tt.status, tt.code)
		})
	}
}

func TestDisconnectNeedsURL(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodDelete, "/api/controllers", "")
	assertError(t, rec, http.StatusBadRequest, errors.ErrCodeInvalidInput)
}

func TestRetryAndProbe(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/controllers", `{"url":"http://ctrl-a:8080"}`)
	assertError(t, rec, http.StatusServiceUnavailable, errors.ErrCodeUnreachable)

	rec = f.do(t, http.MethodPost, "/api/controllers/probe", `{"url":"http://ctrl-a:8080"}`)
	assertError(t, rec, http.StatusServiceUnavailable, errors.ErrCodeUnreachable)

	f.replay(t, "ctrl-a_8080", `{"nodes":[{"id":"s1","type":"switch"}],"links":[]}`)

	rec = f.do(t, http.MethodPost, "/api/controllers/probe", `{"url":"http://ctrl-a:8080"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decodeBody[map[string]bool](t, rec)["healthy"])

	rec = f.do(t, http.MethodPost, "/api/controllers/retry", `{"url":"http://ctrl-a:8080"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, connection.StatusConnected, decodeBody[controllerView](t, rec).Status)

	rec = f.do(t, http.MethodPost, "/api/controllers/retry", `{"url":"http://nobody:1"}`)
	assertError(t, rec, http.StatusNotFound, errors.ErrCodeNotConnected)
}

func TestParamsRoundTrip(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/params", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, layout.DefaultParams(), decodeBody[layout.Params](t, rec))

	want := layout.Params{CenterForce: 0.5, RepelForce: 100, LinkForce: 0.2, LinkDistance: 200}
	body, err := json.Marshal(want)
	require.NoError(t, err)
	rec = f.do(t, http.MethodPut, "/api/params", string(body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/params", "")
	assert.Equal(t, want, decodeBody[layout.Params](t, rec))

	rec = f.do(t, http.MethodPut, "/api/params", `{"centerForce":1,"repelForce":300,"linkForce":0.5,"linkDistance":5}`)
	assertError(t, rec, http.StatusBadRequest, errors.ErrCodeInvalidInput)

	rec = f.do(t, http.MethodPost, "/api/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodGet, "/api/params", "")
	assert.Equal(t, layout.DefaultParams(), decodeBody[layout.Params](t, rec))
}

func TestFilter(t *testing.T) {
	f := newFixture(t)
	f.e.Deliver("http://ctrl-a:8080", topology.Snapshot{Nodes: []topology.Node{
		{ID: "h1", Type: topology.TypeHost, Label: "h1"},
	}})

	rec := f.do(t, http.MethodPut, "/api/filter", `{"showControllers":true,"showSwitches":true,"showHosts":false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/filter", "")
	assert.False(t, decodeBody[layout.Filter](t, rec).ShowHosts)

	rec = f.do(t, http.MethodGet, "/api/frame", "")
	require.Equal(t, http.StatusOK, rec.Code)
	frame := decodeBody[layout.Frame](t, rec)
	require.Len(t, frame.Nodes, 1)
	assert.Zero(t, frame.Nodes[0].Opacity)
}

func TestDragAndTransform(t *testing.T) {
	f := newFixture(t)
	id := topology.Namespace("http://ctrl-a:8080", "s1")
	f.e.Deliver("http://ctrl-a:8080", topology.Snapshot{Nodes: []topology.Node{
		{ID: "s1", Type: topology.TypeSwitch, Label: "s1"},
	}})

	drag := func(phase string, x, y float64) *httptest.ResponseRecorder {
		body, err := json.Marshal(dragRequest{ID: id, Phase: phase, X: x, Y: y})
		require.NoError(t, err)
		return f.do(t, http.MethodPost, "/api/drag", string(body))
	}
	assert.Equal(t, http.StatusNoContent, drag("start", 0, 0).Code)
	assert.Equal(t, http.StatusNoContent, drag("move", 40, 60).Code)

	g, err := f.e.Graph()
	require.NoError(t, err)
	n := g.Node(id)
	require.NotNil(t, n)
	require.True(t, n.Pinned())
	assert.Equal(t, 40.0, *n.FX)
	assert.Equal(t, 60.0, *n.FY)
	assert.Equal(t, http.StatusNoContent, drag("end", 0, 0).Code)

	assertError(t, drag("fling", 0, 0), http.StatusBadRequest, errors.ErrCodeInvalidInput)
	rec := f.do(t, http.MethodPost, "/api/drag", `{"id":"ghost","phase":"start"}`)
	assertError(t, rec, http.StatusBadRequest, errors.ErrCodeInvalidInput)

	rec = f.do(t, http.MethodPost, "/api/unpin", `{"id":"`+id+`"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPut, "/api/transform", `{"x":10,"y":20,"k":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, layout.Transform{X: 10, Y: 20, K: 2}, decodeBody[layout.Transform](t, rec))

	rec = f.do(t, http.MethodPost, "/api/transform/pan", `{"dx":5,"dy":-5}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, layout.Transform{X: 15, Y: 15, K: 2}, decodeBody[layout.Transform](t, rec))

	rec = f.do(t, http.MethodPost, "/api/transform/zoom", `{"factor":0}`)
	assertError(t, rec, http.StatusBadRequest, errors.ErrCodeInvalidInput)

	rec = f.do(t, http.MethodPut, "/api/transform", `{"x":0,"y":0,"k":0}`)
	assertError(t, rec, http.StatusBadRequest, errors.ErrCodeInvalidInput)
}

func TestNotifications(t *testing.T) {
	f := newFixture(t)
	f.e.Notify(connection.Notification{Level: connection.LevelInfo, URL: "http://a:1", Message: "hello"})

	rec := f.do(t, http.MethodGet, "/api/notifications", "")
	require.Equal(t, http.StatusOK, rec.Code)
	notes := decodeBody[[]connection.Notification](t, rec)
	require.Len(t, notes, 1)
	assert.Equal(t, "hello", notes[0].Message)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodGet, "/api/health", "")

	rec := f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "openvis_http_requests_total")
	assert.Contains(t, body, `route="/api/health"`)
}

func TestGraphSVG(t *testing.T) {
	f := newFixture(t)
	f.e.Deliver("http://ctrl-a:8080", topology.Snapshot{Nodes: []topology.Node{
		{ID: "s1", Type: topology.TypeSwitch, Label: "s1"},
	}})

	rec := f.do(t, http.MethodGet, "/api/graph.svg?detailed=1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.Contains(rec.Body.Bytes(), []byte("<svg")))
}

func TestEventStream(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := make(chan [2]string, 16)
	go func() {
		defer close(events)
		sc := bufio.NewScanner(resp.Body)
		var name string
		for sc.Scan() {
			line := sc.Text()
			switch {
			case strings.HasPrefix(line, "event: "):
				name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				events <- [2]string{name, strings.TrimPrefix(line, "data: ")}
			}
		}
	}()

	next := func() [2]string {
		t.Helper()
		select {
		case ev, ok := <-events:
			require.True(t, ok, "stream ended")
			return ev
		case <-time.After(waitFor):
			t.Fatal("no event")
		}
		return [2]string{}
	}

	hello := next()
	assert.Equal(t, "hello", hello[0])
	assert.Contains(t, hello[1], f.e.ID())
	assert.Equal(t, "frame", next()[0])

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(f.reg.SSEClients) == 1
	}, waitFor, time.Millisecond)

	f.e.Notify(connection.Notification{Level: connection.LevelWarning, URL: "http://a:1", Message: "careful"})
	var note [2]string
	for note = next(); note[0] != "notification"; note = next() {
	}
	assert.Contains(t, note[1], "careful")
}
