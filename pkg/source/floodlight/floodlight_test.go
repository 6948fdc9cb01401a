package floodlight

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/4ry1337/openvis/pkg/errors"
	"github.com/4ry1337/openvis/pkg/httputil"
	"github.com/4ry1337/openvis/pkg/source"
	"github.com/4ry1337/openvis/pkg/topology"
)

const (
	switchesJSON = `[
		{"inetAddress":"/10.0.0.1:6653","connectedSince":1700000000000,"openFlowVersion":"OF_13","switchDPID":"00:00:00:00:00:00:00:01"},
		{"inetAddress":"/10.0.0.2:6653","connectedSince":1700000000000,"openFlowVersion":"OF_13","dpid":"00:00:00:00:00:00:00:02"}
	]`
	linksJSON = `[
		{"src-switch":"00:00:00:00:00:00:00:01","src-port":2,"dst-switch":"00:00:00:00:00:00:00:02","dst-port":3,"type":"internal","direction":"bidirectional","latency":4}
	]`
	devicesJSON = `{"devices":[
		{"entityClass":"DefaultEntityClass","mac":["aa:bb:cc:dd:ee:01"],"ipv4":["10.0.0.10"],"ipv6":[],"vlan":["0x0"],
		 "attachmentPoint":[{"switch":"00:00:00:00:00:00:00:01","port":"1"}],"lastSeen":1700000001000},
		{"entityClass":"DefaultEntityClass","mac":[],"ipv4":[],"ipv6":[],"vlan":[],"attachmentPoint":[],"lastSeen":0}
	]}`
)

// fakeController serves canned responses keyed by path.
func fakeController(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func healthyRoutes() map[string]string {
	return map[string]string{
		healthPath:   `{"healthy":true}`,
		switchesPath: switchesJSON,
		linksPath:    linksJSON,
		devicesPath:  devicesJSON,
	}
}

func newTestSource(opts ...Option) *Source {
	base := []Option{
		WithLogger(log.New(io.Discard)),
		WithClient(httputil.NewClient(httputil.WithRetry(1, 0), httputil.WithTimeout(time.Second))),
	}
	return New(append(base, opts...)...)
}

func TestProbe(t *testing.T) {
	tests := []struct {
		name   string
		routes map[string]string
		want   errors.Code
	}{
		{"healthy", map[string]string{healthPath: `{"healthy":true}`}, ""},
		{"unhealthy", map[string]string{healthPath: `{"healthy":false}`}, errors.ErrCodeUnreachable},
		{"missing endpoint", map[string]string{}, errors.ErrCodeEndpointNotFound},
		{"garbage", map[string]string{healthPath: `not json`}, errors.ErrCodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := fakeController(t, tt.routes)
			err := newTestSource().Probe(context.Background(), srv.URL)
			if tt.want == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.want, errors.GetCode(err))
		})
	}
}

func TestProbeStatusCodes(t *testing.T) {
	tests := []struct {
		status int
		want   errors.Code
	}{
		{http.StatusServiceUnavailable, errors.ErrCodeUnreachable},
		{http.StatusInternalServerError, errors.ErrCodeNetwork},
		{http.StatusForbidden, errors.ErrCodeNetwork},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			err := newTestSource().Probe(context.Background(), srv.URL)
			assert.Equal(t, tt.want, errors.GetCode(err))
		})
	}
}

func TestProbeConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := newTestSource().Probe(context.Background(), url)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNetwork, errors.GetCode(err))
	assert.Contains(t, errors.UserMessage(err), "Cannot connect")
}

func TestProbeTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	src := newTestSource(WithClient(httputil.NewClient(
		httputil.WithRetry(1, 0), httputil.WithTimeout(50*time.Millisecond))))
	err := src.Probe(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeTimeout, errors.GetCode(err))
	assert.Contains(t, errors.UserMessage(err), "timed out")
}

func TestFetchBuildsSnapshot(t *testing.T) {
	srv := fakeController(t, healthyRoutes())

	snap, err := newTestSource().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.NoError(t, snap.Validate())

	byID := make(map[string]topology.Node)
	for _, n := range snap.Nodes {
		byID[n.ID] = n
	}
	require.Len(t, byID, 4, "controller, two switches, one host with a MAC")

	ctrl := byID[ControllerID]
	assert.Equal(t, topology.TypeController, ctrl.Type)
	assert.Equal(t, "Controller", ctrl.Label)
	cd := ctrl.Details.(*topology.ControllerDetails)
	assert.Equal(t, srv.URL, cd.Metadata.URL)
	assert.Equal(t, 2, cd.Metrics.Switches)

	sw2 := byID["00:00:00:00:00:00:00:02"]
	assert.Equal(t, topology.TypeSwitch, sw2.Type, "dpid is used when switchDPID is absent")

	host := byID["aa:bb:cc:dd:ee:01"]
	assert.Equal(t, topology.TypeHost, host.Type)
	assert.Equal(t, "10.0.0.10", host.Label)

	keys := make(map[topology.LinkKey]topology.Link)
	for _, l := range snap.Links {
		keys[l.Key()] = l
	}
	assert.Len(t, keys, 4)
	assert.Contains(t, keys, topology.LinkKey{Source: ControllerID, Target: "00:00:00:00:00:00:00:01"})
	assert.Contains(t, keys, topology.LinkKey{Source: ControllerID, Target: "00:00:00:00:00:00:00:02"})
	assert.Contains(t, keys, topology.LinkKey{Source: "aa:bb:cc:dd:ee:01", Target: "00:00:00:00:00:00:00:01"})

	isl := keys[topology.LinkKey{Source: "00:00:00:00:00:00:00:01", Target: "00:00:00:00:00:00:00:02"}]
	require.NotNil(t, isl.Metadata)
	assert.Equal(t, 2, isl.Metadata.SrcPort)
	assert.Equal(t, 3, isl.Metadata.DstPort)
	assert.Equal(t, 4, isl.Metrics.Latency)
}

func TestFetchRejectsInvalidData(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
	}{
		{"switch without dpid", switchesPath, `[{"inetAddress":"/10.0.0.1"}]`},
		{"link without endpoint", linksPath, `[{"src-switch":"00:01","src-port":1}]`},
		{"bad mac", devicesPath, `{"devices":[{"mac":["nope"]}]}`},
		{"wrong shape", switchesPath, `{"switches":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			routes := healthyRoutes()
			routes[tt.path] = tt.body
			srv := fakeController(t, routes)

			_, err := newTestSource().Fetch(context.Background(), srv.URL)
			require.Error(t, err)
			assert.Equal(t, errors.ErrCodeValidation, errors.GetCode(err))
		})
	}
}

func TestFetchMissingEndpoint(t *testing.T) {
	routes := healthyRoutes()
	delete(routes, devicesPath)
	srv := fakeController(t, routes)

	_, err := newTestSource().Fetch(context.Background(), srv.URL)
	assert.Equal(t, errors.ErrCodeEndpointNotFound, errors.GetCode(err))
	assert.Contains(t, errors.UserMessage(err), "unsupported Floodlight version")
}

func TestOpenStreamsSnapshots(t *testing.T) {
	srv := fakeController(t, healthyRoutes())

	stream, err := newTestSource().Open(context.Background(), srv.URL, time.Second)
	require.NoError(t, err)
	defer stream.Close()

	select {
	case ev := <-stream.Events():
		require.Equal(t, source.EventTopology, ev.Kind)
		assert.Len(t, ev.Snapshot.Nodes, 4)
	case <-time.After(5 * time.Second):
		t.Fatal("no snapshot")
	}
}

func TestOpenInitialFailure(t *testing.T) {
	srv := fakeController(t, map[string]string{})

	stream, err := newTestSource().Open(context.Background(), srv.URL, time.Second)
	require.NoError(t, err)
	defer stream.Close()

	ev := <-stream.Events()
	require.Equal(t, source.EventError, ev.Kind)
	assert.Equal(t, errors.ErrCodeInitialConnectionFailed, ev.Err.Code)
	assert.Contains(t, ev.Err.Message, "unsupported Floodlight version")
}

func TestOpenRejectsBadURL(t *testing.T) {
	_, err := newTestSource().Open(context.Background(), "ftp://controller", time.Second)
	assert.Equal(t, errors.ErrCodeInvalidURL, errors.GetCode(err))
}
