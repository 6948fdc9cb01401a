package layout

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/4ry1337/openvis/pkg/topology"
)

func testGraph() topology.Graph {
	return topology.Graph{
		Nodes: []*topology.Node{
			{ID: "A::c", Type: topology.TypeController},
			{ID: "A::s1", Type: topology.TypeSwitch},
			{ID: "A::s2", Type: topology.TypeSwitch},
			{ID: "A::h1", Type: topology.TypeHost},
		},
		Links: []*topology.Link{
			{SourceID: "A::c", TargetID: "A::s1"},
			{SourceID: "A::c", TargetID: "A::s2"},
			{SourceID: "A::s1", TargetID: "A::s2"},
			{SourceID: "A::h1", TargetID: "A::s1"},
		},
	}
}

func settled(t *testing.T, cfg Config) (*Simulation, topology.Graph) {
	t.Helper()
	s := New(cfg)
	g := testGraph()
	s.SetGraph(g)
	s.Settle(10_000)
	require.False(t, s.Active(), "simulation did not cool down")
	return s, g
}

func TestNewIsUninitialized(t *testing.T) {
	s := New(Config{})

	assert.Equal(t, StateUninitialized, s.State())
	assert.False(t, s.Tick())
	assert.Equal(t, DefaultParams(), s.Params())
	assert.Equal(t, DefaultFilter(), s.Filter())
	assert.Equal(t, ReleaseOnDrop, s.DropBehavior())
}

func TestSetGraphPlacesNewNodesAroundCentre(t *testing.T) {
	s := New(Config{Width: 800, Height: 600})
	g := testGraph()
	s.SetGraph(g)

	assert.Equal(t, StateRunning, s.State())
	assert.Equal(t, 1.0, s.Alpha())
	for i, n := range g.Nodes {
		require.True(t, n.Placed)
		r := math.Hypot(n.X-400, n.Y-300)
		assert.InDelta(t, 10*math.Sqrt(0.5+float64(i)), r, 1e-9, "node %s", n.ID)
	}
}

func TestSetGraphKeepsExistingKinematics(t *testing.T) {
	s := New(Config{})
	n := &topology.Node{ID: "A::s1", Type: topology.TypeSwitch, X: 55, Y: 66, VX: 1, Placed: true}
	s.SetGraph(topology.Graph{Nodes: []*topology.Node{n}})

	assert.Same(t, n, s.Nodes()[0])
	assert.Equal(t, 55.0, n.X)
	assert.Equal(t, 66.0, n.Y)
	assert.Equal(t, 1.0, n.VX)
}

func TestSimulationCoolsDown(t *testing.T) {
	s := New(Config{})
	s.SetGraph(testGraph())

	ticks := s.Settle(10_000)

	// alpha decays from 1 below 0.001 in about 300 ticks.
	assert.InDelta(t, 300, ticks, 5)
	assert.Less(t, s.Alpha(), alphaMin)
	assert.False(t, s.Tick())
	assert.Equal(t, StateRunning, s.State())
}

func TestSimulationSeparatesAndCentres(t *testing.T) {
	_, g := settled(t, Config{Width: 800, Height: 600})

	var cx, cy float64
	for _, n := range g.Nodes {
		cx += n.X
		cy += n.Y
	}
	assert.InDelta(t, 400, cx/float64(len(g.Nodes)), 5)
	assert.InDelta(t, 300, cy/float64(len(g.Nodes)), 5)

	for i, a := range g.Nodes {
		for _, b := range g.Nodes[i+1:] {
			assert.Greater(t, math.Hypot(a.X-b.X, a.Y-b.Y), collideRadius, "%s and %s overlap", a.ID, b.ID)
		}
	}
}

func TestSetGraphReheats(t *testing.T) {
	s, g := settled(t, Config{})
	first := g.Nodes[0]
	x, y := first.X, first.Y

	g.Nodes = append(g.Nodes, &topology.Node{ID: "A::h2", Type: topology.TypeHost})
	s.SetGraph(g)

	assert.Equal(t, 1.0, s.Alpha())
	assert.True(t, s.Active())
	assert.Equal(t, StateReheating, s.State())
	assert.Same(t, first, s.Nodes()[0])
	assert.Equal(t, x, first.X)
	assert.Equal(t, y, first.Y)
}

func TestSetParamsReheatsWithoutTouchingNodes(t *testing.T) {
	s, g := settled(t, Config{})
	before := append([]*topology.Node(nil), s.Nodes()...)

	p := DefaultParams()
	p.LinkDistance = 200
	require.NoError(t, s.SetParams(p))

	assert.Equal(t, p, s.Params())
	assert.Equal(t, 1.0, s.Alpha())
	assert.Equal(t, StateReheating, s.State())
	for i := range before {
		assert.Same(t, before[i], g.Nodes[i])
	}
}

func TestSetParamsRejectsOutOfRange(t *testing.T) {
	s := New(Config{})
	p := DefaultParams()
	p.LinkDistance = 10

	assert.Error(t, s.SetParams(p))
	assert.Equal(t, DefaultParams(), s.Params())
}

func TestReheatingSettlesToRunning(t *testing.T) {
	s, _ := settled(t, Config{})
	require.NoError(t, s.SetParams(DefaultParams()))
	require.Equal(t, StateReheating, s.State())

	for s.Alpha() > settleThreshold {
		require.True(t, s.Tick())
	}
	assert.Equal(t, StateRunning, s.State())
}

func TestSetFilterDoesNotReheat(t *testing.T) {
	s, g := settled(t, Config{})
	alpha := s.Alpha()
	x := g.Nodes[0].X

	s.SetFilter(Filter{ShowControllers: false, ShowSwitches: true, ShowHosts: true})

	assert.Equal(t, alpha, s.Alpha())
	assert.False(t, s.Active())
	assert.False(t, s.Tick())
	assert.Equal(t, x, g.Nodes[0].X)
	assert.Len(t, s.Nodes(), 4, "hidden nodes stay in the simulation")
}

func TestStopIsTerminal(t *testing.T) {
	s := New(Config{})
	s.SetGraph(testGraph())
	s.Stop()

	assert.Equal(t, StateStopped, s.State())
	assert.False(t, s.Tick())
	assert.Error(t, s.DragStart("A::s1"))
	s.SetGraph(testGraph())
	assert.Equal(t, StateStopped, s.State())
	require.NoError(t, s.SetParams(DefaultParams()))
	assert.Equal(t, StateStopped, s.State())
}
