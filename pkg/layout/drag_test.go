package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDragStartPinsAndRaisesTarget(t *testing.T) {
	s, g := settled(t, Config{})
	n := g.Nodes[1]
	x, y := n.X, n.Y

	require.NoError(t, s.DragStart(n.ID))

	require.True(t, n.Pinned())
	assert.Equal(t, x, *n.FX)
	assert.Equal(t, y, *n.FY)
	assert.Equal(t, dragAlphaTarget, s.AlphaTarget())
	assert.True(t, s.Active())
	assert.Equal(t, StateReheating, s.State())
	assert.Equal(t, n.ID, s.Dragging())

	// Alpha climbs towards the drag target instead of cooling.
	for range 200 {
		require.True(t, s.Tick())
	}
	assert.InDelta(t, dragAlphaTarget, s.Alpha(), 0.01)
	assert.Equal(t, StateReheating, s.State())
}

func TestDragMoveUpdatesPin(t *testing.T) {
	s, g := settled(t, Config{})
	n := g.Nodes[1]
	require.NoError(t, s.DragStart(n.ID))

	require.NoError(t, s.DragMove(n.ID, 123, 456))
	s.Tick()

	assert.Equal(t, 123.0, n.X)
	assert.Equal(t, 456.0, n.Y)
	assert.Zero(t, n.VX)
	assert.Zero(t, n.VY)
}

func TestDragEndReleasesByDefault(t *testing.T) {
	s, g := settled(t, Config{})
	n := g.Nodes[1]
	require.NoError(t, s.DragStart(n.ID))
	require.NoError(t, s.DragMove(n.ID, 700, 50))
	s.Tick()

	require.NoError(t, s.DragEnd(n.ID))

	assert.False(t, n.Pinned())
	assert.Zero(t, s.AlphaTarget())
	assert.Empty(t, s.Dragging())

	// Free again: the other nodes pull it away from the drop point.
	s.Settle(10_000)
	assert.NotEqual(t, 700.0, n.X)
	assert.NotEqual(t, 50.0, n.Y)
}

func TestDragEndPinOnDropKeepsNodeFixed(t *testing.T) {
	s, g := settled(t, Config{Drop: PinOnDrop})
	n := g.Nodes[1]
	require.NoError(t, s.DragStart(n.ID))
	require.NoError(t, s.DragMove(n.ID, 700, 50))

	require.NoError(t, s.DragEnd(n.ID))

	require.True(t, n.Pinned())
	assert.Zero(t, s.AlphaTarget())
	s.Settle(10_000)
	assert.Equal(t, 700.0, n.X)
	assert.Equal(t, 50.0, n.Y)

	require.NoError(t, s.Unpin(n.ID))
	assert.False(t, n.Pinned())
	assert.True(t, s.Active())
}

func TestDragErrors(t *testing.T) {
	s, g := settled(t, Config{})

	assert.Error(t, s.DragStart("missing"))
	assert.Error(t, s.DragMove(g.Nodes[0].ID, 1, 1), "move without start")
	assert.Error(t, s.DragEnd(g.Nodes[0].ID), "end without start")

	require.NoError(t, s.DragStart(g.Nodes[0].ID))
	assert.Error(t, s.DragMove(g.Nodes[1].ID, 1, 1), "move of another node")
}

func TestDraggedNodeRemovedFromGraph(t *testing.T) {
	s, g := settled(t, Config{})
	require.NoError(t, s.DragStart("A::h1"))

	g.Nodes = g.Nodes[:3]
	g.Links = g.Links[:3]
	s.SetGraph(g)

	assert.Empty(t, s.Dragging())
	assert.Zero(t, s.AlphaTarget())
}

func TestParseDropBehavior(t *testing.T) {
	tests := []struct {
		in      string
		want    DropBehavior
		wantErr bool
	}{
		{"", ReleaseOnDrop, false},
		{"release", ReleaseOnDrop, false},
		{"pin", PinOnDrop, false},
		{"stay", "", true},
	}

	for _, tt := range tests {
		got, err := ParseDropBehavior(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseDropBehavior(%q) = %q, %v", tt.in, got, err)
		}
	}
}
