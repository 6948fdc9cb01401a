package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frameNode(f Frame, id string) NodeFrame {
	for _, n := range f.Nodes {
		if n.ID == id {
			return n
		}
	}
	return NodeFrame{}
}

func TestFrameOpacity(t *testing.T) {
	s, _ := settled(t, Config{})
	s.SetFilter(Filter{ShowControllers: true, ShowSwitches: true, ShowHosts: false})

	f := s.Frame(func(id string) bool { return id == "A::s2" })

	assert.Equal(t, OpacityVisible, frameNode(f, "A::c").Opacity)
	assert.Equal(t, OpacityFading, frameNode(f, "A::s2").Opacity)
	assert.True(t, frameNode(f, "A::s2").Fading)
	assert.Equal(t, OpacityHidden, frameNode(f, "A::h1").Opacity)

	require.Len(t, f.Links, 4)
	for _, l := range f.Links {
		switch {
		case l.SourceID == "A::h1" || l.TargetID == "A::h1":
			assert.Zero(t, l.Opacity, "link touching a hidden node")
		case l.SourceID == "A::s2" || l.TargetID == "A::s2":
			assert.InDelta(t, linkOpacity*OpacityFading, l.Opacity, 1e-9)
		default:
			assert.InDelta(t, linkOpacity, l.Opacity, 1e-9)
		}
	}
}

func TestFrameLabelsAndColours(t *testing.T) {
	s, _ := settled(t, Config{})
	f := s.Frame(nil)

	c := frameNode(f, "A::c")
	assert.Equal(t, "c", c.Label)
	assert.Equal(t, "#22c55e", c.Color)
	assert.Equal(t, "#3b82f6", frameNode(f, "A::s1").Color)
	assert.Equal(t, "#a855f7", frameNode(f, "A::h1").Color)
}

func TestFrameAppliesTransformOnly(t *testing.T) {
	s, g := settled(t, Config{})
	n := g.Nodes[0]
	x, y := n.X, n.Y

	s.Zoom(Transform{X: 10, Y: -20, K: 2})
	f := s.Frame(nil)

	got := frameNode(f, n.ID)
	assert.InDelta(t, x*2+10, got.X, 1e-9)
	assert.InDelta(t, y*2-20, got.Y, 1e-9)
	assert.Equal(t, x, n.X)
	assert.Equal(t, y, n.Y)
	assert.False(t, s.Active(), "zoom must not reheat")
}

func TestTransformClamp(t *testing.T) {
	tests := []struct {
		k, want float64
	}{
		{0, 1},
		{0.01, MinZoom},
		{0.5, 0.5},
		{10, MaxZoom},
	}

	for _, tt := range tests {
		if got := (Transform{K: tt.k}).Clamp().K; got != tt.want {
			t.Errorf("Clamp(%v) = %v, want %v", tt.k, got, tt.want)
		}
	}
}

func TestTransformZoomAtKeepsPointFixed(t *testing.T) {
	tr := Transform{X: 30, Y: 40, K: 1.5}
	px, py := tr.Invert(200, 100)

	z := tr.ZoomAt(2, 200, 100)

	assert.Equal(t, 3.0, z.K)
	sx, sy := z.Apply(px, py)
	assert.InDelta(t, 200, sx, 1e-9)
	assert.InDelta(t, 100, sy, 1e-9)

	assert.Equal(t, MaxZoom, z.ZoomAt(10, 0, 0).K)
	assert.Equal(t, MinZoom, z.ZoomAt(0.001, 0, 0).K)
}

func TestTransformPan(t *testing.T) {
	tr := IdentityTransform().Pan(5, -5)
	x, y := tr.Apply(1, 1)
	assert.Equal(t, 6.0, x)
	assert.Equal(t, -4.0, y)
}
