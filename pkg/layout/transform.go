package layout

// Scale extent of the pan/zoom transform.
const (
	MinZoom = 0.1
	MaxZoom = 4.0
)

// Transform maps simulation coordinates to screen coordinates:
// screen = sim*K + (X, Y). It never changes simulation state.
type Transform struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	K float64 `json:"k"`
}

// IdentityTransform returns the transform with no pan and scale 1.
func IdentityTransform() Transform { return Transform{K: 1} }

// Clamp limits the scale to [MinZoom, MaxZoom]. A zero scale becomes 1.
func (t Transform) Clamp() Transform {
	switch {
	case t.K == 0:
		t.K = 1
	case t.K < MinZoom:
		t.K = MinZoom
	case t.K > MaxZoom:
		t.K = MaxZoom
	}
	return t
}

// Apply maps a simulation point to the screen.
func (t Transform) Apply(x, y float64) (float64, float64) {
	return x*t.K + t.X, y*t.K + t.Y
}

// Invert maps a screen point back to simulation coordinates.
func (t Transform) Invert(sx, sy float64) (float64, float64) {
	return (sx - t.X) / t.K, (sy - t.Y) / t.K
}

// Pan translates the view by (dx, dy) screen pixels.
func (t Transform) Pan(dx, dy float64) Transform {
	t.X += dx
	t.Y += dy
	return t
}

// ZoomAt scales the view by factor keeping the screen point (cx, cy) fixed.
// The resulting scale is clamped.
func (t Transform) ZoomAt(factor, cx, cy float64) Transform {
	k := Transform{K: t.K * factor}.Clamp().K
	// The simulation point under (cx, cy) must stay under it.
	px, py := t.Invert(cx, cy)
	return Transform{X: cx - px*k, Y: cy - py*k, K: k}
}
