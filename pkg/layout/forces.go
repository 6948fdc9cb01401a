package layout

import (
	"math"
)

// The forces below follow d3-force: each one adjusts node velocities (or,
// for centering, positions) in place and is scaled by the current alpha.

const (
	collideRadius = 30.0
	distanceMin2  = 1.0
)

// applyManyBody applies pairwise charge with the given (negative for
// repulsion) strength. Exact O(n^2); topologies stay small enough that the
// Barnes-Hut approximation is not needed.
func (s *Simulation) applyManyBody(alpha float64) {
	strength := -s.params.RepelForce
	if strength == 0 {
		return
	}
	nodes := s.nodes
	for i, a := range nodes {
		for j, b := range nodes {
			if i == j {
				continue
			}
			x := b.X - a.X
			y := b.Y - a.Y
			l := x*x + y*y
			if x == 0 {
				x = s.jiggle()
				l += x * x
			}
			if y == 0 {
				y = s.jiggle()
				l += y * y
			}
			if l < distanceMin2 {
				l = math.Sqrt(distanceMin2 * l)
			}
			w := strength * alpha / l
			a.VX += x * w
			a.VY += y * w
		}
	}
}

// applyLinks pulls linked nodes towards LinkDistance. The correction is
// split between the endpoints by degree, as d3 does.
func (s *Simulation) applyLinks(alpha float64) {
	strength := s.params.LinkForce
	distance := s.params.LinkDistance
	for i, e := range s.edges {
		src, tgt := s.nodes[e.source], s.nodes[e.target]
		x := tgt.X + tgt.VX - src.X - src.VX
		if x == 0 {
			x = s.jiggle()
		}
		y := tgt.Y + tgt.VY - src.Y - src.VY
		if y == 0 {
			y = s.jiggle()
		}
		l := math.Sqrt(x*x + y*y)
		l = (l - distance) / l * alpha * strength
		x *= l
		y *= l

		b := s.edges[i].bias
		tgt.VX -= x * b
		tgt.VY -= y * b
		b = 1 - b
		src.VX += x * b
		src.VY += y * b
	}
}

// applyCenter translates every node so the centre of mass moves towards
// the viewport centre.
func (s *Simulation) applyCenter() {
	n := len(s.nodes)
	if n == 0 || s.params.CenterForce == 0 {
		return
	}
	var sx, sy float64
	for _, node := range s.nodes {
		sx += node.X
		sy += node.Y
	}
	sx = (sx/float64(n) - s.width/2) * s.params.CenterForce
	sy = (sy/float64(n) - s.height/2) * s.params.CenterForce
	for _, node := range s.nodes {
		node.X -= sx
		node.Y -= sy
	}
}

// applyCollide separates overlapping nodes of equal radius.
func (s *Simulation) applyCollide() {
	const r = 2 * collideRadius
	nodes := s.nodes
	for i, a := range nodes {
		xi := a.X + a.VX
		yi := a.Y + a.VY
		for _, b := range nodes[i+1:] {
			x := xi - b.X - b.VX
			y := yi - b.Y - b.VY
			l := x*x + y*y
			if l >= r*r {
				continue
			}
			if x == 0 {
				x = s.jiggle()
				l += x * x
			}
			if y == 0 {
				y = s.jiggle()
				l += y * y
			}
			d := math.Sqrt(l)
			k := (r - d) / d
			x *= k
			y *= k
			// Equal radii split the correction evenly.
			a.VX += x * 0.5
			a.VY += y * 0.5
			b.VX -= x * 0.5
			b.VY -= y * 0.5
		}
	}
}

func (s *Simulation) jiggle() float64 {
	return (s.rng.Float64() - 0.5) * 1e-6
}
