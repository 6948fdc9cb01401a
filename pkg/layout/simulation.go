// Package layout runs the force-directed simulation over the merged topology.
//
// The simulation follows d3-force semantics: a cooling "alpha" scales every
// force, velocities decay each tick, and the run stops once alpha falls below
// a minimum until something reheats it. Four forces act on nodes: many-body
// repulsion, link springs, centering and collision.
//
// Topology changes swap the node and link slices without recreating nodes, so
// positions and velocities carried on each [topology.Node] survive. Filters
// and pan/zoom only affect the rendered [Frame].
//
// A Simulation is not safe for concurrent use.
package layout

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/4ry1337/openvis/pkg/topology"
)

// State is the lifecycle state of a simulation.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateRunning       State = "running"
	StateReheating     State = "reheating"
	StateStopped       State = "stopped"
)

const (
	alphaStart      = 1.0
	alphaMin        = 0.001
	velocityDecay   = 0.4
	dragAlphaTarget = 0.3
	settleThreshold = 0.1
	initialRadius   = 10.0
	defaultWidth    = 800.0
	defaultHeight   = 600.0

	rngStream = 0x6f70656e76697321
)

var (
	alphaDecay   = 1 - math.Pow(alphaMin, 1.0/300)
	initialAngle = math.Pi * (3 - math.Sqrt(5))
)

// Config configures a Simulation.
type Config struct {
	Width, Height float64 // viewport size, defaults to 800x600
	Params        Params
	Filter        Filter
	Drop          DropBehavior
	Seed          uint64 // jiggle randomness
}

type edge struct {
	source, target int
	bias           float64
}

// Simulation is a force-directed layout over topology nodes.
type Simulation struct {
	width, height float64
	params        Params
	filter        Filter
	drop          DropBehavior
	transform     Transform

	nodes []*topology.Node
	links []*topology.Link
	index map[string]int
	edges []edge

	alpha       float64
	alphaTarget float64
	active      bool
	state       State
	dragging    string
	ticks       uint64

	rng *rand.Rand
}

// New creates a simulation with no nodes in the uninitialized state.
// Zero Params and Filter select the defaults.
func New(cfg Config) *Simulation {
	if cfg.Width <= 0 {
		cfg.Width = defaultWidth
	}
	if cfg.Height <= 0 {
		cfg.Height = defaultHeight
	}
	if cfg.Params == (Params{}) {
		cfg.Params = DefaultParams()
	}
	if cfg.Filter == (Filter{}) {
		cfg.Filter = DefaultFilter()
	}
	if cfg.Drop == "" {
		cfg.Drop = ReleaseOnDrop
	}
	return &Simulation{
		width:     cfg.Width,
		height:    cfg.Height,
		params:    cfg.Params,
		filter:    cfg.Filter,
		drop:      cfg.Drop,
		transform: IdentityTransform(),
		index:     map[string]int{},
		alpha:     alphaStart,
		state:     StateUninitialized,
		rng:       rand.New(rand.NewPCG(cfg.Seed, rngStream)),
	}
}

// State returns the lifecycle state.
func (s *Simulation) State() State { return s.state }

// Alpha returns the current alpha.
func (s *Simulation) Alpha() float64 { return s.alpha }

// AlphaTarget returns the alpha the simulation is cooling towards.
func (s *Simulation) AlphaTarget() float64 { return s.alphaTarget }

// Active reports whether Tick will advance the simulation.
func (s *Simulation) Active() bool { return s.active && s.state != StateStopped }

// Params returns the force parameters.
func (s *Simulation) Params() Params { return s.params }

// Filter returns the visibility filter.
func (s *Simulation) Filter() Filter { return s.filter }

// Transform returns the pan/zoom transform.
func (s *Simulation) Transform() Transform { return s.transform }

// Nodes returns the simulated nodes.
func (s *Simulation) Nodes() []*topology.Node { return s.nodes }

// Links returns the simulated links.
func (s *Simulation) Links() []*topology.Link { return s.links }

// Dragging returns the id of the node being dragged, or "".
func (s *Simulation) Dragging() string { return s.dragging }

// Size returns the viewport size.
func (s *Simulation) Size() (width, height float64) { return s.width, s.height }

// SetGraph swaps in the nodes and links of g and reheats. Node objects are
// used as given, so kinematics already on them are kept; nodes without a
// position are placed around the viewport centre.
func (s *Simulation) SetGraph(g topology.Graph) {
	if s.state == StateStopped {
		return
	}
	s.nodes = append(s.nodes[:0:0], g.Nodes...)
	s.links = append(s.links[:0:0], g.Links...)
	s.index = make(map[string]int, len(s.nodes))
	for i, n := range s.nodes {
		s.index[n.ID] = i
	}
	s.initializeNodes()
	s.initializeEdges()

	if s.dragging != "" {
		if _, ok := s.index[s.dragging]; !ok {
			s.dragging = ""
			s.alphaTarget = 0
		}
	}

	if s.state == StateUninitialized {
		s.alpha = alphaStart
		s.active = true
		s.state = StateRunning
		return
	}
	s.reheat(alphaStart)
}

// SetParams replaces the force parameters and reheats. Nodes are untouched.
func (s *Simulation) SetParams(p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if s.state == StateStopped {
		return nil
	}
	s.params = p
	if s.state != StateUninitialized {
		s.reheat(alphaStart)
	}
	return nil
}

// SetFilter replaces the visibility filter. It never touches physics.
func (s *Simulation) SetFilter(f Filter) { s.filter = f }

// SetDropBehavior selects what DragEnd does with the node.
func (s *Simulation) SetDropBehavior(d DropBehavior) { s.drop = d }

// DropBehavior returns the configured drop behavior.
func (s *Simulation) DropBehavior() DropBehavior { return s.drop }

// DragStart pins the node at its current position and raises the alpha
// target so neighbours react while it moves.
func (s *Simulation) DragStart(id string) error {
	n, err := s.lookup(id)
	if err != nil {
		return err
	}
	s.dragging = id
	n.Pin(n.X, n.Y)
	s.alphaTarget = dragAlphaTarget
	s.restart()
	return nil
}

// DragMove moves the pin of the dragged node to (x, y), in simulation
// coordinates.
func (s *Simulation) DragMove(id string, x, y float64) error {
	n, err := s.lookup(id)
	if err != nil {
		return err
	}
	if s.dragging != id {
		return fmt.Errorf("node %q is not being dragged", id)
	}
	n.Pin(x, y)
	return nil
}

// DragEnd finishes the drag. With ReleaseOnDrop the pin is removed and the
// node moves freely again; with PinOnDrop it stays fixed.
func (s *Simulation) DragEnd(id string) error {
	n, err := s.lookup(id)
	if err != nil {
		return err
	}
	if s.dragging != id {
		return fmt.Errorf("node %q is not being dragged", id)
	}
	s.dragging = ""
	s.alphaTarget = 0
	if s.drop == ReleaseOnDrop {
		n.Unpin()
	}
	return nil
}

// Unpin releases a node pinned by an earlier PinOnDrop drag.
func (s *Simulation) Unpin(id string) error {
	n, err := s.lookup(id)
	if err != nil {
		return err
	}
	n.Unpin()
	s.reheat(dragAlphaTarget)
	return nil
}

// Zoom sets the pan/zoom transform, clamping the scale.
func (s *Simulation) Zoom(t Transform) { s.transform = t.Clamp() }

// Tick advances the simulation by one step. It returns false without doing
// anything once the simulation has cooled down or stopped.
func (s *Simulation) Tick() bool {
	if !s.Active() || s.state == StateUninitialized {
		return false
	}
	s.alpha += (s.alphaTarget - s.alpha) * alphaDecay

	s.applyManyBody(s.alpha)
	s.applyLinks(s.alpha)
	s.applyCenter()
	s.applyCollide()

	for _, n := range s.nodes {
		if n.FX != nil {
			n.X = *n.FX
			n.VX = 0
		} else {
			n.VX *= 1 - velocityDecay
			n.X += n.VX
		}
		if n.FY != nil {
			n.Y = *n.FY
			n.VY = 0
		} else {
			n.VY *= 1 - velocityDecay
			n.Y += n.VY
		}
	}
	s.ticks++

	if s.state == StateReheating && s.alpha <= settleThreshold && s.alphaTarget == 0 {
		s.state = StateRunning
	}
	if s.alpha < alphaMin {
		s.active = false
	}
	return true
}

// Settle ticks until the simulation cools down or maxTicks is reached and
// returns the number of ticks run.
func (s *Simulation) Settle(maxTicks int) int {
	n := 0
	for n < maxTicks && s.Tick() {
		n++
	}
	return n
}

// Stop ends the simulation for good.
func (s *Simulation) Stop() {
	s.state = StateStopped
	s.active = false
	s.dragging = ""
}

func (s *Simulation) reheat(alpha float64) {
	if s.state == StateStopped || s.state == StateUninitialized {
		return
	}
	if alpha > s.alpha {
		s.alpha = alpha
	}
	s.restart()
}

func (s *Simulation) restart() {
	if s.state == StateStopped {
		return
	}
	s.active = true
	if s.state != StateUninitialized {
		s.state = StateReheating
	}
}

func (s *Simulation) lookup(id string) (*topology.Node, error) {
	if s.state == StateStopped {
		return nil, fmt.Errorf("simulation stopped")
	}
	i, ok := s.index[id]
	if !ok {
		return nil, fmt.Errorf("unknown node %q", id)
	}
	return s.nodes[i], nil
}

// initializeNodes gives unplaced nodes a phyllotaxis position around the
// viewport centre and applies pins.
func (s *Simulation) initializeNodes() {
	cx, cy := s.width/2, s.height/2
	for i, n := range s.nodes {
		if n.FX != nil {
			n.X = *n.FX
		}
		if n.FY != nil {
			n.Y = *n.FY
		}
		if !n.Placed {
			if n.FX == nil || n.FY == nil {
				radius := initialRadius * math.Sqrt(0.5+float64(i))
				angle := float64(i) * initialAngle
				n.X = cx + radius*math.Cos(angle)
				n.Y = cy + radius*math.Sin(angle)
			}
			n.VX, n.VY = 0, 0
			n.Placed = true
		}
	}
}

// initializeEdges resolves link endpoints and the degree bias. Self-links
// and links with unknown endpoints exert no force.
func (s *Simulation) initializeEdges() {
	degree := make([]int, len(s.nodes))
	s.edges = s.edges[:0]
	for _, l := range s.links {
		si, ok1 := s.index[l.SourceID]
		ti, ok2 := s.index[l.TargetID]
		if !ok1 || !ok2 || si == ti {
			continue
		}
		s.edges = append(s.edges, edge{source: si, target: ti})
		degree[si]++
		degree[ti]++
	}
	for i := range s.edges {
		e := &s.edges[i]
		e.bias = float64(degree[e.source]) / float64(degree[e.source]+degree[e.target])
	}
}
