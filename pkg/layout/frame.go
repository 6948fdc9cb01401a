package layout

import (
	"github.com/4ry1337/openvis/pkg/topology"
)

// Rendering opacities.
const (
	OpacityHidden  = 0.0
	OpacityFading  = 0.5
	OpacityVisible = 1.0
	linkOpacity    = 0.6
)

// NodeFrame is the rendered state of one node.
type NodeFrame struct {
	ID      string            `json:"id"`
	Label   string            `json:"label"`
	Type    topology.NodeType `json:"type"`
	Color   string            `json:"color"`
	X       float64           `json:"x"` // screen space
	Y       float64           `json:"y"`
	Opacity float64           `json:"opacity"`
	Pinned  bool              `json:"pinned,omitempty"`
	Fading  bool              `json:"fading,omitempty"`
}

// LinkFrame is the rendered state of one link.
type LinkFrame struct {
	SourceID string  `json:"source"`
	TargetID string  `json:"target"`
	X1       float64 `json:"x1"`
	Y1       float64 `json:"y1"`
	X2       float64 `json:"x2"`
	Y2       float64 `json:"y2"`
	Opacity  float64 `json:"opacity"`
}

// Frame is the per-tick output of the simulation.
type Frame struct {
	Seq       uint64      `json:"seq"`
	State     State       `json:"state"`
	Alpha     float64     `json:"alpha"`
	Transform Transform   `json:"transform"`
	Nodes     []NodeFrame `json:"nodes"`
	Links     []LinkFrame `json:"links"`
}

// Frame renders the current positions. fading reports nodes in their fade
// window; it may be nil.
func (s *Simulation) Frame(fading func(id string) bool) Frame {
	if fading == nil {
		fading = func(string) bool { return false }
	}
	f := Frame{
		Seq:       s.ticks,
		State:     s.state,
		Alpha:     s.alpha,
		Transform: s.transform,
		Nodes:     make([]NodeFrame, len(s.nodes)),
		Links:     make([]LinkFrame, 0, len(s.links)),
	}

	opacity := make(map[string]float64, len(s.nodes))
	for i, n := range s.nodes {
		nf := NodeFrame{
			ID:      n.ID,
			Label:   n.DisplayLabel(),
			Type:    n.Type,
			Color:   n.Type.Color(),
			Opacity: OpacityVisible,
			Pinned:  n.Pinned(),
			Fading:  fading(n.ID),
		}
		nf.X, nf.Y = s.transform.Apply(n.X, n.Y)
		switch {
		case !s.filter.Visible(n.Type):
			nf.Opacity = OpacityHidden
		case nf.Fading:
			nf.Opacity = OpacityFading
		}
		opacity[n.ID] = nf.Opacity
		f.Nodes[i] = nf
	}

	for _, l := range s.links {
		i, ok1 := s.index[l.SourceID]
		j, ok2 := s.index[l.TargetID]
		if !ok1 || !ok2 {
			continue
		}
		lf := LinkFrame{SourceID: l.SourceID, TargetID: l.TargetID}
		lf.X1, lf.Y1 = s.transform.Apply(s.nodes[i].X, s.nodes[i].Y)
		lf.X2, lf.Y2 = s.transform.Apply(s.nodes[j].X, s.nodes[j].Y)
		lf.Opacity = linkOpacity * min(opacity[l.SourceID], opacity[l.TargetID])
		f.Links = append(f.Links, lf)
	}
	return f
}
