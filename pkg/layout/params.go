package layout

import (
	"fmt"

	"github.com/4ry1337/openvis/pkg/topology"
)

// Params are the user-tunable force parameters.
type Params struct {
	CenterForce  float64 `json:"centerForce" toml:"center_force" bson:"centerForce"`
	RepelForce   float64 `json:"repelForce" toml:"repel_force" bson:"repelForce"`
	LinkForce    float64 `json:"linkForce" toml:"link_force" bson:"linkForce"`
	LinkDistance float64 `json:"linkDistance" toml:"link_distance" bson:"linkDistance"`
}

// Parameter ranges exposed to users.
const (
	MaxCenterForce  = 1.0
	MaxRepelForce   = 1000.0
	MaxLinkForce    = 1.0
	MinLinkDistance = 30.0
	MaxLinkDistance = 500.0
)

// DefaultParams returns the parameters used on first run and after a reset.
func DefaultParams() Params {
	return Params{
		CenterForce:  1,
		RepelForce:   300,
		LinkForce:    0.5,
		LinkDistance: 100,
	}
}

// Validate checks every parameter against its range.
func (p Params) Validate() error {
	switch {
	case p.CenterForce < 0 || p.CenterForce > MaxCenterForce:
		return fmt.Errorf("centerForce %v out of range [0, %v]", p.CenterForce, MaxCenterForce)
	case p.RepelForce < 0 || p.RepelForce > MaxRepelForce:
		return fmt.Errorf("repelForce %v out of range [0, %v]", p.RepelForce, MaxRepelForce)
	case p.LinkForce < 0 || p.LinkForce > MaxLinkForce:
		return fmt.Errorf("linkForce %v out of range [0, %v]", p.LinkForce, MaxLinkForce)
	case p.LinkDistance < MinLinkDistance || p.LinkDistance > MaxLinkDistance:
		return fmt.Errorf("linkDistance %v out of range [%v, %v]", p.LinkDistance, MinLinkDistance, MaxLinkDistance)
	}
	return nil
}

// Filter selects which node types are visible. Hidden nodes still take part
// in the physics.
type Filter struct {
	ShowControllers bool `json:"showControllers" toml:"show_controllers" bson:"showControllers"`
	ShowSwitches    bool `json:"showSwitches" toml:"show_switches" bson:"showSwitches"`
	ShowHosts       bool `json:"showHosts" toml:"show_hosts" bson:"showHosts"`
}

// DefaultFilter shows everything.
func DefaultFilter() Filter {
	return Filter{ShowControllers: true, ShowSwitches: true, ShowHosts: true}
}

// Visible reports whether nodes of type t are shown.
func (f Filter) Visible(t topology.NodeType) bool {
	switch t {
	case topology.TypeController:
		return f.ShowControllers
	case topology.TypeSwitch:
		return f.ShowSwitches
	case topology.TypeHost:
		return f.ShowHosts
	}
	return true
}

// DropBehavior decides what happens to a node when a drag ends.
type DropBehavior string

const (
	// ReleaseOnDrop frees the node back into the simulation.
	ReleaseOnDrop DropBehavior = "release"
	// PinOnDrop leaves the node fixed where it was dropped.
	PinOnDrop DropBehavior = "pin"
)

// ParseDropBehavior parses "release" or "pin". Empty selects ReleaseOnDrop.
func ParseDropBehavior(s string) (DropBehavior, error) {
	switch DropBehavior(s) {
	case "", ReleaseOnDrop:
		return ReleaseOnDrop, nil
	case PinOnDrop:
		return PinOnDrop, nil
	}
	return "", fmt.Errorf("unknown drop behavior %q (want release or pin)", s)
}
