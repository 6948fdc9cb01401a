package topology

import (
	"fmt"
)

// =============================================================================
// Node Types
// =============================================================================

// NodeType is the closed set of node kinds.
type NodeType string

const (
	TypeController NodeType = "controller"
	TypeSwitch     NodeType = "switch"
	TypeHost       NodeType = "host"
)

// Valid reports whether t is one of the known node types.
func (t NodeType) Valid() bool {
	switch t {
	case TypeController, TypeSwitch, TypeHost:
		return true
	}
	return false
}

// Color returns the fill colour used when rendering nodes of this type.
func (t NodeType) Color() string {
	switch t {
	case TypeController:
		return "#22c55e"
	case TypeSwitch:
		return "#3b82f6"
	case TypeHost:
		return "#a855f7"
	}
	return "#6b7280"
}

// =============================================================================
// Details - Tagged Union
// =============================================================================

// Details is the per-type payload of a node. The set of implementations is
// closed: ControllerDetails, SwitchDetails and HostDetails.
type Details interface {
	NodeType() NodeType
	payload() (metadata, metrics any)
}

// ControllerMetadata describes the controller endpoint itself.
type ControllerMetadata struct {
	URL     string `json:"url,omitempty"`
	Kind    string `json:"kind,omitempty"` // e.g. "floodlight"
	Version string `json:"version,omitempty"`
}

// ControllerMetrics summarises what the controller currently manages.
type ControllerMetrics struct {
	Switches int `json:"switches"`
	Links    int `json:"links"`
	Hosts    int `json:"hosts"`
}

// ControllerDetails is the payload of a controller node.
type ControllerDetails struct {
	Metadata ControllerMetadata
	Metrics  ControllerMetrics
}

func (*ControllerDetails) NodeType() NodeType { return TypeController }

func (d *ControllerDetails) payload() (any, any) { return d.Metadata, d.Metrics }

// SwitchMetadata is the OpenFlow switch description.
type SwitchMetadata struct {
	DPID            string `json:"dpid"`
	InetAddress     string `json:"inet_address,omitempty"`
	OpenFlowVersion string `json:"openflow_version,omitempty"`
	ConnectedSince  int64  `json:"connected_since,omitempty"` // unix millis
}

// SwitchMetrics carries per-switch counters.
type SwitchMetrics struct {
	Ports   int    `json:"ports"`
	RxBytes uint64 `json:"rx_bytes"`
	TxBytes uint64 `json:"tx_bytes"`
}

// SwitchDetails is the payload of a switch node.
type SwitchDetails struct {
	Metadata SwitchMetadata
	Metrics  SwitchMetrics
}

func (*SwitchDetails) NodeType() NodeType { return TypeSwitch }

func (d *SwitchDetails) payload() (any, any) { return d.Metadata, d.Metrics }

// AttachmentPoint is the switch port a host is attached to.
type AttachmentPoint struct {
	Switch string `json:"switch"`
	Port   string `json:"port"`
}

// HostMetadata is the device record learned by the controller.
type HostMetadata struct {
	MAC              []string          `json:"mac,omitempty"`
	IPv4             []string          `json:"ipv4,omitempty"`
	IPv6             []string          `json:"ipv6,omitempty"`
	VLAN             []string          `json:"vlan,omitempty"`
	AttachmentPoints []AttachmentPoint `json:"attachment_points,omitempty"`
}

// HostMetrics carries per-host observations.
type HostMetrics struct {
	LastSeen int64 `json:"last_seen,omitempty"` // unix millis
}

// HostDetails is the payload of a host node.
type HostDetails struct {
	Metadata HostMetadata
	Metrics  HostMetrics
}

func (*HostDetails) NodeType() NodeType { return TypeHost }

func (d *HostDetails) payload() (any, any) { return d.Metadata, d.Metrics }

// NewDetails returns the zero payload for t, or nil if t is unknown.
func NewDetails(t NodeType) Details {
	switch t {
	case TypeController:
		return &ControllerDetails{}
	case TypeSwitch:
		return &SwitchDetails{}
	case TypeHost:
		return &HostDetails{}
	}
	return nil
}

// =============================================================================
// Node
// =============================================================================

// Node is one vertex of the topology.
//
// The kinematic fields (X through Placed) belong to the layout engine and are
// meaningful only while the node is part of a running simulation.
type Node struct {
	ID      string
	Type    NodeType
	Label   string
	Details Details // may be nil; must match Type when set

	X, Y   float64
	VX, VY float64
	FX, FY *float64 // fixed position while pinned
	Placed bool     // X/Y hold a real position
}

// Pinned reports whether the node has a fixed position.
func (n *Node) Pinned() bool { return n.FX != nil && n.FY != nil }

// Pin fixes the node at (x, y).
func (n *Node) Pin(x, y float64) {
	n.FX, n.FY = &x, &y
}

// Unpin releases the fixed position.
func (n *Node) Unpin() { n.FX, n.FY = nil, nil }

// CopyKinematics copies position, velocity and pin from src.
func (n *Node) CopyKinematics(src *Node) {
	n.X, n.Y = src.X, src.Y
	n.VX, n.VY = src.VX, src.VY
	n.Placed = src.Placed
	n.FX, n.FY = nil, nil
	if src.FX != nil {
		fx := *src.FX
		n.FX = &fx
	}
	if src.FY != nil {
		fy := *src.FY
		n.FY = &fy
	}
}

// DisplayLabel returns the label if set, otherwise the raw (un-namespaced) id.
func (n *Node) DisplayLabel() string {
	if n.Label != "" {
		return n.Label
	}
	return Raw(n.ID)
}

// Validate checks the node's identity and that Details matches Type.
func (n *Node) Validate() error {
	if n.ID == "" {
		return fmt.Errorf("node has empty id")
	}
	if !n.Type.Valid() {
		return fmt.Errorf("node %q: unknown type %q", n.ID, n.Type)
	}
	if n.Details != nil && n.Details.NodeType() != n.Type {
		return fmt.Errorf("node %q: %s details on %s node", n.ID, n.Details.NodeType(), n.Type)
	}
	return nil
}

// =============================================================================
// Link
// =============================================================================

// LinkMetadata describes an inter-switch link as reported by the controller.
type LinkMetadata struct {
	SrcPort   int    `json:"src_port,omitempty"`
	DstPort   int    `json:"dst_port,omitempty"`
	Type      string `json:"type,omitempty"`
	Direction string `json:"direction,omitempty"`
}

// LinkMetrics carries per-link observations.
type LinkMetrics struct {
	Latency int `json:"latency,omitempty"` // milliseconds
}

// Link is an edge between two nodes. Direction is nominal; physics treats
// links as undirected.
type Link struct {
	SourceID string        `json:"source_id"`
	TargetID string        `json:"target_id"`
	Metadata *LinkMetadata `json:"metadata,omitempty"`
	Metrics  *LinkMetrics  `json:"metrics,omitempty"`
}

// LinkKey is the identity of a link: the ordered pair of endpoint ids.
type LinkKey struct {
	Source, Target string
}

// Key returns the link identity.
func (l *Link) Key() LinkKey { return LinkKey{Source: l.SourceID, Target: l.TargetID} }

// =============================================================================
// Snapshot and Graph
// =============================================================================

// Snapshot is one full report of a controller's current nodes and links,
// with controller-local ids.
type Snapshot struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
}

// Validate rejects snapshots with malformed nodes or links. Links whose
// endpoints are missing are not an error; they are filtered during merge.
func (s *Snapshot) Validate() error {
	for i := range s.Nodes {
		if err := s.Nodes[i].Validate(); err != nil {
			return err
		}
	}
	for i, l := range s.Links {
		if l.SourceID == "" || l.TargetID == "" {
			return fmt.Errorf("link %d has an empty endpoint", i)
		}
	}
	return nil
}

// Graph is the merged, namespaced topology.
type Graph struct {
	Nodes []*Node `json:"nodes"`
	Links []*Link `json:"links"`
}

// Index returns the nodes keyed by id.
func (g Graph) Index() map[string]*Node {
	idx := make(map[string]*Node, len(g.Nodes))
	for _, n := range g.Nodes {
		idx[n.ID] = n
	}
	return idx
}

// Node returns the node with the given id, or nil.
func (g Graph) Node(id string) *Node {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// CheckLinks returns an error if any link references a node not in the graph.
func (g Graph) CheckLinks() error {
	idx := g.Index()
	for _, l := range g.Links {
		if idx[l.SourceID] == nil || idx[l.TargetID] == nil {
			return fmt.Errorf("link %s -> %s has a missing endpoint", l.SourceID, l.TargetID)
		}
	}
	return nil
}

// Counts returns the number of nodes per type.
func (g Graph) Counts() map[NodeType]int {
	out := make(map[NodeType]int, 3)
	for _, n := range g.Nodes {
		out[n.Type]++
	}
	return out
}
