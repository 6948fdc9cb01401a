package topology

import (
	"encoding/json"
	"fmt"
)

// nodeJSON is the wire form of a Node: {"id","type","label","metadata","metrics"}.
type nodeJSON struct {
	ID       string          `json:"id"`
	Type     NodeType        `json:"type"`
	Label    string          `json:"label"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
	Metrics  json.RawMessage `json:"metrics,omitempty"`
}

// MarshalJSON encodes the node with its details flattened into metadata and
// metrics. Kinematic fields are never encoded.
func (n Node) MarshalJSON() ([]byte, error) {
	out := nodeJSON{ID: n.ID, Type: n.Type, Label: n.Label}
	if n.Details != nil {
		meta, metrics := n.Details.payload()
		var err error
		if out.Metadata, err = json.Marshal(meta); err != nil {
			return nil, fmt.Errorf("node %q metadata: %w", n.ID, err)
		}
		if out.Metrics, err = json.Marshal(metrics); err != nil {
			return nil, fmt.Errorf("node %q metrics: %w", n.ID, err)
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a node, choosing the details variant from "type".
// Unknown types are rejected.
func (n *Node) UnmarshalJSON(data []byte) error {
	var in nodeJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	details := NewDetails(in.Type)
	if details == nil {
		return fmt.Errorf("node %q: unknown type %q", in.ID, in.Type)
	}

	var meta, metrics any
	switch d := details.(type) {
	case *ControllerDetails:
		meta, metrics = &d.Metadata, &d.Metrics
	case *SwitchDetails:
		meta, metrics = &d.Metadata, &d.Metrics
	case *HostDetails:
		meta, metrics = &d.Metadata, &d.Metrics
	}
	if len(in.Metadata) > 0 && string(in.Metadata) != "null" {
		if err := json.Unmarshal(in.Metadata, meta); err != nil {
			return fmt.Errorf("node %q metadata: %w", in.ID, err)
		}
	}
	if len(in.Metrics) > 0 && string(in.Metrics) != "null" {
		if err := json.Unmarshal(in.Metrics, metrics); err != nil {
			return fmt.Errorf("node %q metrics: %w", in.ID, err)
		}
	}

	*n = Node{ID: in.ID, Type: in.Type, Label: in.Label, Details: details}
	return nil
}
