package topology

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeUnmarshalPicksVariant(t *testing.T) {
	data := `{"id":"00:00:00:00:00:00:00:01","type":"switch","label":"s1",
		"metadata":{"dpid":"00:00:00:00:00:00:00:01","openflow_version":"OF_13"},
		"metrics":{"ports":4}}`

	var n Node
	require.NoError(t, json.Unmarshal([]byte(data), &n))

	assert.Equal(t, TypeSwitch, n.Type)
	d, ok := n.Details.(*SwitchDetails)
	require.True(t, ok, "details = %T", n.Details)
	assert.Equal(t, "OF_13", d.Metadata.OpenFlowVersion)
	assert.Equal(t, 4, d.Metrics.Ports)
}

func TestNodeUnmarshalWithoutPayload(t *testing.T) {
	var n Node
	require.NoError(t, json.Unmarshal([]byte(`{"id":"c","type":"controller","label":"Controller"}`), &n))
	assert.IsType(t, &ControllerDetails{}, n.Details)
}

func TestNodeUnmarshalRejectsUnknownType(t *testing.T) {
	var n Node
	err := json.Unmarshal([]byte(`{"id":"r1","type":"router","label":"r1"}`), &n)
	assert.Error(t, err)
}

func TestNodeMarshalOmitsKinematics(t *testing.T) {
	n := Node{ID: "h1", Type: TypeHost, Label: "h1", X: 10, Y: 20,
		Details: &HostDetails{Metadata: HostMetadata{MAC: []string{"aa:bb"}}}}
	n.Pin(1, 2)

	data, err := json.Marshal(n)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.ElementsMatch(t, []string{"id", "type", "label", "metadata", "metrics"}, keys(raw))
}

func TestSnapshotUnmarshal(t *testing.T) {
	data := `{"nodes":[{"id":"s1","type":"switch","label":"s1"},{"id":"h1","type":"host","label":"h1"}],
		"links":[{"source_id":"h1","target_id":"s1"}]}`

	var snap Snapshot
	require.NoError(t, json.Unmarshal([]byte(data), &snap))
	require.NoError(t, snap.Validate())
	assert.Len(t, snap.Nodes, 2)
	assert.Equal(t, LinkKey{"h1", "s1"}, snap.Links[0].Key())
}

func TestNodeValidate(t *testing.T) {
	tests := []struct {
		name    string
		node    Node
		wantErr bool
	}{
		{"valid", Node{ID: "s1", Type: TypeSwitch, Details: &SwitchDetails{}}, false},
		{"nil details", Node{ID: "s1", Type: TypeSwitch}, false},
		{"empty id", Node{Type: TypeSwitch}, true},
		{"unknown type", Node{ID: "x", Type: "router"}, true},
		{"mismatched details", Node{ID: "s1", Type: TypeSwitch, Details: &HostDetails{}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.node.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCopyKinematicsDetachesPin(t *testing.T) {
	src := &Node{X: 1, Y: 2, VX: 3, VY: 4, Placed: true}
	src.Pin(5, 6)

	var dst Node
	dst.CopyKinematics(src)
	*src.FX = 99

	assert.Equal(t, 1.0, dst.X)
	assert.Equal(t, 4.0, dst.VY)
	assert.True(t, dst.Placed)
	require.True(t, dst.Pinned())
	assert.Equal(t, 5.0, *dst.FX)
}

func TestGraphCheckLinks(t *testing.T) {
	g := Graph{
		Nodes: []*Node{{ID: "a"}, {ID: "b"}},
		Links: []*Link{{SourceID: "a", TargetID: "b"}},
	}
	assert.NoError(t, g.CheckLinks())

	g.Links = append(g.Links, &Link{SourceID: "a", TargetID: "c"})
	assert.Error(t, g.CheckLinks())
}

func TestDisplayLabel(t *testing.T) {
	n := Node{ID: Namespace("http://x", "00:01")}
	assert.Equal(t, "00:01", n.DisplayLabel())
	n.Label = "s1"
	assert.Equal(t, "s1", n.DisplayLabel())
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
