// Package reconcile merges topology snapshots from several controllers into
// one graph.
//
// [Merge] is the pure core: given the current merged graph and one source's
// new snapshot it returns the next graph, or the very same graph when the
// source's node and link sets did not change. [Reconciler] adds the state
// around it: fading deadlines for nodes that disappeared, and purging of a
// whole source on disconnect.
package reconcile

import (
	"strings"

	"github.com/4ry1337/openvis/pkg/topology"
)

// Result is the outcome of a merge.
type Result struct {
	Graph   topology.Graph
	Changed bool

	// Removed lists own nodes that were live and are absent from the
	// snapshot. They stay in Graph and should start fading.
	Removed []string

	// Revived lists own nodes that were fading and reappeared.
	Revived []string
}

// FadingFunc reports whether a node is currently fading out.
type FadingFunc func(id string) bool

// Merge computes the merged graph after source reported snap.
//
// Only the source's own partition is compared: live own node ids against the
// incoming ids, and own link keys against the incoming link keys. Incoming
// links whose endpoints are not in the snapshot are dropped before the
// comparison. When nothing differs, the returned graph is current itself.
//
// On change, foreign nodes and links are kept untouched, incoming nodes that
// replace an own node inherit its kinematics, own nodes missing from the
// snapshot stay in the graph (reported in Removed), and own links are
// replaced wholesale by the incoming ones.
//
// Merge never fails and never modifies current or snap.
func Merge(current topology.Graph, fading FadingFunc, source string, snap topology.Snapshot) Result {
	if fading == nil {
		fading = func(string) bool { return false }
	}
	prefix := topology.Prefix(source)
	incoming := topology.NamespaceSnapshot(source, snap)

	nodes, order := dedupeNodes(incoming.Nodes)
	links := validLinks(incoming.Links, nodes)

	if !ownPartitionChanged(current, fading, prefix, nodes, links) {
		return Result{Graph: current}
	}

	next := topology.Graph{
		Nodes: make([]*topology.Node, 0, len(current.Nodes)+len(nodes)),
		Links: make([]*topology.Link, 0, len(current.Links)+len(links)),
	}
	var res Result
	seen := make(map[string]bool, len(nodes))

	for _, n := range current.Nodes {
		if !strings.HasPrefix(n.ID, prefix) {
			next.Nodes = append(next.Nodes, n)
			continue
		}
		in, ok := nodes[n.ID]
		if !ok {
			if !fading(n.ID) {
				res.Removed = append(res.Removed, n.ID)
			}
			next.Nodes = append(next.Nodes, n)
			continue
		}
		fresh := *in
		fresh.CopyKinematics(n)
		next.Nodes = append(next.Nodes, &fresh)
		seen[n.ID] = true
		if fading(n.ID) {
			res.Revived = append(res.Revived, n.ID)
		}
	}
	for _, id := range order {
		if seen[id] {
			continue
		}
		fresh := *nodes[id]
		next.Nodes = append(next.Nodes, &fresh)
	}

	for _, l := range current.Links {
		if !strings.HasPrefix(l.SourceID, prefix) {
			next.Links = append(next.Links, l)
		}
	}
	next.Links = append(next.Links, links...)

	res.Graph = next
	res.Changed = true
	return res
}

// dedupeNodes indexes nodes by id, keeping the first occurrence, and returns
// the ids in input order.
func dedupeNodes(in []topology.Node) (map[string]*topology.Node, []string) {
	nodes := make(map[string]*topology.Node, len(in))
	order := make([]string, 0, len(in))
	for i := range in {
		n := &in[i]
		if _, dup := nodes[n.ID]; dup {
			continue
		}
		nodes[n.ID] = n
		order = append(order, n.ID)
	}
	return nodes, order
}

// validLinks keeps links whose endpoints are both in nodes, dropping
// duplicates by key.
func validLinks(in []topology.Link, nodes map[string]*topology.Node) []*topology.Link {
	out := make([]*topology.Link, 0, len(in))
	seen := make(map[topology.LinkKey]bool, len(in))
	for i := range in {
		l := in[i]
		if nodes[l.SourceID] == nil || nodes[l.TargetID] == nil {
			continue
		}
		if seen[l.Key()] {
			continue
		}
		seen[l.Key()] = true
		out = append(out, &l)
	}
	return out
}

func ownPartitionChanged(current topology.Graph, fading FadingFunc, prefix string,
	nodes map[string]*topology.Node, links []*topology.Link) bool {
	live := 0
	for _, n := range current.Nodes {
		if !strings.HasPrefix(n.ID, prefix) || fading(n.ID) {
			continue
		}
		if nodes[n.ID] == nil {
			return true
		}
		live++
	}
	if live != len(nodes) {
		return true
	}

	keys := make(map[topology.LinkKey]bool, len(links))
	for _, l := range links {
		keys[l.Key()] = true
	}
	own := 0
	for _, l := range current.Links {
		if !strings.HasPrefix(l.SourceID, prefix) {
			continue
		}
		if !keys[l.Key()] {
			return true
		}
		own++
	}
	return own != len(keys)
}
