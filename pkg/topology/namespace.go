package topology

import (
	"strings"
)

// Separator joins the escaped source and the raw id of a namespaced id.
const Separator = "::"

var (
	sourceEscaper   = strings.NewReplacer("%", "%25", ":", "%3A")
	sourceUnescaper = strings.NewReplacer("%3A", ":", "%25", "%")
)

// Namespace returns the globally unique id of raw as reported by source.
// The source is escaped so it never contains ':'; the raw id is kept as is.
func Namespace(source, raw string) string {
	return Prefix(source) + raw
}

// Prefix returns the id prefix shared by every node and link of source.
// A prefix test partitions a merged graph by source.
func Prefix(source string) string {
	return sourceEscaper.Replace(source) + Separator
}

// Split reverses Namespace. ok is false when id is not namespaced.
func Split(id string) (source, raw string, ok bool) {
	i := strings.Index(id, Separator)
	if i < 0 {
		return "", id, false
	}
	return sourceUnescaper.Replace(id[:i]), id[i+len(Separator):], true
}

// Raw returns the raw id part of a namespaced id, or id itself.
func Raw(id string) string {
	_, raw, _ := Split(id)
	return raw
}

// Source returns the source part of a namespaced id, or "".
func Source(id string) string {
	src, _, _ := Split(id)
	return src
}

// NamespaceSnapshot returns a copy of snap with every node and link id
// namespaced by source. Details are shared, not copied.
func NamespaceSnapshot(source string, snap Snapshot) Snapshot {
	prefix := Prefix(source)
	out := Snapshot{
		Nodes: make([]Node, len(snap.Nodes)),
		Links: make([]Link, len(snap.Links)),
	}
	for i, n := range snap.Nodes {
		out.Nodes[i] = Node{
			ID:      prefix + n.ID,
			Type:    n.Type,
			Label:   n.Label,
			Details: n.Details,
		}
	}
	for i, l := range snap.Links {
		l.SourceID = prefix + l.SourceID
		l.TargetID = prefix + l.TargetID
		out.Links[i] = l
	}
	return out
}
