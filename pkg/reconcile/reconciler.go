package reconcile

import (
	"sort"
	"strings"
	"time"

	"k8s.io/utils/clock"

	"github.com/4ry1337/openvis/pkg/observability"
	"github.com/4ry1337/openvis/pkg/topology"
)

// DefaultFadeWindow is how long a removed node stays visible before it is
// purged.
const DefaultFadeWindow = 2500 * time.Millisecond

// Config configures a Reconciler.
type Config struct {
	FadeWindow time.Duration      // defaults to DefaultFadeWindow
	Clock      clock.PassiveClock // defaults to the real clock
}

// Reconciler owns the merged graph and the fading deadlines.
//
// A Reconciler is not safe for concurrent use; the engine serializes every
// call on its event loop.
type Reconciler struct {
	clock  clock.PassiveClock
	window time.Duration

	graph  topology.Graph
	fading map[string]time.Time
}

// New creates an empty Reconciler.
func New(cfg Config) *Reconciler {
	if cfg.FadeWindow <= 0 {
		cfg.FadeWindow = DefaultFadeWindow
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.RealClock{}
	}
	return &Reconciler{
		clock:  cfg.Clock,
		window: cfg.FadeWindow,
		fading: make(map[string]time.Time),
	}
}

// Graph returns the current merged graph.
func (r *Reconciler) Graph() topology.Graph { return r.graph }

// IsFading reports whether id is scheduled for removal.
func (r *Reconciler) IsFading(id string) bool {
	_, ok := r.fading[id]
	return ok
}

// FadingCount returns the number of nodes currently fading.
func (r *Reconciler) FadingCount() int { return len(r.fading) }

// Apply merges snap from source. It reports whether the graph changed; when
// it did not, the returned graph is the previous one.
func (r *Reconciler) Apply(source string, snap topology.Snapshot) (topology.Graph, bool) {
	start := time.Now()
	res := Merge(r.graph, r.IsFading, source, snap)
	hooks := observability.Reconcile()
	hooks.OnMerge(source, res.Changed, len(res.Removed), len(res.Revived), time.Since(start))
	if !res.Changed {
		return r.graph, false
	}
	r.graph = res.Graph
	for _, id := range res.Revived {
		delete(r.fading, id)
	}
	deadline := r.clock.Now().Add(r.window)
	for _, id := range res.Removed {
		r.fading[id] = deadline
	}
	r.reportSize()
	return r.graph, true
}

// Sweep purges every fading node whose deadline has passed, together with
// the links touching it, and returns the purged ids in sorted order.
func (r *Reconciler) Sweep() []string {
	if len(r.fading) == 0 {
		return nil
	}
	now := r.clock.Now()
	var expired []string
	for id, deadline := range r.fading {
		if !now.Before(deadline) {
			expired = append(expired, id)
		}
	}
	if len(expired) == 0 {
		return nil
	}
	sort.Strings(expired)

	gone := make(map[string]bool, len(expired))
	for _, id := range expired {
		gone[id] = true
		delete(r.fading, id)
	}
	r.remove(func(id string) bool { return gone[id] })
	observability.Reconcile().OnPurge("expired", len(expired))
	r.reportSize()
	return expired
}

// Purge removes every node and link of source immediately and returns the
// number of nodes removed.
func (r *Reconciler) Purge(source string) int {
	prefix := topology.Prefix(source)
	before := len(r.graph.Nodes)
	r.remove(func(id string) bool { return strings.HasPrefix(id, prefix) })
	for id := range r.fading {
		if strings.HasPrefix(id, prefix) {
			delete(r.fading, id)
		}
	}
	n := before - len(r.graph.Nodes)
	if n > 0 {
		observability.Reconcile().OnPurge("disconnect", n)
		r.reportSize()
	}
	return n
}

// Fade schedules every live node of source for removal after the fade
// window and returns the ids that started fading.
func (r *Reconciler) Fade(source string) []string {
	prefix := topology.Prefix(source)
	deadline := r.clock.Now().Add(r.window)
	var ids []string
	for _, n := range r.graph.Nodes {
		if !strings.HasPrefix(n.ID, prefix) || r.IsFading(n.ID) {
			continue
		}
		r.fading[n.ID] = deadline
		ids = append(ids, n.ID)
	}
	r.reportSize()
	return ids
}

// remove rebuilds the graph without the matching nodes and without any link
// touching them.
func (r *Reconciler) remove(match func(id string) bool) {
	next := topology.Graph{
		Nodes: make([]*topology.Node, 0, len(r.graph.Nodes)),
		Links: make([]*topology.Link, 0, len(r.graph.Links)),
	}
	for _, n := range r.graph.Nodes {
		if !match(n.ID) {
			next.Nodes = append(next.Nodes, n)
		}
	}
	for _, l := range r.graph.Links {
		if !match(l.SourceID) && !match(l.TargetID) {
			next.Links = append(next.Links, l)
		}
	}
	r.graph = next
}

func (r *Reconciler) reportSize() {
	observability.Reconcile().OnGraphSize(len(r.graph.Nodes), len(r.graph.Links), len(r.fading))
}
