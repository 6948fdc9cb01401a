// Package pkg holds the openvis libraries: a multi-controller SDN topology
// visualizer.
//
// # Overview
//
// openvis polls one or more SDN controllers, merges their topologies into one
// namespaced graph and lays it out with a force-directed simulation. The
// layout is streamed to browsers as frames. Data flows through the packages
// like this:
//
//	Floodlight REST API / replay files
//	         ↓
//	    [source] (probe, poll, classify failures)
//	         ↓
//	    [connection] (per-controller lifecycle, retry loop)
//	         ↓
//	    [engine] (single event loop)
//	      ├─ [reconcile] (merge partitions, fade removed nodes)
//	      └─ [layout]    (forces, drag, zoom, frames)
//	         ↓
//	    [broadcast] → [server] (JSON API, server-sent events)
//
// # Main Packages
//
// [topology] - Node, link, snapshot and graph types plus the source::id
// namespacing that keeps controllers apart.
//
// [source] - The Source and Stream contracts and the polling loop. The
// floodlight subpackage speaks the Floodlight REST API; the file subpackage
// replays recorded snapshots.
//
// [connection] - The connection manager: one record per controller URL,
// driven through connecting, connected, unreachable, error and disconnected.
//
// [reconcile] - Per-source merge of snapshots into the graph, with a fade
// window before removed nodes are purged.
//
// [layout] - The force simulation: center, repel and link forces, the
// lifecycle states, drag handling and the pan/zoom transform.
//
// [engine] - Wires the above on one goroutine and publishes frames.
//
// [server] - HTTP routes over an engine, with a Prometheus endpoint.
//
// # Supporting Packages
//
// [store] - Preference persistence on file, Redis or MongoDB backends.
//
// [config] - The TOML configuration file.
//
// [errors] - Coded errors shared by every layer, plus URL and interval
// validation.
//
// [observability] and [metrics] - Hook interfaces and their Prometheus
// implementation.
//
// [render/nodelink] - Graphviz rendering of a frame to SVG, PDF or PNG.
//
// [topology]: github.com/4ry1337/openvis/pkg/topology
// [source]: github.com/4ry1337/openvis/pkg/source
// [connection]: github.com/4ry1337/openvis/pkg/connection
// [reconcile]: github.com/4ry1337/openvis/pkg/reconcile
// [layout]: github.com/4ry1337/openvis/pkg/layout
// [engine]: github.com/4ry1337/openvis/pkg/engine
// [broadcast]: github.com/4ry1337/openvis/pkg/broadcast
// [server]: github.com/4ry1337/openvis/pkg/server
// [store]: github.com/4ry1337/openvis/pkg/store
// [config]: github.com/4ry1337/openvis/pkg/config
// [errors]: github.com/4ry1337/openvis/pkg/errors
// [observability]: github.com/4ry1337/openvis/pkg/observability
// [metrics]: github.com/4ry1337/openvis/pkg/metrics
// [render/nodelink]: github.com/4ry1337/openvis/pkg/render/nodelink
package pkg
