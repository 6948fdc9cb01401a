// Package topology defines the network topology data model shared by every
// openvis component.
//
// # Overview
//
// A controller reports its view of the network as a [Snapshot]: a full (never
// incremental) list of [Node] and [Link] records with controller-local ids.
// Before snapshots from several controllers can be merged into one [Graph],
// every id is namespaced by its source with [Namespace]:
//
//	id := topology.Namespace("http://10.0.0.1:8080", "00:00:00:00:00:00:00:01")
//	src, raw, ok := topology.Split(id) // round-trips exactly
//
// The source part is escaped (% becomes %25, : becomes %3A) so the first "::"
// in a namespaced id is always the separator. Raw ids are kept verbatim and may
// themselves contain "::".
//
// # Node Details
//
// Per-type metadata and metrics are a closed tagged union: [ControllerDetails],
// [SwitchDetails] and [HostDetails], selected by [Node.Type]. JSON decoding
// picks the variant from the "type" field and rejects unknown types.
//
// # Kinematics
//
// Nodes carry the physics state owned by the layout engine (position,
// velocity, pin). Those fields never appear in JSON; the reconciler copies them
// forward across merges so a refreshed node does not jump.
package topology
