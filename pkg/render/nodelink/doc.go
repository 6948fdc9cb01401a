// Package nodelink renders topology frames as node-link diagrams.
//
// # Usage
//
// Convert a [layout.Frame] to DOT, then render to SVG:
//
//	dot := nodelink.ToDOT(frame, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// For PDF or PNG output, use the render functions:
//
//	pdf, err := nodelink.RenderPDF(ctx, dot)
//	png, err := nodelink.RenderPNG(ctx, dot, 2.0)  // 2x scale
//
// # Positions
//
// Every node is written with a pinned position (pos="x,y!") taken from the
// frame's screen coordinates, and the graph is laid out with the neato
// engine, so Graphviz draws the topology exactly where the force simulation
// placed it. The y axis is flipped because Graphviz grows upwards.
//
// Nodes hidden by the visibility filter are left out together with their
// links. Fading nodes are drawn dashed.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering. PDF and PNG conversion requires librsvg (rsvg-convert).
package nodelink
