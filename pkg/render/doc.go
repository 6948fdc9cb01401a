// Package render turns layout frames into static images.
//
// The [nodelink] subpackage writes a frame as Graphviz DOT with every node
// pinned where the simulation put it, and renders that to SVG in-process.
// [ToPDF] and [ToPNG] convert any SVG further using the external
// rsvg-convert tool (from librsvg):
//
//	dot := nodelink.ToDOT(frame, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//	png, err := render.ToPNG(ctx, svg, 2.0)
//
// [nodelink]: github.com/4ry1337/openvis/pkg/render/nodelink
package render
