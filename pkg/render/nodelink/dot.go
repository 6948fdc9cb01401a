package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/4ry1337/openvis/pkg/layout"
	"github.com/4ry1337/openvis/pkg/render"
	"github.com/4ry1337/openvis/pkg/topology"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed adds the node type and the full namespaced id to labels.
	// When false, only the display label is shown.
	Detailed bool
	// Title is drawn above the diagram when set.
	Title string
}

var shapes = map[topology.NodeType]string{
	topology.TypeController: "box",
	topology.TypeSwitch:     "ellipse",
	topology.TypeHost:       "circle",
}

// ToDOT converts a frame to Graphviz DOT with pinned node positions.
// The result can be rendered using [RenderSVG], [RenderPDF], or [RenderPNG].
func ToDOT(f layout.Frame, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("graph G {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  inputscale=72;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  outputorder=edgesfirst;\n")
	if opts.Title != "" {
		fmt.Fprintf(&buf, "  label=%q;\n  labelloc=t;\n", opts.Title)
	}
	buf.WriteString("  node [style=filled, fontcolor=white, fontsize=10, penwidth=0];\n")
	buf.WriteString("  edge [color=\"#999999\"];\n")
	buf.WriteString("\n")

	visible := make(map[string]bool, len(f.Nodes))
	for _, n := range f.Nodes {
		if n.Opacity <= layout.OpacityHidden {
			continue
		}
		visible[n.ID] = true
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(fmtAttrs(n, opts.Detailed), ", "))
	}

	buf.WriteString("\n")
	for _, l := range f.Links {
		if !visible[l.SourceID] || !visible[l.TargetID] {
			continue
		}
		fmt.Fprintf(&buf, "  %q -- %q;\n", l.SourceID, l.TargetID)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(n layout.NodeFrame, detailed bool) string {
	if !detailed {
		return n.Label
	}
	return n.Label + "\n" + string(n.Type) + "\n" + n.ID
}

func fmtAttrs(n layout.NodeFrame, detailed bool) []string {
	shape := shapes[n.Type]
	if shape == "" {
		shape = "ellipse"
	}
	fill := n.Color
	if n.Fading {
		fill += "80" // half transparent
	}
	attrs := []string{
		fmt.Sprintf("label=%q", fmtLabel(n, detailed)),
		fmt.Sprintf("pos=\"%s,%s!\"", fmtCoord(n.X), fmtCoord(-n.Y)),
		"shape=" + shape,
		fmt.Sprintf("fillcolor=%q", fill),
	}
	if n.Fading {
		attrs = append(attrs, "style=\"filled,dashed\"", "penwidth=1")
	}
	if n.Pinned {
		attrs = append(attrs, "peripheries=2")
	}
	return attrs
}

func fmtCoord(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

// RenderSVG renders a DOT graph to SVG using Graphviz's neato engine, which
// keeps the pinned positions.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}

// RenderPDF renders a DOT graph as PDF via SVG conversion.
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPDF(ctx context.Context, dot string) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(ctx, svg)
}

// RenderPNG renders a DOT graph as PNG via SVG conversion.
// A scale of 2.0 produces a 2x resolution image suitable for high-DPI displays.
func RenderPNG(ctx context.Context, dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(ctx, svg, scale)
}
