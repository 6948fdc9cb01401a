package nodelink

import (
	"context"
	"strings"
	"testing"

	"github.com/4ry1337/openvis/pkg/layout"
	"github.com/4ry1337/openvis/pkg/topology"
)

func testFrame() layout.Frame {
	return layout.Frame{
		Nodes: []layout.NodeFrame{
			{ID: "a::c", Label: "Controller", Type: topology.TypeController, Color: "#4CAF50", X: 10, Y: 20, Opacity: 1},
			{ID: "a::s1", Label: "s1", Type: topology.TypeSwitch, Color: "#2196F3", X: 100, Y: 50, Opacity: 1, Pinned: true},
			{ID: "a::s2", Label: "s2", Type: topology.TypeSwitch, Color: "#2196F3", X: 150, Y: 50, Opacity: 0.5, Fading: true},
			{ID: "a::h1", Label: "10.0.0.1", Type: topology.TypeHost, Color: "#9C27B0", X: 0, Y: 0, Opacity: 0},
		},
		Links: []layout.LinkFrame{
			{SourceID: "a::c", TargetID: "a::s1"},
			{SourceID: "a::s1", TargetID: "a::s2"},
			{SourceID: "a::h1", TargetID: "a::s1"},
		},
	}
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(testFrame(), Options{})

	for _, want := range []string{
		"layout=neato",
		`"a::c" [label="Controller", pos="10.00,-20.00!", shape=box, fillcolor="#4CAF50"]`,
		`peripheries=2`,
		`style="filled,dashed"`,
		`"a::c" -- "a::s1";`,
		`"a::s1" -- "a::s2";`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
	if strings.Contains(dot, "a::h1") {
		t.Errorf("hidden host should be left out:\n%s", dot)
	}
}

func TestToDOTDetailed(t *testing.T) {
	dot := ToDOT(testFrame(), Options{Detailed: true, Title: "lab"})
	if !strings.Contains(dot, `label="s1\nswitch\na::s1"`) {
		t.Errorf("detailed label missing:\n%s", dot)
	}
	if !strings.Contains(dot, `label="lab"`) {
		t.Errorf("title missing:\n%s", dot)
	}
}

func TestToDOTEmpty(t *testing.T) {
	dot := ToDOT(layout.Frame{}, Options{})
	if !strings.HasPrefix(dot, "graph G {") || !strings.HasSuffix(dot, "}\n") {
		t.Errorf("unexpected DOT:\n%s", dot)
	}
}

func TestRenderSVG(t *testing.T) {
	svg, err := RenderSVG(context.Background(), ToDOT(testFrame(), Options{}))
	if err != nil {
		t.Fatalf("RenderSVG: %v", err)
	}
	if !strings.Contains(string(svg), "<svg") {
		t.Errorf("output is not SVG: %.200s", svg)
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="10pt" height="20pt" viewBox="0.00 0.00 10.00 20.00" xmlns="x"><g/></svg>`)
	out := string(normalizeViewBox(in))
	want := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10.00 20.00" width="10" height="20"><g/></svg>`
	if out != want {
		t.Errorf("got %s\nwant %s", out, want)
	}
}
