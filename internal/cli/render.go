package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/4ry1337/openvis/pkg/httputil"
	"github.com/4ry1337/openvis/pkg/layout"
	"github.com/4ry1337/openvis/pkg/reconcile"
	"github.com/4ry1337/openvis/pkg/render/nodelink"
	"github.com/4ry1337/openvis/pkg/source/file"
)

const (
	defaultTicks    = 300 // simulation ticks before an offline frame is taken
	defaultSeed     = 42
	defaultPNGScale = 2.0
)

// renderOpts holds the flags of the render command.
type renderOpts struct {
	output   string
	formats  []string
	server   string // fetch the frame from a running server instead
	detailed bool
	title    string
	width    float64
	height   float64
	ticks    int
	seed     uint64
	scale    float64
}

func (c *CLI) renderCommand() *cobra.Command {
	var formatsStr string
	opts := renderOpts{
		width:  800,
		height: 600,
		ticks:  defaultTicks,
		seed:   defaultSeed,
		scale:  defaultPNGScale,
	}

	cmd := &cobra.Command{
		Use:   "render [snapshot.json...]",
		Short: "Render a topology to DOT, SVG, PDF or PNG",
		Long: `Render a topology with Graphviz.

Snapshot files are merged as if each came from its own controller, laid out
offline and rendered. With --server the current frame of a running openvis
server is rendered instead, keeping the positions seen in the browser.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.formats = parseFormats(formatsStr)
			if err := validateFormats(opts.formats); err != nil {
				return err
			}
			switch {
			case opts.server != "" && len(args) > 0:
				return fmt.Errorf("snapshot files and --server are mutually exclusive")
			case opts.server == "" && len(args) == 0:
				return fmt.Errorf("no snapshot files given (or use --server)")
			}
			return runRender(cmd.Context(), cmd.OutOrStdout(), args, &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (default: topology)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), dot, json, pdf, png (comma-separated)")
	cmd.Flags().StringVar(&opts.server, "server", "", "render the live frame of the server at this base URL")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "label nodes with their type")
	cmd.Flags().StringVar(&opts.title, "title", "", "graph title")
	cmd.Flags().Float64Var(&opts.width, "width", opts.width, "viewport width")
	cmd.Flags().Float64Var(&opts.height, "height", opts.height, "viewport height")
	cmd.Flags().IntVar(&opts.ticks, "ticks", opts.ticks, "maximum simulation ticks for offline layout")
	cmd.Flags().Uint64Var(&opts.seed, "seed", opts.seed, "layout random seed")
	cmd.Flags().Float64Var(&opts.scale, "scale", opts.scale, "PNG scale factor")

	return cmd
}

// parseFormats splits the --format flag. Empty selects svg.
func parseFormats(s string) []string {
	if s == "" {
		return []string{"svg"}
	}
	return strings.Split(s, ",")
}

var validFormats = map[string]bool{"svg": true, "dot": true, "json": true, "pdf": true, "png": true}

func validateFormats(formats []string) error {
	for _, f := range formats {
		if !validFormats[f] {
			return fmt.Errorf("invalid format: %s (must be svg, dot, json, pdf or png)", f)
		}
	}
	return nil
}

// basePath strips a known format extension from output.
func basePath(output string) string {
	if output == "" {
		return "topology"
	}
	ext := filepath.Ext(output)
	if validFormats[strings.TrimPrefix(ext, ".")] {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

func runRender(ctx context.Context, w io.Writer, inputs []string, opts *renderOpts) error {
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	var (
		frame layout.Frame
		err   error
	)
	if opts.server != "" {
		frame, err = fetchFrame(ctx, opts.server)
	} else {
		frame, err = offlineFrame(inputs, opts)
	}
	if err != nil {
		return err
	}
	logger.Infof("Frame ready: %d nodes, %d links", len(frame.Nodes), len(frame.Links))

	dot := nodelink.ToDOT(frame, nodelink.Options{Detailed: opts.detailed, Title: opts.title})
	base := basePath(opts.output)
	for _, format := range opts.formats {
		data, err := renderFrame(ctx, frame, dot, format, opts)
		if err != nil {
			return fmt.Errorf("%s: %w", format, err)
		}
		path := base + "." + format
		if len(opts.formats) == 1 && opts.output != "" {
			path = opts.output
		}
		if err := writeOutput(w, path, data); err != nil {
			return err
		}
		if path != "-" {
			printFile(w, path)
		}
	}
	prog.done("Rendered " + strings.Join(opts.formats, ", "))
	return nil
}

// offlineFrame merges the snapshot files, one source per file, and settles
// a fresh simulation over the result.
func offlineFrame(inputs []string, opts *renderOpts) (layout.Frame, error) {
	rec := reconcile.New(reconcile.Config{})
	for _, path := range inputs {
		snap, err := file.Load(path)
		if err != nil {
			return layout.Frame{}, err
		}
		rec.Apply(snapshotSource(path), snap)
	}
	sim := layout.New(layout.Config{Width: opts.width, Height: opts.height, Seed: opts.seed})
	sim.SetGraph(rec.Graph())
	sim.Settle(opts.ticks)
	return sim.Frame(rec.IsFading), nil
}

// snapshotSource names the partition of one snapshot file.
func snapshotSource(path string) string {
	return "file://" + strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func fetchFrame(ctx context.Context, server string) (layout.Frame, error) {
	var f layout.Frame
	url := strings.TrimRight(server, "/") + "/api/frame"
	if err := httputil.NewClient().GetJSON(ctx, url, &f); err != nil {
		return layout.Frame{}, fmt.Errorf("fetch frame: %w", err)
	}
	return f, nil
}

func renderFrame(ctx context.Context, frame layout.Frame, dot, format string, opts *renderOpts) ([]byte, error) {
	switch format {
	case "dot":
		return []byte(dot), nil
	case "json":
		return json.MarshalIndent(frame, "", "  ")
	case "svg":
		return nodelink.RenderSVG(ctx, dot)
	case "pdf":
		return nodelink.RenderPDF(ctx, dot)
	case "png":
		return nodelink.RenderPNG(ctx, dot, opts.scale)
	}
	return nil, fmt.Errorf("unknown format: %s", format)
}

// writeOutput writes data to path, or to w when path is "-".
func writeOutput(w io.Writer, path string, data []byte) error {
	if path == "-" {
		_, err := w.Write(data)
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}
