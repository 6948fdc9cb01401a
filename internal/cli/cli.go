// Package cli implements the openvis command-line interface.
package cli

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/4ry1337/openvis/pkg/buildinfo"
	"github.com/4ry1337/openvis/pkg/config"
	"github.com/4ry1337/openvis/pkg/httputil"
	"github.com/4ry1337/openvis/pkg/source"
	"github.com/4ry1337/openvis/pkg/source/file"
	"github.com/4ry1337/openvis/pkg/source/floodlight"
)

// appName is the application name used for directories and display.
const appName = "openvis"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger     *log.Logger
	configPath string
}

// New creates a new CLI instance writing logs to w.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "openvis visualizes SDN topologies from several controllers",
		Long:         `openvis polls one or more SDN controllers, merges their topologies into a single graph and lays it out with a force-directed simulation served over HTTP.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "config file (default "+config.DefaultPath()+")")

	root.AddCommand(c.serveCommand())
	root.AddCommand(c.watchCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.probeCommand())
	root.AddCommand(c.prefsCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads the file named by --config, or the default one.
func (c *CLI) loadConfig() (config.Config, error) {
	return config.Load(c.configPath)
}

// newSource builds the snapshot source selected in cfg.
func newSource(cfg config.Config, logger *log.Logger) source.Source {
	if cfg.Source.Kind == config.SourceFile {
		return file.New(cfg.Source.ReplayDir, file.WithLogger(logger))
	}
	client := httputil.NewClient(httputil.WithTimeout(cfg.Source.RequestTimeout.D()))
	return floodlight.New(
		floodlight.WithClient(client),
		floodlight.WithLogger(logger),
		floodlight.WithMaxErrors(cfg.Source.MaxErrors),
	)
}
