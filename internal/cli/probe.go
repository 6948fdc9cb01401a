package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/4ry1337/openvis/pkg/connection"
	"github.com/4ry1337/openvis/pkg/errors"
	"github.com/4ry1337/openvis/pkg/topology"
)

// fetcher is implemented by sources that can take a single snapshot.
type fetcher interface {
	Fetch(ctx context.Context, url string) (topology.Snapshot, error)
}

func (c *CLI) probeCommand() *cobra.Command {
	var fetch bool

	cmd := &cobra.Command{
		Use:   "probe <url>",
		Short: "Check that a controller is reachable",
		Long: `Probe a controller's health endpoint once, the same way serve does before
connecting. With --fetch a full snapshot is also taken and summarized.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			url := errors.NormalizeURL(args[0])
			if err := errors.ValidateURL(url); err != nil {
				return err
			}

			timeout := cfg.Connection.ProbeTimeout.D()
			if timeout <= 0 {
				timeout = connection.DefaultProbeTimeout
			}
			src := newSource(cfg, loggerFromContext(cmd.Context()))
			out := cmd.OutOrStdout()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			spin := newSpinner(ctx, cmd.ErrOrStderr(), "probing "+url)
			spin.Start()
			start := time.Now()
			err = src.Probe(ctx, url)
			spin.Stop()
			if err != nil {
				printError(out, "%s: %s", url, errors.UserMessage(err))
				return err
			}
			printSuccess(out, "%s is healthy (%s)", url, time.Since(start).Round(time.Millisecond))

			f, ok := src.(fetcher)
			if !fetch || !ok {
				return nil
			}
			snap, err := f.Fetch(cmd.Context(), url)
			if err != nil {
				printWarning(out, "snapshot failed: %s", errors.UserMessage(err))
				return err
			}
			printCounts(out, len(snap.Nodes), len(snap.Links))
			return nil
		},
	}

	cmd.Flags().BoolVar(&fetch, "fetch", false, "also fetch and summarize one snapshot")

	return cmd
}
