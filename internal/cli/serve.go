package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/4ry1337/openvis/pkg/config"
	"github.com/4ry1337/openvis/pkg/connection"
	"github.com/4ry1337/openvis/pkg/engine"
	"github.com/4ry1337/openvis/pkg/errors"
	"github.com/4ry1337/openvis/pkg/layout"
	"github.com/4ry1337/openvis/pkg/metrics"
	"github.com/4ry1337/openvis/pkg/server"
	"github.com/4ry1337/openvis/pkg/source"
	"github.com/4ry1337/openvis/pkg/store"
)

type serveOpts struct {
	addr      string
	replay    string
	noRestore bool
}

func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the engine and the HTTP API",
		Long: `Run the topology engine and serve it over HTTP until interrupted.

Controllers saved by a previous run are reconnected first, then the ones
listed in the config file. With --replay, snapshots are read from a directory
of recorded JSON files instead of live Floodlight controllers.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if opts.addr != "" {
				cfg.Server.Addr = opts.addr
			}
			if opts.replay != "" {
				cfg.Source.Kind = config.SourceFile
				cfg.Source.ReplayDir = opts.replay
			}
			return runServe(cmd.Context(), cfg, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.addr, "addr", "a", "", "listen address (overrides server.addr)")
	cmd.Flags().StringVar(&opts.replay, "replay", "", "replay snapshots from this directory")
	cmd.Flags().BoolVar(&opts.noRestore, "no-restore", false, "do not reconnect saved controllers")

	return cmd
}

func runServe(ctx context.Context, cfg config.Config, opts serveOpts) error {
	logger := loggerFromContext(ctx)

	st, err := store.Open(ctx, cfg.Persistence)
	if err != nil {
		return err
	}
	defer st.Close()

	var srvOpts []server.Option
	srvOpts = append(srvOpts, server.WithLogger(logger))
	if cfg.Server.Metrics {
		reg := metrics.DefaultRegistry()
		reg.Install()
		srvOpts = append(srvOpts, server.WithMetrics(reg))
	}

	ecfg, err := engineConfig(cfg, newSource(cfg, logger), st, logger)
	if err != nil {
		return err
	}
	e, err := engine.New(ctx, ecfg)
	if err != nil {
		return err
	}
	defer e.Close()

	logger.Info("starting", "session", e.ID(), "source", cfg.Source.Kind, "store", cfg.Persistence.Backend)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		e.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return server.New(e, srvOpts...).ListenAndServe(gctx, cfg.Server.Addr)
	})
	g.Go(func() error {
		connectStartup(gctx, e, cfg.Connection.Controllers, !opts.noRestore, logger)
		return nil
	})
	return g.Wait()
}

// engineConfig translates the file configuration into an engine.Config.
func engineConfig(cfg config.Config, src source.Source, st store.Store, logger *log.Logger) (engine.Config, error) {
	policy, err := engine.ParseDisconnectPolicy(cfg.Reconcile.DisconnectPolicy)
	if err != nil {
		return engine.Config{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "reconcile.disconnect_policy")
	}
	drop, err := layout.ParseDropBehavior(cfg.Layout.DropBehavior)
	if err != nil {
		return engine.Config{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "layout.drop_behavior")
	}
	return engine.Config{
		Source: src,
		Store:  st,
		Connection: connection.Config{
			ProbeTimeout:    cfg.Connection.ProbeTimeout.D(),
			RetryPeriod:     cfg.Connection.RetryPeriod.D(),
			DefaultInterval: cfg.Connection.DefaultInterval.D(),
		},
		Layout: layout.Config{
			Width:  cfg.Layout.Width,
			Height: cfg.Layout.Height,
			Params: cfg.Layout.Params,
			Filter: cfg.Layout.Filter,
			Drop:   drop,
			Seed:   uint64(time.Now().UnixNano()),
		},
		FadeWindow: cfg.Reconcile.FadeWindow.D(),
		Disconnect: policy,
		FrameRate:  cfg.Layout.FrameRate,
		Logger:     logger,
	}, nil
}

// connectStartup reconnects saved controllers, then the configured ones.
// Failures leave the controller for the retry loop; nothing here is fatal.
func connectStartup(ctx context.Context, e *engine.Engine, ctrls []config.Controller, restore bool, logger *log.Logger) {
	if restore {
		if err := e.Manager().Restore(ctx); err != nil {
			logger.Warn("could not load saved controllers", "err", err)
		}
	}
	for _, ctrl := range ctrls {
		err := e.Connect(ctx, ctrl.URL, ctrl.Interval.D())
		switch {
		case err == nil:
		case errors.Is(err, errors.ErrCodeAlreadyConnected):
			logger.Debug("controller already restored", "url", ctrl.URL)
		default:
			logger.Warn("controller not connected", "url", ctrl.URL, "code", errors.GetCode(err), "err", errors.UserMessage(err))
		}
	}
}
