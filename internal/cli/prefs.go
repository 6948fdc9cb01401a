package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/4ry1337/openvis/pkg/store"
)

func (c *CLI) prefsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or reset saved preferences",
		Long:  `Saved preferences are the controller list, the force parameters and the visibility filter, kept in the configured persistence backend.`,
	}
	cmd.AddCommand(c.prefsShowCommand())
	cmd.AddCommand(c.prefsResetCommand())
	return cmd
}

func (c *CLI) openStore(cmd *cobra.Command) (store.Store, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	return store.Open(cmd.Context(), cfg.Persistence)
}

func (c *CLI) prefsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the saved preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()
			ctx, out := cmd.Context(), cmd.OutOrStdout()

			ctrls, err := store.LoadControllers(ctx, st)
			if err != nil {
				return err
			}
			params, savedParams, err := store.LoadParams(ctx, st)
			if err != nil {
				return err
			}
			filter, savedFilter, err := store.LoadFilter(ctx, st)
			if err != nil {
				return err
			}

			fmt.Fprintln(out, StyleTitle.Render("Controllers"))
			if len(ctrls) == 0 {
				fmt.Fprintln(out, StyleDim.Render("  none"))
			}
			for _, ctrl := range ctrls {
				printKeyValue(out, fmt.Sprintf("  %dms", ctrl.Interval), ctrl.URL)
			}

			fmt.Fprintln(out, StyleTitle.Render("Force parameters")+defaultMark(savedParams))
			printKeyValue(out, "  center", fmt.Sprint(params.CenterForce))
			printKeyValue(out, "  repel", fmt.Sprint(params.RepelForce))
			printKeyValue(out, "  link", fmt.Sprint(params.LinkForce))
			printKeyValue(out, "  distance", fmt.Sprint(params.LinkDistance))

			fmt.Fprintln(out, StyleTitle.Render("Filter")+defaultMark(savedFilter))
			printKeyValue(out, "  controllers", onOff(filter.ShowControllers))
			printKeyValue(out, "  switches", onOff(filter.ShowSwitches))
			printKeyValue(out, "  hosts", onOff(filter.ShowHosts))
			return nil
		},
	}
}

func (c *CLI) prefsResetCommand() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Forget the saved force parameters and filter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			keys := []string{store.KeyParams, store.KeyFilters}
			if all {
				keys = append(keys, store.KeyControllers)
			}
			for _, key := range keys {
				if err := st.Delete(cmd.Context(), key); err != nil {
					return err
				}
			}
			printSuccess(cmd.OutOrStdout(), "removed %d saved preference(s)", len(keys))
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "also forget the saved controllers")

	return cmd
}

func defaultMark(saved bool) string {
	if saved {
		return ""
	}
	return StyleDim.Render(" (defaults)")
}

func onOff(b bool) string {
	if b {
		return "shown"
	}
	return "hidden"
}
