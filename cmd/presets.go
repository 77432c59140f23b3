package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newPresetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List and show the example queries",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List preset names and labels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			lib, err := cfg.Presets()
			if err != nil {
				return fmt.Errorf("failed to load presets: %w", err)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, p := range lib.All() {
				fmt.Fprintf(tw, "%s\t%s\n", p.Name, p.Label)
			}
			return tw.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show NAME",
		Short: "Print a preset's query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			lib, err := cfg.Presets()
			if err != nil {
				return fmt.Errorf("failed to load presets: %w", err)
			}

			p, err := lib.Get(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), p.Query)
			return err
		},
	})

	return cmd
}
