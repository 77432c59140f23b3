package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/lehigh-university-libraries/chsandbox/internal/config"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chsandbox",
		Short: "Query sandbox for the Cooper Hewitt collection GraphQL API",
		Long: `chsandbox composes and runs queries against the Cooper Hewitt GraphQL API
and renders the matching collection objects as an image gallery.

It can serve the interactive sandbox page, or run a single query from the
command line and export the results.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	cmd.PersistentFlags().Bool("verbose", false, "Verbose logging")
	cmd.PersistentFlags().String("presets", "", "YAML file of preset queries (defaults to the built-in presets)")

	// Add subcommands
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newQueryCmd())
	cmd.AddCommand(newPresetsCmd())

	return cmd
}

// loadConfig resolves the command's configuration and sets up logging
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return cfg, err
	}

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	return cfg, nil
}
