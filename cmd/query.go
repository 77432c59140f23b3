package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lehigh-university-libraries/chsandbox/internal/compose"
	"github.com/lehigh-university-libraries/chsandbox/internal/export"
	"github.com/lehigh-university-libraries/chsandbox/internal/presets"
	"github.com/lehigh-university-libraries/chsandbox/internal/render"
	"github.com/lehigh-university-libraries/chsandbox/internal/runner"
	"github.com/lehigh-university-libraries/chsandbox/internal/sandbox"
	"github.com/rs/xid"
	"github.com/spf13/cobra"
)

func newQueryCmd() *cobra.Command {
	var filters compose.Filters
	var presetName string
	var queryFile string
	var format string
	var output string

	cmd := &cobra.Command{
		Use:   "query [QUERY]",
		Short: "Run a single query and print the gallery",
		Long: `Runs one query against the GraphQL endpoint and writes the resulting
gallery in the chosen format.

The query text comes from the argument, --file, or --preset, in that order,
and defaults to the sandbox's default object query. Setting --maker, --from
or --to replaces the query text with a generated object query, exactly as
the filters on the sandbox page do. An incomplete year range is ignored.`,
		Example: `  # Default query, text gallery
  chsandbox query

  # Posters by Ikko Tanaka from the 1970s as CSV
  chsandbox query --maker "Ikko Tanaka" --from 1970 --to 1979 --format csv

  # Example query, raw JSON response
  chsandbox query --preset yokoo --format raw

  # Export to Parquet
  chsandbox query --preset fukuda --format parquet --output fukuda.parquet`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			lib, err := cfg.Presets()
			if err != nil {
				return fmt.Errorf("failed to load presets: %w", err)
			}

			text, err := queryText(args, queryFile, presetName, lib, cmd.InOrStdin())
			if err != nil {
				return err
			}

			r := runner.New(cfg.Endpoint, runner.NewHTTPClient(cfg.Timeout))
			session := sandbox.New(xid.New().String(), r)
			session.SetQuery(text)
			session.SetFilters(filters)
			session.Execute(cmd.Context())
			view := session.Snapshot().View

			w := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer f.Close()
				w = f
			}

			if err := export.Write(w, format, view); err != nil {
				return err
			}
			if view.Status == render.StatusError {
				return fmt.Errorf("query failed: %s", view.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&filters.Maker, "maker", "", "Filter by maker name")
	cmd.Flags().StringVar(&filters.YearFrom, "from", "", "Start of year range")
	cmd.Flags().StringVar(&filters.YearTo, "to", "", "End of year range")
	cmd.Flags().StringVar(&presetName, "preset", "", "Run a named example query (see 'chsandbox presets list')")
	cmd.Flags().StringVarP(&queryFile, "file", "f", "", "Read the query from a file ('-' for stdin)")
	cmd.Flags().StringVar(&format, "format", "text", "Output format ("+strings.Join(export.Formats, ", ")+")")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write output to a file instead of stdout")
	cmd.Flags().String("endpoint", runner.DefaultEndpoint, "GraphQL endpoint")
	cmd.Flags().Duration("timeout", 0, "HTTP timeout for the request (0 for none)")

	return cmd
}

func queryText(args []string, file, presetName string, lib *presets.Library, stdin io.Reader) (string, error) {
	switch {
	case len(args) == 1:
		return args[0], nil
	case file == "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read query from stdin: %w", err)
		}
		return string(b), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read query file: %w", err)
		}
		return string(b), nil
	case presetName != "":
		p, err := lib.Get(presetName)
		if err != nil {
			return "", err
		}
		return p.Query, nil
	default:
		return compose.DefaultQuery, nil
	}
}
