package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/chsandbox/internal/config"
	"github.com/lehigh-university-libraries/chsandbox/internal/handlers"
	"github.com/lehigh-university-libraries/chsandbox/internal/middleware"
	"github.com/lehigh-university-libraries/chsandbox/internal/relay"
	"github.com/lehigh-university-libraries/chsandbox/internal/runner"
	"github.com/lehigh-university-libraries/chsandbox/internal/storage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start web server for the query sandbox",
		Long: `Starts the sandbox web interface on the specified port.

The page lets you edit a GraphQL query, narrow it with maker and year
filters, pick one of the example queries and view the matching objects
as a gallery next to the raw JSON response. The same sessions are
available as a JSON API under /api/sessions, and /ch-graphql/ relays
queries to the upstream API for browser clients.`,
		Example: `  # Start server on default port 8888
  chsandbox serve

  # Send sandbox queries through the local relay, limited to 2 requests/s
  chsandbox serve --endpoint http://localhost:8888/ch-graphql/ --relay-rate 2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			lib, err := cfg.Presets()
			if err != nil {
				return fmt.Errorf("failed to load presets: %w", err)
			}

			rl, err := relay.New(relay.Config{
				Upstream: cfg.Upstream,
				Rate:     cfg.RelayRate,
				Burst:    cfg.RelayBurst,
			})
			if err != nil {
				return err
			}

			httpClient := runner.NewHTTPClient(cfg.Timeout)
			handler := handlers.New(storage.New(), lib, func() *runner.Runner {
				return runner.New(cfg.Endpoint, httpClient)
			})

			// Set up routes
			mux := http.NewServeMux()
			handler.Register(mux)
			mux.Handle(relay.Prefix+"/", rl)
			mux.Handle("/metrics", promhttp.Handler())
			mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
				if _, err := w.Write([]byte("OK")); err != nil {
					slog.Error("Unable to write healthcheck", "err", err)
				}
			})

			return serve(cmd.Context(), cfg, middleware.Chain(mux,
				middleware.RequestLogger(slog.Default()),
				middleware.CORS,
			), rl.Upstream())
		},
	}

	cmd.Flags().StringP("port", "p", config.DefaultPort, "Port to listen on")
	cmd.Flags().String("endpoint", runner.DefaultEndpoint, "GraphQL endpoint sandbox sessions query")
	cmd.Flags().String("upstream", config.DefaultUpstream, "Upstream the /ch-graphql/ relay forwards to")
	cmd.Flags().Duration("timeout", 0, "HTTP timeout for GraphQL requests (0 for none)")
	cmd.Flags().Float64("relay-rate", 0, "Relay requests per second (0 for unlimited)")
	cmd.Flags().Int("relay-burst", 1, "Relay burst size")

	return cmd
}

func serve(ctx context.Context, cfg config.Config, h http.Handler, upstream string) error {
	addr := ":" + cfg.Port
	server := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Sandbox available",
			"addr", addr,
			"url", "http://localhost"+addr,
			"endpoint", cfg.Endpoint,
			"relay_upstream", upstream,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for context cancellation (Ctrl+C) or server error
	select {
	case <-ctx.Done():
		slog.Info("Shutting down server...")
		// Give server 5 seconds to shut down gracefully
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown failed", "err", err)
			return err
		}
		slog.Info("Server stopped")
		return nil
	case err := <-serverErr:
		return err
	}
}
