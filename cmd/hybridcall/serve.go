package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/flynn-ai/hybridcall/internal/errors"
	"github.com/flynn-ai/hybridcall/internal/mcpserver"
	"github.com/flynn-ai/hybridcall/internal/metrics"
)

func newServeCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the resolver as an MCP tool over stdio",
		Long: `Serve resolve_tool_calls and validate_tool_calls to an MCP client over
stdin/stdout. When metrics are enabled, Prometheus metrics are exposed on
the configured address at the same time.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log := a.logger.Component("serve")
			srv := mcpserver.New(a.orchestrator, version, a.logger.Component("mcp"))

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				// The client closing stdin ends the session and the process.
				defer stop()
				return srv.Run(ctx)
			})
			if a.cfg.Metrics.Enabled {
				g.Go(func() error {
					return metrics.Serve(ctx, a.cfg.Metrics.Address, log)
				})
			}

			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			log.Info().Msg("stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "expose metrics on this address (overrides metrics.address)")
	return cmd
}
