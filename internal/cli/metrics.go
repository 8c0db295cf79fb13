package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppecheck/ppecheck/pkg/inspect"
	"github.com/ppecheck/ppecheck/pkg/logging"
	"github.com/ppecheck/ppecheck/pkg/metrics"
)

func newMetricsCmd() *cobra.Command {
	var serve string

	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Print or serve inspection metrics",
		Long: `Print inspection metrics for the workspace, or serve them for Prometheus.

Record and draft counts are read from the workspace on every scrape. With
--serve the metrics are exposed at http://<addr>/metrics until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *inspect.Client) error {
				reg := c.Metrics()
				if serve == "" {
					return metrics.WriteText(cmd.OutOrStdout(), reg.Gatherer())
				}

				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				reg.WithProcessMetrics()
				logging.Info("serving metrics", map[string]any{"addr": serve})
				fmt.Fprintf(cmd.OutOrStdout(), "Serving metrics on http://%s/metrics\n", serve)
				return reg.StartServer(ctx, serve)
			})
		},
	}
	cmd.Flags().StringVar(&serve, "serve", "", "listen address, e.g. :9464")
	return cmd
}
