package cli

import (
	"github.com/spf13/cobra"

	"github.com/btube/btube-deploy/internal/server"
)

func createServeCmd(a *app) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the deployment ledger over HTTP",
		Long: `Serve the deployment ledger as a read-only JSON API, with health,
readiness and Prometheus endpoints.

ENDPOINTS:
  GET /api/v1/deployments
  GET /api/v1/deployments/{chainId}/{address}
  GET /healthz
  GET /readyz
  GET /metrics
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("host") {
				a.cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = port
			}

			store, err := a.openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			srv := server.New(a.cfg, store, a.logger)
			defer srv.Close()

			a.logger.Info("storage initialized", "type", a.cfg.Storage.Type)
			return srv.ListenAndServe(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "listen host (default: HOST)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default: PORT)")

	return cmd
}
