package cli

import (
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cella-health/cella/internal/httpapi"
)

func newServeCmd() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: "Serve exposes bundles, table reads and writes, and the assistant over HTTP,\n" +
			"with /healthz and Prometheus /metrics. It stops on SIGINT or SIGTERM.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if listen == "" {
				listen = a.settings.Listen
			}
			if !flags.debug {
				gin.SetMode(gin.ReleaseMode)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go a.cache.Run(ctx)

			h := httpapi.NewHandlers(a.query, a.mutator, a.assistant, a.logger)
			err = httpapi.Serve(ctx, listen, httpapi.NewRouter(h), a.logger)
			a.logger.Info("server stopped", zap.Error(err))
			return err
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default from config.yaml)")
	return cmd
}
