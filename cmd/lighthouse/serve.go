package main

import (
	"context"
	"os/signal"
	"syscall"

	api "github.com/melih/lighthouse-deploy/internal/adapters/http"
	"github.com/spf13/cobra"
)

func serveCmd(a *app) *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the deployment HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("address") {
				address = a.cfg.Server.Address
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			svc, err := a.openServices(ctx, nil)
			if err != nil {
				return err
			}
			defer svc.Close()

			handler := api.NewDeploymentHandler(svc.orchestrator, svc.registry, svc.engine, svc.engine, a.cfg.Proxy.Output)
			server := api.NewApp(handler, a.logger)

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("server starting", "address", address)
				errCh <- server.Listen(address)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			a.logger.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
			defer cancel()
			return server.ShutdownWithContext(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "Listen address (default from server.address)")
	return cmd
}
