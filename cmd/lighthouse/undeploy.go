package main

import (
	"fmt"

	"github.com/melih/lighthouse-deploy/cmd/lighthouse/ui"
	"github.com/spf13/cobra"
)

func undeployCmd(a *app) *cobra.Command {
	var proxyOutput string

	cmd := &cobra.Command{
		Use:   "undeploy <container-id>",
		Short: "Stop a recorded container and remove its registry entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if !cmd.Flags().Changed("proxy-output") {
				proxyOutput = a.cfg.Proxy.Output
			}

			svc, err := a.openServices(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer svc.Close()

			warnings, err := svc.orchestrator.Undeploy(cmd.Context(), args[0], proxyOutput)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, ui.SuccessMsg("undeployed %s", shortID(args[0])))
			printWarnings(out, warnings)
			return nil
		},
	}
	cmd.Flags().StringVar(&proxyOutput, "proxy-output", "", "Rewrite the proxy configuration here afterwards")
	return cmd
}
