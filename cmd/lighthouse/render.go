package main

import (
	"fmt"

	"github.com/melih/lighthouse-deploy/cmd/lighthouse/ui"
	"github.com/spf13/cobra"
)

func renderCmd(a *app) *cobra.Command {
	var (
		output string
		reload bool
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the reverse proxy configuration for the current deployments",
		Long: `Render the reverse proxy configuration from the registry and the running
containers. Without --output the configuration is printed to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			errOut := cmd.ErrOrStderr()

			svc, err := a.openServices(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer svc.Close()

			text, skipped, err := svc.orchestrator.RenderProxy(cmd.Context())
			if err != nil {
				return err
			}
			for _, s := range skipped {
				fmt.Fprintln(errOut, ui.WarnMsg("skipped %s (%s): %s", shortID(s.ContainerID), s.Image, s.Reason))
			}

			if output == "" {
				fmt.Fprint(out, text)
				return nil
			}
			if err := svc.publisher.Write(cmd.Context(), output, text); err != nil {
				return err
			}
			fmt.Fprintln(out, ui.SuccessMsg("wrote %s", output))
			if reload {
				if err := svc.publisher.Reload(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(out, ui.SuccessMsg("proxy reloaded"))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the configuration to this file")
	cmd.Flags().BoolVar(&reload, "reload", false, "Reload the proxy after writing")
	return cmd
}
