package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/melih/lighthouse-deploy/cmd/lighthouse/ui"
	"github.com/melih/lighthouse-deploy/internal/core/deploy"
	"github.com/spf13/cobra"
)

func deployCmd(a *app) *cobra.Command {
	var proxyOutput string

	cmd := &cobra.Command{
		Use:   "deploy <source> <basename>",
		Short: "Build a source tree and replace the running container of its image",
		Long: `Build <source> (a directory or git URL) as <org>/<basename>:latest, start a
replacement container, record it and stop the containers it replaces.

With --proxy-output (or proxy.output in the config) the reverse proxy
configuration is regenerated and the proxy reloaded after cutover.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if !cmd.Flags().Changed("proxy-output") {
				proxyOutput = a.cfg.Proxy.Output
			}

			svc, err := a.openServices(cmd.Context(), progressPrinter(out))
			if err != nil {
				return err
			}
			defer svc.Close()

			result, err := svc.orchestrator.Deploy(cmd.Context(), deploy.Request{
				Source:      args[0],
				Basename:    args[1],
				ProxyOutput: proxyOutput,
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, ui.SuccessMsg("deployed %s", ui.Accent(result.Image)))
			fmt.Fprint(out, ui.Details(
				ui.Field{Name: "container", Value: result.ContainerID},
				ui.Field{Name: "name", Value: result.ContainerName},
				ui.Field{Name: "address", Value: result.Address},
				ui.Field{Name: "revision", Value: result.Revision},
			))
			for _, id := range result.Replaced {
				fmt.Fprintln(out, ui.InfoMsg("replaced %s", shortID(id)))
			}
			printWarnings(out, result.Warnings)
			return nil
		},
	}
	cmd.Flags().StringVar(&proxyOutput, "proxy-output", "", "Write the proxy configuration here after cutover")
	return cmd
}

// progressPrinter prints every phase transition and build line as it happens.
func progressPrinter(w io.Writer) deploy.ProgressFunc {
	return func(ev deploy.Event) {
		switch ev.Kind {
		case deploy.EventPhase:
			if ev.Phase == deploy.PhaseFailed {
				fmt.Fprintln(w, ui.ErrorMsg("%s", ev.Phase))
				return
			}
			fmt.Fprintln(w, ui.InfoMsg("%s", ev.Phase))
		case deploy.EventBuildOutput:
			fmt.Fprintln(w, "  "+ui.Muted(ev.Message))
		case deploy.EventWarning:
			fmt.Fprintln(w, ui.WarnMsg("%s", ev.Message))
		default:
			fmt.Fprintln(w, "  "+ev.Message)
		}
	}
}

func printWarnings(w io.Writer, warnings []error) {
	for _, warning := range warnings {
		var dw *deploy.Warning
		if errors.As(warning, &dw) && dw.ContainerID != "" {
			fmt.Fprintln(w, ui.WarnMsg("%s: %s: %v", dw.Kind, shortID(dw.ContainerID), dw.Err))
			continue
		}
		fmt.Fprintln(w, ui.WarnMsg("%v", warning))
	}
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
