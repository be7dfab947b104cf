package main

import (
	"fmt"
	"time"

	"github.com/melih/lighthouse-deploy/cmd/lighthouse/ui"
	"github.com/melih/lighthouse-deploy/internal/core/domain"
	"github.com/spf13/cobra"
)

func listCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recorded deployments and their live state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			svc, err := a.openServices(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer svc.Close()

			records, err := svc.registry.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(out, ui.InfoMsg("no deployments recorded"))
				return nil
			}
			containers, err := svc.engine.ListContainers(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintln(out, ui.Table(
				[]string{"CONTAINER", "IMAGE", "NAME", "STATE", "ADDRESS", "CREATED"},
				deploymentRows(records, domain.IndexByID(containers)),
			))
			return nil
		},
	}
}

// deploymentRows joins records with live container state. Records whose
// container the engine no longer reports are shown as missing.
func deploymentRows(records []domain.DeploymentRecord, live map[string]domain.Container) [][]string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		state, address, name := "missing", "", rec.Config.Name
		if c, ok := live[rec.ContainerID]; ok {
			state, address, name = c.State, c.IPAddress, c.Name
		}
		rows = append(rows, []string{
			shortID(rec.ContainerID),
			rec.Image,
			name,
			ui.State(state),
			address,
			rec.CreatedAt.Local().Format(time.DateTime),
		})
	}
	return rows
}
