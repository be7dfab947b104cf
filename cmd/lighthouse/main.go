package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/melih/lighthouse-deploy/cmd/lighthouse/ui"
	"github.com/melih/lighthouse-deploy/internal/core/deploy"
	"github.com/spf13/cobra"
)

// app carries the resolved configuration to every command.
type app struct {
	configPath string
	buildOrg   string
	debug      bool

	cfg    *Config
	logger *slog.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "lighthouse",
		Short:         "Rolling single-host container deployments",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(a.configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("build-org") {
				cfg.Build.Org = a.buildOrg
			}
			a.cfg = cfg
			a.logger = SetupLogger(cfg.Log, a.debug)
			slog.SetDefault(a.logger)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to a YAML config file")
	root.PersistentFlags().StringVar(&a.buildOrg, "build-org", "", "Organization images are tagged under")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging")

	root.AddCommand(listCmd(a))
	root.AddCommand(deployCmd(a))
	root.AddCommand(undeployCmd(a))
	root.AddCommand(renderCmd(a))
	root.AddCommand(serveCmd(a))

	return root
}

// printError reports a failed command. Deployment failures show the error
// kind and phase, then the underlying diagnostic.
func printError(w io.Writer, err error) {
	var derr *deploy.Error
	if errors.As(err, &derr) {
		fmt.Fprintln(w, ui.ErrorMsg("deployment failed while %s: %s", derr.Phase, derr.Kind))
		if derr.Err != nil {
			fmt.Fprintln(w, "  "+derr.Err.Error())
		}
		return
	}
	fmt.Fprintln(w, ui.ErrorMsg("%v", err))
}
