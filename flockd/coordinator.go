package flockd

import (
	"context"

	"github.com/absmach/flock"
	coordinatorcmd "github.com/absmach/flock/cmd/coordinator"
	"github.com/spf13/cobra"
)

var coordinatorBundlePath = ""

var coordinatorCmd = []cobra.Command{
	{
		Use:   "start",
		Short: "Start coordinator",
		Long:  `Start coordinator.`,
		Run: func(cmd *cobra.Command, _ []string) {
			cfg, err := coordinatorcmd.LoadConfig()
			if err != nil {
				cmd.PrintErrf("failed to load coordinator configuration: %s", err.Error())

				return
			}

			if coordinatorBundlePath != "" {
				bundle, err := flock.LoadConfig(coordinatorBundlePath)
				if err != nil {
					cmd.PrintErrf("failed to load config bundle: %s", err.Error())

					return
				}
				cfg = cfg.ApplyBundle(bundle.Coordinator)
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			if err := coordinatorcmd.StartCoordinator(ctx, cancel, cfg); err != nil {
				cmd.PrintErrf("failed to start coordinator: %s", err.Error())
			}
			cancel()
		},
	},
}

func NewCoordinatorCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "coordinator [start]",
		Short: "Coordinator management",
		Long:  `Start the federated learning coordinator.`,
	}

	for i := range coordinatorCmd {
		cmd.AddCommand(&coordinatorCmd[i])
	}

	cmd.PersistentFlags().StringVarP(
		&coordinatorBundlePath,
		"config",
		"f",
		coordinatorBundlePath,
		"Deployment config bundle, overrides broker identity from the environment",
	)

	return &cmd
}
