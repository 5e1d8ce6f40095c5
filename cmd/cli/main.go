package main

import (
	"log"

	"github.com/absmach/flock/cli"
	"github.com/absmach/flock/pkg/sdk"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "flock-cli",
		Short: "FLock CLI",
		Long:  `FLock CLI is a command line interface for interacting with FLock components.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			sdkConf := sdk.Config{
				CoordinatorURL:  cli.DefCoordinatorURL,
				TLSVerification: cli.DefTLSVerification,
			}
			s := sdk.NewSDK(sdkConf)
			cli.SetFlockSDK(s)
		},
	}

	rootCmd.AddCommand(cli.NewSessionsCmd())
	rootCmd.AddCommand(cli.NewModelsCmd())
	rootCmd.AddCommand(cli.NewTrainersCmd())
	rootCmd.AddCommand(cli.NewProvisionCmd())

	rootCmd.PersistentFlags().StringVarP(
		&cli.DefCoordinatorURL,
		"coordinator-url",
		"u",
		cli.DefCoordinatorURL,
		"Coordinator URL",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&cli.DefTLSVerification,
		"tls-verification",
		"v",
		cli.DefTLSVerification,
		"TLS Verification",
	)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
