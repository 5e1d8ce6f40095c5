package main

import (
	"log"

	"github.com/absmach/flock/flockd"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "flockd",
		Short: "FLock Daemon",
		Long:  `FLock Daemon is a daemon that manages the lifecycle of FLock components.`,
	}

	coordinatorCmd := flockd.NewCoordinatorCmd()
	trainerCmd := flockd.NewTrainerCmd()
	proxyCmd := flockd.NewProxyCmd()

	rootCmd.AddCommand(coordinatorCmd)
	rootCmd.AddCommand(trainerCmd)
	rootCmd.AddCommand(proxyCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
