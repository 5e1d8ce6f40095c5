package flockd

import (
	"context"

	"github.com/absmach/flock"
	proxycmd "github.com/absmach/flock/cmd/proxy"
	"github.com/spf13/cobra"
)

var proxyBundlePath = ""

var proxyCmd = []cobra.Command{
	{
		Use:   "start",
		Short: "Start proxy",
		Long:  `Start proxy.`,
		Run: func(cmd *cobra.Command, _ []string) {
			cfg, err := proxycmd.LoadConfig()
			if err != nil {
				cmd.PrintErrf("failed to load proxy configuration: %s", err.Error())

				return
			}

			if proxyBundlePath != "" {
				bundle, err := flock.LoadConfig(proxyBundlePath)
				if err != nil {
					cmd.PrintErrf("failed to load config bundle: %s", err.Error())

					return
				}
				cfg = cfg.ApplyBundle(bundle.Proxy)
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			if err := proxycmd.StartProxy(ctx, cancel, cfg); err != nil {
				cmd.PrintErrf("failed to start proxy: %s", err.Error())
			}
			cancel()
		},
	},
}

func NewProxyCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "proxy [start]",
		Short: "Proxy management",
		Long:  `Start the model artifact proxy.`,
	}

	for i := range proxyCmd {
		cmd.AddCommand(&proxyCmd[i])
	}

	cmd.PersistentFlags().StringVarP(
		&proxyBundlePath,
		"config",
		"f",
		proxyBundlePath,
		"Deployment config bundle, overrides broker identity from the environment",
	)

	return &cmd
}
