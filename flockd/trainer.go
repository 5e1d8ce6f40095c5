package flockd

import (
	"context"
	"log/slog"

	"github.com/absmach/flock"
	trainercmd "github.com/absmach/flock/cmd/trainer"
	"github.com/absmach/flock/trainer"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	configPath        = ""
	trainerBundlePath = ""
	logLevel          = "info"
	brokerURL         = "tcp://localhost:1883"
	username          = ""
	password          = ""
	trainerID         = uuid.NewString()
	trainerName       = ""
	domainID          = ""
	channelID         = ""
	numSamples        int64
	moduleFile        = ""
	moduleRef         = ""
	wasmRuntime       = ""
	livenessInterval  uint64
)

var trainerCmd = []cobra.Command{
	{
		Use:   "start",
		Short: "Start trainer",
		Long:  `Start trainer.`,
		Run: func(cmd *cobra.Command, _ []string) {
			cfg := trainer.Config{
				LogLevel:             logLevel,
				BrokerURL:            brokerURL,
				Username:             username,
				Password:             password,
				TrainerID:            trainerID,
				Name:                 trainerName,
				DomainID:             domainID,
				ChannelID:            channelID,
				NumSamples:           numSamples,
				ModuleFile:           moduleFile,
				ModuleRef:            moduleRef,
				WasmRuntime:          wasmRuntime,
				LivenessIntervalSecs: livenessInterval,
			}

			if configPath != "" {
				var err error
				cfg, err = trainer.LoadConfig(configPath)
				if err != nil {
					slog.Error("invalid config", slog.Any("error", err))

					return
				}
			}
			if trainerBundlePath != "" {
				bundle, err := flock.LoadConfig(trainerBundlePath)
				if err != nil {
					slog.Error("failed to load config bundle", slog.Any("error", err))

					return
				}
				cfg = cfg.ApplyBundle(bundle.Trainer)
			}
			if err := cfg.Validate(); err != nil {
				slog.Error("invalid config", slog.Any("error", err))

				return
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			if err := trainercmd.StartTrainer(ctx, cancel, cfg); err != nil {
				slog.Error("failed to start trainer", slog.String("error", err.Error()))
			}
		},
	},
}

func NewTrainerCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "trainer [start]",
		Short: "Trainer management",
		Long:  `Start a trainer agent for FLock.`,
	}

	for i := range trainerCmd {
		cmd.AddCommand(&trainerCmd[i])
	}

	cmd.PersistentFlags().StringVarP(
		&configPath,
		"config",
		"f",
		configPath,
		"Trainer configuration file, overrides the other flags",
	)

	cmd.PersistentFlags().StringVarP(
		&trainerBundlePath,
		"bundle",
		"b",
		trainerBundlePath,
		"Deployment config bundle, overrides broker identity",
	)

	cmd.PersistentFlags().StringVarP(
		&logLevel,
		"log-level",
		"l",
		logLevel,
		"Log level",
	)

	cmd.PersistentFlags().StringVarP(
		&trainerID,
		"id",
		"i",
		trainerID,
		"Trainer ID",
	)

	cmd.PersistentFlags().StringVarP(
		&trainerName,
		"name",
		"n",
		trainerName,
		"Trainer name",
	)

	cmd.PersistentFlags().StringVarP(
		&brokerURL,
		"broker-url",
		"m",
		brokerURL,
		"MQTT broker URL",
	)

	cmd.PersistentFlags().StringVarP(
		&username,
		"username",
		"u",
		username,
		"MQTT username",
	)

	cmd.PersistentFlags().StringVarP(
		&password,
		"password",
		"p",
		password,
		"MQTT password",
	)

	cmd.PersistentFlags().StringVarP(
		&domainID,
		"domain-id",
		"d",
		domainID,
		"Domain ID",
	)

	cmd.PersistentFlags().StringVarP(
		&channelID,
		"channel-id",
		"c",
		channelID,
		"Channel ID",
	)

	cmd.PersistentFlags().Int64VarP(
		&numSamples,
		"num-samples",
		"s",
		numSamples,
		"Local dataset sample count",
	)

	cmd.PersistentFlags().StringVarP(
		&moduleFile,
		"module-file",
		"w",
		moduleFile,
		"Training module Wasm file",
	)

	cmd.PersistentFlags().StringVarP(
		&moduleRef,
		"module-ref",
		"r",
		moduleRef,
		"Training module OCI reference",
	)

	cmd.PersistentFlags().StringVarP(
		&wasmRuntime,
		"wasm-runtime",
		"R",
		wasmRuntime,
		"External Wasm runtime binary, empty for embedded wazero",
	)

	cmd.PersistentFlags().Uint64VarP(
		&livenessInterval,
		"liveness-interval",
		"I",
		livenessInterval,
		"Heartbeat interval in seconds",
	)

	return &cmd
}
