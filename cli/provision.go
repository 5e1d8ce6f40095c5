package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/absmach/flock"
	"github.com/absmach/flock/trainer"
	"github.com/absmach/supermq/pkg/errors"
	"github.com/charmbracelet/huh"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	errFailedEnvFile       = errors.New("failed to create .env file")
	errFailedBundleFile    = errors.New("failed to create config bundle")
	errFailedTrainerConfig = errors.New("failed to create trainer config file")
	errFailedOutputDir     = errors.New("failed to create output directory")
)

const (
	filePermission = 0o644
	dirPermission  = 0o755
)

type Result struct {
	EnvFile        string   `json:"env_file"`
	BundleFile     string   `json:"bundle_file"`
	TrainerConfigs []string `json:"trainer_configs"`
}

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Provision resources",
	Long:  `Generate coordinator environment and trainer configuration files.`,
	Run: func(cmd *cobra.Command, args []string) {
		var (
			brokerURL    = "tcp://localhost:1883"
			domainID     string
			channelID    string
			registryURL  = "localhost:5000"
			moduleRef    string
			trainerCount = "3"
			sampleCount  = "1000"
			outputDir    = "."
		)

		required := func(name string) func(string) error {
			return func(s string) error {
				if s == "" {
					return fmt.Errorf("%s is required", name)
				}

				return nil
			}
		}
		positive := func(name string) func(string) error {
			return func(s string) error {
				n, err := strconv.Atoi(s)
				if err != nil || n <= 0 {
					return fmt.Errorf("%s must be a positive number", name)
				}

				return nil
			}
		}

		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("MQTT broker URL").
					Value(&brokerURL).
					Validate(required("broker URL")),
				huh.NewInput().
					Title("Domain ID").
					Value(&domainID).
					Validate(required("domain ID")),
				huh.NewInput().
					Title("Channel ID").
					Value(&channelID).
					Validate(required("channel ID")),
				huh.NewInput().
					Title("OCI registry URL").
					Value(&registryURL),
				huh.NewInput().
					Title("Training module reference (blank to load from file)").
					Value(&moduleRef),
				huh.NewInput().
					Title("Number of trainers").
					Value(&trainerCount).
					Validate(positive("trainer count")),
				huh.NewInput().
					Title("Samples per trainer").
					Value(&sampleCount).
					Validate(positive("sample count")),
				huh.NewInput().
					Title("Output directory").
					Value(&outputDir).
					Validate(required("output directory")),
			),
		)

		if err := form.Run(); err != nil {
			logErrorCmd(*cmd, err)

			return
		}

		count, err := strconv.Atoi(trainerCount)
		if err != nil {
			logErrorCmd(*cmd, err)

			return
		}
		samples, err := strconv.ParseInt(sampleCount, 10, 64)
		if err != nil {
			logErrorCmd(*cmd, err)

			return
		}

		if err := os.MkdirAll(outputDir, dirPermission); err != nil {
			logErrorCmd(*cmd, errors.Wrap(errFailedOutputDir, err))

			return
		}

		envContent := fmt.Sprintf(`# FLock Environment Configuration

# Coordinator Configuration
COORDINATOR_MQTT_ADDRESS=%s
COORDINATOR_DOMAIN_ID=%s
COORDINATOR_CHANNEL_ID=%s
COORDINATOR_STORAGE_TYPE=memory

# Proxy Configuration
PROXY_MQTT_ADDRESS=%s
PROXY_DOMAIN_ID=%s
PROXY_CHANNEL_ID=%s
PROXY_REGISTRY_URL=%s`,
			brokerURL,
			domainID,
			channelID,
			brokerURL,
			domainID,
			channelID,
			registryURL,
		)

		envFile := filepath.Join(outputDir, ".env")
		if err := os.WriteFile(envFile, []byte(envContent), filePermission); err != nil {
			logErrorCmd(*cmd, errors.Wrap(errFailedEnvFile, err))

			return
		}
		logSuccessCmd(*cmd, "Successfully created .env file")

		// Client keys stay empty; fill them in when the broker enforces auth.
		bundle := flock.Config{
			Coordinator: flock.CoordinatorConfig{
				DomainID:  domainID,
				ClientID:  uuid.NewString(),
				ChannelID: channelID,
			},
			Trainer: flock.TrainerConfig{
				DomainID:  domainID,
				ClientID:  uuid.NewString(),
				ChannelID: channelID,
			},
			Proxy: flock.ProxyConfig{
				DomainID:  domainID,
				ClientID:  uuid.NewString(),
				ChannelID: channelID,
			},
		}

		bundleFile := filepath.Join(outputDir, "flock.toml")
		if err := flock.SaveConfig(bundleFile, bundle); err != nil {
			logErrorCmd(*cmd, errors.Wrap(errFailedBundleFile, err))

			return
		}
		logSuccessCmd(*cmd, "Successfully created flock.toml bundle")

		res := Result{
			EnvFile:    envFile,
			BundleFile: bundleFile,
		}

		for i := 0; i < count; i++ {
			cfg := trainer.Config{
				BrokerURL:  brokerURL,
				TrainerID:  uuid.NewString(),
				Name:       fmt.Sprintf("trainer-%d", i+1),
				DomainID:   domainID,
				ChannelID:  channelID,
				NumSamples: samples,
				ModuleRef:  moduleRef,
			}
			if moduleRef == "" {
				cfg.ModuleFile = "module.wasm"
			}

			content, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				logErrorCmd(*cmd, errors.Wrap(errFailedTrainerConfig, err))

				return
			}

			cfgFile := filepath.Join(outputDir, fmt.Sprintf("trainer-%d.json", i+1))
			if err := os.WriteFile(cfgFile, content, filePermission); err != nil {
				logErrorCmd(*cmd, errors.Wrap(errFailedTrainerConfig, err))

				return
			}
			logSuccessCmd(*cmd, fmt.Sprintf("Successfully created %s", cfgFile))

			res.TrainerConfigs = append(res.TrainerConfigs, cfgFile)
		}

		logJSONCmd(*cmd, res)
	},
}

func NewProvisionCmd() *cobra.Command {
	return provisionCmd
}
