package trainer

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/absmach/flock"
)

const defLivenessInterval = 5 * time.Second

// Config is the trainer agent configuration, usually loaded from a JSON
// file provisioned next to the agent.
type Config struct {
	LogLevel   string `json:"log_level,omitempty"`
	BrokerURL  string `json:"broker_url"`
	Username   string `json:"username,omitempty"`
	Password   string `json:"password,omitempty"`
	TrainerID  string `json:"trainer_id"`
	Name       string `json:"name,omitempty"`
	DomainID   string `json:"domain_id"`
	ChannelID  string `json:"channel_id"`
	NumSamples int64  `json:"num_samples"`
	ModuleFile string `json:"module_file,omitempty"`
	ModuleRef  string `json:"module_ref,omitempty"`
	// WasmRuntime is the path of an external Wasm CLI, e.g. wasmtime.
	// When empty the embedded wazero runtime executes modules.
	WasmRuntime          string `json:"wasm_runtime,omitempty"`
	LivenessIntervalSecs uint64 `json:"liveness_interval_secs,omitempty"`
}

func LoadConfig(path string) (Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("unable to open configuration file '%s': %w", path, err)
	}
	defer file.Close()

	var config Config
	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&config); err != nil {
		return Config{}, fmt.Errorf("failed to parse configuration file '%s': %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func (c Config) Validate() error {
	if c.BrokerURL == "" {
		return errors.New("broker_url is required")
	}
	if _, err := url.Parse(c.BrokerURL); err != nil {
		return fmt.Errorf("broker_url is not a valid URL: %w", err)
	}
	if c.TrainerID == "" {
		return errors.New("trainer_id is required")
	}
	if c.DomainID == "" {
		return errors.New("domain_id is required")
	}
	if c.ChannelID == "" {
		return errors.New("channel_id is required")
	}
	if c.NumSamples <= 0 {
		return errors.New("num_samples must be positive")
	}
	if c.ModuleFile == "" && c.ModuleRef == "" {
		return errors.New("either module_file or module_ref is required")
	}

	return nil
}

// ApplyBundle overlays the trainer section of a provisioning bundle onto
// the configuration. Empty bundle fields leave the loaded values in place.
func (c Config) ApplyBundle(b flock.TrainerConfig) Config {
	if b.DomainID != "" {
		c.DomainID = b.DomainID
	}
	if b.ClientID != "" {
		c.Username = b.ClientID
	}
	if b.ClientKey != "" {
		c.Password = b.ClientKey
	}
	if b.ChannelID != "" {
		c.ChannelID = b.ChannelID
	}

	return c
}

// LivenessInterval returns the heartbeat period. It must stay below the
// coordinator's liveness window or the trainer flaps dead between beats.
func (c Config) LivenessInterval() time.Duration {
	if c.LivenessIntervalSecs == 0 {
		return defLivenessInterval
	}

	return time.Duration(c.LivenessIntervalSecs) * time.Second
}
