package flock

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml"
)

const filePermission = 0o644

// Config bundles the broker identities of one FLock deployment. Client IDs
// and keys are the credentials each component presents as its MQTT username
// and password.
type Config struct {
	Coordinator CoordinatorConfig `toml:"coordinator"`
	Trainer     TrainerConfig     `toml:"trainer"`
	Proxy       ProxyConfig       `toml:"proxy"`
}

type CoordinatorConfig struct {
	DomainID  string `toml:"domain_id"`
	ClientID  string `toml:"client_id"`
	ClientKey string `toml:"client_key"`
	ChannelID string `toml:"channel_id"`
}

type TrainerConfig struct {
	DomainID  string `toml:"domain_id"`
	ClientID  string `toml:"client_id"`
	ClientKey string `toml:"client_key"`
	ChannelID string `toml:"channel_id"`
}

type ProxyConfig struct {
	DomainID  string `toml:"domain_id"`
	ClientID  string `toml:"client_id"`
	ClientKey string `toml:"client_key"`
	ChannelID string `toml:"channel_id"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	tree, err := toml.Load(string(data))
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	var cfg Config
	if err := tree.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func SaveConfig(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, filePermission); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}
