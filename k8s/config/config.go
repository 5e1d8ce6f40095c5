package config

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the operator runtime configuration. Fleet specs may
// omit image and broker; the operator fills them from the defaults
// here.
type Config struct {
	LogLevel            string        `env:"OPERATOR_LOG_LEVEL"             envDefault:"info"`
	Namespace           string        `env:"OPERATOR_NAMESPACE"             envDefault:""`
	MetricsAddr         string        `env:"OPERATOR_METRICS_ADDR"          envDefault:":8080"`
	HealthProbeAddr     string        `env:"OPERATOR_HEALTH_PROBE_ADDR"     envDefault:":8081"`
	LeaderElection      bool          `env:"OPERATOR_LEADER_ELECTION"       envDefault:"false"`
	DefaultTrainerImage string        `env:"OPERATOR_DEFAULT_TRAINER_IMAGE" envDefault:"ghcr.io/absmach/flock/trainer:latest"`
	DefaultBrokerURL    string        `env:"OPERATOR_DEFAULT_BROKER_URL"    envDefault:"tcp://localhost:1883"`
	CheckInterval       time.Duration `env:"OPERATOR_CHECK_INTERVAL"        envDefault:"1m"`
	DegradedThreshold   time.Duration `env:"OPERATOR_DEGRADED_THRESHOLD"    envDefault:"5m"`
}

func Load() (Config, error) {
	c := Config{}
	if err := env.Parse(&c); err != nil {
		return Config{}, err
	}

	return c, nil
}

func (c Config) Validate() error {
	if c.DefaultBrokerURL == "" {
		return errors.New("default broker URL is required")
	}
	if c.CheckInterval <= 0 {
		return errors.New("check interval must be positive")
	}
	if c.DegradedThreshold <= 0 {
		return errors.New("degraded threshold must be positive")
	}

	return nil
}
