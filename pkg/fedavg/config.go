package fedavg

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidConfig = errors.New("invalid strategy configuration")

const (
	defRounds           = 10
	defMinClients       = 2
	defRoundTimeoutSecs = 600
	defMaxFailedRounds  = 3
	defEpochs           = 1
	defBatchSize        = 32
	defLearningRate     = 0.001
)

// Config carries the per-session strategy settings. Fractions select the
// share of available trainers sampled each round; minimums put a floor
// under the sample and under the registry size needed to run at all.
type Config struct {
	Rounds              uint64  `json:"rounds"`
	FractionFit         float64 `json:"fraction_fit"`
	FractionEvaluate    float64 `json:"fraction_evaluate"`
	MinFitClients       uint64  `json:"min_fit_clients"`
	MinEvaluateClients  uint64  `json:"min_evaluate_clients"`
	MinAvailableClients uint64  `json:"min_available_clients"`
	RoundTimeoutSecs    uint64  `json:"round_timeout_secs"`
	AcceptFailures      bool    `json:"accept_failures"`
	MaxFailedRounds     uint64  `json:"max_failed_rounds"`
	Epochs              uint64  `json:"epochs"`
	BatchSize           uint64  `json:"batch_size"`
	LearningRate        float64 `json:"learning_rate"`
}

func DefaultConfig() Config {
	return Config{
		Rounds:              defRounds,
		FractionFit:         1.0,
		FractionEvaluate:    1.0,
		MinFitClients:       defMinClients,
		MinEvaluateClients:  defMinClients,
		MinAvailableClients: defMinClients,
		RoundTimeoutSecs:    defRoundTimeoutSecs,
		AcceptFailures:      true,
		MaxFailedRounds:     defMaxFailedRounds,
		Epochs:              defEpochs,
		BatchSize:           defBatchSize,
		LearningRate:        defLearningRate,
	}
}

// Normalized fills zeroed fields with their defaults. A zero config
// becomes DefaultConfig; a partial config keeps every explicit value,
// including AcceptFailures.
func (c Config) Normalized() Config {
	if c == (Config{}) {
		return DefaultConfig()
	}

	def := DefaultConfig()
	if c.Rounds == 0 {
		c.Rounds = def.Rounds
	}
	if c.FractionFit == 0 {
		c.FractionFit = def.FractionFit
	}
	if c.MinFitClients == 0 {
		c.MinFitClients = def.MinFitClients
	}
	if c.MinEvaluateClients == 0 && c.FractionEvaluate > 0 {
		c.MinEvaluateClients = def.MinEvaluateClients
	}
	if c.MinAvailableClients == 0 {
		c.MinAvailableClients = max(c.MinFitClients, c.MinEvaluateClients)
	}
	if c.RoundTimeoutSecs == 0 {
		c.RoundTimeoutSecs = def.RoundTimeoutSecs
	}
	if c.MaxFailedRounds == 0 {
		c.MaxFailedRounds = def.MaxFailedRounds
	}
	if c.Epochs == 0 {
		c.Epochs = def.Epochs
	}
	if c.BatchSize == 0 {
		c.BatchSize = def.BatchSize
	}
	if c.LearningRate == 0 {
		c.LearningRate = def.LearningRate
	}

	return c
}

func (c Config) Timeout() time.Duration {
	return time.Duration(c.RoundTimeoutSecs) * time.Second
}

// EvaluateEnabled reports whether the session runs a federated evaluate
// phase after each fit round.
func (c Config) EvaluateEnabled() bool {
	return c.FractionEvaluate > 0 && c.MinEvaluateClients > 0
}

func (c Config) Validate() error {
	if c.Rounds == 0 {
		return fmt.Errorf("%w: rounds must be at least 1", ErrInvalidConfig)
	}
	if c.MinFitClients == 0 {
		return fmt.Errorf("%w: min_fit_clients must be at least 1", ErrInvalidConfig)
	}
	if c.FractionFit <= 0 || c.FractionFit > 1 {
		return fmt.Errorf("%w: fraction_fit must be in (0, 1], got %v", ErrInvalidConfig, c.FractionFit)
	}
	if c.FractionEvaluate < 0 || c.FractionEvaluate > 1 {
		return fmt.Errorf("%w: fraction_evaluate must be in [0, 1], got %v", ErrInvalidConfig, c.FractionEvaluate)
	}
	if min := max(c.MinFitClients, c.MinEvaluateClients); c.MinAvailableClients < min {
		return fmt.Errorf("%w: min_available_clients must be at least %d", ErrInvalidConfig, min)
	}
	if c.RoundTimeoutSecs == 0 {
		return fmt.Errorf("%w: round_timeout_secs must be positive", ErrInvalidConfig)
	}
	if c.MaxFailedRounds == 0 {
		return fmt.Errorf("%w: max_failed_rounds must be at least 1", ErrInvalidConfig)
	}
	if c.Epochs == 0 {
		return fmt.Errorf("%w: epochs must be at least 1", ErrInvalidConfig)
	}
	if c.BatchSize == 0 {
		return fmt.Errorf("%w: batch_size must be at least 1", ErrInvalidConfig)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("%w: learning_rate must be positive, got %v", ErrInvalidConfig, c.LearningRate)
	}

	return nil
}
