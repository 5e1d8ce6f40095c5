package trainer

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/absmach/flock/pkg/fedavg"
)

// roundInstruction is the round start message published by the coordinator.
type roundInstruction struct {
	SessionID    string            `json:"session_id"`
	Round        uint64            `json:"round"`
	Phase        string            `json:"phase"`
	TrainerIDs   []string          `json:"trainer_ids"`
	Parameters   fedavg.Parameters `json:"parameters,omitempty"`
	ModelVersion uint64            `json:"model_version"`
	Config       trainSettings     `json:"config"`
}

type trainSettings struct {
	Epochs       uint64  `json:"epochs"`
	BatchSize    uint64  `json:"batch_size"`
	LearningRate float64 `json:"learning_rate"`
}

func (r roundInstruction) Validate() error {
	if r.SessionID == "" {
		return errors.New("session_id is required")
	}
	if r.Round == 0 {
		return errors.New("round number must be positive")
	}
	if r.Phase != OpFit && r.Phase != OpEvaluate {
		return fmt.Errorf("unknown phase '%s'", r.Phase)
	}

	return nil
}

// selected reports whether this trainer was sampled for the round.
func (r roundInstruction) selected(trainerID string) bool {
	for _, id := range r.TrainerIDs {
		if id == trainerID {
			return true
		}
	}

	return false
}

// stopInstruction is the session stop message published by the coordinator.
type stopInstruction struct {
	SessionID string `json:"session_id"`
}

func (r stopInstruction) Validate() error {
	if r.SessionID == "" {
		return errors.New("session_id is required")
	}

	return nil
}

// trainerUpdate is the phase result this trainer publishes back to the
// coordinator. Exactly one of Parameters (fit) or Loss (evaluate) is set on
// success; Error is set instead when the phase failed.
type trainerUpdate struct {
	SessionID  string             `json:"session_id"`
	Round      uint64             `json:"round"`
	TrainerID  string             `json:"trainer_id"`
	Phase      string             `json:"phase"`
	NumSamples int64              `json:"num_samples"`
	Parameters fedavg.Parameters  `json:"parameters,omitempty"`
	Loss       float64            `json:"loss,omitempty"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// chunkPayload is one piece of a training module streamed by the registry
// proxy. Checksum is the hex SHA-256 of the complete module and is only
// present on the first chunk of some proxies, so it is optional here and
// verified when set.
type chunkPayload struct {
	AppName     string `json:"app_name"`
	ChunkIdx    int    `json:"chunk_idx"`
	TotalChunks int    `json:"total_chunks"`
	Data        []byte `json:"data"`
	Checksum    string `json:"checksum,omitempty"`
}

func (c chunkPayload) Validate() error {
	if c.AppName == "" {
		return errors.New("app_name is required")
	}
	if c.TotalChunks <= 0 {
		return errors.New("total_chunks must be positive")
	}
	if c.ChunkIdx < 0 || c.ChunkIdx >= c.TotalChunks {
		return fmt.Errorf("chunk_idx %d out of range [0, %d)", c.ChunkIdx, c.TotalChunks)
	}
	if len(c.Data) == 0 {
		return errors.New("chunk data is empty")
	}
	if c.Checksum != "" {
		if raw, err := hex.DecodeString(c.Checksum); err != nil || len(raw) != 32 {
			return errors.New("checksum must be a hex encoded SHA-256 digest")
		}
	}

	return nil
}
