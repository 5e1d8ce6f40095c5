// Package coordinator runs federated learning sessions: it tracks the
// trainer fleet over MQTT, drives the per-round fit/evaluate loop, and
// aggregates trainer updates into new global model versions.
package coordinator

import (
	"context"
	"errors"

	"github.com/absmach/flock/pkg/fedavg"
	"github.com/absmach/flock/session"
	"github.com/absmach/flock/trainer"
)

// Round phases published to trainers and echoed back in their updates.
const (
	PhaseFit      = "fit"
	PhaseEvaluate = "evaluate"
)

var (
	// ErrNoActiveRound indicates an update for a session that has no
	// round in flight.
	ErrNoActiveRound = errors.New("no active round for session")

	// ErrShuttingDown indicates the coordinator is shutting down and
	// no longer accepts new work.
	ErrShuttingDown = errors.New("coordinator is shutting down")

	// ErrSessionNotPending indicates a mutation that is only allowed
	// before a session starts.
	ErrSessionNotPending = errors.New("session is not pending")

	// ErrSessionNotActive indicates a cancellation attempt on a
	// session that already finished.
	ErrSessionNotActive = errors.New("session is not active")

	// ErrSessionActive indicates a deletion attempt on a session that
	// is still running.
	ErrSessionActive = errors.New("session is still active")

	// ErrInvalidUpdate indicates a trainer update with missing or
	// malformed identity fields.
	ErrInvalidUpdate = errors.New("invalid trainer update")
)

// TrainerUpdate is the wire form of a single trainer's reply to a round
// instruction, received over MQTT or the HTTP/CBOR ingest endpoints.
type TrainerUpdate struct {
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

// RoundInstruction is published to trainers at the start of each phase.
type RoundInstruction struct {
	SessionID    string            `json:"session_id"`
	Round        uint64            `json:"round"`
	Phase        string            `json:"phase"`
	TrainerIDs   []string          `json:"trainer_ids"`
	Parameters   fedavg.Parameters `json:"parameters,omitempty"`
	ModelVersion uint64            `json:"model_version"`
	Config       TrainConfig       `json:"config"`
}

// TrainConfig carries the hyperparameters trainers apply locally.
type TrainConfig struct {
	Epochs       uint64  `json:"epochs"`
	BatchSize    uint64  `json:"batch_size"`
	LearningRate float64 `json:"learning_rate"`
}

// Service manages federated learning sessions and the trainer fleet.
type Service interface {
	// CreateSession registers a new session in the pending state.
	CreateSession(ctx context.Context, s session.Session) (session.Session, error)

	// GetSession returns a session by ID.
	GetSession(ctx context.Context, id string) (session.Session, error)

	// ListSessions returns a page of sessions.
	ListSessions(ctx context.Context, offset, limit uint64) (session.SessionPage, error)

	// UpdateSession replaces the name and config of a pending session.
	UpdateSession(ctx context.Context, s session.Session) (session.Session, error)

	// DeleteSession removes a session that is not running.
	DeleteSession(ctx context.Context, id string) error

	// StartSession launches the round loop for a pending session.
	StartSession(ctx context.Context, id string) error

	// CancelSession stops a pending or running session.
	CancelSession(ctx context.Context, id string) error

	// GetRound returns one recorded round of a session.
	GetRound(ctx context.Context, sessionID string, number uint64) (session.Round, error)

	// ListRounds returns the recorded rounds of a session in order.
	ListRounds(ctx context.Context, sessionID string, offset, limit uint64) (session.RoundPage, error)

	// GetModelVersion returns a model version by ID.
	GetModelVersion(ctx context.Context, id string) (session.ModelVersion, error)

	// ListModelVersions returns the model versions of a session.
	ListModelVersions(ctx context.Context, sessionID string, offset, limit uint64) (session.ModelVersionPage, error)

	// DeployModelVersion marks one version of a session as deployed.
	DeployModelVersion(ctx context.Context, sessionID, id string) error

	// GetDeployedModel returns the deployed version of a session.
	GetDeployedModel(ctx context.Context, sessionID string) (session.ModelVersion, error)

	// GetTrainer returns a trainer by ID with up-to-date liveness.
	GetTrainer(ctx context.Context, id string) (trainer.Trainer, error)

	// ListTrainers returns a page of known trainers.
	ListTrainers(ctx context.Context, offset, limit uint64) (trainer.TrainerPage, error)

	// DeleteTrainer removes a trainer from the registry.
	DeleteTrainer(ctx context.Context, id string) error

	// SubmitUpdate routes a trainer update to the session's round in
	// flight.
	SubmitUpdate(ctx context.Context, u TrainerUpdate) error

	// SubmitUpdateCBOR decodes a CBOR-encoded update and submits it.
	SubmitUpdateCBOR(ctx context.Context, payload []byte) error

	// Subscribe attaches the service to the trainer control and
	// update topics.
	Subscribe(ctx context.Context) error

	// Shutdown stops all running sessions and marks them failed.
	Shutdown(ctx context.Context) error

	// RecoverInterruptedSessions fails sessions left running by a
	// previous instance.
	RecoverInterruptedSessions(ctx context.Context) error
}
