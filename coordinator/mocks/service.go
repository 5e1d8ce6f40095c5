package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/absmach/flock/coordinator"
	"github.com/absmach/flock/session"
	"github.com/absmach/flock/trainer"
)

// MockService is a mock implementation of the coordinator.Service interface
type MockService struct {
	mock.Mock
}

// CreateSession registers a new session
func (m *MockService) CreateSession(ctx context.Context, s session.Session) (session.Session, error) {
	args := m.Called(ctx, s)
	return args.Get(0).(session.Session), args.Error(1)
}

// GetSession retrieves a session by ID
func (m *MockService) GetSession(ctx context.Context, id string) (session.Session, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(session.Session), args.Error(1)
}

// ListSessions lists sessions with pagination
func (m *MockService) ListSessions(ctx context.Context, offset, limit uint64) (session.SessionPage, error) {
	args := m.Called(ctx, offset, limit)
	return args.Get(0).(session.SessionPage), args.Error(1)
}

// UpdateSession updates a pending session
func (m *MockService) UpdateSession(ctx context.Context, s session.Session) (session.Session, error) {
	args := m.Called(ctx, s)
	return args.Get(0).(session.Session), args.Error(1)
}

// DeleteSession deletes a session
func (m *MockService) DeleteSession(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// StartSession starts a session's round loop
func (m *MockService) StartSession(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// CancelSession cancels a session
func (m *MockService) CancelSession(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// GetRound retrieves a recorded round
func (m *MockService) GetRound(ctx context.Context, sessionID string, number uint64) (session.Round, error) {
	args := m.Called(ctx, sessionID, number)
	return args.Get(0).(session.Round), args.Error(1)
}

// ListRounds lists the rounds of a session
func (m *MockService) ListRounds(ctx context.Context, sessionID string, offset, limit uint64) (session.RoundPage, error) {
	args := m.Called(ctx, sessionID, offset, limit)
	return args.Get(0).(session.RoundPage), args.Error(1)
}

// GetModelVersion retrieves a model version by ID
func (m *MockService) GetModelVersion(ctx context.Context, id string) (session.ModelVersion, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(session.ModelVersion), args.Error(1)
}

// ListModelVersions lists the model versions of a session
func (m *MockService) ListModelVersions(ctx context.Context, sessionID string, offset, limit uint64) (session.ModelVersionPage, error) {
	args := m.Called(ctx, sessionID, offset, limit)
	return args.Get(0).(session.ModelVersionPage), args.Error(1)
}

// DeployModelVersion marks a model version as deployed
func (m *MockService) DeployModelVersion(ctx context.Context, sessionID, id string) error {
	args := m.Called(ctx, sessionID, id)
	return args.Error(0)
}

// GetDeployedModel retrieves the deployed model version of a session
func (m *MockService) GetDeployedModel(ctx context.Context, sessionID string) (session.ModelVersion, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(session.ModelVersion), args.Error(1)
}

// GetTrainer retrieves a trainer by ID
func (m *MockService) GetTrainer(ctx context.Context, id string) (trainer.Trainer, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(trainer.Trainer), args.Error(1)
}

// ListTrainers lists trainers with pagination
func (m *MockService) ListTrainers(ctx context.Context, offset, limit uint64) (trainer.TrainerPage, error) {
	args := m.Called(ctx, offset, limit)
	return args.Get(0).(trainer.TrainerPage), args.Error(1)
}

// DeleteTrainer deletes a trainer
func (m *MockService) DeleteTrainer(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// SubmitUpdate submits a trainer update
func (m *MockService) SubmitUpdate(ctx context.Context, u coordinator.TrainerUpdate) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

// SubmitUpdateCBOR submits a CBOR-encoded trainer update
func (m *MockService) SubmitUpdateCBOR(ctx context.Context, payload []byte) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

// Subscribe subscribes to MQTT topics
func (m *MockService) Subscribe(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Shutdown stops all running sessions
func (m *MockService) Shutdown(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// RecoverInterruptedSessions fails sessions left running by a previous instance
func (m *MockService) RecoverInterruptedSessions(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
