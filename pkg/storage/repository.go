package storage

import (
	"context"

	"github.com/absmach/flock/session"
	"github.com/absmach/flock/trainer"
)

type SessionRepository interface {
	Create(ctx context.Context, s session.Session) (session.Session, error)
	Get(ctx context.Context, id string) (session.Session, error)
	Update(ctx context.Context, s session.Session) error
	List(ctx context.Context, offset, limit uint64) ([]session.Session, uint64, error)
	ListByState(ctx context.Context, state session.State, offset, limit uint64) ([]session.Session, uint64, error)
	Delete(ctx context.Context, id string) error
}

// RoundRepository stores per-round metric documents keyed by session ID and
// round number.
type RoundRepository interface {
	Create(ctx context.Context, r session.Round) (session.Round, error)
	Get(ctx context.Context, sessionID string, number uint64) (session.Round, error)
	Update(ctx context.Context, r session.Round) error
	ListBySession(ctx context.Context, sessionID string, offset, limit uint64) ([]session.Round, uint64, error)
	Delete(ctx context.Context, sessionID string, number uint64) error
}

// ModelRepository stores versioned model snapshots. Deploy marks a single
// version as deployed and clears the flag on every other version of the same
// session.
type ModelRepository interface {
	Create(ctx context.Context, m session.ModelVersion) (session.ModelVersion, error)
	Get(ctx context.Context, id string) (session.ModelVersion, error)
	GetDeployed(ctx context.Context, sessionID string) (session.ModelVersion, error)
	ListBySession(ctx context.Context, sessionID string, offset, limit uint64) ([]session.ModelVersion, uint64, error)
	Deploy(ctx context.Context, sessionID, id string) error
	Delete(ctx context.Context, id string) error
}

type TrainerRepository interface {
	Create(ctx context.Context, t trainer.Trainer) error
	Get(ctx context.Context, id string) (trainer.Trainer, error)
	Update(ctx context.Context, t trainer.Trainer) error
	List(ctx context.Context, offset, limit uint64) ([]trainer.Trainer, uint64, error)
	Delete(ctx context.Context, id string) error
}
