package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/absmach/flock/pkg/storage/badger"
	"github.com/absmach/flock/pkg/storage/postgres"
	"github.com/absmach/flock/pkg/storage/sqlite"
	"github.com/absmach/flock/session"
	"github.com/absmach/flock/trainer"
)

type Config struct {
	Type string `env:"COORDINATOR_STORAGE_TYPE" envDefault:"memory"`

	PostgresHost    string `env:"COORDINATOR_POSTGRES_HOST"    envDefault:"localhost"`
	PostgresPort    string `env:"COORDINATOR_POSTGRES_PORT"    envDefault:"5432"`
	PostgresUser    string `env:"COORDINATOR_POSTGRES_USER"    envDefault:"flock"`
	PostgresPass    string `env:"COORDINATOR_POSTGRES_PASS"    envDefault:"flock"`
	PostgresDB      string `env:"COORDINATOR_POSTGRES_DB"      envDefault:"flock"`
	PostgresSSLMode string `env:"COORDINATOR_POSTGRES_SSLMODE" envDefault:"disable"`

	SQLitePath string `env:"COORDINATOR_SQLITE_PATH" envDefault:"./flock.db"`

	BadgerPath string `env:"COORDINATOR_BADGER_PATH" envDefault:"./data/badger"`
}

type Repositories struct {
	Sessions SessionRepository
	Rounds   RoundRepository
	Models   ModelRepository
	Trainers TrainerRepository
	// Closer closes the underlying persistent storage connection.
	// It is nil for the in-memory backend.
	Closer io.Closer
}

func NewRepositories(cfg Config) (*Repositories, error) {
	switch cfg.Type {
	case "postgres":
		return newPostgresRepositories(cfg)
	case "sqlite":
		return newSQLiteRepositories(cfg)
	case "badger":
		return newBadgerRepositories(cfg)
	case "memory":
		return newMemoryRepositories()
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

func newPostgresRepositories(cfg Config) (*Repositories, error) {
	db, err := postgres.NewDatabase(
		cfg.PostgresHost,
		cfg.PostgresPort,
		cfg.PostgresUser,
		cfg.PostgresPass,
		cfg.PostgresDB,
		cfg.PostgresSSLMode,
	)
	if err != nil {
		return nil, err
	}

	repos := postgres.NewRepositories(db)

	return &Repositories{
		Sessions: &postgresSessionAdapter{repo: repos.Sessions},
		Rounds:   &postgresRoundAdapter{repo: repos.Rounds},
		Models:   &postgresModelAdapter{repo: repos.Models},
		Trainers: &postgresTrainerAdapter{repo: repos.Trainers},
		Closer:   db,
	}, nil
}

func newSQLiteRepositories(cfg Config) (*Repositories, error) {
	db, err := sqlite.NewDatabase(cfg.SQLitePath)
	if err != nil {
		return nil, err
	}

	repos := sqlite.NewRepositories(db)

	return &Repositories{
		Sessions: &sqliteSessionAdapter{repo: repos.Sessions},
		Rounds:   &sqliteRoundAdapter{repo: repos.Rounds},
		Models:   &sqliteModelAdapter{repo: repos.Models},
		Trainers: &sqliteTrainerAdapter{repo: repos.Trainers},
		Closer:   db,
	}, nil
}

func newBadgerRepositories(cfg Config) (*Repositories, error) {
	db, err := badger.NewDatabase(cfg.BadgerPath)
	if err != nil {
		return nil, err
	}

	repos := badger.NewRepositories(db)

	return &Repositories{
		Sessions: &badgerSessionAdapter{repo: repos.Sessions},
		Rounds:   &badgerRoundAdapter{repo: repos.Rounds},
		Models:   &badgerModelAdapter{repo: repos.Models},
		Trainers: &badgerTrainerAdapter{repo: repos.Trainers},
		Closer:   db,
	}, nil
}

func newMemoryRepositories() (*Repositories, error) {
	sessionStorage := NewInMemoryStorage()
	roundStorage := NewInMemoryStorage()
	modelStorage := NewInMemoryStorage()
	trainerStorage := NewInMemoryStorage()

	return &Repositories{
		Sessions: newMemorySessionRepository(sessionStorage),
		Rounds:   newMemoryRoundRepository(roundStorage),
		Models:   newMemoryModelRepository(modelStorage),
		Trainers: newMemoryTrainerRepository(trainerStorage),
	}, nil
}

type postgresSessionAdapter struct {
	repo postgres.SessionRepository
}

func (a *postgresSessionAdapter) Create(ctx context.Context, s session.Session) (session.Session, error) {
	return a.repo.Create(ctx, s)
}

func (a *postgresSessionAdapter) Get(ctx context.Context, id string) (session.Session, error) {
	s, err := a.repo.Get(ctx, id)
	if errors.Is(err, postgres.ErrSessionNotFound) {
		return session.Session{}, ErrSessionNotFound
	}

	return s, err
}

func (a *postgresSessionAdapter) Update(ctx context.Context, s session.Session) error {
	return a.repo.Update(ctx, s)
}

func (a *postgresSessionAdapter) List(ctx context.Context, offset, limit uint64) ([]session.Session, uint64, error) {
	return a.repo.List(ctx, offset, limit)
}

func (a *postgresSessionAdapter) ListByState(ctx context.Context, state session.State, offset, limit uint64) ([]session.Session, uint64, error) {
	return a.repo.ListByState(ctx, state, offset, limit)
}

func (a *postgresSessionAdapter) Delete(ctx context.Context, id string) error {
	return a.repo.Delete(ctx, id)
}

type postgresRoundAdapter struct {
	repo postgres.RoundRepository
}

func (a *postgresRoundAdapter) Create(ctx context.Context, r session.Round) (session.Round, error) {
	return a.repo.Create(ctx, r)
}

func (a *postgresRoundAdapter) Get(ctx context.Context, sessionID string, number uint64) (session.Round, error) {
	r, err := a.repo.Get(ctx, sessionID, number)
	if errors.Is(err, postgres.ErrRoundNotFound) {
		return session.Round{}, ErrRoundNotFound
	}

	return r, err
}

func (a *postgresRoundAdapter) Update(ctx context.Context, r session.Round) error {
	return a.repo.Update(ctx, r)
}

func (a *postgresRoundAdapter) ListBySession(ctx context.Context, sessionID string, offset, limit uint64) ([]session.Round, uint64, error) {
	return a.repo.ListBySession(ctx, sessionID, offset, limit)
}

func (a *postgresRoundAdapter) Delete(ctx context.Context, sessionID string, number uint64) error {
	return a.repo.Delete(ctx, sessionID, number)
}

type postgresModelAdapter struct {
	repo postgres.ModelRepository
}

func (a *postgresModelAdapter) Create(ctx context.Context, m session.ModelVersion) (session.ModelVersion, error) {
	return a.repo.Create(ctx, m)
}

func (a *postgresModelAdapter) Get(ctx context.Context, id string) (session.ModelVersion, error) {
	m, err := a.repo.Get(ctx, id)
	if errors.Is(err, postgres.ErrModelNotFound) {
		return session.ModelVersion{}, ErrModelNotFound
	}

	return m, err
}

func (a *postgresModelAdapter) GetDeployed(ctx context.Context, sessionID string) (session.ModelVersion, error) {
	m, err := a.repo.GetDeployed(ctx, sessionID)
	if errors.Is(err, postgres.ErrModelNotFound) {
		return session.ModelVersion{}, ErrModelNotFound
	}

	return m, err
}

func (a *postgresModelAdapter) ListBySession(ctx context.Context, sessionID string, offset, limit uint64) ([]session.ModelVersion, uint64, error) {
	return a.repo.ListBySession(ctx, sessionID, offset, limit)
}

func (a *postgresModelAdapter) Deploy(ctx context.Context, sessionID, id string) error {
	err := a.repo.Deploy(ctx, sessionID, id)
	if errors.Is(err, postgres.ErrModelNotFound) {
		return ErrModelNotFound
	}

	return err
}

func (a *postgresModelAdapter) Delete(ctx context.Context, id string) error {
	return a.repo.Delete(ctx, id)
}

type postgresTrainerAdapter struct {
	repo postgres.TrainerRepository
}

func (a *postgresTrainerAdapter) Create(ctx context.Context, t trainer.Trainer) error {
	return a.repo.Create(ctx, t)
}

func (a *postgresTrainerAdapter) Get(ctx context.Context, id string) (trainer.Trainer, error) {
	t, err := a.repo.Get(ctx, id)
	if errors.Is(err, postgres.ErrTrainerNotFound) {
		return trainer.Trainer{}, ErrTrainerNotFound
	}

	return t, err
}

func (a *postgresTrainerAdapter) Update(ctx context.Context, t trainer.Trainer) error {
	return a.repo.Update(ctx, t)
}

func (a *postgresTrainerAdapter) List(ctx context.Context, offset, limit uint64) ([]trainer.Trainer, uint64, error) {
	return a.repo.List(ctx, offset, limit)
}

func (a *postgresTrainerAdapter) Delete(ctx context.Context, id string) error {
	return a.repo.Delete(ctx, id)
}

type sqliteSessionAdapter struct {
	repo sqlite.SessionRepository
}

func (a *sqliteSessionAdapter) Create(ctx context.Context, s session.Session) (session.Session, error) {
	return a.repo.Create(ctx, s)
}

func (a *sqliteSessionAdapter) Get(ctx context.Context, id string) (session.Session, error) {
	s, err := a.repo.Get(ctx, id)
	if errors.Is(err, sqlite.ErrSessionNotFound) {
		return session.Session{}, ErrSessionNotFound
	}

	return s, err
}

func (a *sqliteSessionAdapter) Update(ctx context.Context, s session.Session) error {
	return a.repo.Update(ctx, s)
}

func (a *sqliteSessionAdapter) List(ctx context.Context, offset, limit uint64) ([]session.Session, uint64, error) {
	return a.repo.List(ctx, offset, limit)
}

func (a *sqliteSessionAdapter) ListByState(ctx context.Context, state session.State, offset, limit uint64) ([]session.Session, uint64, error) {
	return a.repo.ListByState(ctx, state, offset, limit)
}

func (a *sqliteSessionAdapter) Delete(ctx context.Context, id string) error {
	return a.repo.Delete(ctx, id)
}

type sqliteRoundAdapter struct {
	repo sqlite.RoundRepository
}

func (a *sqliteRoundAdapter) Create(ctx context.Context, r session.Round) (session.Round, error) {
	return a.repo.Create(ctx, r)
}

func (a *sqliteRoundAdapter) Get(ctx context.Context, sessionID string, number uint64) (session.Round, error) {
	r, err := a.repo.Get(ctx, sessionID, number)
	if errors.Is(err, sqlite.ErrRoundNotFound) {
		return session.Round{}, ErrRoundNotFound
	}

	return r, err
}

func (a *sqliteRoundAdapter) Update(ctx context.Context, r session.Round) error {
	return a.repo.Update(ctx, r)
}

func (a *sqliteRoundAdapter) ListBySession(ctx context.Context, sessionID string, offset, limit uint64) ([]session.Round, uint64, error) {
	return a.repo.ListBySession(ctx, sessionID, offset, limit)
}

func (a *sqliteRoundAdapter) Delete(ctx context.Context, sessionID string, number uint64) error {
	return a.repo.Delete(ctx, sessionID, number)
}

type sqliteModelAdapter struct {
	repo sqlite.ModelRepository
}

func (a *sqliteModelAdapter) Create(ctx context.Context, m session.ModelVersion) (session.ModelVersion, error) {
	return a.repo.Create(ctx, m)
}

func (a *sqliteModelAdapter) Get(ctx context.Context, id string) (session.ModelVersion, error) {
	m, err := a.repo.Get(ctx, id)
	if errors.Is(err, sqlite.ErrModelNotFound) {
		return session.ModelVersion{}, ErrModelNotFound
	}

	return m, err
}

func (a *sqliteModelAdapter) GetDeployed(ctx context.Context, sessionID string) (session.ModelVersion, error) {
	m, err := a.repo.GetDeployed(ctx, sessionID)
	if errors.Is(err, sqlite.ErrModelNotFound) {
		return session.ModelVersion{}, ErrModelNotFound
	}

	return m, err
}

func (a *sqliteModelAdapter) ListBySession(ctx context.Context, sessionID string, offset, limit uint64) ([]session.ModelVersion, uint64, error) {
	return a.repo.ListBySession(ctx, sessionID, offset, limit)
}

func (a *sqliteModelAdapter) Deploy(ctx context.Context, sessionID, id string) error {
	err := a.repo.Deploy(ctx, sessionID, id)
	if errors.Is(err, sqlite.ErrModelNotFound) {
		return ErrModelNotFound
	}

	return err
}

func (a *sqliteModelAdapter) Delete(ctx context.Context, id string) error {
	return a.repo.Delete(ctx, id)
}

type sqliteTrainerAdapter struct {
	repo sqlite.TrainerRepository
}

func (a *sqliteTrainerAdapter) Create(ctx context.Context, t trainer.Trainer) error {
	return a.repo.Create(ctx, t)
}

func (a *sqliteTrainerAdapter) Get(ctx context.Context, id string) (trainer.Trainer, error) {
	t, err := a.repo.Get(ctx, id)
	if errors.Is(err, sqlite.ErrTrainerNotFound) {
		return trainer.Trainer{}, ErrTrainerNotFound
	}

	return t, err
}

func (a *sqliteTrainerAdapter) Update(ctx context.Context, t trainer.Trainer) error {
	return a.repo.Update(ctx, t)
}

func (a *sqliteTrainerAdapter) List(ctx context.Context, offset, limit uint64) ([]trainer.Trainer, uint64, error) {
	return a.repo.List(ctx, offset, limit)
}

func (a *sqliteTrainerAdapter) Delete(ctx context.Context, id string) error {
	return a.repo.Delete(ctx, id)
}

type badgerSessionAdapter struct {
	repo badger.SessionRepository
}

func (a *badgerSessionAdapter) Create(ctx context.Context, s session.Session) (session.Session, error) {
	return a.repo.Create(ctx, s)
}

func (a *badgerSessionAdapter) Get(ctx context.Context, id string) (session.Session, error) {
	s, err := a.repo.Get(ctx, id)
	if errors.Is(err, badger.ErrSessionNotFound) {
		return session.Session{}, ErrSessionNotFound
	}

	return s, err
}

func (a *badgerSessionAdapter) Update(ctx context.Context, s session.Session) error {
	return a.repo.Update(ctx, s)
}

func (a *badgerSessionAdapter) List(ctx context.Context, offset, limit uint64) ([]session.Session, uint64, error) {
	return a.repo.List(ctx, offset, limit)
}

func (a *badgerSessionAdapter) ListByState(ctx context.Context, state session.State, offset, limit uint64) ([]session.Session, uint64, error) {
	return a.repo.ListByState(ctx, state, offset, limit)
}

func (a *badgerSessionAdapter) Delete(ctx context.Context, id string) error {
	return a.repo.Delete(ctx, id)
}

type badgerRoundAdapter struct {
	repo badger.RoundRepository
}

func (a *badgerRoundAdapter) Create(ctx context.Context, r session.Round) (session.Round, error) {
	return a.repo.Create(ctx, r)
}

func (a *badgerRoundAdapter) Get(ctx context.Context, sessionID string, number uint64) (session.Round, error) {
	r, err := a.repo.Get(ctx, sessionID, number)
	if errors.Is(err, badger.ErrRoundNotFound) {
		return session.Round{}, ErrRoundNotFound
	}

	return r, err
}

func (a *badgerRoundAdapter) Update(ctx context.Context, r session.Round) error {
	return a.repo.Update(ctx, r)
}

func (a *badgerRoundAdapter) ListBySession(ctx context.Context, sessionID string, offset, limit uint64) ([]session.Round, uint64, error) {
	return a.repo.ListBySession(ctx, sessionID, offset, limit)
}

func (a *badgerRoundAdapter) Delete(ctx context.Context, sessionID string, number uint64) error {
	return a.repo.Delete(ctx, sessionID, number)
}

type badgerModelAdapter struct {
	repo badger.ModelRepository
}

func (a *badgerModelAdapter) Create(ctx context.Context, m session.ModelVersion) (session.ModelVersion, error) {
	return a.repo.Create(ctx, m)
}

func (a *badgerModelAdapter) Get(ctx context.Context, id string) (session.ModelVersion, error) {
	m, err := a.repo.Get(ctx, id)
	if errors.Is(err, badger.ErrModelNotFound) {
		return session.ModelVersion{}, ErrModelNotFound
	}

	return m, err
}

func (a *badgerModelAdapter) GetDeployed(ctx context.Context, sessionID string) (session.ModelVersion, error) {
	m, err := a.repo.GetDeployed(ctx, sessionID)
	if errors.Is(err, badger.ErrModelNotFound) {
		return session.ModelVersion{}, ErrModelNotFound
	}

	return m, err
}

func (a *badgerModelAdapter) ListBySession(ctx context.Context, sessionID string, offset, limit uint64) ([]session.ModelVersion, uint64, error) {
	return a.repo.ListBySession(ctx, sessionID, offset, limit)
}

func (a *badgerModelAdapter) Deploy(ctx context.Context, sessionID, id string) error {
	err := a.repo.Deploy(ctx, sessionID, id)
	if errors.Is(err, badger.ErrModelNotFound) {
		return ErrModelNotFound
	}

	return err
}

func (a *badgerModelAdapter) Delete(ctx context.Context, id string) error {
	return a.repo.Delete(ctx, id)
}

type badgerTrainerAdapter struct {
	repo badger.TrainerRepository
}

func (a *badgerTrainerAdapter) Create(ctx context.Context, t trainer.Trainer) error {
	return a.repo.Create(ctx, t)
}

func (a *badgerTrainerAdapter) Get(ctx context.Context, id string) (trainer.Trainer, error) {
	t, err := a.repo.Get(ctx, id)
	if errors.Is(err, badger.ErrTrainerNotFound) {
		return trainer.Trainer{}, ErrTrainerNotFound
	}

	return t, err
}

func (a *badgerTrainerAdapter) Update(ctx context.Context, t trainer.Trainer) error {
	return a.repo.Update(ctx, t)
}

func (a *badgerTrainerAdapter) List(ctx context.Context, offset, limit uint64) ([]trainer.Trainer, uint64, error) {
	return a.repo.List(ctx, offset, limit)
}

func (a *badgerTrainerAdapter) Delete(ctx context.Context, id string) error {
	return a.repo.Delete(ctx, id)
}
