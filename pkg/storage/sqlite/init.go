package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/absmach/flock/session"
	"github.com/absmach/flock/trainer"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	migrate "github.com/rubenv/sql-migrate"
)

var (
	ErrDBConnection    = errors.New("database connection error")
	ErrDBQuery         = errors.New("database query error")
	ErrDBScan          = errors.New("database scan error")
	ErrCreate          = errors.New("create error")
	ErrUpdate          = errors.New("update error")
	ErrDelete          = errors.New("delete error")
	ErrSessionNotFound = errors.New("session not found")
	ErrRoundNotFound   = errors.New("round not found")
	ErrModelNotFound   = errors.New("model version not found")
	ErrTrainerNotFound = errors.New("trainer not found")
	ErrNotFound        = errors.New("not found")
)

type SessionRepository interface {
	Create(ctx context.Context, s session.Session) (session.Session, error)
	Get(ctx context.Context, id string) (session.Session, error)
	Update(ctx context.Context, s session.Session) error
	List(ctx context.Context, offset, limit uint64) ([]session.Session, uint64, error)
	ListByState(ctx context.Context, state session.State, offset, limit uint64) ([]session.Session, uint64, error)
	Delete(ctx context.Context, id string) error
}

type RoundRepository interface {
	Create(ctx context.Context, r session.Round) (session.Round, error)
	Get(ctx context.Context, sessionID string, number uint64) (session.Round, error)
	Update(ctx context.Context, r session.Round) error
	ListBySession(ctx context.Context, sessionID string, offset, limit uint64) ([]session.Round, uint64, error)
	Delete(ctx context.Context, sessionID string, number uint64) error
}

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

type Repositories struct {
	Sessions SessionRepository
	Rounds   RoundRepository
	Models   ModelRepository
	Trainers TrainerRepository
}

func NewRepositories(db *Database) *Repositories {
	return &Repositories{
		Sessions: NewSessionRepository(db),
		Rounds:   NewRoundRepository(db),
		Models:   NewModelRepository(db),
		Trainers: NewTrainerRepository(db),
	}
}

type Database struct {
	*sqlx.DB
}

func NewDatabase(path string) (*Database, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDBConnection, err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	database := &Database{DB: db}

	if err := database.Migrate(); err != nil {
		return nil, err
	}

	return database, nil
}

func (db *Database) Migrate() error {
	migrations := &migrate.MemoryMigrationSource{
		Migrations: []*migrate.Migration{
			{
				Id: "1_create_tables",
				Up: []string{
					`CREATE TABLE IF NOT EXISTS sessions (
						id TEXT PRIMARY KEY,
						name TEXT NOT NULL,
						state INTEGER NOT NULL DEFAULT 0,
						config TEXT NOT NULL,
						parameters BLOB,
						model_version INTEGER NOT NULL DEFAULT 0,
						current_round INTEGER NOT NULL DEFAULT 0,
						failed_rounds INTEGER NOT NULL DEFAULT 0,
						error TEXT,
						start_at TIMESTAMP,
						start_time TIMESTAMP,
						finish_time TIMESTAMP,
						created_at TIMESTAMP NOT NULL,
						updated_at TIMESTAMP NOT NULL
					)`,
					`CREATE INDEX IF NOT EXISTS idx_sessions_state ON sessions(state)`,
					`CREATE INDEX IF NOT EXISTS idx_sessions_created_at ON sessions(created_at DESC)`,
					`CREATE TABLE IF NOT EXISTS rounds (
						session_id TEXT NOT NULL,
						number INTEGER NOT NULL,
						metrics TEXT,
						created_at TIMESTAMP NOT NULL,
						updated_at TIMESTAMP NOT NULL,
						PRIMARY KEY (session_id, number),
						FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
					)`,
					`CREATE TABLE IF NOT EXISTS models (
						id TEXT PRIMARY KEY,
						session_id TEXT NOT NULL,
						version INTEGER NOT NULL,
						round INTEGER NOT NULL DEFAULT 0,
						parameters BLOB,
						deployed INTEGER NOT NULL DEFAULT 0,
						created_at TIMESTAMP NOT NULL,
						UNIQUE (session_id, version),
						FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
					)`,
					`CREATE INDEX IF NOT EXISTS idx_models_session_id ON models(session_id, version DESC)`,
					`CREATE INDEX IF NOT EXISTS idx_models_deployed ON models(deployed)`,
					`CREATE TABLE IF NOT EXISTS trainers (
						id TEXT PRIMARY KEY,
						name TEXT NOT NULL,
						num_samples INTEGER NOT NULL DEFAULT 0,
						round_count INTEGER NOT NULL DEFAULT 0,
						alive INTEGER DEFAULT 0,
						alive_history TEXT
					)`,
					`CREATE INDEX IF NOT EXISTS idx_trainers_alive ON trainers(alive)`,
				},
				Down: []string{
					`DROP INDEX IF EXISTS idx_trainers_alive`,
					`DROP TABLE IF EXISTS trainers`,
					`DROP INDEX IF EXISTS idx_models_deployed`,
					`DROP INDEX IF EXISTS idx_models_session_id`,
					`DROP TABLE IF EXISTS models`,
					`DROP TABLE IF EXISTS rounds`,
					`DROP INDEX IF EXISTS idx_sessions_created_at`,
					`DROP INDEX IF EXISTS idx_sessions_state`,
					`DROP TABLE IF EXISTS sessions`,
				},
			},
		},
	}

	if _, err := migrate.Exec(db.DB.DB, "sqlite3", migrations, migrate.Up); err != nil {
		return fmt.Errorf("database migration error: %w", err)
	}

	return nil
}
