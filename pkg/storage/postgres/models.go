package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/absmach/flock/session"
)

type modelRepo struct {
	db *Database
}

func NewModelRepository(db *Database) ModelRepository {
	return &modelRepo{db: db}
}

type dbModel struct {
	ID         string       `db:"id"`
	SessionID  string       `db:"session_id"`
	Version    uint64       `db:"version"`
	Round      uint64       `db:"round"`
	Parameters []byte       `db:"parameters"`
	Deployed   bool         `db:"deployed"`
	CreatedAt  sql.NullTime `db:"created_at"`
}

const modelColumns = `id, session_id, version, round, parameters, deployed, created_at`

func (r *modelRepo) Create(ctx context.Context, m session.ModelVersion) (session.ModelVersion, error) {
	query := `INSERT INTO models (` + modelColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	parameters, err := jsonBytes(m.Parameters)
	if err != nil {
		return session.ModelVersion{}, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	_, err = r.db.ExecContext(ctx, query, m.ID, m.SessionID, m.Version, m.Round, parameters, m.Deployed, m.CreatedAt)
	if err != nil {
		return session.ModelVersion{}, fmt.Errorf("%w: %w", ErrCreate, err)
	}

	return m, nil
}

func (r *modelRepo) Get(ctx context.Context, id string) (session.ModelVersion, error) {
	query := `SELECT ` + modelColumns + ` FROM models WHERE id = $1`

	var dbm dbModel
	err := r.db.GetContext(ctx, &dbm, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return session.ModelVersion{}, ErrModelNotFound
		}

		return session.ModelVersion{}, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	return r.toModel(dbm)
}

func (r *modelRepo) GetDeployed(ctx context.Context, sessionID string) (session.ModelVersion, error) {
	query := `SELECT ` + modelColumns + ` FROM models WHERE session_id = $1 AND deployed = TRUE`

	var dbm dbModel
	err := r.db.GetContext(ctx, &dbm, query, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return session.ModelVersion{}, ErrModelNotFound
		}

		return session.ModelVersion{}, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	return r.toModel(dbm)
}

func (r *modelRepo) ListBySession(ctx context.Context, sessionID string, offset, limit uint64) ([]session.ModelVersion, uint64, error) {
	var total uint64
	err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM models WHERE session_id = $1", sessionID)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	query := `SELECT ` + modelColumns + ` FROM models WHERE session_id = $1 ORDER BY version DESC LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, sessionID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}
	defer rows.Close()

	models := make([]session.ModelVersion, 0)
	for rows.Next() {
		var dbm dbModel
		if err := rows.Scan(&dbm.ID, &dbm.SessionID, &dbm.Version, &dbm.Round, &dbm.Parameters, &dbm.Deployed, &dbm.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("%w: %w", ErrDBScan, err)
		}

		m, err := r.toModel(dbm)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %w", ErrDBScan, err)
		}

		models = append(models, m)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	return models, total, nil
}

// Deploy flips the deployed flag to the given version inside a single
// transaction so a session never exposes two deployed models.
func (r *modelRepo) Deploy(ctx context.Context, sessionID, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpdate, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE models SET deployed = FALSE WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("%w: %w", ErrUpdate, err)
	}

	res, err := tx.ExecContext(ctx, `UPDATE models SET deployed = TRUE WHERE id = $1 AND session_id = $2`, id, sessionID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpdate, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpdate, err)
	}
	if affected == 0 {
		return ErrModelNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", ErrUpdate, err)
	}

	return nil
}

func (r *modelRepo) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM models WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("%w: %w", ErrDelete, err)
	}

	return nil
}

func (r *modelRepo) toModel(dbm dbModel) (session.ModelVersion, error) {
	m := session.ModelVersion{
		ID:        dbm.ID,
		SessionID: dbm.SessionID,
		Version:   dbm.Version,
		Round:     dbm.Round,
		Deployed:  dbm.Deployed,
		CreatedAt: dbm.CreatedAt.Time,
	}

	if dbm.Parameters != nil {
		if err := jsonUnmarshal(dbm.Parameters, &m.Parameters); err != nil {
			return session.ModelVersion{}, err
		}
	}

	return m, nil
}
