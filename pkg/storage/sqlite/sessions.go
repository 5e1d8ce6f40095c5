package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/absmach/flock/session"
)

type sessionRepo struct {
	db *Database
}

func NewSessionRepository(db *Database) SessionRepository {
	return &sessionRepo{db: db}
}

type dbSession struct {
	ID           string       `db:"id"`
	Name         string       `db:"name"`
	State        uint8        `db:"state"`
	Config       []byte       `db:"config"`
	Parameters   []byte       `db:"parameters"`
	ModelVersion uint64       `db:"model_version"`
	CurrentRound uint64       `db:"current_round"`
	FailedRounds uint64       `db:"failed_rounds"`
	Error        *string      `db:"error"`
	StartAt      sql.NullTime `db:"start_at"`
	StartTime    sql.NullTime `db:"start_time"`
	FinishTime   sql.NullTime `db:"finish_time"`
	CreatedAt    sql.NullTime `db:"created_at"`
	UpdatedAt    sql.NullTime `db:"updated_at"`
}

const sessionColumns = `id, name, state, config, parameters, model_version, current_round, failed_rounds, error, start_at, start_time, finish_time, created_at, updated_at`

func (r *sessionRepo) Create(ctx context.Context, s session.Session) (session.Session, error) {
	query := `INSERT INTO sessions (` + sessionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	config, err := jsonBytes(s.Config)
	if err != nil {
		return session.Session{}, fmt.Errorf("marshal error: %w", err)
	}

	parameters, err := jsonBytes(s.Parameters)
	if err != nil {
		return session.Session{}, fmt.Errorf("marshal error: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query,
		s.ID, s.Name, uint8(s.State), config, parameters,
		s.ModelVersion, s.CurrentRound, s.FailedRounds,
		nullString(s.Error), nullTime(s.StartAt),
		nullTime(s.StartTime), nullTime(s.FinishTime),
		s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return session.Session{}, fmt.Errorf("%w: %w", ErrCreate, err)
	}

	return s, nil
}

func (r *sessionRepo) Get(ctx context.Context, id string) (session.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ?`

	var dbs dbSession
	err := r.db.GetContext(ctx, &dbs, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return session.Session{}, ErrSessionNotFound
		}

		return session.Session{}, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	return r.toSession(dbs)
}

func (r *sessionRepo) Update(ctx context.Context, s session.Session) error {
	query := `UPDATE sessions SET
		name = ?,
		state = ?,
		config = ?,
		parameters = ?,
		model_version = ?,
		current_round = ?,
		failed_rounds = ?,
		error = ?,
		start_at = ?,
		start_time = ?,
		finish_time = ?,
		updated_at = ?
	WHERE id = ?`

	config, err := jsonBytes(s.Config)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	parameters, err := jsonBytes(s.Parameters)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query,
		s.Name, uint8(s.State), config, parameters,
		s.ModelVersion, s.CurrentRound, s.FailedRounds,
		nullString(s.Error), nullTime(s.StartAt),
		nullTime(s.StartTime), nullTime(s.FinishTime),
		s.UpdatedAt, s.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpdate, err)
	}

	return nil
}

func (r *sessionRepo) List(ctx context.Context, offset, limit uint64) ([]session.Session, uint64, error) {
	var total uint64
	err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM sessions")
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	query := `SELECT ` + sessionColumns + ` FROM sessions ORDER BY created_at DESC LIMIT ? OFFSET ?`

	return r.list(ctx, query, total, limit, offset)
}

func (r *sessionRepo) ListByState(ctx context.Context, state session.State, offset, limit uint64) ([]session.Session, uint64, error) {
	var total uint64
	err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM sessions WHERE state = ?", uint8(state))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE state = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`

	return r.list(ctx, query, total, uint8(state), limit, offset)
}

func (r *sessionRepo) list(ctx context.Context, query string, total uint64, args ...any) ([]session.Session, uint64, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}
	defer rows.Close()

	sessions := make([]session.Session, 0)
	for rows.Next() {
		var dbs dbSession
		if err := rows.Scan(
			&dbs.ID, &dbs.Name, &dbs.State, &dbs.Config, &dbs.Parameters,
			&dbs.ModelVersion, &dbs.CurrentRound, &dbs.FailedRounds,
			&dbs.Error, &dbs.StartAt, &dbs.StartTime, &dbs.FinishTime,
			&dbs.CreatedAt, &dbs.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("%w: %w", ErrDBScan, err)
		}

		s, err := r.toSession(dbs)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %w", ErrDBScan, err)
		}

		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	return sessions, total, nil
}

func (r *sessionRepo) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM sessions WHERE id = ?`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("%w: %w", ErrDelete, err)
	}

	return nil
}

func (r *sessionRepo) toSession(dbs dbSession) (session.Session, error) {
	s := session.Session{
		ID:           dbs.ID,
		Name:         dbs.Name,
		State:        session.State(dbs.State),
		ModelVersion: dbs.ModelVersion,
		CurrentRound: dbs.CurrentRound,
		FailedRounds: dbs.FailedRounds,
		CreatedAt:    dbs.CreatedAt.Time,
		UpdatedAt:    dbs.UpdatedAt.Time,
	}

	if dbs.Config != nil {
		if err := jsonUnmarshal(dbs.Config, &s.Config); err != nil {
			return session.Session{}, err
		}
	}
	if dbs.Parameters != nil {
		if err := jsonUnmarshal(dbs.Parameters, &s.Parameters); err != nil {
			return session.Session{}, err
		}
	}
	if dbs.Error != nil {
		s.Error = *dbs.Error
	}
	if dbs.StartAt.Valid {
		s.StartAt = dbs.StartAt.Time
	}
	if dbs.StartTime.Valid {
		s.StartTime = dbs.StartTime.Time
	}
	if dbs.FinishTime.Valid {
		s.FinishTime = dbs.FinishTime.Time
	}

	return s, nil
}

func jsonBytes(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}

	return json.Marshal(v)
}

func jsonUnmarshal(data []byte, v any) error {
	if data == nil {
		return nil
	}

	return json.Unmarshal(data, v)
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}

	return &t
}
