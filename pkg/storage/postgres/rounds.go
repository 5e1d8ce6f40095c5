package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/absmach/flock/session"
)

type roundRepo struct {
	db *Database
}

func NewRoundRepository(db *Database) RoundRepository {
	return &roundRepo{db: db}
}

type dbRound struct {
	SessionID string       `db:"session_id"`
	Number    uint64       `db:"number"`
	Metrics   []byte       `db:"metrics"`
	CreatedAt sql.NullTime `db:"created_at"`
	UpdatedAt sql.NullTime `db:"updated_at"`
}

func (r *roundRepo) Create(ctx context.Context, rnd session.Round) (session.Round, error) {
	query := `INSERT INTO rounds (session_id, number, metrics, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`

	metrics, err := jsonBytes(rnd.Metrics)
	if err != nil {
		return session.Round{}, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	_, err = r.db.ExecContext(ctx, query, rnd.SessionID, rnd.Number, metrics, rnd.CreatedAt, rnd.UpdatedAt)
	if err != nil {
		return session.Round{}, fmt.Errorf("%w: %w", ErrCreate, err)
	}

	return rnd, nil
}

func (r *roundRepo) Get(ctx context.Context, sessionID string, number uint64) (session.Round, error) {
	query := `SELECT session_id, number, metrics, created_at, updated_at FROM rounds WHERE session_id = $1 AND number = $2`

	var dbr dbRound
	err := r.db.GetContext(ctx, &dbr, query, sessionID, number)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return session.Round{}, ErrRoundNotFound
		}

		return session.Round{}, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	return r.toRound(dbr)
}

func (r *roundRepo) Update(ctx context.Context, rnd session.Round) error {
	query := `UPDATE rounds SET metrics = $1, updated_at = $2 WHERE session_id = $3 AND number = $4`

	metrics, err := jsonBytes(rnd.Metrics)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	if _, err := r.db.ExecContext(ctx, query, metrics, rnd.UpdatedAt, rnd.SessionID, rnd.Number); err != nil {
		return fmt.Errorf("%w: %w", ErrUpdate, err)
	}

	return nil
}

func (r *roundRepo) ListBySession(ctx context.Context, sessionID string, offset, limit uint64) ([]session.Round, uint64, error) {
	var total uint64
	err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM rounds WHERE session_id = $1", sessionID)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	query := `SELECT session_id, number, metrics, created_at, updated_at FROM rounds WHERE session_id = $1 ORDER BY number ASC LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, sessionID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}
	defer rows.Close()

	rounds := make([]session.Round, 0)
	for rows.Next() {
		var dbr dbRound
		if err := rows.Scan(&dbr.SessionID, &dbr.Number, &dbr.Metrics, &dbr.CreatedAt, &dbr.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("%w: %w", ErrDBScan, err)
		}

		rnd, err := r.toRound(dbr)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %w", ErrDBScan, err)
		}

		rounds = append(rounds, rnd)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	return rounds, total, nil
}

func (r *roundRepo) Delete(ctx context.Context, sessionID string, number uint64) error {
	query := `DELETE FROM rounds WHERE session_id = $1 AND number = $2`

	if _, err := r.db.ExecContext(ctx, query, sessionID, number); err != nil {
		return fmt.Errorf("%w: %w", ErrDelete, err)
	}

	return nil
}

func (r *roundRepo) toRound(dbr dbRound) (session.Round, error) {
	rnd := session.Round{
		SessionID: dbr.SessionID,
		Number:    dbr.Number,
		CreatedAt: dbr.CreatedAt.Time,
		UpdatedAt: dbr.UpdatedAt.Time,
	}

	if dbr.Metrics != nil {
		if err := jsonUnmarshal(dbr.Metrics, &rnd.Metrics); err != nil {
			return session.Round{}, err
		}
	}

	return rnd, nil
}
