package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/absmach/flock/trainer"
)

type trainerRepo struct {
	db *Database
}

func NewTrainerRepository(db *Database) TrainerRepository {
	return &trainerRepo{db: db}
}

type dbTrainer struct {
	ID           string `db:"id"`
	Name         string `db:"name"`
	NumSamples   int64  `db:"num_samples"`
	RoundCount   uint64 `db:"round_count"`
	Alive        bool   `db:"alive"`
	AliveHistory []byte `db:"alive_history"`
}

func (r *trainerRepo) Create(ctx context.Context, t trainer.Trainer) error {
	query := `INSERT INTO trainers (id, name, num_samples, round_count, alive, alive_history) VALUES (?, ?, ?, ?, ?, ?)`

	aliveHistory, err := jsonBytes(t.AliveHistory)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query, t.ID, t.Name, t.NumSamples, t.RoundCount, t.Alive, aliveHistory)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCreate, err)
	}

	return nil
}

func (r *trainerRepo) Get(ctx context.Context, id string) (trainer.Trainer, error) {
	query := `SELECT id, name, num_samples, round_count, alive, alive_history FROM trainers WHERE id = ?`

	var dbt dbTrainer
	err := r.db.GetContext(ctx, &dbt, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return trainer.Trainer{}, ErrTrainerNotFound
		}

		return trainer.Trainer{}, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	return r.toTrainer(dbt)
}

func (r *trainerRepo) Update(ctx context.Context, t trainer.Trainer) error {
	query := `UPDATE trainers SET name = ?, num_samples = ?, round_count = ?, alive = ?, alive_history = ? WHERE id = ?`

	aliveHistory, err := jsonBytes(t.AliveHistory)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	if _, err = r.db.ExecContext(ctx, query, t.Name, t.NumSamples, t.RoundCount, t.Alive, aliveHistory, t.ID); err != nil {
		return fmt.Errorf("%w: %w", ErrUpdate, err)
	}

	return nil
}

func (r *trainerRepo) List(ctx context.Context, offset, limit uint64) ([]trainer.Trainer, uint64, error) {
	var total uint64
	err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM trainers")
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	query := `SELECT id, name, num_samples, round_count, alive, alive_history FROM trainers LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}
	defer rows.Close()

	trainers := make([]trainer.Trainer, 0)
	for rows.Next() {
		var dbt dbTrainer
		if err := rows.Scan(&dbt.ID, &dbt.Name, &dbt.NumSamples, &dbt.RoundCount, &dbt.Alive, &dbt.AliveHistory); err != nil {
			return nil, 0, fmt.Errorf("%w: %w", ErrDBScan, err)
		}

		t, err := r.toTrainer(dbt)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %w", ErrDBScan, err)
		}

		trainers = append(trainers, t)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	return trainers, total, nil
}

func (r *trainerRepo) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM trainers WHERE id = ?`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("%w: %w", ErrDelete, err)
	}

	return nil
}

func (r *trainerRepo) toTrainer(dbt dbTrainer) (trainer.Trainer, error) {
	t := trainer.Trainer{
		ID:         dbt.ID,
		Name:       dbt.Name,
		NumSamples: dbt.NumSamples,
		RoundCount: dbt.RoundCount,
		Alive:      dbt.Alive,
	}

	if dbt.AliveHistory != nil {
		if err := jsonUnmarshal(dbt.AliveHistory, &t.AliveHistory); err != nil {
			return trainer.Trainer{}, err
		}
	}

	return t, nil
}
