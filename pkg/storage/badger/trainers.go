package badger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/absmach/flock/trainer"
)

type trainerRepo struct {
	db *Database
}

func NewTrainerRepository(db *Database) TrainerRepository {
	return &trainerRepo{db: db}
}

func (r *trainerRepo) Create(ctx context.Context, t trainer.Trainer) error {
	key := []byte("trainer:" + t.ID)
	val, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}
	if err := r.db.set(key, val); err != nil {
		return fmt.Errorf("%w: %w", ErrCreate, err)
	}

	return nil
}

func (r *trainerRepo) Get(ctx context.Context, id string) (trainer.Trainer, error) {
	key := []byte("trainer:" + id)
	val, err := r.db.get(key)
	if err != nil {
		return trainer.Trainer{}, ErrTrainerNotFound
	}
	var t trainer.Trainer
	if err := json.Unmarshal(val, &t); err != nil {
		return trainer.Trainer{}, fmt.Errorf("unmarshal error: %w", err)
	}

	return t, nil
}

func (r *trainerRepo) Update(ctx context.Context, t trainer.Trainer) error {
	key := []byte("trainer:" + t.ID)
	val, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}
	if err := r.db.set(key, val); err != nil {
		return fmt.Errorf("%w: %w", ErrUpdate, err)
	}

	return nil
}

func (r *trainerRepo) List(ctx context.Context, offset, limit uint64) ([]trainer.Trainer, uint64, error) {
	prefix := []byte("trainer:")
	total, err := r.db.countWithPrefix(prefix)
	if err != nil {
		return nil, 0, err
	}
	values, err := r.db.listWithPrefix(prefix, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	trainers := make([]trainer.Trainer, len(values))
	for i, val := range values {
		var t trainer.Trainer
		if err := json.Unmarshal(val, &t); err != nil {
			return nil, 0, fmt.Errorf("unmarshal error: %w", err)
		}
		trainers[i] = t
	}

	return trainers, total, nil
}

func (r *trainerRepo) Delete(ctx context.Context, id string) error {
	key := []byte("trainer:" + id)

	return r.db.delete(key)
}
