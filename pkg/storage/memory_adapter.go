package storage

import (
	"context"
	"errors"
	"fmt"

	pkgerrors "github.com/absmach/flock/pkg/errors"
	"github.com/absmach/flock/session"
	"github.com/absmach/flock/trainer"
)

const scanPageSize = 1024

func roundKey(sessionID string, number uint64) string {
	return fmt.Sprintf("%s:%010d", sessionID, number)
}

type memorySessionRepo struct {
	storage Storage
}

func newMemorySessionRepository(s Storage) SessionRepository {
	return &memorySessionRepo{storage: s}
}

func (r *memorySessionRepo) Create(ctx context.Context, s session.Session) (session.Session, error) {
	if err := r.storage.Create(ctx, s.ID, s); err != nil {
		return session.Session{}, err
	}

	return s, nil
}

func (r *memorySessionRepo) Get(ctx context.Context, id string) (session.Session, error) {
	data, err := r.storage.Get(ctx, id)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			return session.Session{}, ErrSessionNotFound
		}

		return session.Session{}, err
	}
	s, ok := data.(session.Session)
	if !ok {
		return session.Session{}, pkgerrors.ErrInvalidData
	}

	return s, nil
}

func (r *memorySessionRepo) Update(ctx context.Context, s session.Session) error {
	return r.storage.Update(ctx, s.ID, s)
}

func (r *memorySessionRepo) List(ctx context.Context, offset, limit uint64) ([]session.Session, uint64, error) {
	data, total, err := r.storage.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	sessions := make([]session.Session, len(data))
	for i, d := range data {
		s, ok := d.(session.Session)
		if !ok {
			return nil, 0, pkgerrors.ErrInvalidData
		}
		sessions[i] = s
	}

	return sessions, total, nil
}

func (r *memorySessionRepo) ListByState(ctx context.Context, state session.State, offset, limit uint64) ([]session.Session, uint64, error) {
	var (
		scanOffset uint64
		total      uint64
		filtered   []session.Session
	)

	for {
		data, allTotal, err := r.storage.List(ctx, scanOffset, scanPageSize)
		if err != nil {
			return nil, 0, err
		}
		if len(data) == 0 {
			break
		}

		for _, d := range data {
			s, ok := d.(session.Session)
			if !ok {
				return nil, 0, pkgerrors.ErrInvalidData
			}
			if s.State != state {
				continue
			}

			if total >= offset && uint64(len(filtered)) < limit {
				filtered = append(filtered, s)
			}
			total++
		}

		scanOffset += uint64(len(data))
		if scanOffset >= allTotal {
			break
		}
	}

	if offset >= total {
		return []session.Session{}, total, nil
	}

	return filtered, total, nil
}

func (r *memorySessionRepo) Delete(ctx context.Context, id string) error {
	return r.storage.Delete(ctx, id)
}

type memoryRoundRepo struct {
	storage Storage
}

func newMemoryRoundRepository(s Storage) RoundRepository {
	return &memoryRoundRepo{storage: s}
}

func (r *memoryRoundRepo) Create(ctx context.Context, rnd session.Round) (session.Round, error) {
	if err := r.storage.Create(ctx, roundKey(rnd.SessionID, rnd.Number), rnd); err != nil {
		return session.Round{}, err
	}

	return rnd, nil
}

func (r *memoryRoundRepo) Get(ctx context.Context, sessionID string, number uint64) (session.Round, error) {
	data, err := r.storage.Get(ctx, roundKey(sessionID, number))
	if err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			return session.Round{}, ErrRoundNotFound
		}

		return session.Round{}, err
	}
	rnd, ok := data.(session.Round)
	if !ok {
		return session.Round{}, pkgerrors.ErrInvalidData
	}

	return rnd, nil
}

func (r *memoryRoundRepo) Update(ctx context.Context, rnd session.Round) error {
	return r.storage.Update(ctx, roundKey(rnd.SessionID, rnd.Number), rnd)
}

func (r *memoryRoundRepo) ListBySession(ctx context.Context, sessionID string, offset, limit uint64) ([]session.Round, uint64, error) {
	var (
		scanOffset uint64
		total      uint64
		filtered   []session.Round
	)

	for {
		data, allTotal, err := r.storage.List(ctx, scanOffset, scanPageSize)
		if err != nil {
			return nil, 0, err
		}
		if len(data) == 0 {
			break
		}

		for _, d := range data {
			rnd, ok := d.(session.Round)
			if !ok {
				return nil, 0, pkgerrors.ErrInvalidData
			}
			if rnd.SessionID != sessionID {
				continue
			}

			if total >= offset && uint64(len(filtered)) < limit {
				filtered = append(filtered, rnd)
			}
			total++
		}

		scanOffset += uint64(len(data))
		if scanOffset >= allTotal {
			break
		}
	}

	if offset >= total {
		return []session.Round{}, total, nil
	}

	return filtered, total, nil
}

func (r *memoryRoundRepo) Delete(ctx context.Context, sessionID string, number uint64) error {
	return r.storage.Delete(ctx, roundKey(sessionID, number))
}

type memoryModelRepo struct {
	storage Storage
}

func newMemoryModelRepository(s Storage) ModelRepository {
	return &memoryModelRepo{storage: s}
}

func (r *memoryModelRepo) Create(ctx context.Context, m session.ModelVersion) (session.ModelVersion, error) {
	if err := r.storage.Create(ctx, m.ID, m); err != nil {
		return session.ModelVersion{}, err
	}

	return m, nil
}

func (r *memoryModelRepo) Get(ctx context.Context, id string) (session.ModelVersion, error) {
	data, err := r.storage.Get(ctx, id)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			return session.ModelVersion{}, ErrModelNotFound
		}

		return session.ModelVersion{}, err
	}
	m, ok := data.(session.ModelVersion)
	if !ok {
		return session.ModelVersion{}, pkgerrors.ErrInvalidData
	}

	return m, nil
}

func (r *memoryModelRepo) GetDeployed(ctx context.Context, sessionID string) (session.ModelVersion, error) {
	models, _, err := r.ListBySession(ctx, sessionID, 0, scanPageSize)
	if err != nil {
		return session.ModelVersion{}, err
	}
	for _, m := range models {
		if m.Deployed {
			return m, nil
		}
	}

	return session.ModelVersion{}, ErrModelNotFound
}

func (r *memoryModelRepo) ListBySession(ctx context.Context, sessionID string, offset, limit uint64) ([]session.ModelVersion, uint64, error) {
	var (
		scanOffset uint64
		total      uint64
		filtered   []session.ModelVersion
	)

	for {
		data, allTotal, err := r.storage.List(ctx, scanOffset, scanPageSize)
		if err != nil {
			return nil, 0, err
		}
		if len(data) == 0 {
			break
		}

		for _, d := range data {
			m, ok := d.(session.ModelVersion)
			if !ok {
				return nil, 0, pkgerrors.ErrInvalidData
			}
			if m.SessionID != sessionID {
				continue
			}

			if total >= offset && uint64(len(filtered)) < limit {
				filtered = append(filtered, m)
			}
			total++
		}

		scanOffset += uint64(len(data))
		if scanOffset >= allTotal {
			break
		}
	}

	if offset >= total {
		return []session.ModelVersion{}, total, nil
	}

	return filtered, total, nil
}

func (r *memoryModelRepo) Deploy(ctx context.Context, sessionID, id string) error {
	target, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if target.SessionID != sessionID {
		return ErrModelNotFound
	}

	models, _, err := r.ListBySession(ctx, sessionID, 0, scanPageSize)
	if err != nil {
		return err
	}
	for _, m := range models {
		deployed := m.ID == id
		if m.Deployed == deployed {
			continue
		}
		m.Deployed = deployed
		if err := r.storage.Update(ctx, m.ID, m); err != nil {
			return err
		}
	}

	return nil
}

func (r *memoryModelRepo) Delete(ctx context.Context, id string) error {
	return r.storage.Delete(ctx, id)
}

type memoryTrainerRepo struct {
	storage Storage
}

func newMemoryTrainerRepository(s Storage) TrainerRepository {
	return &memoryTrainerRepo{storage: s}
}

func (r *memoryTrainerRepo) Create(ctx context.Context, t trainer.Trainer) error {
	return r.storage.Create(ctx, t.ID, t)
}

func (r *memoryTrainerRepo) Get(ctx context.Context, id string) (trainer.Trainer, error) {
	data, err := r.storage.Get(ctx, id)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			return trainer.Trainer{}, ErrTrainerNotFound
		}

		return trainer.Trainer{}, err
	}
	t, ok := data.(trainer.Trainer)
	if !ok {
		return trainer.Trainer{}, pkgerrors.ErrInvalidData
	}

	return t, nil
}

func (r *memoryTrainerRepo) Update(ctx context.Context, t trainer.Trainer) error {
	return r.storage.Update(ctx, t.ID, t)
}

func (r *memoryTrainerRepo) List(ctx context.Context, offset, limit uint64) ([]trainer.Trainer, uint64, error) {
	data, total, err := r.storage.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	trainers := make([]trainer.Trainer, len(data))
	for i, d := range data {
		t, ok := d.(trainer.Trainer)
		if !ok {
			return nil, 0, pkgerrors.ErrInvalidData
		}
		trainers[i] = t
	}

	return trainers, total, nil
}

func (r *memoryTrainerRepo) Delete(ctx context.Context, id string) error {
	return r.storage.Delete(ctx, id)
}
