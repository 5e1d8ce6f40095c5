package badger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/absmach/flock/session"
)

type roundRepo struct {
	db *Database
}

func NewRoundRepository(db *Database) RoundRepository {
	return &roundRepo{db: db}
}

// Round keys zero-pad the number so prefix iteration yields rounds in
// ascending order.
func roundKey(sessionID string, number uint64) []byte {
	return []byte(fmt.Sprintf("round:%s:%010d", sessionID, number))
}

func (r *roundRepo) Create(ctx context.Context, rnd session.Round) (session.Round, error) {
	val, err := json.Marshal(rnd)
	if err != nil {
		return session.Round{}, fmt.Errorf("marshal error: %w", err)
	}
	if err := r.db.set(roundKey(rnd.SessionID, rnd.Number), val); err != nil {
		return session.Round{}, fmt.Errorf("%w: %w", ErrCreate, err)
	}

	return rnd, nil
}

func (r *roundRepo) Get(ctx context.Context, sessionID string, number uint64) (session.Round, error) {
	val, err := r.db.get(roundKey(sessionID, number))
	if err != nil {
		return session.Round{}, ErrRoundNotFound
	}
	var rnd session.Round
	if err := json.Unmarshal(val, &rnd); err != nil {
		return session.Round{}, fmt.Errorf("unmarshal error: %w", err)
	}

	return rnd, nil
}

func (r *roundRepo) Update(ctx context.Context, rnd session.Round) error {
	val, err := json.Marshal(rnd)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}
	if err := r.db.set(roundKey(rnd.SessionID, rnd.Number), val); err != nil {
		return fmt.Errorf("%w: %w", ErrUpdate, err)
	}

	return nil
}

func (r *roundRepo) ListBySession(ctx context.Context, sessionID string, offset, limit uint64) ([]session.Round, uint64, error) {
	prefix := []byte("round:" + sessionID + ":")
	total, err := r.db.countWithPrefix(prefix)
	if err != nil {
		return nil, 0, err
	}
	values, err := r.db.listWithPrefix(prefix, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	rounds := make([]session.Round, len(values))
	for i, val := range values {
		var rnd session.Round
		if err := json.Unmarshal(val, &rnd); err != nil {
			return nil, 0, fmt.Errorf("unmarshal error: %w", err)
		}
		rounds[i] = rnd
	}

	return rounds, total, nil
}

func (r *roundRepo) Delete(ctx context.Context, sessionID string, number uint64) error {
	return r.db.delete(roundKey(sessionID, number))
}
