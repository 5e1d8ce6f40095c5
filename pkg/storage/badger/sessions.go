package badger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/absmach/flock/session"
	badgerdb "github.com/dgraph-io/badger/v4"
)

type sessionRepo struct {
	db *Database
}

func NewSessionRepository(db *Database) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) Create(ctx context.Context, s session.Session) (session.Session, error) {
	key := []byte("session:" + s.ID)
	val, err := json.Marshal(s)
	if err != nil {
		return session.Session{}, fmt.Errorf("marshal error: %w", err)
	}
	if err := r.db.set(key, val); err != nil {
		return session.Session{}, fmt.Errorf("%w: %w", ErrCreate, err)
	}

	return s, nil
}

func (r *sessionRepo) Get(ctx context.Context, id string) (session.Session, error) {
	key := []byte("session:" + id)
	val, err := r.db.get(key)
	if err != nil {
		return session.Session{}, ErrSessionNotFound
	}
	var s session.Session
	if err := json.Unmarshal(val, &s); err != nil {
		return session.Session{}, fmt.Errorf("unmarshal error: %w", err)
	}

	return s, nil
}

func (r *sessionRepo) Update(ctx context.Context, s session.Session) error {
	key := []byte("session:" + s.ID)
	val, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}
	if err := r.db.set(key, val); err != nil {
		return fmt.Errorf("%w: %w", ErrUpdate, err)
	}

	return nil
}

func (r *sessionRepo) List(ctx context.Context, offset, limit uint64) ([]session.Session, uint64, error) {
	prefix := []byte("session:")
	total, err := r.db.countWithPrefix(prefix)
	if err != nil {
		return nil, 0, err
	}
	values, err := r.db.listWithPrefix(prefix, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	sessions := make([]session.Session, len(values))
	for i, val := range values {
		var s session.Session
		if err := json.Unmarshal(val, &s); err != nil {
			return nil, 0, fmt.Errorf("unmarshal error: %w", err)
		}
		sessions[i] = s
	}

	return sessions, total, nil
}

func (r *sessionRepo) ListByState(ctx context.Context, state session.State, offset, limit uint64) ([]session.Session, uint64, error) {
	matched, err := r.listBy(ctx, func(s session.Session) bool {
		return s.State == state
	})
	if err != nil {
		return nil, 0, err
	}

	total := uint64(len(matched))
	if offset >= total {
		return []session.Session{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}

	return matched[offset:end], total, nil
}

func (r *sessionRepo) Delete(ctx context.Context, id string) error {
	key := []byte("session:" + id)

	return r.db.delete(key)
}

func (r *sessionRepo) listBy(ctx context.Context, match func(session.Session) bool) ([]session.Session, error) {
	prefix := []byte("session:")
	sessions := make([]session.Session, 0)

	err := r.db.db.View(func(txn *badgerdb.Txn) error {
		it := txn.NewIterator(badgerdb.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}

			var s session.Session
			if err := json.Unmarshal(val, &s); err != nil {
				return fmt.Errorf("unmarshal error: %w", err)
			}

			if match(s) {
				sessions = append(sessions, s)
			}
		}

		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		return nil, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	return sessions, nil
}
