package badger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/absmach/flock/session"
	badgerdb "github.com/dgraph-io/badger/v4"
)

type modelRepo struct {
	db *Database
}

func NewModelRepository(db *Database) ModelRepository {
	return &modelRepo{db: db}
}

func (r *modelRepo) Create(ctx context.Context, m session.ModelVersion) (session.ModelVersion, error) {
	key := []byte("model:" + m.ID)
	val, err := json.Marshal(m)
	if err != nil {
		return session.ModelVersion{}, fmt.Errorf("marshal error: %w", err)
	}
	if err := r.db.set(key, val); err != nil {
		return session.ModelVersion{}, fmt.Errorf("%w: %w", ErrCreate, err)
	}

	return m, nil
}

func (r *modelRepo) Get(ctx context.Context, id string) (session.ModelVersion, error) {
	key := []byte("model:" + id)
	val, err := r.db.get(key)
	if err != nil {
		return session.ModelVersion{}, ErrModelNotFound
	}
	var m session.ModelVersion
	if err := json.Unmarshal(val, &m); err != nil {
		return session.ModelVersion{}, fmt.Errorf("unmarshal error: %w", err)
	}

	return m, nil
}

func (r *modelRepo) GetDeployed(ctx context.Context, sessionID string) (session.ModelVersion, error) {
	matched, err := r.listBy(ctx, func(m session.ModelVersion) bool {
		return m.SessionID == sessionID && m.Deployed
	})
	if err != nil {
		return session.ModelVersion{}, err
	}
	if len(matched) == 0 {
		return session.ModelVersion{}, ErrModelNotFound
	}

	return matched[0], nil
}

func (r *modelRepo) ListBySession(ctx context.Context, sessionID string, offset, limit uint64) ([]session.ModelVersion, uint64, error) {
	matched, err := r.listBy(ctx, func(m session.ModelVersion) bool {
		return m.SessionID == sessionID
	})
	if err != nil {
		return nil, 0, err
	}

	total := uint64(len(matched))
	if offset >= total {
		return []session.ModelVersion{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}

	return matched[offset:end], total, nil
}

// Deploy rewrites every model of the session in one transaction so that only
// the given version carries the deployed flag.
func (r *modelRepo) Deploy(ctx context.Context, sessionID, id string) error {
	models, err := r.listBy(ctx, func(m session.ModelVersion) bool {
		return m.SessionID == sessionID
	})
	if err != nil {
		return err
	}

	found := false
	for i := range models {
		models[i].Deployed = models[i].ID == id
		if models[i].Deployed {
			found = true
		}
	}
	if !found {
		return ErrModelNotFound
	}

	err = r.db.db.Update(func(txn *badgerdb.Txn) error {
		for _, m := range models {
			val, err := json.Marshal(m)
			if err != nil {
				return fmt.Errorf("marshal error: %w", err)
			}
			if err := txn.Set([]byte("model:"+m.ID), val); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpdate, err)
	}

	return nil
}

func (r *modelRepo) Delete(ctx context.Context, id string) error {
	key := []byte("model:" + id)

	return r.db.delete(key)
}

func (r *modelRepo) listBy(ctx context.Context, match func(session.ModelVersion) bool) ([]session.ModelVersion, error) {
	prefix := []byte("model:")
	models := make([]session.ModelVersion, 0)

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

			var m session.ModelVersion
			if err := json.Unmarshal(val, &m); err != nil {
				return fmt.Errorf("unmarshal error: %w", err)
			}

			if match(m) {
				models = append(models, m)
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

	return models, nil
}
