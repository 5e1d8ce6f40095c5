package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/absmach/flock/session"
	"github.com/absmach/flock/trainer"
	"github.com/dgraph-io/badger/v4"
)

var (
	ErrDBConnection    = errors.New("badger database connection error")
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
	db *badger.DB
}

func NewDatabase(path string) (*Database, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDBConnection, err)
	}

	return &Database{db: db}, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) get(key []byte) ([]byte, error) {
	var val []byte
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)

		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	return val, nil
}

func (d *Database) set(key, val []byte) error {
	err := d.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, val)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpdate, err)
	}

	return nil
}

func (d *Database) delete(key []byte) error {
	err := d.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDelete, err)
	}

	return nil
}

func (d *Database) listWithPrefix(prefix []byte, offset, limit uint64) ([][]byte, error) {
	var items [][]byte
	err := d.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchSize = int(limit)
		it := txn.NewIterator(opts)
		defer it.Close()

		skipped := uint64(0)
		count := uint64(0)

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if skipped < offset {
				skipped++

				continue
			}
			if count >= limit {
				break
			}

			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			items = append(items, val)
			count++
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	return items, nil
}

func (d *Database) countWithPrefix(prefix []byte) (uint64, error) {
	count := uint64(0)
	err := d.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	return count, nil
}
