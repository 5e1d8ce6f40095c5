package storage

import "errors"

var (
	ErrDBConnection    = errors.New("database connection error")
	ErrDBQuery         = errors.New("database query error")
	ErrDBScan          = errors.New("database scan error")
	ErrMigration       = errors.New("database migration error")
	ErrCreate          = errors.New("create error")
	ErrUpdate          = errors.New("update error")
	ErrDelete          = errors.New("delete error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrSessionNotFound = errors.New("session not found")
	ErrRoundNotFound   = errors.New("round not found")
	ErrModelNotFound   = errors.New("model version not found")
	ErrTrainerNotFound = errors.New("trainer not found")
	ErrNotFound        = errors.New("not found")
)
