package selector

import (
	"errors"

	"github.com/absmach/flock/trainer"
)

var (
	ErrNoTrainer      = errors.New("no trainer was provided")
	ErrNoAliveTrainer = errors.New("no trainer is alive")
)

// Selector picks the trainers that participate in a round phase. The
// count is capped at the number of alive trainers.
type Selector interface {
	Select(trainers []trainer.Trainer, count uint64) ([]trainer.Trainer, error)
}

func aliveTrainers(trainers []trainer.Trainer) ([]trainer.Trainer, error) {
	if len(trainers) == 0 {
		return nil, ErrNoTrainer
	}

	alive := make([]trainer.Trainer, 0, len(trainers))
	for i := range trainers {
		if trainers[i].Alive {
			alive = append(alive, trainers[i])
		}
	}
	if len(alive) == 0 {
		return nil, ErrNoAliveTrainer
	}

	return alive, nil
}
