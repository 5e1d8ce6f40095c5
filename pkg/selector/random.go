package selector

import (
	"math/rand"

	"github.com/absmach/flock/trainer"
)

type random struct{}

func NewRandom() Selector {
	return &random{}
}

func (r *random) Select(trainers []trainer.Trainer, count uint64) ([]trainer.Trainer, error) {
	alive, err := aliveTrainers(trainers)
	if err != nil {
		return nil, err
	}

	rand.Shuffle(len(alive), func(i, j int) {
		alive[i], alive[j] = alive[j], alive[i]
	})

	if count > uint64(len(alive)) {
		count = uint64(len(alive))
	}

	return alive[:count], nil
}
