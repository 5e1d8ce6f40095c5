package selector

import (
	"github.com/absmach/flock/trainer"
)

type roundRobin struct {
	next int
}

// NewRoundRobin returns a selector that rotates through the alive
// trainers across calls, so repeated rounds spread participation evenly.
func NewRoundRobin() Selector {
	return &roundRobin{
		next: 0,
	}
}

func (r *roundRobin) Select(trainers []trainer.Trainer, count uint64) ([]trainer.Trainer, error) {
	alive, err := aliveTrainers(trainers)
	if err != nil {
		return nil, err
	}

	if count > uint64(len(alive)) {
		count = uint64(len(alive))
	}

	selected := make([]trainer.Trainer, 0, count)
	for i := uint64(0); i < count; i++ {
		selected = append(selected, alive[(r.next+int(i))%len(alive)])
	}
	r.next = (r.next + int(count)) % len(alive)

	return selected, nil
}
