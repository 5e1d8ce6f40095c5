package trainer

import "time"

const aliveTimeout = 10 * time.Second

// Trainer is the coordinator's registry record for one connected trainer
// process. NumSamples is the size of the trainer's local dataset as
// reported on join; it weights this trainer's updates during aggregation.
type Trainer struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	NumSamples   int64       `json:"num_samples"`
	RoundCount   uint64      `json:"round_count"`
	Alive        bool        `json:"alive"`
	AliveHistory []time.Time `json:"alive_history"`
}

// SetAlive derives the liveness flag from the most recent heartbeat.
func (t *Trainer) SetAlive() {
	if len(t.AliveHistory) > 0 {
		lastAlive := t.AliveHistory[len(t.AliveHistory)-1]
		if time.Since(lastAlive) <= aliveTimeout {
			t.Alive = true

			return
		}
	}
	t.Alive = false
}

type TrainerPage struct {
	Offset   uint64    `json:"offset"`
	Limit    uint64    `json:"limit"`
	Total    uint64    `json:"total"`
	Trainers []Trainer `json:"trainers"`
}
