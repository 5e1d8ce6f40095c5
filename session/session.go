package session

import (
	"time"

	"github.com/absmach/flock/pkg/fedavg"
)

type State uint8

const (
	Pending State = iota
	Running
	Completed
	Failed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Running:
		return "Running"
	case Completed:
		return "Completed"
	case Failed:
		return "Failed"
	case Cancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Session is one federated training run: a strategy configuration, the
// evolving global parameters and the round bookkeeping around them.
// FailedRounds counts consecutive failures only and resets on success.
type Session struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	State        State             `json:"state"`
	Config       fedavg.Config     `json:"config"`
	Parameters   fedavg.Parameters `json:"parameters,omitempty"`
	ModelVersion uint64            `json:"model_version"`
	CurrentRound uint64            `json:"current_round"`
	FailedRounds uint64            `json:"failed_rounds"`
	Error        string            `json:"error,omitempty"`
	StartAt      time.Time         `json:"start_at"`
	StartTime    time.Time         `json:"start_time"`
	FinishTime   time.Time         `json:"finish_time"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Active reports whether the session still owns its round loop.
func (s Session) Active() bool {
	return s.State == Pending || s.State == Running
}

type SessionPage struct {
	Offset   uint64    `json:"offset"`
	Limit    uint64    `json:"limit"`
	Total    uint64    `json:"total"`
	Sessions []Session `json:"sessions"`
}
