package session

import (
	"time"

	"github.com/absmach/flock/pkg/fedavg"
)

// ModelVersion is a snapshot of the global parameters after a successful
// round. At most one version per session carries the Deployed flag.
type ModelVersion struct {
	ID         string            `json:"id"`
	SessionID  string            `json:"session_id"`
	Version    uint64            `json:"version"`
	Round      uint64            `json:"round"`
	Parameters fedavg.Parameters `json:"parameters,omitempty"`
	Deployed   bool              `json:"deployed"`
	CreatedAt  time.Time         `json:"created_at"`
}

type ModelVersionPage struct {
	Offset uint64         `json:"offset"`
	Limit  uint64         `json:"limit"`
	Total  uint64         `json:"total"`
	Models []ModelVersion `json:"models"`
}
