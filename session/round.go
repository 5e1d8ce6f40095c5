package session

import "time"

// Metric document keys used at the persistence boundary. Inside the
// orchestrator rounds are typed; the nested map exists only in storage.
const (
	MetricAggregated = "aggregated"
	MetricClients    = "clients"
	MetricTimestamp  = "timestamp"
	MetricEvaluation = "evaluation"
	MetricLoss       = "loss"
	MetricMetrics    = "metrics"
)

// Round is one ledger record, keyed by session and round number. Metrics
// holds the merged aggregation document: fit writes aggregated/clients/
// timestamp, evaluation attaches under its own key.
type Round struct {
	SessionID string         `json:"session_id"`
	Number    uint64         `json:"number"`
	Metrics   map[string]any `json:"metrics,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type RoundPage struct {
	Offset uint64  `json:"offset"`
	Limit  uint64  `json:"limit"`
	Total  uint64  `json:"total"`
	Rounds []Round `json:"rounds"`
}
