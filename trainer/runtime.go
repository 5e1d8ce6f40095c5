package trainer

import (
	"context"

	"github.com/absmach/flock/pkg/fedavg"
)

// Operations understood by training modules.
const (
	OpFit      = "fit"
	OpEvaluate = "evaluate"
)

// TrainRequest is the JSON document handed to the training module on stdin.
// The runtime fills in Op before invoking the module.
type TrainRequest struct {
	Op           string            `json:"op"`
	Round        uint64            `json:"round"`
	Parameters   fedavg.Parameters `json:"parameters,omitempty"`
	Epochs       uint64            `json:"epochs"`
	BatchSize    uint64            `json:"batch_size"`
	LearningRate float64           `json:"learning_rate"`
}

// TrainResult is the JSON document the training module writes to stdout.
// Error carries module-reported failures, such as an unreadable dataset,
// that the module detected without crashing.
type TrainResult struct {
	Parameters fedavg.Parameters  `json:"parameters,omitempty"`
	NumSamples int64              `json:"num_samples"`
	Loss       float64            `json:"loss,omitempty"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// Runtime executes a training module for one phase of a round. Module bytes
// are passed per call so a freshly fetched module takes effect on the next
// round without restarting the runtime.
type Runtime interface {
	// Train runs the module's fit phase on the local dataset and returns the
	// updated parameters.
	Train(ctx context.Context, module []byte, req TrainRequest) (TrainResult, error)

	// Evaluate runs the module's evaluate phase against the supplied
	// parameters and returns the loss.
	Evaluate(ctx context.Context, module []byte, req TrainRequest) (TrainResult, error)
}
