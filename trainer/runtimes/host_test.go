package runtimes_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/absmach/flock/pkg/fedavg"
	"github.com/absmach/flock/trainer"
	"github.com/absmach/flock/trainer/runtimes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The host runtime only needs an executable that speaks JSON on stdio, so a
// shell stands in for the Wasm runtime in these tests.

func TestHostRuntimeRunsModule(t *testing.T) {
	rt := runtimes.NewHostRuntime(slog.Default(), "sh", "-c", `echo '{"parameters":[[3.5]],"num_samples":128,"loss":0.25}'`)

	result, err := rt.Train(context.Background(), []byte("module"), trainer.TrainRequest{Epochs: 1})
	require.NoError(t, err)

	assert.Equal(t, int64(128), result.NumSamples)
	assert.InDelta(t, 0.25, result.Loss, 1e-9)
	require.Len(t, result.Parameters, 1)
	assert.InDelta(t, 3.5, result.Parameters[0][0], 1e-9)
}

func TestHostRuntimePassesRequestOnStdin(t *testing.T) {
	rt := runtimes.NewHostRuntime(slog.Default(), "sh", "-c", "cat")

	result, err := rt.Evaluate(context.Background(), []byte("module"), trainer.TrainRequest{
		Parameters: fedavg.Parameters{{0.5, 1.5}},
	})
	require.NoError(t, err)

	// The echoed request parses as a result, so the parameters surviving
	// the trip proves the request went over stdin.
	assert.Equal(t, fedavg.Parameters{{0.5, 1.5}}, result.Parameters)
}

func TestHostRuntimeWritesModuleFile(t *testing.T) {
	rt := runtimes.NewHostRuntime(slog.Default(), "sh", "-c", `cat "$0"`)

	module := []byte(`{"num_samples":7}`)
	result, err := rt.Train(context.Background(), module, trainer.TrainRequest{})
	require.NoError(t, err)

	assert.Equal(t, int64(7), result.NumSamples)
}

func TestHostRuntimeReportsStderr(t *testing.T) {
	rt := runtimes.NewHostRuntime(slog.Default(), "sh", "-c", "echo broken dataset >&2; exit 3")

	_, err := rt.Train(context.Background(), []byte("module"), trainer.TrainRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken dataset")
}

func TestHostRuntimeRejectsBadOutput(t *testing.T) {
	rt := runtimes.NewHostRuntime(slog.Default(), "sh", "-c", "echo not-json")

	_, err := rt.Train(context.Background(), []byte("module"), trainer.TrainRequest{})
	assert.ErrorContains(t, err, "failed to parse module output")
}

func TestHostRuntimeMissingBinary(t *testing.T) {
	rt := runtimes.NewHostRuntime(slog.Default(), "definitely-not-installed")

	_, err := rt.Train(context.Background(), []byte("module"), trainer.TrainRequest{})
	require.Error(t, err)
}
