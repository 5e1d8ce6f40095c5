package runtimes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/absmach/flock/trainer"
)

type hostRuntime struct {
	logger      *slog.Logger
	wasmRuntime string
	cliArgs     []string
}

// NewHostRuntime executes training modules with an external Wasm runtime
// such as wasmtime. The module reads a TrainRequest as JSON on stdin and
// writes a TrainResult as JSON to stdout, same as the in-process runtime.
func NewHostRuntime(logger *slog.Logger, wasmRuntime string, cliArgs ...string) trainer.Runtime {
	return &hostRuntime{
		logger:      logger,
		wasmRuntime: wasmRuntime,
		cliArgs:     cliArgs,
	}
}

func (w *hostRuntime) Train(ctx context.Context, module []byte, req trainer.TrainRequest) (trainer.TrainResult, error) {
	req.Op = trainer.OpFit

	return w.invoke(ctx, module, req)
}

func (w *hostRuntime) Evaluate(ctx context.Context, module []byte, req trainer.TrainRequest) (trainer.TrainResult, error) {
	req.Op = trainer.OpEvaluate

	return w.invoke(ctx, module, req)
}

func (w *hostRuntime) invoke(ctx context.Context, module []byte, req trainer.TrainRequest) (trainer.TrainResult, error) {
	input, err := json.Marshal(req)
	if err != nil {
		return trainer.TrainResult{}, err
	}

	f, err := os.CreateTemp("", "module-*.wasm")
	if err != nil {
		return trainer.TrainResult{}, fmt.Errorf("error creating module file: %w", err)
	}
	defer os.Remove(f.Name())

	if _, err = f.Write(module); err != nil {
		f.Close()

		return trainer.TrainResult{}, fmt.Errorf("error writing module file: %w", err)
	}
	if err := f.Close(); err != nil {
		return trainer.TrainResult{}, fmt.Errorf("error closing module file: %w", err)
	}

	args := append(append([]string{}, w.cliArgs...), f.Name())
	cmd := exec.CommandContext(ctx, w.wasmRuntime, args...)
	stdout := bytes.Buffer{}
	stderr := bytes.Buffer{}
	cmd.Stdin = bytes.NewReader(input)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return trainer.TrainResult{}, errors.Join(fmt.Errorf("error running module: %s", stderr.String()), err)
	}

	var result trainer.TrainResult
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		return trainer.TrainResult{}, errors.Join(errors.New("failed to parse module output"), err)
	}

	w.logger.Debug("module run complete",
		slog.String("op", req.Op),
		slog.String("runtime", w.wasmRuntime))

	return result, nil
}
