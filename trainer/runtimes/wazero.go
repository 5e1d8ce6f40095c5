package runtimes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"

	"github.com/absmach/flock/trainer"
)

type wazeroRuntime struct {
	logger *slog.Logger
}

// NewWazeroRuntime runs training modules in-process with wazero. Modules
// are WASI commands: they read a TrainRequest as JSON on stdin and write a
// TrainResult as JSON to stdout.
func NewWazeroRuntime(logger *slog.Logger) trainer.Runtime {
	return &wazeroRuntime{
		logger: logger,
	}
}

func (w *wazeroRuntime) Train(ctx context.Context, module []byte, req trainer.TrainRequest) (trainer.TrainResult, error) {
	req.Op = trainer.OpFit

	return w.invoke(ctx, module, req)
}

func (w *wazeroRuntime) Evaluate(ctx context.Context, module []byte, req trainer.TrainRequest) (trainer.TrainResult, error) {
	req.Op = trainer.OpEvaluate

	return w.invoke(ctx, module, req)
}

func (w *wazeroRuntime) invoke(ctx context.Context, moduleBytes []byte, req trainer.TrainRequest) (trainer.TrainResult, error) {
	input, err := json.Marshal(req)
	if err != nil {
		return trainer.TrainResult{}, err
	}

	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	// Instantiate WASI, which implements host functions needed for TinyGo to
	// implement `panic` and stdio.
	wasi_snapshot_preview1.MustInstantiate(ctx, r)

	var stdout, stderr bytes.Buffer
	cfg := wazero.NewModuleConfig().
		WithStdin(bytes.NewReader(input)).
		WithStdout(&stdout).
		WithStderr(&stderr).
		WithArgs("trainer-module")

	mod, err := r.InstantiateWithConfig(ctx, moduleBytes, cfg)
	if err != nil {
		// Command modules that call proc_exit(0) still surface an ExitError.
		var exitErr *sys.ExitError
		if !errors.As(err, &exitErr) || exitErr.ExitCode() != 0 {
			return trainer.TrainResult{}, errors.Join(fmt.Errorf("failed to run Wasm module: %s", stderr.String()), err)
		}
	} else {
		defer mod.Close(ctx)
	}

	var result trainer.TrainResult
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		return trainer.TrainResult{}, errors.Join(errors.New("failed to parse module output"), err)
	}

	w.logger.Debug("module run complete",
		slog.String("op", req.Op),
		slog.Int("stdout_bytes", stdout.Len()))

	return result, nil
}
