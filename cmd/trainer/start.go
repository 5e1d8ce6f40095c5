package trainer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/absmach/flock/pkg/mqtt"
	"github.com/absmach/flock/trainer"
	"github.com/absmach/flock/trainer/runtimes"
)

const (
	defMQTTQoS     = 2
	defMQTTTimeout = 30 * time.Second
)

func StartTrainer(ctx context.Context, cancel context.CancelFunc, cfg trainer.Config) error {
	logLevel := cfg.LogLevel
	if logLevel == "" {
		logLevel = "info"
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("failed to parse log level: %s", err.Error())
	}
	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	mqttPubSub, err := mqtt.NewPubSub(cfg.BrokerURL, defMQTTQoS, cfg.TrainerID, cfg.Username, cfg.Password, cfg.DomainID, cfg.ChannelID, defMQTTTimeout, logger)
	if err != nil {
		return errors.Join(errors.New("failed to initialize mqtt client"), err)
	}

	var runtime trainer.Runtime
	switch {
	case cfg.WasmRuntime != "":
		runtime = runtimes.NewHostRuntime(logger, cfg.WasmRuntime)
	default:
		runtime = runtimes.NewWazeroRuntime(logger)
	}

	monitor, err := trainer.NewMonitor()
	if err != nil {
		logger.Warn("process metrics unavailable", slog.Any("error", err))
	}

	service, err := trainer.NewService(ctx, cfg, mqttPubSub, runtime, monitor, logger)
	if err != nil {
		return errors.Join(errors.New("failed to initialize service"), err)
	}

	if err := service.Run(ctx, logger); err != nil {
		return errors.Join(errors.New("failed to run service"), err)
	}

	return nil
}
