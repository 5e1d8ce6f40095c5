package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/absmach/flock"
	"github.com/absmach/flock/coordinator"
	"github.com/absmach/flock/coordinator/api"
	"github.com/absmach/flock/coordinator/middleware"
	"github.com/absmach/flock/pkg/mqtt"
	"github.com/absmach/flock/pkg/selector"
	"github.com/absmach/flock/pkg/storage"
	"github.com/absmach/supermq/pkg/jaeger"
	"github.com/absmach/supermq/pkg/prometheus"
	"github.com/absmach/supermq/pkg/server"
	httpserver "github.com/absmach/supermq/pkg/server/http"
	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"
)

const (
	svcName         = "coordinator"
	defHTTPPort     = "7070"
	envPrefixHTTP   = "COORDINATOR_HTTP_"
	pathEnv         = ".env"
	shutdownTimeout = 30 * time.Second
)

type Config struct {
	LogLevel    string        `env:"COORDINATOR_LOG_LEVEL"     envDefault:"info"`
	InstanceID  string        `env:"COORDINATOR_INSTANCE_ID"`
	MQTTAddress string        `env:"COORDINATOR_MQTT_ADDRESS"  envDefault:"tcp://localhost:1883"`
	MQTTQoS     uint8         `env:"COORDINATOR_MQTT_QOS"      envDefault:"2"`
	MQTTTimeout time.Duration `env:"COORDINATOR_MQTT_TIMEOUT"  envDefault:"30s"`
	Username    string        `env:"COORDINATOR_MQTT_USERNAME"`
	Password    string        `env:"COORDINATOR_MQTT_PASSWORD"`
	DomainID    string        `env:"COORDINATOR_DOMAIN_ID"`
	ChannelID   string        `env:"COORDINATOR_CHANNEL_ID"`
	Selector    string        `env:"COORDINATOR_SELECTOR"      envDefault:"roundrobin"`
	Storage     storage.Config
	Server      server.Config
	OTELURL     url.URL `env:"COORDINATOR_OTEL_URL"`
	TraceRatio  float64 `env:"COORDINATOR_TRACE_RATIO" envDefault:"0"`
}

// LoadConfig reads the coordinator configuration from the environment,
// loading a .env file first when one is present.
func LoadConfig() (Config, error) {
	if _, err := os.Stat(pathEnv); err == nil {
		_ = godotenv.Load(pathEnv)
	}

	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}

	httpServerConfig := server.Config{Port: defHTTPPort}
	if err := env.ParseWithOptions(&httpServerConfig, env.Options{Prefix: envPrefixHTTP}); err != nil {
		return Config{}, err
	}
	cfg.Server = httpServerConfig

	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}

	return cfg, nil
}

// ApplyBundle overlays the coordinator section of a provisioning bundle
// onto the configuration. Empty bundle fields leave the environment
// values in place.
func (c Config) ApplyBundle(b flock.CoordinatorConfig) Config {
	if b.DomainID != "" {
		c.DomainID = b.DomainID
	}
	if b.ClientID != "" {
		c.Username = b.ClientID
	}
	if b.ClientKey != "" {
		c.Password = b.ClientKey
	}
	if b.ChannelID != "" {
		c.ChannelID = b.ChannelID
	}

	return c
}

func StartCoordinator(ctx context.Context, cancel context.CancelFunc, cfg Config) error {
	g, ctx := errgroup.WithContext(ctx)

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return fmt.Errorf("failed to parse log level: %s", err.Error())
	}
	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	var tp trace.TracerProvider
	switch {
	case cfg.OTELURL == (url.URL{}):
		tp = noop.NewTracerProvider()
	default:
		sdktp, err := jaeger.NewProvider(ctx, svcName, cfg.OTELURL, cfg.InstanceID, cfg.TraceRatio)
		if err != nil {
			return fmt.Errorf("failed to initialize opentelemetry: %s", err.Error())
		}
		defer func() {
			if err := sdktp.Shutdown(ctx); err != nil {
				slog.Error("error shutting down tracer provider", slog.Any("error", err))
			}
		}()
		tp = sdktp
	}
	tracer := tp.Tracer(svcName)

	mqttPubSub, err := mqtt.NewPubSub(cfg.MQTTAddress, cfg.MQTTQoS, svcName, cfg.Username, cfg.Password, cfg.DomainID, cfg.ChannelID, cfg.MQTTTimeout, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize mqtt pubsub: %s", err.Error())
	}

	repos, err := storage.NewRepositories(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %s", err.Error())
	}
	if repos.Closer != nil {
		defer func() {
			if err := repos.Closer.Close(); err != nil {
				logger.Error("error closing storage", slog.Any("error", err))
			}
		}()
	}

	var sel selector.Selector
	switch cfg.Selector {
	case "random":
		sel = selector.NewRandom()
	default:
		sel = selector.NewRoundRobin()
	}

	svc := coordinator.NewService(repos, sel, mqttPubSub, cfg.DomainID, cfg.ChannelID, logger)
	svc = middleware.Logging(logger, svc)
	svc = middleware.Tracing(tracer, svc)
	counter, latency := prometheus.MakeMetrics(svcName, "api")
	svc = middleware.Metrics(counter, latency, svc)

	if err := svc.RecoverInterruptedSessions(ctx); err != nil {
		return fmt.Errorf("failed to recover interrupted sessions: %s", err.Error())
	}

	if err := svc.Subscribe(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to coordinator channel: %s", err.Error())
	}

	sched := coordinator.NewScheduler(repos.Sessions, svc, logger)
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start session scheduler: %s", err.Error())
	}
	defer sched.Stop()

	hs := httpserver.NewServer(ctx, cancel, svcName, cfg.Server, api.MakeHandler(svc, logger, cfg.InstanceID), logger)

	g.Go(func() error {
		return hs.Start()
	})

	g.Go(func() error {
		return server.StopSignalHandler(ctx, cancel, logger, svcName, hs)
	})

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("%s service exited with error: %s", svcName, err))
	}

	// Runners drain on a fresh context so cancellation of the parent
	// does not abort the final state writes.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := svc.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shut down cleanly", slog.Any("error", err))
	}

	return nil
}
