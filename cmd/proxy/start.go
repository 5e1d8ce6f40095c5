package proxy

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/absmach/flock"
	"github.com/absmach/flock/pkg/mqtt"
	"github.com/absmach/flock/proxy"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

const (
	svcName   = "proxy"
	envPrefix = "PROXY_"
	pathEnv   = ".env"
)

type Config struct {
	LogLevel     string        `env:"PROXY_LOG_LEVEL"      envDefault:"info"`
	MQTTAddress  string        `env:"PROXY_MQTT_ADDRESS"   envDefault:"tcp://localhost:1883"`
	MQTTQoS      byte          `env:"PROXY_MQTT_QOS"       envDefault:"2"`
	MQTTTimeout  time.Duration `env:"PROXY_MQTT_TIMEOUT"   envDefault:"30s"`
	MQTTUsername string        `env:"PROXY_MQTT_USERNAME"  envDefault:""`
	MQTTPassword string        `env:"PROXY_MQTT_PASSWORD"  envDefault:""`
	DomainID     string        `env:"PROXY_DOMAIN_ID"`
	ChannelID    string        `env:"PROXY_CHANNEL_ID"`
	Registry     proxy.HTTPProxyConfig
}

// LoadConfig reads the proxy configuration from the environment, loading a
// .env file first when one is present.
func LoadConfig() (Config, error) {
	if _, err := os.Stat(pathEnv); err == nil {
		_ = godotenv.Load(pathEnv)
	}

	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}

	registryCfg, err := proxy.LoadHTTPConfig(env.Options{Prefix: envPrefix})
	if err != nil {
		return Config{}, err
	}
	cfg.Registry = registryCfg

	return cfg, nil
}

// ApplyBundle overlays the proxy section of a provisioning bundle onto the
// configuration. Empty bundle fields leave the environment values in place.
func (c Config) ApplyBundle(b flock.ProxyConfig) Config {
	if b.DomainID != "" {
		c.DomainID = b.DomainID
	}
	if b.ClientID != "" {
		c.MQTTUsername = b.ClientID
	}
	if b.ClientKey != "" {
		c.MQTTPassword = b.ClientKey
	}
	if b.ChannelID != "" {
		c.ChannelID = b.ChannelID
	}

	return c
}

func StartProxy(ctx context.Context, cancel context.CancelFunc, cfg Config) error {
	g, ctx := errgroup.WithContext(ctx)

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return errors.Join(errors.New("failed to parse log level"), err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	mqttPubSub, err := mqtt.NewPubSub(cfg.MQTTAddress, cfg.MQTTQoS, svcName, cfg.MQTTUsername, cfg.MQTTPassword, cfg.DomainID, cfg.ChannelID, cfg.MQTTTimeout, logger)
	if err != nil {
		return errors.Join(errors.New("failed to initialize mqtt client"), err)
	}
	defer func() {
		if err := mqttPubSub.Disconnect(context.Background()); err != nil {
			logger.Error("failed to disconnect MQTT client", slog.Any("error", err))
		}
	}()

	service, err := proxy.NewService(mqttPubSub, cfg.DomainID, cfg.ChannelID, cfg.Registry, logger)
	if err != nil {
		return errors.Join(errors.New("failed to create proxy service"), err)
	}

	if err := service.Subscribe(ctx); err != nil {
		return errors.Join(errors.New("failed to subscribe to fetch requests"), err)
	}

	logger.Info("proxy service started",
		slog.String("broker", cfg.MQTTAddress),
		slog.String("registry", cfg.Registry.RegistryURL))

	g.Go(func() error {
		return service.StreamHTTP(ctx)
	})
	g.Go(func() error {
		return service.StreamMQTT(ctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}
