package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	pkgmqtt "github.com/absmach/flock/pkg/mqtt"
)

const (
	chunkBuffer    = 10
	moduleChanSize = 100

	// PubTopic carries module chunks from the proxy to trainers.
	// SubTopic carries fetch requests from trainers to the proxy.
	PubTopic = "m/%s/c/%s/registry/server"
	SubTopic = "m/%s/c/%s/registry/trainer"

	maxConcurrentFetches = 50
)

type fetchRequest struct {
	AppName string `json:"app_name"`
}

// ProxyService bridges trainers to an OCI registry. Trainers publish
// fetch requests over MQTT, the proxy pulls the referenced module over
// HTTP and streams it back in chunks on the registry response topic.
type ProxyService struct {
	orasconfig    HTTPProxyConfig
	pubsub        pkgmqtt.PubSub
	domainID      string
	channelID     string
	logger        *slog.Logger
	moduleChan    chan string
	dataChan      chan ChunkPayload
	fetching      map[string]bool
	fetchingMu    sync.Mutex
	activeFetches int
	activeFetchMu sync.Mutex
}

func NewService(pubsub pkgmqtt.PubSub, domainID, channelID string, httpCfg HTTPProxyConfig, logger *slog.Logger) (*ProxyService, error) {
	if err := httpCfg.Validate(); err != nil {
		return nil, err
	}

	return &ProxyService{
		orasconfig: httpCfg,
		pubsub:     pubsub,
		domainID:   domainID,
		channelID:  channelID,
		logger:     logger,
		moduleChan: make(chan string, moduleChanSize),
		dataChan:   make(chan ChunkPayload, chunkBuffer),
		fetching:   make(map[string]bool),
	}, nil
}

// Subscribe registers the proxy on the trainer fetch-request topic.
// Requests received after the queue fills up are dropped, the trainer
// will time out waiting for the module and surface the failure.
func (s *ProxyService) Subscribe(ctx context.Context) error {
	topic := fmt.Sprintf(SubTopic, s.domainID, s.channelID)
	if err := s.pubsub.Subscribe(ctx, topic, s.handleFetchRequest); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	s.logger.Info("subscribed to module fetch requests", slog.String("topic", topic))

	return nil
}

func (s *ProxyService) handleFetchRequest(topic string, msg map[string]any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	var req fetchRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return err
	}
	if req.AppName == "" {
		return errors.New("fetch request is missing app_name")
	}

	select {
	case s.moduleChan <- req.AppName:
	default:
		s.logger.Warn("fetch request queue is full, dropping request",
			slog.String("module", req.AppName))
	}

	return nil
}

// StreamHTTP drains the fetch-request queue and pulls modules from the
// registry, at most maxConcurrentFetches at a time and never the same
// module twice concurrently.
func (s *ProxyService) StreamHTTP(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case moduleRef := <-s.moduleChan:
			s.activeFetchMu.Lock()
			if s.activeFetches >= maxConcurrentFetches {
				s.activeFetchMu.Unlock()
				s.logger.Warn("maximum concurrent fetches reached, dropping request",
					slog.String("module", moduleRef),
					slog.Int("max_concurrent", maxConcurrentFetches))

				continue
			}
			s.activeFetches++
			s.activeFetchMu.Unlock()

			s.fetchingMu.Lock()
			if s.fetching[moduleRef] {
				s.fetchingMu.Unlock()
				s.activeFetchMu.Lock()
				s.activeFetches--
				s.activeFetchMu.Unlock()
				s.logger.Debug("already fetching module, skipping duplicate request",
					slog.String("module", moduleRef))

				continue
			}

			s.fetching[moduleRef] = true
			s.fetchingMu.Unlock()

			go func(ref string) {
				defer func() {
					s.fetchingMu.Lock()
					delete(s.fetching, ref)
					s.fetchingMu.Unlock()

					s.activeFetchMu.Lock()
					s.activeFetches--
					s.activeFetchMu.Unlock()
				}()

				s.logger.Info("fetching module from registry",
					slog.String("module", ref))

				chunks, err := s.orasconfig.FetchFromReg(ctx, ref)
				if err != nil {
					s.logger.Error("failed to fetch module",
						slog.String("module", ref),
						slog.Any("error", err))

					return
				}

				s.logger.Info("successfully fetched module, sending chunks",
					slog.String("module", ref),
					slog.Int("total_chunks", len(chunks)))

				for _, chunk := range chunks {
					select {
					case s.dataChan <- chunk:
						s.logger.Debug("queued module chunk for MQTT stream",
							slog.String("module", ref),
							slog.Int("chunk", chunk.ChunkIdx),
							slog.Int("total", chunk.TotalChunks))
					case <-ctx.Done():
						return
					}
				}
			}(moduleRef)
		}
	}
}

// StreamMQTT publishes fetched chunks on the registry response topic.
func (s *ProxyService) StreamMQTT(ctx context.Context) error {
	moduleChunks := make(map[string]int)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunk := <-s.dataChan:
			if err := s.pubsub.Publish(ctx, fmt.Sprintf(PubTopic, s.domainID, s.channelID), chunk); err != nil {
				s.logger.Error("failed to publish module chunk",
					slog.Any("error", err),
					slog.Int("chunk", chunk.ChunkIdx),
					slog.Int("total", chunk.TotalChunks))

				continue
			}

			moduleChunks[chunk.AppName]++

			if moduleChunks[chunk.AppName] == chunk.TotalChunks {
				s.logger.Info("successfully sent all chunks",
					slog.String("module", chunk.AppName),
					slog.Int("total_chunks", chunk.TotalChunks))
				delete(moduleChunks, chunk.AppName)
			}
		}
	}
}
