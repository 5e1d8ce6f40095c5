package trainer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	pkgmqtt "github.com/absmach/flock/pkg/mqtt"
)

const (
	chunkTTL            = 5 * time.Minute
	moduleWaitTTL       = 2 * time.Minute
	pollingInterval     = 5 * time.Second
	expirySweepInterval = time.Minute
)

var (
	joinTopicTemplate     = "m/%s/c/%s/control/trainer/create"
	aliveTopicTemplate    = "m/%s/c/%s/control/trainer/alive"
	startTopicTemplate    = "m/%s/c/%s/fl/rounds/start"
	stopTopicTemplate     = "m/%s/c/%s/fl/rounds/stop"
	updatesTopicTemplate  = "m/%s/c/%s/fl/rounds/updates"
	registryResponseTopic = "m/%s/c/%s/registry/server"
	fetchRequestTopic     = "m/%s/c/%s/registry/trainer"
)

// TrainerService connects one trainer process to the coordinator over MQTT:
// it announces itself, heartbeats, receives round instructions, runs the
// local training module and publishes the results.
type TrainerService struct {
	cfg     Config
	pubsub  pkgmqtt.PubSub
	runtime Runtime
	monitor *Monitor
	logger  *slog.Logger

	moduleMu sync.Mutex
	module   []byte

	assemblyMu sync.Mutex
	assemblies map[string]*chunkAssembly

	activeMu sync.Mutex
	active   map[string]*phaseHandle
}

// phaseHandle identifies one running phase so a stale goroutine cannot
// clear the registration of the phase that replaced it.
type phaseHandle struct {
	cancel context.CancelFunc
}

func NewService(ctx context.Context, cfg Config, pubsub pkgmqtt.PubSub, runtime Runtime, monitor *Monitor, logger *slog.Logger) (*TrainerService, error) {
	var module []byte
	if cfg.ModuleFile != "" {
		data, err := os.ReadFile(cfg.ModuleFile)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("failed to read module file '%s'", cfg.ModuleFile), err)
		}
		module = data
	}

	topic := fmt.Sprintf(joinTopicTemplate, cfg.DomainID, cfg.ChannelID)
	payload := map[string]any{
		"trainer_id":  cfg.TrainerID,
		"name":        cfg.Name,
		"num_samples": cfg.NumSamples,
	}
	if err := pubsub.Publish(ctx, topic, payload); err != nil {
		return nil, errors.Join(errors.New("failed to publish join announcement"), err)
	}

	p := &TrainerService{
		cfg:        cfg,
		pubsub:     pubsub,
		runtime:    runtime,
		monitor:    monitor,
		logger:     logger,
		module:     module,
		assemblies: make(map[string]*chunkAssembly),
		active:     make(map[string]*phaseHandle),
	}

	go p.startLivelinessUpdates(ctx)
	go p.startChunkExpiryTask(ctx)

	return p, nil
}

func (p *TrainerService) startLivelinessUpdates(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.LivenessInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("stopping liveliness updates")

			return
		case <-ticker.C:
			topic := fmt.Sprintf(aliveTopicTemplate, p.cfg.DomainID, p.cfg.ChannelID)
			payload := map[string]any{
				"status":     "alive",
				"trainer_id": p.cfg.TrainerID,
			}
			if p.monitor != nil {
				payload["metrics"] = p.monitor.Sample(ctx)
			}

			if err := p.pubsub.Publish(ctx, topic, payload); err != nil {
				p.logger.Error("failed to publish liveliness message", slog.Any("error", err))
			}

			p.logger.Debug("Published liveliness message", slog.String("topic", topic))
		}
	}
}

func (p *TrainerService) Run(ctx context.Context, logger *slog.Logger) error {
	topic := fmt.Sprintf(startTopicTemplate, p.cfg.DomainID, p.cfg.ChannelID)
	if err := p.pubsub.Subscribe(ctx, topic, p.handleRoundStart(ctx)); err != nil {
		return fmt.Errorf("failed to subscribe to round start topic: %w", err)
	}

	topic = fmt.Sprintf(stopTopicTemplate, p.cfg.DomainID, p.cfg.ChannelID)
	if err := p.pubsub.Subscribe(ctx, topic, p.handleRoundStop(ctx)); err != nil {
		return fmt.Errorf("failed to subscribe to round stop topic: %w", err)
	}

	topic = fmt.Sprintf(registryResponseTopic, p.cfg.DomainID, p.cfg.ChannelID)
	if err := p.pubsub.Subscribe(ctx, topic, p.handleChunk(ctx)); err != nil {
		return fmt.Errorf("failed to subscribe to registry topic: %w", err)
	}

	if p.currentModule() == nil && p.cfg.ModuleRef != "" {
		if err := p.requestModule(ctx); err != nil {
			return err
		}
	}

	logger.Info("Trainer service is running.")
	<-ctx.Done()

	return nil
}

func (p *TrainerService) handleRoundStart(ctx context.Context) func(topic string, msg map[string]any) error {
	return func(topic string, msg map[string]any) error {
		data, err := json.Marshal(msg)
		if err != nil {
			return err
		}

		var inst roundInstruction
		if err := json.Unmarshal(data, &inst); err != nil {
			return err
		}
		if err := inst.Validate(); err != nil {
			return err
		}

		if !inst.selected(p.cfg.TrainerID) {
			p.logger.Debug("not selected for round",
				slog.String("session_id", inst.SessionID),
				slog.Uint64("round", inst.Round))

			return nil
		}

		p.logger.Info("Received round instruction",
			slog.String("session_id", inst.SessionID),
			slog.Uint64("round", inst.Round),
			slog.String("phase", inst.Phase))

		go p.runPhase(ctx, inst)

		return nil
	}
}

func (p *TrainerService) runPhase(ctx context.Context, inst roundInstruction) {
	update := trainerUpdate{
		SessionID: inst.SessionID,
		Round:     inst.Round,
		TrainerID: p.cfg.TrainerID,
		Phase:     inst.Phase,
	}

	module, err := p.waitForModule(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		update.Error = err.Error()
		p.publishUpdate(ctx, update)

		return
	}

	phaseCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	handle := &phaseHandle{cancel: cancel}
	p.registerPhase(inst.SessionID, handle)
	defer p.clearPhase(inst.SessionID, handle)

	req := TrainRequest{
		Round:        inst.Round,
		Parameters:   inst.Parameters,
		Epochs:       inst.Config.Epochs,
		BatchSize:    inst.Config.BatchSize,
		LearningRate: inst.Config.LearningRate,
	}

	var result TrainResult
	switch inst.Phase {
	case OpFit:
		result, err = p.runtime.Train(phaseCtx, module, req)
	case OpEvaluate:
		result, err = p.runtime.Evaluate(phaseCtx, module, req)
	}

	// A cancelled phase means the coordinator stopped the session; there
	// is nobody left waiting for this update.
	if phaseCtx.Err() != nil {
		p.logger.Info("phase cancelled",
			slog.String("session_id", inst.SessionID),
			slog.Uint64("round", inst.Round))

		return
	}

	switch {
	case err != nil:
		update.Error = err.Error()
	case result.Error != "":
		update.Error = result.Error
	default:
		update.NumSamples = result.NumSamples
		if update.NumSamples == 0 {
			update.NumSamples = p.cfg.NumSamples
		}
		update.Metrics = result.Metrics
		if inst.Phase == OpFit {
			update.Parameters = result.Parameters
		} else {
			update.Loss = result.Loss
		}
	}

	p.publishUpdate(ctx, update)
}

func (p *TrainerService) handleRoundStop(_ context.Context) func(topic string, msg map[string]any) error {
	return func(topic string, msg map[string]any) error {
		data, err := json.Marshal(msg)
		if err != nil {
			return err
		}

		var req stopInstruction
		if err := json.Unmarshal(data, &req); err != nil {
			return err
		}
		if err := req.Validate(); err != nil {
			return err
		}

		if p.cancelSession(req.SessionID) {
			p.logger.Info("Stopped session work", slog.String("session_id", req.SessionID))
		}

		return nil
	}
}

func (p *TrainerService) registerPhase(sessionID string, h *phaseHandle) {
	p.activeMu.Lock()
	defer p.activeMu.Unlock()

	if prev, ok := p.active[sessionID]; ok {
		prev.cancel()
	}
	p.active[sessionID] = h
}

func (p *TrainerService) clearPhase(sessionID string, h *phaseHandle) {
	p.activeMu.Lock()
	defer p.activeMu.Unlock()

	if cur, ok := p.active[sessionID]; ok && cur == h {
		delete(p.active, sessionID)
	}
}

func (p *TrainerService) cancelSession(sessionID string) bool {
	p.activeMu.Lock()
	defer p.activeMu.Unlock()

	h, ok := p.active[sessionID]
	if ok {
		h.cancel()
		delete(p.active, sessionID)
	}

	return ok
}

func (p *TrainerService) publishUpdate(ctx context.Context, update trainerUpdate) {
	topic := fmt.Sprintf(updatesTopicTemplate, p.cfg.DomainID, p.cfg.ChannelID)
	if err := p.pubsub.Publish(ctx, topic, update); err != nil {
		p.logger.Error("failed to publish round update",
			slog.String("session_id", update.SessionID),
			slog.Uint64("round", update.Round),
			slog.Any("error", err))

		return
	}

	p.logger.Info("Published round update",
		slog.String("session_id", update.SessionID),
		slog.Uint64("round", update.Round),
		slog.String("phase", update.Phase))
}

func (p *TrainerService) currentModule() []byte {
	p.moduleMu.Lock()
	defer p.moduleMu.Unlock()

	return p.module
}

func (p *TrainerService) setModule(module []byte) {
	p.moduleMu.Lock()
	p.module = module
	p.moduleMu.Unlock()
}

// waitForModule returns the training module, polling until the registry
// proxy has streamed it over when it is not yet present.
func (p *TrainerService) waitForModule(ctx context.Context) ([]byte, error) {
	if module := p.currentModule(); module != nil {
		return module, nil
	}
	if p.cfg.ModuleRef == "" {
		return nil, errors.New("no training module configured")
	}

	p.logger.Info("Waiting for module chunks", slog.String("module_ref", p.cfg.ModuleRef))

	timeout := time.NewTimer(moduleWaitTTL)
	defer timeout.Stop()
	ticker := time.NewTicker(pollingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timeout.C:
			return nil, fmt.Errorf("timed out waiting for module '%s'", p.cfg.ModuleRef)
		case <-ticker.C:
			if module := p.currentModule(); module != nil {
				return module, nil
			}
		}
	}
}

func (p *TrainerService) requestModule(ctx context.Context) error {
	topic := fmt.Sprintf(fetchRequestTopic, p.cfg.DomainID, p.cfg.ChannelID)
	payload := map[string]any{
		"app_name": p.cfg.ModuleRef,
	}
	if err := p.pubsub.Publish(ctx, topic, payload); err != nil {
		return errors.Join(errors.New("failed to publish module fetch request"), err)
	}

	return nil
}

// chunkAssembly collects the pieces of one module streamed by the registry
// proxy. Chunks are keyed by index so duplicates and reordering are
// harmless.
type chunkAssembly struct {
	chunks      map[int][]byte
	totalChunks int
	checksum    string
	createdAt   time.Time
}

func (a *chunkAssembly) isComplete() bool {
	return len(a.chunks) == a.totalChunks
}

func (a *chunkAssembly) isExpired(ttl time.Duration) bool {
	return time.Since(a.createdAt) > ttl
}

func (a *chunkAssembly) assemble() ([]byte, error) {
	var module []byte
	for i := 0; i < a.totalChunks; i++ {
		chunk, ok := a.chunks[i]
		if !ok {
			return nil, fmt.Errorf("missing chunk %d of %d", i, a.totalChunks)
		}
		module = append(module, chunk...)
	}

	return module, nil
}

func (p *TrainerService) handleChunk(_ context.Context) func(topic string, msg map[string]any) error {
	return func(topic string, msg map[string]any) error {
		data, err := json.Marshal(msg)
		if err != nil {
			return err
		}

		var chunk chunkPayload
		if err := json.Unmarshal(data, &chunk); err != nil {
			return err
		}
		if err := chunk.Validate(); err != nil {
			return err
		}

		// The registry topic is shared; ignore streams for modules this
		// trainer did not ask for.
		if chunk.AppName != p.cfg.ModuleRef {
			return nil
		}

		p.assemblyMu.Lock()
		assembly, ok := p.assemblies[chunk.AppName]
		if !ok {
			assembly = &chunkAssembly{
				chunks:      make(map[int][]byte),
				totalChunks: chunk.TotalChunks,
				checksum:    chunk.Checksum,
				createdAt:   time.Now(),
			}
			p.assemblies[chunk.AppName] = assembly
		}

		if chunk.TotalChunks != assembly.totalChunks {
			p.assemblyMu.Unlock()

			return fmt.Errorf("total_chunks mismatch for '%s': got %d, expected %d", chunk.AppName, chunk.TotalChunks, assembly.totalChunks)
		}
		if assembly.checksum == "" {
			assembly.checksum = chunk.Checksum
		}
		if _, dup := assembly.chunks[chunk.ChunkIdx]; dup {
			p.assemblyMu.Unlock()
			p.logger.Debug("skipping duplicate chunk",
				slog.String("module_ref", chunk.AppName),
				slog.Int("chunk_idx", chunk.ChunkIdx))

			return nil
		}

		assembly.chunks[chunk.ChunkIdx] = chunk.Data
		complete := assembly.isComplete()
		p.assemblyMu.Unlock()

		p.logger.Info("Received chunk",
			slog.String("module_ref", chunk.AppName),
			slog.Int("chunk", chunk.ChunkIdx+1),
			slog.Int("total", chunk.TotalChunks))

		if !complete {
			return nil
		}

		return p.finishAssembly(chunk.AppName)
	}
}

func (p *TrainerService) finishAssembly(name string) error {
	p.assemblyMu.Lock()
	assembly, ok := p.assemblies[name]
	if ok {
		delete(p.assemblies, name)
	}
	p.assemblyMu.Unlock()
	if !ok {
		return nil
	}

	module, err := assembly.assemble()
	if err != nil {
		return err
	}

	if assembly.checksum != "" {
		sum := sha256.Sum256(module)
		if got := hex.EncodeToString(sum[:]); got != assembly.checksum {
			return fmt.Errorf("checksum mismatch for '%s': got %s, expected %s", name, got, assembly.checksum)
		}
	}

	p.setModule(module)
	p.logger.Info("Assembled training module",
		slog.String("module_ref", name),
		slog.Int("size", len(module)))

	return nil
}

func (p *TrainerService) startChunkExpiryTask(ctx context.Context) {
	ticker := time.NewTicker(expirySweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.assemblyMu.Lock()
			for name, assembly := range p.assemblies {
				if assembly.isExpired(chunkTTL) {
					delete(p.assemblies, name)
					p.logger.Warn("Discarded incomplete chunk assembly",
						slog.String("module_ref", name),
						slog.Int("received", len(assembly.chunks)),
						slog.Int("total", assembly.totalChunks))
				}
			}
			p.assemblyMu.Unlock()
		}
	}
}
