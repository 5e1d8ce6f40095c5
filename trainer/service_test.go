package trainer_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/absmach/flock/coordinator"
	"github.com/absmach/flock/pkg/fedavg"
	"github.com/absmach/flock/pkg/mqtt"
	"github.com/absmach/flock/trainer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	agentBaseTopic     = "m/domain-1/c/channel-1"
	agentJoinTopic     = agentBaseTopic + "/control/trainer/create"
	agentAliveTopic    = agentBaseTopic + "/control/trainer/alive"
	agentStartTopic    = agentBaseTopic + "/fl/rounds/start"
	agentStopTopic     = agentBaseTopic + "/fl/rounds/stop"
	agentUpdatesTopic  = agentBaseTopic + "/fl/rounds/updates"
	agentRegistryTopic = agentBaseTopic + "/registry/server"
	agentFetchTopic    = agentBaseTopic + "/registry/trainer"

	agentWait     = 5 * time.Second
	agentInterval = 10 * time.Millisecond
)

// agentPubSub captures published messages and lets tests push messages
// through the agent's subscription handlers.
type agentPubSub struct {
	mu         sync.Mutex
	published  map[string][]any
	subscribed map[string]mqtt.Handler
}

func newAgentPubSub() *agentPubSub {
	return &agentPubSub{
		published:  make(map[string][]any),
		subscribed: make(map[string]mqtt.Handler),
	}
}

func (m *agentPubSub) Publish(ctx context.Context, topic string, msg any) error {
	m.mu.Lock()
	m.published[topic] = append(m.published[topic], msg)
	m.mu.Unlock()

	return nil
}

func (m *agentPubSub) Subscribe(ctx context.Context, topic string, handler mqtt.Handler) error {
	m.mu.Lock()
	m.subscribed[topic] = handler
	m.mu.Unlock()

	return nil
}

func (m *agentPubSub) Unsubscribe(ctx context.Context, topic string) error {
	m.mu.Lock()
	delete(m.subscribed, topic)
	m.mu.Unlock()

	return nil
}

func (m *agentPubSub) Disconnect(ctx context.Context) error {
	return nil
}

func (m *agentPubSub) deliver(topic string, msg map[string]any) error {
	m.mu.Lock()
	handler, ok := m.subscribed[topic]
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("no subscription for topic %s", topic)
	}

	return handler(topic, msg)
}

func (m *agentPubSub) publishedTo(topic string) []any {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]any(nil), m.published[topic]...)
}

func (m *agentPubSub) subscriptions() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.subscribed)
}

// updates decodes everything published on the updates topic through the
// same wire format the coordinator parses.
func (m *agentPubSub) updates(t *testing.T) []coordinator.TrainerUpdate {
	t.Helper()

	var out []coordinator.TrainerUpdate
	for _, msg := range m.publishedTo(agentUpdatesTopic) {
		data, err := json.Marshal(msg)
		require.NoError(t, err)

		var u coordinator.TrainerUpdate
		require.NoError(t, json.Unmarshal(data, &u))
		out = append(out, u)
	}

	return out
}

// fakeRuntime records invocations and returns a canned result.
type fakeRuntime struct {
	mu     sync.Mutex
	ops    []string
	reqs   []trainer.TrainRequest
	module []byte
	result trainer.TrainResult
	err    error
	delay  time.Duration
}

func (f *fakeRuntime) Train(ctx context.Context, module []byte, req trainer.TrainRequest) (trainer.TrainResult, error) {
	return f.run(ctx, trainer.OpFit, module, req)
}

func (f *fakeRuntime) Evaluate(ctx context.Context, module []byte, req trainer.TrainRequest) (trainer.TrainResult, error) {
	return f.run(ctx, trainer.OpEvaluate, module, req)
}

func (f *fakeRuntime) run(ctx context.Context, op string, module []byte, req trainer.TrainRequest) (trainer.TrainResult, error) {
	f.mu.Lock()
	f.ops = append(f.ops, op)
	f.reqs = append(f.reqs, req)
	f.module = module
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return trainer.TrainResult{}, ctx.Err()
		case <-time.After(delay):
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	return f.result, f.err
}

func (f *fakeRuntime) operations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.ops...)
}

func (f *fakeRuntime) lastRequest() trainer.TrainRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.reqs[len(f.reqs)-1]
}

func (f *fakeRuntime) lastModule() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.module
}

func (f *fakeRuntime) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.reqs)
}

// moduleConfig returns a config whose module file exists on disk.
func moduleConfig(t *testing.T) (trainer.Config, []byte) {
	t.Helper()

	module := []byte("\x00asm pretend module")
	path := filepath.Join(t.TempDir(), "model.wasm")
	require.NoError(t, os.WriteFile(path, module, 0o644))

	cfg := validConfig()
	cfg.ModuleFile = path

	return cfg, module
}

func newAgent(t *testing.T, cfg trainer.Config, rt trainer.Runtime) (*trainer.TrainerService, *agentPubSub) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	ps := newAgentPubSub()
	svc, err := trainer.NewService(ctx, cfg, ps, rt, nil, slog.Default())
	require.NoError(t, err)

	go func() {
		_ = svc.Run(ctx, slog.Default())
	}()

	require.Eventually(t, func() bool {
		return ps.subscriptions() == 3
	}, agentWait, agentInterval, "agent never finished subscribing")

	return svc, ps
}

func fitInstruction(round uint64) coordinator.RoundInstruction {
	return coordinator.RoundInstruction{
		SessionID:    "sess-1",
		Round:        round,
		Phase:        coordinator.PhaseFit,
		TrainerIDs:   []string{"trainer-1"},
		Parameters:   fedavg.Parameters{{0.1, 0.2}},
		ModelVersion: 1,
		Config: coordinator.TrainConfig{
			Epochs:       3,
			BatchSize:    16,
			LearningRate: 0.01,
		},
	}
}

func startRound(t *testing.T, ps *agentPubSub, instr coordinator.RoundInstruction) {
	t.Helper()

	data, err := json.Marshal(instr)
	require.NoError(t, err)

	var msg map[string]any
	require.NoError(t, json.Unmarshal(data, &msg))
	require.NoError(t, ps.deliver(agentStartTopic, msg))
}

func chunkMsg(ref string, idx, total int, data []byte, checksum string) map[string]any {
	return map[string]any{
		"app_name":     ref,
		"chunk_idx":    idx,
		"total_chunks": total,
		"data":         data,
		"checksum":     checksum,
	}
}

func TestJoinAnnouncement(t *testing.T) {
	cfg, _ := moduleConfig(t)
	_, ps := newAgent(t, cfg, &fakeRuntime{})

	msgs := ps.publishedTo(agentJoinTopic)
	require.Len(t, msgs, 1)

	payload, ok := msgs[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "trainer-1", payload["trainer_id"])
	assert.Equal(t, int64(500), payload["num_samples"])
}

func TestFitRound(t *testing.T) {
	cfg, module := moduleConfig(t)
	rt := &fakeRuntime{result: trainer.TrainResult{
		Parameters: fedavg.Parameters{{1.5, 2.5}},
		NumSamples: 450,
		Metrics:    map[string]float64{"accuracy": 0.91},
	}}
	_, ps := newAgent(t, cfg, rt)

	startRound(t, ps, fitInstruction(1))

	require.Eventually(t, func() bool {
		return len(ps.publishedTo(agentUpdatesTopic)) == 1
	}, agentWait, agentInterval)

	u := ps.updates(t)[0]
	assert.Equal(t, "sess-1", u.SessionID)
	assert.Equal(t, uint64(1), u.Round)
	assert.Equal(t, "trainer-1", u.TrainerID)
	assert.Equal(t, coordinator.PhaseFit, u.Phase)
	assert.Equal(t, int64(450), u.NumSamples)
	assert.Equal(t, fedavg.Parameters{{1.5, 2.5}}, u.Parameters)
	assert.InDelta(t, 0.91, u.Metrics["accuracy"], 1e-9)
	assert.Empty(t, u.Error)

	req := rt.lastRequest()
	assert.Equal(t, uint64(3), req.Epochs)
	assert.Equal(t, uint64(16), req.BatchSize)
	assert.InDelta(t, 0.01, req.LearningRate, 1e-9)
	assert.Equal(t, fedavg.Parameters{{0.1, 0.2}}, req.Parameters)
	assert.Equal(t, module, rt.lastModule())
	assert.Equal(t, []string{trainer.OpFit}, rt.operations())
}

func TestEvaluateRound(t *testing.T) {
	cfg, _ := moduleConfig(t)
	rt := &fakeRuntime{result: trainer.TrainResult{
		NumSamples: 450,
		Loss:       0.37,
		Metrics:    map[string]float64{"accuracy": 0.89},
	}}
	_, ps := newAgent(t, cfg, rt)

	instr := fitInstruction(1)
	instr.Phase = coordinator.PhaseEvaluate
	startRound(t, ps, instr)

	require.Eventually(t, func() bool {
		return len(ps.publishedTo(agentUpdatesTopic)) == 1
	}, agentWait, agentInterval)

	u := ps.updates(t)[0]
	assert.Equal(t, coordinator.PhaseEvaluate, u.Phase)
	assert.InDelta(t, 0.37, u.Loss, 1e-9)
	assert.Empty(t, u.Parameters)
	assert.Equal(t, []string{trainer.OpEvaluate}, rt.operations())
}

func TestNotSelectedIgnoresRound(t *testing.T) {
	cfg, _ := moduleConfig(t)
	rt := &fakeRuntime{}
	_, ps := newAgent(t, cfg, rt)

	instr := fitInstruction(1)
	instr.TrainerIDs = []string{"somebody-else"}
	startRound(t, ps, instr)

	time.Sleep(200 * time.Millisecond)
	assert.Empty(t, ps.publishedTo(agentUpdatesTopic))
	assert.Zero(t, rt.callCount())
}

func TestRuntimeFailurePublishesError(t *testing.T) {
	cfg, _ := moduleConfig(t)
	rt := &fakeRuntime{err: errors.New("dataset corrupted")}
	_, ps := newAgent(t, cfg, rt)

	startRound(t, ps, fitInstruction(1))

	require.Eventually(t, func() bool {
		return len(ps.publishedTo(agentUpdatesTopic)) == 1
	}, agentWait, agentInterval)

	u := ps.updates(t)[0]
	assert.Contains(t, u.Error, "dataset corrupted")
	assert.Empty(t, u.Parameters)
	assert.Zero(t, u.NumSamples)
}

func TestModuleReportedFailure(t *testing.T) {
	cfg, _ := moduleConfig(t)
	rt := &fakeRuntime{result: trainer.TrainResult{Error: "label file missing"}}
	_, ps := newAgent(t, cfg, rt)

	startRound(t, ps, fitInstruction(1))

	require.Eventually(t, func() bool {
		return len(ps.publishedTo(agentUpdatesTopic)) == 1
	}, agentWait, agentInterval)

	assert.Equal(t, "label file missing", ps.updates(t)[0].Error)
}

func TestSampleCountFallsBackToConfig(t *testing.T) {
	cfg, _ := moduleConfig(t)
	rt := &fakeRuntime{result: trainer.TrainResult{
		Parameters: fedavg.Parameters{{1.0}},
	}}
	_, ps := newAgent(t, cfg, rt)

	startRound(t, ps, fitInstruction(1))

	require.Eventually(t, func() bool {
		return len(ps.publishedTo(agentUpdatesTopic)) == 1
	}, agentWait, agentInterval)

	assert.Equal(t, cfg.NumSamples, ps.updates(t)[0].NumSamples)
}

func TestStopCancelsRunningPhase(t *testing.T) {
	cfg, _ := moduleConfig(t)
	rt := &fakeRuntime{
		delay:  time.Minute,
		result: trainer.TrainResult{Parameters: fedavg.Parameters{{1.0}}},
	}
	_, ps := newAgent(t, cfg, rt)

	startRound(t, ps, fitInstruction(1))

	require.Eventually(t, func() bool {
		return rt.callCount() == 1
	}, agentWait, agentInterval)

	require.NoError(t, ps.deliver(agentStopTopic, map[string]any{"session_id": "sess-1"}))

	// A cancelled phase publishes nothing.
	time.Sleep(200 * time.Millisecond)
	assert.Empty(t, ps.publishedTo(agentUpdatesTopic))
}

func TestStopUnknownSessionIgnored(t *testing.T) {
	cfg, _ := moduleConfig(t)
	_, ps := newAgent(t, cfg, &fakeRuntime{})

	assert.NoError(t, ps.deliver(agentStopTopic, map[string]any{"session_id": "ghost"}))

	err := ps.deliver(agentStopTopic, map[string]any{})
	assert.ErrorContains(t, err, "session_id is required")
}

func TestInvalidInstructionRejected(t *testing.T) {
	cfg, _ := moduleConfig(t)
	_, ps := newAgent(t, cfg, &fakeRuntime{})

	instr := fitInstruction(1)
	instr.Phase = "predict"
	data, err := json.Marshal(instr)
	require.NoError(t, err)
	var msg map[string]any
	require.NoError(t, json.Unmarshal(data, &msg))

	assert.ErrorContains(t, ps.deliver(agentStartTopic, msg), "unknown phase")

	msg["phase"] = coordinator.PhaseFit
	msg["round"] = 0
	assert.ErrorContains(t, ps.deliver(agentStartTopic, msg), "round number must be positive")
}

func TestHeartbeat(t *testing.T) {
	cfg, _ := moduleConfig(t)
	cfg.LivenessIntervalSecs = 1
	_, ps := newAgent(t, cfg, &fakeRuntime{})

	require.Eventually(t, func() bool {
		return len(ps.publishedTo(agentAliveTopic)) >= 1
	}, agentWait, agentInterval)

	payload, ok := ps.publishedTo(agentAliveTopic)[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "alive", payload["status"])
	assert.Equal(t, "trainer-1", payload["trainer_id"])
	_, hasMetrics := payload["metrics"]
	assert.False(t, hasMetrics)
}

func TestHeartbeatCarriesMetrics(t *testing.T) {
	cfg, _ := moduleConfig(t)
	cfg.LivenessIntervalSecs = 1

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	monitor, err := trainer.NewMonitor()
	require.NoError(t, err)

	ps := newAgentPubSub()
	_, err = trainer.NewService(ctx, cfg, ps, &fakeRuntime{}, monitor, slog.Default())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(ps.publishedTo(agentAliveTopic)) >= 1
	}, agentWait, agentInterval)

	payload, ok := ps.publishedTo(agentAliveTopic)[0].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, payload, "metrics")
}

func TestModuleFetchedFromRegistry(t *testing.T) {
	cfg := validConfig()
	cfg.ModuleFile = ""
	cfg.ModuleRef = "registry.example.com/models/mnist:v1"
	rt := &fakeRuntime{result: trainer.TrainResult{
		Parameters: fedavg.Parameters{{1.0}},
		NumSamples: 100,
	}}
	_, ps := newAgent(t, cfg, rt)

	require.Eventually(t, func() bool {
		return len(ps.publishedTo(agentFetchTopic)) == 1
	}, agentWait, agentInterval, "agent never requested the module")

	fetch, ok := ps.publishedTo(agentFetchTopic)[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, cfg.ModuleRef, fetch["app_name"])

	module := []byte("pretend wasm binary with enough bytes to split")
	half := len(module) / 2
	sum := sha256.Sum256(module)
	checksum := hex.EncodeToString(sum[:])

	require.NoError(t, ps.deliver(agentRegistryTopic, chunkMsg(cfg.ModuleRef, 0, 2, module[:half], checksum)))
	require.NoError(t, ps.deliver(agentRegistryTopic, chunkMsg(cfg.ModuleRef, 1, 2, module[half:], checksum)))

	startRound(t, ps, fitInstruction(1))

	require.Eventually(t, func() bool {
		return len(ps.publishedTo(agentUpdatesTopic)) == 1
	}, agentWait, agentInterval)

	assert.Equal(t, module, rt.lastModule())
	assert.Empty(t, ps.updates(t)[0].Error)
}

func TestChunksArriveOutOfOrder(t *testing.T) {
	cfg := validConfig()
	cfg.ModuleFile = ""
	cfg.ModuleRef = "registry.example.com/models/mnist:v1"
	rt := &fakeRuntime{result: trainer.TrainResult{
		Parameters: fedavg.Parameters{{1.0}},
		NumSamples: 100,
	}}
	_, ps := newAgent(t, cfg, rt)

	module := []byte("chunks may be reordered or repeated in transit")
	half := len(module) / 2
	sum := sha256.Sum256(module)
	checksum := hex.EncodeToString(sum[:])

	require.NoError(t, ps.deliver(agentRegistryTopic, chunkMsg(cfg.ModuleRef, 1, 2, module[half:], checksum)))
	require.NoError(t, ps.deliver(agentRegistryTopic, chunkMsg(cfg.ModuleRef, 1, 2, module[half:], checksum)))
	require.NoError(t, ps.deliver(agentRegistryTopic, chunkMsg(cfg.ModuleRef, 0, 2, module[:half], checksum)))

	startRound(t, ps, fitInstruction(1))

	require.Eventually(t, func() bool {
		return len(ps.publishedTo(agentUpdatesTopic)) == 1
	}, agentWait, agentInterval)

	assert.Equal(t, module, rt.lastModule())
}

func TestChunkChecksumMismatch(t *testing.T) {
	cfg := validConfig()
	cfg.ModuleFile = ""
	cfg.ModuleRef = "registry.example.com/models/mnist:v1"
	_, ps := newAgent(t, cfg, &fakeRuntime{})

	bogus := strings.Repeat("ab", 32)
	err := ps.deliver(agentRegistryTopic, chunkMsg(cfg.ModuleRef, 0, 1, []byte("tampered"), bogus))
	assert.ErrorContains(t, err, "checksum mismatch")
}

func TestChunkTotalMismatch(t *testing.T) {
	cfg := validConfig()
	cfg.ModuleFile = ""
	cfg.ModuleRef = "registry.example.com/models/mnist:v1"
	_, ps := newAgent(t, cfg, &fakeRuntime{})

	require.NoError(t, ps.deliver(agentRegistryTopic, chunkMsg(cfg.ModuleRef, 0, 3, []byte("first"), "")))
	err := ps.deliver(agentRegistryTopic, chunkMsg(cfg.ModuleRef, 1, 2, []byte("second"), ""))
	assert.ErrorContains(t, err, "total_chunks mismatch")
}

func TestChunksForOtherModulesIgnored(t *testing.T) {
	cfg := validConfig()
	cfg.ModuleFile = ""
	cfg.ModuleRef = "registry.example.com/models/mnist:v1"
	_, ps := newAgent(t, cfg, &fakeRuntime{})

	err := ps.deliver(agentRegistryTopic, chunkMsg("registry.example.com/models/other:v2", 0, 1, []byte("data"), ""))
	assert.NoError(t, err)
}
