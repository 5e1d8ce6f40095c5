package coordinator_test

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/absmach/flock/coordinator"
	"github.com/absmach/flock/pkg/fedavg"
	"github.com/absmach/flock/pkg/mqtt"
	"github.com/absmach/flock/pkg/selector"
	"github.com/absmach/flock/pkg/storage"
	"github.com/absmach/flock/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testBaseTopic = "m/test-domain/c/test-channel"
	joinTopic     = testBaseTopic + "/control/trainer/create"
	aliveTopic    = testBaseTopic + "/control/trainer/alive"
	updatesTopic  = testBaseTopic + "/fl/rounds/updates"
	startTopic    = testBaseTopic + "/fl/rounds/start"
	stopTopic     = testBaseTopic + "/fl/rounds/stop"

	waitTimeout  = 5 * time.Second
	waitInterval = 10 * time.Millisecond
)

// mockPubSub captures published messages and lets tests push messages
// through the coordinator's subscription handler.
type mockPubSub struct {
	mu           sync.Mutex
	published    map[string][]any
	subscribed   map[string]mqtt.Handler
	instructions chan coordinator.RoundInstruction
}

func newMockPubSub() *mockPubSub {
	return &mockPubSub{
		published:    make(map[string][]any),
		subscribed:   make(map[string]mqtt.Handler),
		instructions: make(chan coordinator.RoundInstruction, 16),
	}
}

func (m *mockPubSub) Publish(ctx context.Context, topic string, msg any) error {
	m.mu.Lock()
	m.published[topic] = append(m.published[topic], msg)
	m.mu.Unlock()

	if instr, ok := msg.(coordinator.RoundInstruction); ok {
		select {
		case m.instructions <- instr:
		default:
		}
	}

	return nil
}

func (m *mockPubSub) Subscribe(ctx context.Context, topic string, handler mqtt.Handler) error {
	m.mu.Lock()
	m.subscribed[topic] = handler
	m.mu.Unlock()

	return nil
}

func (m *mockPubSub) Unsubscribe(ctx context.Context, topic string) error {
	m.mu.Lock()
	delete(m.subscribed, topic)
	m.mu.Unlock()

	return nil
}

func (m *mockPubSub) Disconnect(ctx context.Context) error {
	return nil
}

func (m *mockPubSub) simulateMessage(topic string, msg map[string]any) error {
	m.mu.Lock()
	var handler mqtt.Handler
	for pattern, h := range m.subscribed {
		if matchesTopic(pattern, topic) {
			handler = h

			break
		}
	}
	m.mu.Unlock()

	if handler == nil {
		return fmt.Errorf("no subscription matches topic %s", topic)
	}

	return handler(topic, msg)
}

func (m *mockPubSub) publishedTo(topic string) []any {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]any(nil), m.published[topic]...)
}

func matchesTopic(pattern, topic string) bool {
	pp := strings.Split(pattern, "/")
	tp := strings.Split(topic, "/")
	for i, p := range pp {
		if p == "#" {
			return true
		}
		if i >= len(tp) || (p != "+" && p != tp[i]) {
			return false
		}
	}

	return len(pp) == len(tp)
}

func newTestService(t *testing.T) (coordinator.Service, *mockPubSub, *storage.Repositories) {
	t.Helper()

	repos, err := storage.NewRepositories(storage.Config{Type: "memory"})
	require.NoError(t, err)

	ps := newMockPubSub()
	svc := coordinator.NewService(repos, selector.NewRoundRobin(), ps, "test-domain", "test-channel", slog.Default())
	require.NoError(t, svc.Subscribe(context.Background()))

	return svc, ps, repos
}

func registerTrainer(t *testing.T, ps *mockPubSub, id string, numSamples int64) {
	t.Helper()

	err := ps.simulateMessage(joinTopic, map[string]any{
		"trainer_id":  id,
		"num_samples": float64(numSamples),
	})
	require.NoError(t, err)
}

func nextInstruction(t *testing.T, ps *mockPubSub) coordinator.RoundInstruction {
	t.Helper()

	select {
	case instr := <-ps.instructions:
		return instr
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for a round instruction")
	}

	return coordinator.RoundInstruction{}
}

func waitForState(t *testing.T, svc coordinator.Service, id string, state session.State) session.Session {
	t.Helper()

	assert.Eventually(t, func() bool {
		s, err := svc.GetSession(context.Background(), id)

		return err == nil && s.State == state
	}, waitTimeout, waitInterval, "session never reached state %s", state)

	s, err := svc.GetSession(context.Background(), id)
	require.NoError(t, err)

	return s
}

func testConfig(rounds uint64) fedavg.Config {
	return fedavg.Config{
		Rounds:              rounds,
		FractionFit:         1,
		MinFitClients:       2,
		MinAvailableClients: 2,
		RoundTimeoutSecs:    5,
		AcceptFailures:      true,
		MaxFailedRounds:     3,
		Epochs:              1,
		BatchSize:           16,
		LearningRate:        0.01,
	}
}

func TestSessionRunsToCompletion(t *testing.T) {
	svc, ps, _ := newTestService(t)
	ctx := context.Background()

	registerTrainer(t, ps, "trainer-1", 100)
	registerTrainer(t, ps, "trainer-2", 300)

	s, err := svc.CreateSession(ctx, session.Session{Name: "mnist", Config: testConfig(2)})
	require.NoError(t, err)
	require.NoError(t, svc.StartSession(ctx, s.ID))

	samples := map[string]int64{"trainer-1": 100, "trainer-2": 300}
	layers := map[string]fedavg.Parameters{
		"trainer-1": {{1.0, 2.0}},
		"trainer-2": {{3.0, 4.0}},
	}
	accuracy := map[string]float64{"trainer-1": 0.8, "trainer-2": 0.9}

	for round := uint64(1); round <= 2; round++ {
		instr := nextInstruction(t, ps)
		assert.Equal(t, s.ID, instr.SessionID)
		assert.Equal(t, round, instr.Round)
		assert.Equal(t, coordinator.PhaseFit, instr.Phase)
		assert.Len(t, instr.TrainerIDs, 2)
		assert.Equal(t, uint64(1), instr.Config.Epochs)
		assert.Equal(t, uint64(16), instr.Config.BatchSize)

		for _, id := range instr.TrainerIDs {
			err := svc.SubmitUpdate(ctx, coordinator.TrainerUpdate{
				SessionID:  s.ID,
				Round:      round,
				TrainerID:  id,
				Phase:      coordinator.PhaseFit,
				NumSamples: samples[id],
				Parameters: layers[id],
				Metrics:    map[string]float64{"accuracy": accuracy[id]},
			})
			require.NoError(t, err)
		}
	}

	got := waitForState(t, svc, s.ID, session.Completed)
	assert.Equal(t, uint64(2), got.CurrentRound)
	assert.Equal(t, uint64(2), got.ModelVersion)
	assert.Equal(t, uint64(0), got.FailedRounds)
	require.Len(t, got.Parameters, 1)
	require.Len(t, got.Parameters[0], 2)
	assert.InDelta(t, 2.5, got.Parameters[0][0], 1e-9)
	assert.InDelta(t, 3.5, got.Parameters[0][1], 1e-9)
	assert.False(t, got.FinishTime.IsZero())

	models, err := svc.ListModelVersions(ctx, s.ID, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), models.Total)

	rounds, err := svc.ListRounds(ctx, s.ID, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), rounds.Total)

	r, err := svc.GetRound(ctx, s.ID, 1)
	require.NoError(t, err)
	aggregated, ok := r.Metrics[session.MetricAggregated].(map[string]float64)
	require.True(t, ok)
	assert.InDelta(t, 0.875, aggregated["accuracy"], 1e-9)
	clients, ok := r.Metrics[session.MetricClients].([]string)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"trainer-1", "trainer-2"}, clients)

	tr, err := svc.GetTrainer(ctx, "trainer-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), tr.RoundCount)
}

func TestSessionEvaluatePhase(t *testing.T) {
	svc, ps, _ := newTestService(t)
	ctx := context.Background()

	registerTrainer(t, ps, "trainer-1", 100)
	registerTrainer(t, ps, "trainer-2", 300)

	cfg := testConfig(1)
	cfg.FractionEvaluate = 1
	cfg.MinEvaluateClients = 2

	s, err := svc.CreateSession(ctx, session.Session{Name: "mnist-eval", Config: cfg})
	require.NoError(t, err)
	require.NoError(t, svc.StartSession(ctx, s.ID))

	fit := nextInstruction(t, ps)
	require.Equal(t, coordinator.PhaseFit, fit.Phase)
	for i, id := range fit.TrainerIDs {
		err := svc.SubmitUpdate(ctx, coordinator.TrainerUpdate{
			SessionID:  s.ID,
			Round:      1,
			TrainerID:  id,
			Phase:      coordinator.PhaseFit,
			NumSamples: int64(100 * (i + 1)),
			Parameters: fedavg.Parameters{{float64(i + 1)}},
		})
		require.NoError(t, err)
	}

	eval := nextInstruction(t, ps)
	require.Equal(t, coordinator.PhaseEvaluate, eval.Phase)
	require.Equal(t, uint64(1), eval.Round)
	assert.Len(t, eval.TrainerIDs, 2)
	// The evaluate instruction must carry the freshly aggregated model.
	require.Len(t, eval.Parameters, 1)
	assert.InDelta(t, float64(100*1+200*2)/300, eval.Parameters[0][0], 1e-9)

	losses := map[string]float64{"trainer-1": 0.5, "trainer-2": 0.3}
	for _, id := range eval.TrainerIDs {
		err := svc.SubmitUpdate(ctx, coordinator.TrainerUpdate{
			SessionID:  s.ID,
			Round:      1,
			TrainerID:  id,
			Phase:      coordinator.PhaseEvaluate,
			NumSamples: 100,
			Loss:       losses[id],
		})
		require.NoError(t, err)
	}

	waitForState(t, svc, s.ID, session.Completed)

	r, err := svc.GetRound(ctx, s.ID, 1)
	require.NoError(t, err)
	evaluation, ok := r.Metrics[session.MetricEvaluation].(map[string]any)
	require.True(t, ok)
	loss, ok := evaluation[session.MetricLoss].(float64)
	require.True(t, ok)
	assert.InDelta(t, 0.4, loss, 1e-9)
}

func TestPartialFailureAccepted(t *testing.T) {
	svc, ps, _ := newTestService(t)
	ctx := context.Background()

	registerTrainer(t, ps, "trainer-1", 100)
	registerTrainer(t, ps, "trainer-2", 300)

	s, err := svc.CreateSession(ctx, session.Session{Name: "partial", Config: testConfig(1)})
	require.NoError(t, err)
	require.NoError(t, svc.StartSession(ctx, s.ID))

	instr := nextInstruction(t, ps)
	require.Len(t, instr.TrainerIDs, 2)

	require.NoError(t, svc.SubmitUpdate(ctx, coordinator.TrainerUpdate{
		SessionID:  s.ID,
		Round:      1,
		TrainerID:  instr.TrainerIDs[0],
		Phase:      coordinator.PhaseFit,
		NumSamples: 100,
		Parameters: fedavg.Parameters{{2.0}},
	}))
	require.NoError(t, svc.SubmitUpdate(ctx, coordinator.TrainerUpdate{
		SessionID: s.ID,
		Round:     1,
		TrainerID: instr.TrainerIDs[1],
		Phase:     coordinator.PhaseFit,
		Error:     "out of memory",
	}))

	got := waitForState(t, svc, s.ID, session.Completed)
	assert.Equal(t, uint64(1), got.ModelVersion)
	require.Len(t, got.Parameters, 1)
	assert.InDelta(t, 2.0, got.Parameters[0][0], 1e-9)

	r, err := svc.GetRound(ctx, s.ID, 1)
	require.NoError(t, err)
	clients, ok := r.Metrics[session.MetricClients].([]string)
	require.True(t, ok)
	assert.Equal(t, []string{instr.TrainerIDs[0]}, clients)
}

func TestFailedRoundAdvancesAndRecovers(t *testing.T) {
	svc, ps, _ := newTestService(t)
	ctx := context.Background()

	registerTrainer(t, ps, "trainer-1", 100)
	registerTrainer(t, ps, "trainer-2", 300)

	s, err := svc.CreateSession(ctx, session.Session{Name: "flaky", Config: testConfig(2)})
	require.NoError(t, err)
	require.NoError(t, svc.StartSession(ctx, s.ID))

	first := nextInstruction(t, ps)
	require.Equal(t, uint64(1), first.Round)
	for _, id := range first.TrainerIDs {
		require.NoError(t, svc.SubmitUpdate(ctx, coordinator.TrainerUpdate{
			SessionID: s.ID,
			Round:     1,
			TrainerID: id,
			Phase:     coordinator.PhaseFit,
			Error:     "dataset unavailable",
		}))
	}

	second := nextInstruction(t, ps)
	require.Equal(t, uint64(2), second.Round)
	for _, id := range second.TrainerIDs {
		require.NoError(t, svc.SubmitUpdate(ctx, coordinator.TrainerUpdate{
			SessionID:  s.ID,
			Round:      2,
			TrainerID:  id,
			Phase:      coordinator.PhaseFit,
			NumSamples: 100,
			Parameters: fedavg.Parameters{{1.0}},
		}))
	}

	got := waitForState(t, svc, s.ID, session.Completed)
	assert.Equal(t, uint64(2), got.CurrentRound)
	assert.Equal(t, uint64(1), got.ModelVersion)
	assert.Equal(t, uint64(0), got.FailedRounds)

	// The failed round leaves no ledger record.
	_, err = svc.GetRound(ctx, s.ID, 1)
	assert.ErrorIs(t, err, storage.ErrRoundNotFound)
	_, err = svc.GetRound(ctx, s.ID, 2)
	assert.NoError(t, err)
}

func TestSessionFailsAfterMaxFailedRounds(t *testing.T) {
	svc, ps, _ := newTestService(t)
	ctx := context.Background()

	registerTrainer(t, ps, "trainer-1", 100)
	registerTrainer(t, ps, "trainer-2", 300)

	cfg := testConfig(5)
	cfg.MaxFailedRounds = 2

	s, err := svc.CreateSession(ctx, session.Session{Name: "doomed", Config: cfg})
	require.NoError(t, err)
	require.NoError(t, svc.StartSession(ctx, s.ID))

	for round := uint64(1); round <= 2; round++ {
		instr := nextInstruction(t, ps)
		require.Equal(t, round, instr.Round)
		for _, id := range instr.TrainerIDs {
			require.NoError(t, svc.SubmitUpdate(ctx, coordinator.TrainerUpdate{
				SessionID: s.ID,
				Round:     round,
				TrainerID: id,
				Phase:     coordinator.PhaseFit,
				Error:     "crash",
			}))
		}
	}

	got := waitForState(t, svc, s.ID, session.Failed)
	assert.Equal(t, uint64(2), got.CurrentRound)
	assert.Equal(t, uint64(2), got.FailedRounds)
	assert.Equal(t, uint64(0), got.ModelVersion)
	assert.Contains(t, got.Error, "consecutive failed rounds")
}

func TestRoundTimeout(t *testing.T) {
	svc, ps, _ := newTestService(t)
	ctx := context.Background()

	registerTrainer(t, ps, "trainer-1", 100)
	registerTrainer(t, ps, "trainer-2", 300)

	cfg := testConfig(1)
	cfg.RoundTimeoutSecs = 1
	cfg.MaxFailedRounds = 1

	s, err := svc.CreateSession(ctx, session.Session{Name: "silent", Config: cfg})
	require.NoError(t, err)
	require.NoError(t, svc.StartSession(ctx, s.ID))

	instr := nextInstruction(t, ps)
	require.Equal(t, uint64(1), instr.Round)
	// Nobody replies; the round times out and fails the session.

	got := waitForState(t, svc, s.ID, session.Failed)
	assert.Equal(t, uint64(1), got.CurrentRound)
	assert.Empty(t, got.Parameters)
	assert.Equal(t, uint64(0), got.ModelVersion)
}

func TestCancelRunningSession(t *testing.T) {
	svc, ps, _ := newTestService(t)
	ctx := context.Background()

	registerTrainer(t, ps, "trainer-1", 100)
	registerTrainer(t, ps, "trainer-2", 300)

	s, err := svc.CreateSession(ctx, session.Session{Name: "cancel-me", Config: testConfig(5)})
	require.NoError(t, err)
	require.NoError(t, svc.StartSession(ctx, s.ID))

	instr := nextInstruction(t, ps)
	require.Equal(t, uint64(1), instr.Round)

	require.NoError(t, svc.CancelSession(ctx, s.ID))

	got, err := svc.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, session.Cancelled, got.State)
	assert.False(t, got.FinishTime.IsZero())

	err = svc.SubmitUpdate(ctx, coordinator.TrainerUpdate{
		SessionID:  s.ID,
		Round:      1,
		TrainerID:  "trainer-1",
		Phase:      coordinator.PhaseFit,
		NumSamples: 100,
		Parameters: fedavg.Parameters{{1.0}},
	})
	assert.ErrorIs(t, err, coordinator.ErrNoActiveRound)

	stops := ps.publishedTo(stopTopic)
	require.Len(t, stops, 1)
}

func TestUpdatesOverMQTT(t *testing.T) {
	svc, ps, _ := newTestService(t)
	ctx := context.Background()

	registerTrainer(t, ps, "trainer-1", 100)
	registerTrainer(t, ps, "trainer-2", 300)

	s, err := svc.CreateSession(ctx, session.Session{Name: "wire", Config: testConfig(1)})
	require.NoError(t, err)
	require.NoError(t, svc.StartSession(ctx, s.ID))

	instr := nextInstruction(t, ps)
	for i, id := range instr.TrainerIDs {
		err := ps.simulateMessage(updatesTopic, map[string]any{
			"session_id":  s.ID,
			"round":       float64(1),
			"trainer_id":  id,
			"phase":       "fit",
			"num_samples": float64(100 * (i + 1)),
			"parameters":  [][]float64{{float64(i + 1)}},
		})
		require.NoError(t, err)
	}

	got := waitForState(t, svc, s.ID, session.Completed)
	require.Len(t, got.Parameters, 1)
	assert.InDelta(t, float64(100*1+200*2)/300, got.Parameters[0][0], 1e-9)
}
