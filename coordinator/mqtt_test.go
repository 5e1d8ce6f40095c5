package coordinator_test

import (
	"context"
	"testing"

	"github.com/absmach/flock/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrainerJoin(t *testing.T) {
	svc, ps, _ := newTestService(t)
	ctx := context.Background()

	err := ps.simulateMessage(joinTopic, map[string]any{
		"trainer_id":  "trainer-1",
		"name":        "edge-1",
		"num_samples": float64(250),
	})
	require.NoError(t, err)

	tr, err := svc.GetTrainer(ctx, "trainer-1")
	require.NoError(t, err)
	assert.Equal(t, "edge-1", tr.Name)
	assert.Equal(t, int64(250), tr.NumSamples)
	assert.True(t, tr.Alive)
	assert.Len(t, tr.AliveHistory, 1)
}

func TestTrainerJoinGeneratesName(t *testing.T) {
	svc, ps, _ := newTestService(t)

	registerTrainer(t, ps, "trainer-1", 100)

	tr, err := svc.GetTrainer(context.Background(), "trainer-1")
	require.NoError(t, err)
	assert.NotEmpty(t, tr.Name)
}

func TestTrainerRejoin(t *testing.T) {
	svc, ps, _ := newTestService(t)
	ctx := context.Background()

	err := ps.simulateMessage(joinTopic, map[string]any{
		"trainer_id":  "trainer-1",
		"name":        "edge-1",
		"num_samples": float64(100),
	})
	require.NoError(t, err)

	// A rejoin without a name keeps the old one and refreshes the rest.
	err = ps.simulateMessage(joinTopic, map[string]any{
		"trainer_id":  "trainer-1",
		"num_samples": float64(400),
	})
	require.NoError(t, err)

	tr, err := svc.GetTrainer(ctx, "trainer-1")
	require.NoError(t, err)
	assert.Equal(t, "edge-1", tr.Name)
	assert.Equal(t, int64(400), tr.NumSamples)
	assert.Len(t, tr.AliveHistory, 2)
}

func TestTrainerJoinInvalid(t *testing.T) {
	_, ps, _ := newTestService(t)

	err := ps.simulateMessage(joinTopic, map[string]any{"num_samples": float64(10)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid trainer_id")

	err = ps.simulateMessage(joinTopic, map[string]any{"trainer_id": ""})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trainer id is empty")
}

func TestHeartbeat(t *testing.T) {
	svc, ps, _ := newTestService(t)
	ctx := context.Background()

	registerTrainer(t, ps, "trainer-1", 100)

	err := ps.simulateMessage(aliveTopic, map[string]any{"trainer_id": "trainer-1"})
	require.NoError(t, err)

	tr, err := svc.GetTrainer(ctx, "trainer-1")
	require.NoError(t, err)
	assert.True(t, tr.Alive)
	assert.Len(t, tr.AliveHistory, 2)
}

func TestHeartbeatRegistersUnknownTrainer(t *testing.T) {
	svc, ps, _ := newTestService(t)

	err := ps.simulateMessage(aliveTopic, map[string]any{"trainer_id": "stray"})
	require.NoError(t, err)

	tr, err := svc.GetTrainer(context.Background(), "stray")
	require.NoError(t, err)
	assert.True(t, tr.Alive)
	assert.NotEmpty(t, tr.Name)
}

func TestHeartbeatHistoryCapped(t *testing.T) {
	svc, ps, _ := newTestService(t)

	registerTrainer(t, ps, "trainer-1", 100)
	for range 12 {
		err := ps.simulateMessage(aliveTopic, map[string]any{"trainer_id": "trainer-1"})
		require.NoError(t, err)
	}

	tr, err := svc.GetTrainer(context.Background(), "trainer-1")
	require.NoError(t, err)
	assert.Len(t, tr.AliveHistory, 10)
}

func TestLastWillMarksTrainerDead(t *testing.T) {
	svc, ps, _ := newTestService(t)
	ctx := context.Background()

	registerTrainer(t, ps, "trainer-1", 100)

	err := ps.simulateMessage(aliveTopic, map[string]any{
		"trainer_id": "trainer-1",
		"status":     "offline",
	})
	require.NoError(t, err)

	tr, err := svc.GetTrainer(ctx, "trainer-1")
	require.NoError(t, err)
	assert.False(t, tr.Alive)
	assert.Empty(t, tr.AliveHistory)
}

func TestLastWillForUnknownTrainerIgnored(t *testing.T) {
	svc, ps, _ := newTestService(t)

	err := ps.simulateMessage(aliveTopic, map[string]any{
		"trainer_id": "ghost",
		"status":     "offline",
	})
	require.NoError(t, err)

	_, err = svc.GetTrainer(context.Background(), "ghost")
	assert.ErrorIs(t, err, storage.ErrTrainerNotFound)
}

func TestUpdateWithoutActiveRoundDropped(t *testing.T) {
	_, ps, _ := newTestService(t)

	registerTrainer(t, ps, "trainer-1", 100)

	err := ps.simulateMessage(updatesTopic, map[string]any{
		"session_id":  "s1",
		"round":       float64(1),
		"trainer_id":  "trainer-1",
		"phase":       "fit",
		"num_samples": float64(100),
		"parameters":  [][]float64{{1.0}},
	})
	assert.NoError(t, err)
}

func TestInvalidUpdateOverMQTT(t *testing.T) {
	_, ps, _ := newTestService(t)

	registerTrainer(t, ps, "trainer-1", 100)

	err := ps.simulateMessage(updatesTopic, map[string]any{
		"session_id":  "s1",
		"round":       float64(1),
		"trainer_id":  "trainer-1",
		"phase":       "predict",
		"num_samples": float64(100),
	})
	assert.Error(t, err)
}
