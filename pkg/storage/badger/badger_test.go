package badger_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/absmach/flock/pkg/storage/badger"
	"github.com/absmach/flock/pkg/storage/testutil"
	"github.com/absmach/flock/session"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testDB    *badger.Database
	invalidID = "invalid-id-that-does-not-exist"
)

func TestMain(m *testing.M) {
	tmpDir := os.TempDir()
	dbPath := filepath.Join(tmpDir, "badger_test_"+uuid.NewString())

	var err error
	testDB, err = badger.NewDatabase(dbPath)
	if err != nil {
		panic(err)
	}

	code := m.Run()

	testDB.Close()
	os.RemoveAll(dbPath)

	os.Exit(code)
}

func TestSessionRepository_CRUD(t *testing.T) {
	repo := badger.NewSessionRepository(testDB)
	ctx := context.Background()

	testSession := testutil.TestSession(uuid.NewString())

	created, err := repo.Create(ctx, testSession)
	require.Nil(t, err)
	assert.Equal(t, testSession.ID, created.ID)
	defer repo.Delete(ctx, testSession.ID)

	retrieved, err := repo.Get(ctx, testSession.ID)
	require.Nil(t, err)
	assert.Equal(t, testSession.Name, retrieved.Name)
	assert.Equal(t, testSession.Config, retrieved.Config)
	assert.Equal(t, testSession.Parameters, retrieved.Parameters)

	_, err = repo.Get(ctx, invalidID)
	assert.Equal(t, badger.ErrSessionNotFound, err)

	retrieved.State = session.Running
	retrieved.CurrentRound = 1
	retrieved.UpdatedAt = time.Now()
	err = repo.Update(ctx, retrieved)
	require.Nil(t, err)

	updated, err := repo.Get(ctx, testSession.ID)
	require.Nil(t, err)
	assert.Equal(t, session.Running, updated.State)
	assert.Equal(t, uint64(1), updated.CurrentRound)
}

func TestSessionRepository_ListByState(t *testing.T) {
	repo := badger.NewSessionRepository(testDB)
	ctx := context.Background()

	ids := make([]string, 0)
	for i := 0; i < 3; i++ {
		s := testutil.TestSession(uuid.NewString())
		if i == 0 {
			s.State = session.Running
		}
		_, err := repo.Create(ctx, s)
		require.Nil(t, err)
		ids = append(ids, s.ID)
	}
	defer func() {
		for _, id := range ids {
			repo.Delete(ctx, id)
		}
	}()

	running, total, err := repo.ListByState(ctx, session.Running, 0, 10)
	assert.Nil(t, err)
	assert.Equal(t, uint64(1), total)
	require.Equal(t, 1, len(running))
	assert.Equal(t, ids[0], running[0].ID)
}

func TestRoundRepository_CRUD(t *testing.T) {
	repo := badger.NewRoundRepository(testDB)
	ctx := context.Background()

	sessionID := uuid.NewString()
	testRound := testutil.TestRound(sessionID, 1)

	created, err := repo.Create(ctx, testRound)
	require.Nil(t, err)
	assert.Equal(t, testRound.Number, created.Number)
	defer repo.Delete(ctx, sessionID, 1)

	retrieved, err := repo.Get(ctx, sessionID, 1)
	require.Nil(t, err)
	assert.Equal(t, testRound.Metrics, retrieved.Metrics)

	_, err = repo.Get(ctx, sessionID, 99)
	assert.Equal(t, badger.ErrRoundNotFound, err)

	retrieved.Metrics[session.MetricEvaluation] = map[string]any{session.MetricLoss: 0.21}
	retrieved.UpdatedAt = time.Now()
	err = repo.Update(ctx, retrieved)
	require.Nil(t, err)

	updated, err := repo.Get(ctx, sessionID, 1)
	require.Nil(t, err)
	assert.Contains(t, updated.Metrics, session.MetricEvaluation)
}

func TestRoundRepository_ListBySession(t *testing.T) {
	repo := badger.NewRoundRepository(testDB)
	ctx := context.Background()

	sessionID := uuid.NewString()
	otherID := uuid.NewString()

	for i := uint64(1); i <= 3; i++ {
		_, err := repo.Create(ctx, testutil.TestRound(sessionID, i))
		require.Nil(t, err)
	}
	_, err := repo.Create(ctx, testutil.TestRound(otherID, 1))
	require.Nil(t, err)
	defer func() {
		for i := uint64(1); i <= 3; i++ {
			repo.Delete(ctx, sessionID, i)
		}
		repo.Delete(ctx, otherID, 1)
	}()

	rounds, total, err := repo.ListBySession(ctx, sessionID, 0, 10)
	assert.Nil(t, err)
	assert.Equal(t, uint64(3), total)
	require.Equal(t, 3, len(rounds))
	for i, rnd := range rounds {
		assert.Equal(t, sessionID, rnd.SessionID)
		assert.Equal(t, uint64(i+1), rnd.Number)
	}
}

func TestModelRepository_Deploy(t *testing.T) {
	repo := badger.NewModelRepository(testDB)
	ctx := context.Background()

	sessionID := uuid.NewString()
	v1 := testutil.TestModelVersion(uuid.NewString(), sessionID, 1)
	v2 := testutil.TestModelVersion(uuid.NewString(), sessionID, 2)

	_, err := repo.Create(ctx, v1)
	require.Nil(t, err)
	defer repo.Delete(ctx, v1.ID)
	_, err = repo.Create(ctx, v2)
	require.Nil(t, err)
	defer repo.Delete(ctx, v2.ID)

	_, err = repo.GetDeployed(ctx, sessionID)
	assert.Equal(t, badger.ErrModelNotFound, err)

	err = repo.Deploy(ctx, sessionID, v1.ID)
	require.Nil(t, err)

	deployed, err := repo.GetDeployed(ctx, sessionID)
	require.Nil(t, err)
	assert.Equal(t, v1.ID, deployed.ID)

	err = repo.Deploy(ctx, sessionID, v2.ID)
	require.Nil(t, err)

	deployed, err = repo.GetDeployed(ctx, sessionID)
	require.Nil(t, err)
	assert.Equal(t, v2.ID, deployed.ID)

	previous, err := repo.Get(ctx, v1.ID)
	require.Nil(t, err)
	assert.False(t, previous.Deployed)

	err = repo.Deploy(ctx, sessionID, invalidID)
	assert.Equal(t, badger.ErrModelNotFound, err)
}

func TestTrainerRepository_CRUD(t *testing.T) {
	repo := badger.NewTrainerRepository(testDB)
	ctx := context.Background()

	testTrainer := testutil.TestTrainer(uuid.NewString())

	err := repo.Create(ctx, testTrainer)
	require.Nil(t, err)
	defer repo.Delete(ctx, testTrainer.ID)

	retrieved, err := repo.Get(ctx, testTrainer.ID)
	require.Nil(t, err)
	assert.Equal(t, testTrainer.Name, retrieved.Name)
	assert.Equal(t, testTrainer.NumSamples, retrieved.NumSamples)

	_, err = repo.Get(ctx, invalidID)
	assert.Equal(t, badger.ErrTrainerNotFound, err)

	retrieved.RoundCount = 4
	retrieved.Alive = false
	err = repo.Update(ctx, retrieved)
	require.Nil(t, err)

	updated, err := repo.Get(ctx, testTrainer.ID)
	require.Nil(t, err)
	assert.Equal(t, uint64(4), updated.RoundCount)
	assert.False(t, updated.Alive)

	trainers, total, err := repo.List(ctx, 0, 10)
	assert.Nil(t, err)
	assert.GreaterOrEqual(t, total, uint64(1))
	assert.NotEmpty(t, trainers)
}
