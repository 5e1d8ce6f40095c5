package sqlite_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/absmach/flock/pkg/storage/sqlite"
	"github.com/absmach/flock/pkg/storage/testutil"
	"github.com/absmach/flock/session"
	"github.com/absmach/flock/trainer"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testDB    *sqlite.Database
	invalidID = "invalid-id-that-does-not-exist"
)

func TestMain(m *testing.M) {
	tmpDir := os.TempDir()
	dbPath := filepath.Join(tmpDir, "test_"+uuid.NewString()+".db")

	var err error
	testDB, err = sqlite.NewDatabase(dbPath)
	if err != nil {
		panic(err)
	}

	code := m.Run()

	testDB.Close()
	os.Remove(dbPath)

	os.Exit(code)
}

func TestSessionRepository_Create(t *testing.T) {
	repo := sqlite.NewSessionRepository(testDB)

	cases := []struct {
		desc    string
		session session.Session
		err     error
	}{
		{
			desc:    "create new session successfully",
			session: testutil.TestSession(uuid.NewString()),
			err:     nil,
		},
		{
			desc: "create session with empty name",
			session: func() session.Session {
				s := testutil.TestSession(uuid.NewString())
				s.Name = ""
				return s
			}(),
			err: nil,
		},
		{
			desc: "create session with nil parameters",
			session: func() session.Session {
				s := testutil.TestSession(uuid.NewString())
				s.Parameters = nil
				return s
			}(),
			err: nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			ctx := context.Background()
			created, err := repo.Create(ctx, tc.session)
			assert.Equal(t, tc.err, err, fmt.Sprintf("%s: expected error %v, got %v", tc.desc, tc.err, err))
			if err == nil {
				assert.Equal(t, tc.session.ID, created.ID)
				assert.Equal(t, tc.session.Name, created.Name)
				assert.Equal(t, tc.session.State, created.State)

				repo.Delete(ctx, tc.session.ID)
			}
		})
	}
}

func TestSessionRepository_Get(t *testing.T) {
	repo := sqlite.NewSessionRepository(testDB)
	ctx := context.Background()

	testSession := testutil.TestSession(uuid.NewString())
	_, err := repo.Create(ctx, testSession)
	require.Nil(t, err)
	defer repo.Delete(ctx, testSession.ID)

	cases := []struct {
		desc      string
		sessionID string
		err       error
	}{
		{
			desc:      "get existing session",
			sessionID: testSession.ID,
			err:       nil,
		},
		{
			desc:      "get non-existing session",
			sessionID: invalidID,
			err:       sqlite.ErrSessionNotFound,
		},
		{
			desc:      "get with empty ID",
			sessionID: "",
			err:       sqlite.ErrSessionNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			retrieved, err := repo.Get(ctx, tc.sessionID)
			assert.Equal(t, tc.err, err, fmt.Sprintf("%s: expected error %v, got %v", tc.desc, tc.err, err))
			if err == nil {
				assert.Equal(t, testSession.ID, retrieved.ID)
				assert.Equal(t, testSession.Name, retrieved.Name)
				assert.Equal(t, testSession.Config, retrieved.Config)
				assert.Equal(t, testSession.Parameters, retrieved.Parameters)
			}
		})
	}
}

func TestSessionRepository_Update(t *testing.T) {
	repo := sqlite.NewSessionRepository(testDB)
	ctx := context.Background()

	testSession := testutil.TestSession(uuid.NewString())
	_, err := repo.Create(ctx, testSession)
	require.Nil(t, err)
	defer repo.Delete(ctx, testSession.ID)

	cases := []struct {
		desc    string
		session session.Session
		err     error
	}{
		{
			desc: "update session name",
			session: func() session.Session {
				s := testSession
				s.Name = "updated-name"
				s.UpdatedAt = time.Now()
				return s
			}(),
			err: nil,
		},
		{
			desc: "update session state and round counters",
			session: func() session.Session {
				s := testSession
				s.State = session.Running
				s.CurrentRound = 2
				s.ModelVersion = 2
				s.UpdatedAt = time.Now()
				return s
			}(),
			err: nil,
		},
		{
			desc: "update non-existing session",
			session: func() session.Session {
				s := testutil.TestSession(invalidID)
				s.UpdatedAt = time.Now()
				return s
			}(),
			err: nil, // SQLite doesn't return error for non-existing updates
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			err := repo.Update(ctx, tc.session)
			assert.Equal(t, tc.err, err, fmt.Sprintf("%s: expected error %v, got %v", tc.desc, tc.err, err))
			if err == nil && tc.session.ID == testSession.ID {
				retrieved, err := repo.Get(ctx, tc.session.ID)
				require.Nil(t, err)
				assert.Equal(t, tc.session.Name, retrieved.Name)
				assert.Equal(t, tc.session.State, retrieved.State)
				assert.Equal(t, tc.session.CurrentRound, retrieved.CurrentRound)
			}
		})
	}
}

func TestSessionRepository_List(t *testing.T) {
	repo := sqlite.NewSessionRepository(testDB)
	ctx := context.Background()

	testDB.ExecContext(ctx, "DELETE FROM sessions")

	numSessions := 5
	for i := 0; i < numSessions; i++ {
		s := testutil.TestSession(uuid.NewString())
		_, err := repo.Create(ctx, s)
		require.Nil(t, err)
	}

	cases := []struct {
		desc        string
		offset      uint64
		limit       uint64
		expectedLen int
	}{
		{
			desc:        "list all sessions",
			offset:      0,
			limit:       10,
			expectedLen: numSessions,
		},
		{
			desc:        "list with limit",
			offset:      0,
			limit:       3,
			expectedLen: 3,
		},
		{
			desc:        "list with offset",
			offset:      2,
			limit:       10,
			expectedLen: 3,
		},
		{
			desc:        "list with offset out of range",
			offset:      100,
			limit:       10,
			expectedLen: 0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			sessions, total, err := repo.List(ctx, tc.offset, tc.limit)
			assert.Nil(t, err)
			assert.Equal(t, uint64(numSessions), total)
			assert.Equal(t, tc.expectedLen, len(sessions))
		})
	}

	testDB.ExecContext(ctx, "DELETE FROM sessions")
}

func TestSessionRepository_ListByState(t *testing.T) {
	repo := sqlite.NewSessionRepository(testDB)
	ctx := context.Background()

	testDB.ExecContext(ctx, "DELETE FROM sessions")

	for i := 0; i < 3; i++ {
		s := testutil.TestSession(uuid.NewString())
		_, err := repo.Create(ctx, s)
		require.Nil(t, err)
	}
	for i := 0; i < 2; i++ {
		s := testutil.TestSession(uuid.NewString())
		s.State = session.Running
		_, err := repo.Create(ctx, s)
		require.Nil(t, err)
	}

	cases := []struct {
		desc        string
		state       session.State
		expectedLen int
	}{
		{
			desc:        "list pending sessions",
			state:       session.Pending,
			expectedLen: 3,
		},
		{
			desc:        "list running sessions",
			state:       session.Running,
			expectedLen: 2,
		},
		{
			desc:        "list completed sessions",
			state:       session.Completed,
			expectedLen: 0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			sessions, total, err := repo.ListByState(ctx, tc.state, 0, 10)
			assert.Nil(t, err)
			assert.Equal(t, uint64(tc.expectedLen), total)
			assert.Equal(t, tc.expectedLen, len(sessions))
			for _, s := range sessions {
				assert.Equal(t, tc.state, s.State)
			}
		})
	}

	testDB.ExecContext(ctx, "DELETE FROM sessions")
}

func TestSessionRepository_Delete(t *testing.T) {
	repo := sqlite.NewSessionRepository(testDB)
	ctx := context.Background()

	testSession := testutil.TestSession(uuid.NewString())
	_, err := repo.Create(ctx, testSession)
	require.Nil(t, err)

	cases := []struct {
		desc      string
		sessionID string
		err       error
	}{
		{
			desc:      "delete existing session",
			sessionID: testSession.ID,
			err:       nil,
		},
		{
			desc:      "delete non-existing session",
			sessionID: invalidID,
			err:       nil, // SQLite doesn't return error for non-existing deletes
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			err := repo.Delete(ctx, tc.sessionID)
			assert.Equal(t, tc.err, err)
			if err == nil && tc.sessionID == testSession.ID {
				_, err := repo.Get(ctx, tc.sessionID)
				assert.Equal(t, sqlite.ErrSessionNotFound, err)
			}
		})
	}
}

func TestRoundRepository_Create(t *testing.T) {
	sessionRepo := sqlite.NewSessionRepository(testDB)
	repo := sqlite.NewRoundRepository(testDB)
	ctx := context.Background()

	testSession := testutil.TestSession(uuid.NewString())
	_, err := sessionRepo.Create(ctx, testSession)
	require.Nil(t, err)
	defer sessionRepo.Delete(ctx, testSession.ID)

	cases := []struct {
		desc  string
		round session.Round
		err   error
	}{
		{
			desc:  "create new round successfully",
			round: testutil.TestRound(testSession.ID, 1),
			err:   nil,
		},
		{
			desc: "create round with nil metrics",
			round: func() session.Round {
				r := testutil.TestRound(testSession.ID, 2)
				r.Metrics = nil
				return r
			}(),
			err: nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			created, err := repo.Create(ctx, tc.round)
			assert.Equal(t, tc.err, err, fmt.Sprintf("%s: expected error %v, got %v", tc.desc, tc.err, err))
			if err == nil {
				assert.Equal(t, tc.round.SessionID, created.SessionID)
				assert.Equal(t, tc.round.Number, created.Number)

				repo.Delete(ctx, tc.round.SessionID, tc.round.Number)
			}
		})
	}

	t.Run("create duplicate round", func(t *testing.T) {
		round := testutil.TestRound(testSession.ID, 3)
		_, err := repo.Create(ctx, round)
		require.Nil(t, err)
		defer repo.Delete(ctx, round.SessionID, round.Number)

		_, err = repo.Create(ctx, round)
		assert.ErrorIs(t, err, sqlite.ErrCreate)
	})
}

func TestRoundRepository_Get(t *testing.T) {
	sessionRepo := sqlite.NewSessionRepository(testDB)
	repo := sqlite.NewRoundRepository(testDB)
	ctx := context.Background()

	testSession := testutil.TestSession(uuid.NewString())
	_, err := sessionRepo.Create(ctx, testSession)
	require.Nil(t, err)
	defer sessionRepo.Delete(ctx, testSession.ID)

	testRound := testutil.TestRound(testSession.ID, 1)
	_, err = repo.Create(ctx, testRound)
	require.Nil(t, err)
	defer repo.Delete(ctx, testRound.SessionID, testRound.Number)

	cases := []struct {
		desc      string
		sessionID string
		number    uint64
		err       error
	}{
		{
			desc:      "get existing round",
			sessionID: testSession.ID,
			number:    1,
			err:       nil,
		},
		{
			desc:      "get round for non-existing session",
			sessionID: invalidID,
			number:    1,
			err:       sqlite.ErrRoundNotFound,
		},
		{
			desc:      "get non-existing round number",
			sessionID: testSession.ID,
			number:    99,
			err:       sqlite.ErrRoundNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			retrieved, err := repo.Get(ctx, tc.sessionID, tc.number)
			assert.Equal(t, tc.err, err, fmt.Sprintf("%s: expected error %v, got %v", tc.desc, tc.err, err))
			if err == nil {
				assert.Equal(t, testRound.SessionID, retrieved.SessionID)
				assert.Equal(t, testRound.Number, retrieved.Number)
				assert.Equal(t, testRound.Metrics, retrieved.Metrics)
			}
		})
	}
}

func TestRoundRepository_Update(t *testing.T) {
	sessionRepo := sqlite.NewSessionRepository(testDB)
	repo := sqlite.NewRoundRepository(testDB)
	ctx := context.Background()

	testSession := testutil.TestSession(uuid.NewString())
	_, err := sessionRepo.Create(ctx, testSession)
	require.Nil(t, err)
	defer sessionRepo.Delete(ctx, testSession.ID)

	testRound := testutil.TestRound(testSession.ID, 1)
	_, err = repo.Create(ctx, testRound)
	require.Nil(t, err)
	defer repo.Delete(ctx, testRound.SessionID, testRound.Number)

	testRound.Metrics[session.MetricEvaluation] = map[string]any{
		session.MetricLoss:    0.37,
		session.MetricMetrics: map[string]any{"accuracy": 0.85},
	}
	testRound.UpdatedAt = time.Now()

	err = repo.Update(ctx, testRound)
	assert.Nil(t, err)

	retrieved, err := repo.Get(ctx, testSession.ID, 1)
	require.Nil(t, err)
	assert.Equal(t, testRound.Metrics, retrieved.Metrics)
}

func TestRoundRepository_ListBySession(t *testing.T) {
	sessionRepo := sqlite.NewSessionRepository(testDB)
	repo := sqlite.NewRoundRepository(testDB)
	ctx := context.Background()

	first := testutil.TestSession(uuid.NewString())
	second := testutil.TestSession(uuid.NewString())
	_, err := sessionRepo.Create(ctx, first)
	require.Nil(t, err)
	defer sessionRepo.Delete(ctx, first.ID)
	_, err = sessionRepo.Create(ctx, second)
	require.Nil(t, err)
	defer sessionRepo.Delete(ctx, second.ID)

	for i := uint64(1); i <= 3; i++ {
		_, err := repo.Create(ctx, testutil.TestRound(first.ID, i))
		require.Nil(t, err)
	}
	_, err = repo.Create(ctx, testutil.TestRound(second.ID, 1))
	require.Nil(t, err)

	defer testDB.ExecContext(ctx, "DELETE FROM rounds")

	rounds, total, err := repo.ListBySession(ctx, first.ID, 0, 10)
	assert.Nil(t, err)
	assert.Equal(t, uint64(3), total)
	require.Equal(t, 3, len(rounds))
	for i, rnd := range rounds {
		assert.Equal(t, first.ID, rnd.SessionID)
		assert.Equal(t, uint64(i+1), rnd.Number)
	}
}

func TestModelRepository_Create(t *testing.T) {
	sessionRepo := sqlite.NewSessionRepository(testDB)
	repo := sqlite.NewModelRepository(testDB)
	ctx := context.Background()

	testSession := testutil.TestSession(uuid.NewString())
	_, err := sessionRepo.Create(ctx, testSession)
	require.Nil(t, err)
	defer sessionRepo.Delete(ctx, testSession.ID)

	cases := []struct {
		desc  string
		model session.ModelVersion
		err   error
	}{
		{
			desc:  "create new model version successfully",
			model: testutil.TestModelVersion(uuid.NewString(), testSession.ID, 1),
			err:   nil,
		},
		{
			desc: "create model version with nil parameters",
			model: func() session.ModelVersion {
				m := testutil.TestModelVersion(uuid.NewString(), testSession.ID, 2)
				m.Parameters = nil
				return m
			}(),
			err: nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			created, err := repo.Create(ctx, tc.model)
			assert.Equal(t, tc.err, err, fmt.Sprintf("%s: expected error %v, got %v", tc.desc, tc.err, err))
			if err == nil {
				assert.Equal(t, tc.model.ID, created.ID)
				assert.Equal(t, tc.model.Version, created.Version)

				repo.Delete(ctx, tc.model.ID)
			}
		})
	}
}

func TestModelRepository_Get(t *testing.T) {
	sessionRepo := sqlite.NewSessionRepository(testDB)
	repo := sqlite.NewModelRepository(testDB)
	ctx := context.Background()

	testSession := testutil.TestSession(uuid.NewString())
	_, err := sessionRepo.Create(ctx, testSession)
	require.Nil(t, err)
	defer sessionRepo.Delete(ctx, testSession.ID)

	testModel := testutil.TestModelVersion(uuid.NewString(), testSession.ID, 1)
	_, err = repo.Create(ctx, testModel)
	require.Nil(t, err)
	defer repo.Delete(ctx, testModel.ID)

	cases := []struct {
		desc    string
		modelID string
		err     error
	}{
		{
			desc:    "get existing model version",
			modelID: testModel.ID,
			err:     nil,
		},
		{
			desc:    "get non-existing model version",
			modelID: invalidID,
			err:     sqlite.ErrModelNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			retrieved, err := repo.Get(ctx, tc.modelID)
			assert.Equal(t, tc.err, err, fmt.Sprintf("%s: expected error %v, got %v", tc.desc, tc.err, err))
			if err == nil {
				assert.Equal(t, testModel.ID, retrieved.ID)
				assert.Equal(t, testModel.Parameters, retrieved.Parameters)
			}
		})
	}
}

func TestModelRepository_Deploy(t *testing.T) {
	sessionRepo := sqlite.NewSessionRepository(testDB)
	repo := sqlite.NewModelRepository(testDB)
	ctx := context.Background()

	testSession := testutil.TestSession(uuid.NewString())
	_, err := sessionRepo.Create(ctx, testSession)
	require.Nil(t, err)
	defer sessionRepo.Delete(ctx, testSession.ID)

	v1 := testutil.TestModelVersion(uuid.NewString(), testSession.ID, 1)
	v2 := testutil.TestModelVersion(uuid.NewString(), testSession.ID, 2)
	_, err = repo.Create(ctx, v1)
	require.Nil(t, err)
	defer repo.Delete(ctx, v1.ID)
	_, err = repo.Create(ctx, v2)
	require.Nil(t, err)
	defer repo.Delete(ctx, v2.ID)

	t.Run("deploy before any version is marked", func(t *testing.T) {
		_, err := repo.GetDeployed(ctx, testSession.ID)
		assert.Equal(t, sqlite.ErrModelNotFound, err)
	})

	t.Run("deploy first version", func(t *testing.T) {
		err := repo.Deploy(ctx, testSession.ID, v1.ID)
		assert.Nil(t, err)

		deployed, err := repo.GetDeployed(ctx, testSession.ID)
		require.Nil(t, err)
		assert.Equal(t, v1.ID, deployed.ID)
	})

	t.Run("deploy second version clears the first", func(t *testing.T) {
		err := repo.Deploy(ctx, testSession.ID, v2.ID)
		assert.Nil(t, err)

		deployed, err := repo.GetDeployed(ctx, testSession.ID)
		require.Nil(t, err)
		assert.Equal(t, v2.ID, deployed.ID)

		previous, err := repo.Get(ctx, v1.ID)
		require.Nil(t, err)
		assert.False(t, previous.Deployed)
	})

	t.Run("deploy non-existing version", func(t *testing.T) {
		err := repo.Deploy(ctx, testSession.ID, invalidID)
		assert.Equal(t, sqlite.ErrModelNotFound, err)
	})
}

func TestModelRepository_ListBySession(t *testing.T) {
	sessionRepo := sqlite.NewSessionRepository(testDB)
	repo := sqlite.NewModelRepository(testDB)
	ctx := context.Background()

	testSession := testutil.TestSession(uuid.NewString())
	_, err := sessionRepo.Create(ctx, testSession)
	require.Nil(t, err)
	defer sessionRepo.Delete(ctx, testSession.ID)

	numModels := 3
	for i := 1; i <= numModels; i++ {
		_, err := repo.Create(ctx, testutil.TestModelVersion(uuid.NewString(), testSession.ID, uint64(i)))
		require.Nil(t, err)
	}
	defer testDB.ExecContext(ctx, "DELETE FROM models")

	models, total, err := repo.ListBySession(ctx, testSession.ID, 0, 10)
	assert.Nil(t, err)
	assert.Equal(t, uint64(numModels), total)
	require.Equal(t, numModels, len(models))
	// Latest version first.
	assert.Equal(t, uint64(numModels), models[0].Version)
}

func TestTrainerRepository_Create(t *testing.T) {
	repo := sqlite.NewTrainerRepository(testDB)

	cases := []struct {
		desc    string
		trainer trainer.Trainer
		err     error
	}{
		{
			desc:    "create new trainer successfully",
			trainer: testutil.TestTrainer(uuid.NewString()),
			err:     nil,
		},
		{
			desc: "create trainer with empty name",
			trainer: func() trainer.Trainer {
				tr := testutil.TestTrainer(uuid.NewString())
				tr.Name = ""
				return tr
			}(),
			err: nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			ctx := context.Background()
			err := repo.Create(ctx, tc.trainer)
			assert.Equal(t, tc.err, err)
			if err == nil {
				repo.Delete(ctx, tc.trainer.ID)
			}
		})
	}
}

func TestTrainerRepository_Get(t *testing.T) {
	repo := sqlite.NewTrainerRepository(testDB)
	ctx := context.Background()

	testTrainer := testutil.TestTrainer(uuid.NewString())
	err := repo.Create(ctx, testTrainer)
	require.Nil(t, err)
	defer repo.Delete(ctx, testTrainer.ID)

	cases := []struct {
		desc      string
		trainerID string
		err       error
	}{
		{
			desc:      "get existing trainer",
			trainerID: testTrainer.ID,
			err:       nil,
		},
		{
			desc:      "get non-existing trainer",
			trainerID: invalidID,
			err:       sqlite.ErrTrainerNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			retrieved, err := repo.Get(ctx, tc.trainerID)
			assert.Equal(t, tc.err, err)
			if err == nil {
				assert.Equal(t, testTrainer.ID, retrieved.ID)
				assert.Equal(t, testTrainer.Name, retrieved.Name)
				assert.Equal(t, testTrainer.NumSamples, retrieved.NumSamples)
			}
		})
	}
}

func TestTrainerRepository_Update(t *testing.T) {
	repo := sqlite.NewTrainerRepository(testDB)
	ctx := context.Background()

	testTrainer := testutil.TestTrainer(uuid.NewString())
	err := repo.Create(ctx, testTrainer)
	require.Nil(t, err)
	defer repo.Delete(ctx, testTrainer.ID)

	cases := []struct {
		desc    string
		trainer trainer.Trainer
		err     error
	}{
		{
			desc: "update trainer round count",
			trainer: func() trainer.Trainer {
				tr := testTrainer
				tr.RoundCount = 10
				return tr
			}(),
			err: nil,
		},
		{
			desc: "update trainer alive status",
			trainer: func() trainer.Trainer {
				tr := testTrainer
				tr.Alive = false
				return tr
			}(),
			err: nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			err := repo.Update(ctx, tc.trainer)
			assert.Equal(t, tc.err, err)
			if err == nil {
				retrieved, err := repo.Get(ctx, tc.trainer.ID)
				require.Nil(t, err)
				assert.Equal(t, tc.trainer.RoundCount, retrieved.RoundCount)
				assert.Equal(t, tc.trainer.Alive, retrieved.Alive)
			}
		})
	}
}

func TestTrainerRepository_List(t *testing.T) {
	repo := sqlite.NewTrainerRepository(testDB)
	ctx := context.Background()

	testDB.ExecContext(ctx, "DELETE FROM trainers")

	numTrainers := 5
	for i := 0; i < numTrainers; i++ {
		tr := testutil.TestTrainer(uuid.NewString())
		err := repo.Create(ctx, tr)
		require.Nil(t, err)
	}

	cases := []struct {
		desc        string
		offset      uint64
		limit       uint64
		expectedLen int
	}{
		{
			desc:        "list all trainers",
			offset:      0,
			limit:       10,
			expectedLen: numTrainers,
		},
		{
			desc:        "list with limit",
			offset:      0,
			limit:       3,
			expectedLen: 3,
		},
		{
			desc:        "list with offset",
			offset:      2,
			limit:       10,
			expectedLen: 3,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			trainers, total, err := repo.List(ctx, tc.offset, tc.limit)
			assert.Nil(t, err)
			assert.Equal(t, uint64(numTrainers), total)
			assert.Equal(t, tc.expectedLen, len(trainers))
		})
	}

	testDB.ExecContext(ctx, "DELETE FROM trainers")
}
