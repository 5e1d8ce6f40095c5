package testutil

import (
	"time"

	"github.com/absmach/flock/pkg/fedavg"
	"github.com/absmach/flock/session"
	"github.com/absmach/flock/trainer"
)

func TestSession(id string) session.Session {
	return session.Session{
		ID:    id,
		Name:  "test-session-" + id,
		State: session.Pending,
		Config: func() fedavg.Config {
			cfg := fedavg.DefaultConfig()
			cfg.Rounds = 3
			return cfg
		}(),
		Parameters: fedavg.Parameters{
			{0.1, 0.2, 0.3},
			{0.4, 0.5},
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func TestRound(sessionID string, number uint64) session.Round {
	return session.Round{
		SessionID: sessionID,
		Number:    number,
		Metrics: map[string]any{
			session.MetricAggregated: map[string]any{"accuracy": 0.82, "loss": 0.41},
			session.MetricClients:    []any{"trainer-1", "trainer-2"},
			session.MetricTimestamp:  time.Now().UTC().Format(time.RFC3339),
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func TestModelVersion(id, sessionID string, version uint64) session.ModelVersion {
	return session.ModelVersion{
		ID:        id,
		SessionID: sessionID,
		Version:   version,
		Round:     version,
		Parameters: fedavg.Parameters{
			{0.01, 0.02},
			{0.03},
		},
		Deployed:  false,
		CreatedAt: time.Now(),
	}
}

func TestTrainer(id string) trainer.Trainer {
	return trainer.Trainer{
		ID:           id,
		Name:         "test-trainer-" + id,
		NumSamples:   128,
		RoundCount:   0,
		Alive:        true,
		AliveHistory: []time.Time{time.Now().Add(-10 * time.Second), time.Now()},
	}
}
