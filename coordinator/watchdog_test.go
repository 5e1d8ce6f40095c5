package coordinator_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/absmach/flock/coordinator"
	"github.com/absmach/flock/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerStartsDueSessions(t *testing.T) {
	svc, ps, repos := newTestService(t)
	ctx := context.Background()

	registerTrainer(t, ps, "trainer-1", 100)
	registerTrainer(t, ps, "trainer-2", 300)

	due, err := svc.CreateSession(ctx, session.Session{
		Name:    "due",
		Config:  testConfig(1),
		StartAt: time.Now().Add(-time.Minute),
	})
	require.NoError(t, err)

	future, err := svc.CreateSession(ctx, session.Session{
		Name:    "future",
		Config:  testConfig(1),
		StartAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	unscheduled, err := svc.CreateSession(ctx, session.Session{
		Name:   "unscheduled",
		Config: testConfig(1),
	})
	require.NoError(t, err)

	sched := coordinator.NewScheduler(repos.Sessions, svc, slog.Default())
	require.NoError(t, sched.Start(ctx))
	defer sched.Stop()

	// The initial sweep runs before Start returns.
	got, err := svc.GetSession(ctx, due.ID)
	require.NoError(t, err)
	assert.Equal(t, session.Running, got.State)

	got, err = svc.GetSession(ctx, future.ID)
	require.NoError(t, err)
	assert.Equal(t, session.Pending, got.State)

	got, err = svc.GetSession(ctx, unscheduled.ID)
	require.NoError(t, err)
	assert.Equal(t, session.Pending, got.State)

	nextInstruction(t, ps)
	require.NoError(t, svc.CancelSession(ctx, due.ID))
}
