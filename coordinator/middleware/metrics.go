package middleware

import (
	"context"
	"time"

	"github.com/absmach/flock/coordinator"
	"github.com/absmach/flock/session"
	"github.com/absmach/flock/trainer"
	"github.com/go-kit/kit/metrics"
)

var _ coordinator.Service = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter metrics.Counter
	latency metrics.Histogram
	svc     coordinator.Service
}

func Metrics(counter metrics.Counter, latency metrics.Histogram, svc coordinator.Service) coordinator.Service {
	return &metricsMiddleware{
		counter: counter,
		latency: latency,
		svc:     svc,
	}
}

func (mm *metricsMiddleware) CreateSession(ctx context.Context, s session.Session) (session.Session, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "create-session").Add(1)
		mm.latency.With("method", "create-session").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.CreateSession(ctx, s)
}

func (mm *metricsMiddleware) GetSession(ctx context.Context, id string) (session.Session, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "get-session").Add(1)
		mm.latency.With("method", "get-session").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.GetSession(ctx, id)
}

func (mm *metricsMiddleware) ListSessions(ctx context.Context, offset, limit uint64) (session.SessionPage, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "list-sessions").Add(1)
		mm.latency.With("method", "list-sessions").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ListSessions(ctx, offset, limit)
}

func (mm *metricsMiddleware) UpdateSession(ctx context.Context, s session.Session) (session.Session, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "update-session").Add(1)
		mm.latency.With("method", "update-session").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.UpdateSession(ctx, s)
}

func (mm *metricsMiddleware) DeleteSession(ctx context.Context, id string) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "delete-session").Add(1)
		mm.latency.With("method", "delete-session").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.DeleteSession(ctx, id)
}

func (mm *metricsMiddleware) StartSession(ctx context.Context, id string) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "start-session").Add(1)
		mm.latency.With("method", "start-session").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.StartSession(ctx, id)
}

func (mm *metricsMiddleware) CancelSession(ctx context.Context, id string) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "cancel-session").Add(1)
		mm.latency.With("method", "cancel-session").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.CancelSession(ctx, id)
}

func (mm *metricsMiddleware) GetRound(ctx context.Context, sessionID string, number uint64) (session.Round, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "get-round").Add(1)
		mm.latency.With("method", "get-round").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.GetRound(ctx, sessionID, number)
}

func (mm *metricsMiddleware) ListRounds(ctx context.Context, sessionID string, offset, limit uint64) (session.RoundPage, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "list-rounds").Add(1)
		mm.latency.With("method", "list-rounds").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ListRounds(ctx, sessionID, offset, limit)
}

func (mm *metricsMiddleware) GetModelVersion(ctx context.Context, id string) (session.ModelVersion, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "get-model-version").Add(1)
		mm.latency.With("method", "get-model-version").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.GetModelVersion(ctx, id)
}

func (mm *metricsMiddleware) ListModelVersions(ctx context.Context, sessionID string, offset, limit uint64) (session.ModelVersionPage, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "list-model-versions").Add(1)
		mm.latency.With("method", "list-model-versions").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ListModelVersions(ctx, sessionID, offset, limit)
}

func (mm *metricsMiddleware) DeployModelVersion(ctx context.Context, sessionID, id string) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "deploy-model-version").Add(1)
		mm.latency.With("method", "deploy-model-version").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.DeployModelVersion(ctx, sessionID, id)
}

func (mm *metricsMiddleware) GetDeployedModel(ctx context.Context, sessionID string) (session.ModelVersion, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "get-deployed-model").Add(1)
		mm.latency.With("method", "get-deployed-model").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.GetDeployedModel(ctx, sessionID)
}

func (mm *metricsMiddleware) GetTrainer(ctx context.Context, id string) (trainer.Trainer, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "get-trainer").Add(1)
		mm.latency.With("method", "get-trainer").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.GetTrainer(ctx, id)
}

func (mm *metricsMiddleware) ListTrainers(ctx context.Context, offset, limit uint64) (trainer.TrainerPage, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "list-trainers").Add(1)
		mm.latency.With("method", "list-trainers").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ListTrainers(ctx, offset, limit)
}

func (mm *metricsMiddleware) DeleteTrainer(ctx context.Context, id string) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "delete-trainer").Add(1)
		mm.latency.With("method", "delete-trainer").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.DeleteTrainer(ctx, id)
}

func (mm *metricsMiddleware) SubmitUpdate(ctx context.Context, u coordinator.TrainerUpdate) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "submit-update").Add(1)
		mm.latency.With("method", "submit-update").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.SubmitUpdate(ctx, u)
}

func (mm *metricsMiddleware) SubmitUpdateCBOR(ctx context.Context, payload []byte) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "submit-update-cbor").Add(1)
		mm.latency.With("method", "submit-update-cbor").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.SubmitUpdateCBOR(ctx, payload)
}

func (mm *metricsMiddleware) Subscribe(ctx context.Context) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "subscribe").Add(1)
		mm.latency.With("method", "subscribe").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Subscribe(ctx)
}

func (mm *metricsMiddleware) Shutdown(ctx context.Context) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "shutdown").Add(1)
		mm.latency.With("method", "shutdown").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Shutdown(ctx)
}

func (mm *metricsMiddleware) RecoverInterruptedSessions(ctx context.Context) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "recover-interrupted-sessions").Add(1)
		mm.latency.With("method", "recover-interrupted-sessions").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.RecoverInterruptedSessions(ctx)
}
