package middleware

import (
	"context"

	"github.com/absmach/flock/coordinator"
	"github.com/absmach/flock/session"
	"github.com/absmach/flock/trainer"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var _ coordinator.Service = (*tracing)(nil)

type tracing struct {
	tracer trace.Tracer
	svc    coordinator.Service
}

func Tracing(tracer trace.Tracer, svc coordinator.Service) coordinator.Service {
	return &tracing{tracer, svc}
}

func (tm *tracing) CreateSession(ctx context.Context, s session.Session) (session.Session, error) {
	ctx, span := tm.tracer.Start(ctx, "create-session", trace.WithAttributes(
		attribute.String("name", s.Name),
	))
	defer span.End()

	return tm.svc.CreateSession(ctx, s)
}

func (tm *tracing) GetSession(ctx context.Context, id string) (session.Session, error) {
	ctx, span := tm.tracer.Start(ctx, "get-session", trace.WithAttributes(
		attribute.String("id", id),
	))
	defer span.End()

	return tm.svc.GetSession(ctx, id)
}

func (tm *tracing) ListSessions(ctx context.Context, offset, limit uint64) (session.SessionPage, error) {
	ctx, span := tm.tracer.Start(ctx, "list-sessions", trace.WithAttributes(
		attribute.Int64("offset", int64(offset)),
		attribute.Int64("limit", int64(limit)),
	))
	defer span.End()

	return tm.svc.ListSessions(ctx, offset, limit)
}

func (tm *tracing) UpdateSession(ctx context.Context, s session.Session) (session.Session, error) {
	ctx, span := tm.tracer.Start(ctx, "update-session", trace.WithAttributes(
		attribute.String("id", s.ID),
		attribute.String("name", s.Name),
	))
	defer span.End()

	return tm.svc.UpdateSession(ctx, s)
}

func (tm *tracing) DeleteSession(ctx context.Context, id string) error {
	ctx, span := tm.tracer.Start(ctx, "delete-session", trace.WithAttributes(
		attribute.String("id", id),
	))
	defer span.End()

	return tm.svc.DeleteSession(ctx, id)
}

func (tm *tracing) StartSession(ctx context.Context, id string) error {
	ctx, span := tm.tracer.Start(ctx, "start-session", trace.WithAttributes(
		attribute.String("id", id),
	))
	defer span.End()

	return tm.svc.StartSession(ctx, id)
}

func (tm *tracing) CancelSession(ctx context.Context, id string) error {
	ctx, span := tm.tracer.Start(ctx, "cancel-session", trace.WithAttributes(
		attribute.String("id", id),
	))
	defer span.End()

	return tm.svc.CancelSession(ctx, id)
}

func (tm *tracing) GetRound(ctx context.Context, sessionID string, number uint64) (session.Round, error) {
	ctx, span := tm.tracer.Start(ctx, "get-round", trace.WithAttributes(
		attribute.String("session_id", sessionID),
		attribute.Int64("number", int64(number)),
	))
	defer span.End()

	return tm.svc.GetRound(ctx, sessionID, number)
}

func (tm *tracing) ListRounds(ctx context.Context, sessionID string, offset, limit uint64) (session.RoundPage, error) {
	ctx, span := tm.tracer.Start(ctx, "list-rounds", trace.WithAttributes(
		attribute.String("session_id", sessionID),
		attribute.Int64("offset", int64(offset)),
		attribute.Int64("limit", int64(limit)),
	))
	defer span.End()

	return tm.svc.ListRounds(ctx, sessionID, offset, limit)
}

func (tm *tracing) GetModelVersion(ctx context.Context, id string) (session.ModelVersion, error) {
	ctx, span := tm.tracer.Start(ctx, "get-model-version", trace.WithAttributes(
		attribute.String("id", id),
	))
	defer span.End()

	return tm.svc.GetModelVersion(ctx, id)
}

func (tm *tracing) ListModelVersions(ctx context.Context, sessionID string, offset, limit uint64) (session.ModelVersionPage, error) {
	ctx, span := tm.tracer.Start(ctx, "list-model-versions", trace.WithAttributes(
		attribute.String("session_id", sessionID),
		attribute.Int64("offset", int64(offset)),
		attribute.Int64("limit", int64(limit)),
	))
	defer span.End()

	return tm.svc.ListModelVersions(ctx, sessionID, offset, limit)
}

func (tm *tracing) DeployModelVersion(ctx context.Context, sessionID, id string) error {
	ctx, span := tm.tracer.Start(ctx, "deploy-model-version", trace.WithAttributes(
		attribute.String("session_id", sessionID),
		attribute.String("id", id),
	))
	defer span.End()

	return tm.svc.DeployModelVersion(ctx, sessionID, id)
}

func (tm *tracing) GetDeployedModel(ctx context.Context, sessionID string) (session.ModelVersion, error) {
	ctx, span := tm.tracer.Start(ctx, "get-deployed-model", trace.WithAttributes(
		attribute.String("session_id", sessionID),
	))
	defer span.End()

	return tm.svc.GetDeployedModel(ctx, sessionID)
}

func (tm *tracing) GetTrainer(ctx context.Context, id string) (trainer.Trainer, error) {
	ctx, span := tm.tracer.Start(ctx, "get-trainer", trace.WithAttributes(
		attribute.String("id", id),
	))
	defer span.End()

	return tm.svc.GetTrainer(ctx, id)
}

func (tm *tracing) ListTrainers(ctx context.Context, offset, limit uint64) (trainer.TrainerPage, error) {
	ctx, span := tm.tracer.Start(ctx, "list-trainers", trace.WithAttributes(
		attribute.Int64("offset", int64(offset)),
		attribute.Int64("limit", int64(limit)),
	))
	defer span.End()

	return tm.svc.ListTrainers(ctx, offset, limit)
}

func (tm *tracing) DeleteTrainer(ctx context.Context, id string) error {
	ctx, span := tm.tracer.Start(ctx, "delete-trainer", trace.WithAttributes(
		attribute.String("id", id),
	))
	defer span.End()

	return tm.svc.DeleteTrainer(ctx, id)
}

func (tm *tracing) SubmitUpdate(ctx context.Context, u coordinator.TrainerUpdate) error {
	ctx, span := tm.tracer.Start(ctx, "submit-update", trace.WithAttributes(
		attribute.String("session_id", u.SessionID),
		attribute.String("trainer_id", u.TrainerID),
		attribute.Int64("round", int64(u.Round)),
		attribute.String("phase", u.Phase),
	))
	defer span.End()

	return tm.svc.SubmitUpdate(ctx, u)
}

func (tm *tracing) SubmitUpdateCBOR(ctx context.Context, payload []byte) error {
	ctx, span := tm.tracer.Start(ctx, "submit-update-cbor", trace.WithAttributes(
		attribute.Int("payload_size", len(payload)),
	))
	defer span.End()

	return tm.svc.SubmitUpdateCBOR(ctx, payload)
}

func (tm *tracing) Subscribe(ctx context.Context) error {
	ctx, span := tm.tracer.Start(ctx, "subscribe")
	defer span.End()

	return tm.svc.Subscribe(ctx)
}

func (tm *tracing) Shutdown(ctx context.Context) error {
	ctx, span := tm.tracer.Start(ctx, "shutdown")
	defer span.End()

	return tm.svc.Shutdown(ctx)
}

func (tm *tracing) RecoverInterruptedSessions(ctx context.Context) error {
	ctx, span := tm.tracer.Start(ctx, "recover-interrupted-sessions")
	defer span.End()

	return tm.svc.RecoverInterruptedSessions(ctx)
}
