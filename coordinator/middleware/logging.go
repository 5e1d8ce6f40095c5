package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/absmach/flock/coordinator"
	"github.com/absmach/flock/session"
	"github.com/absmach/flock/trainer"
)

var _ coordinator.Service = (*loggingMiddleware)(nil)

type loggingMiddleware struct {
	logger *slog.Logger
	svc    coordinator.Service
}

func Logging(logger *slog.Logger, svc coordinator.Service) coordinator.Service {
	return &loggingMiddleware{logger, svc}
}

func (lm *loggingMiddleware) CreateSession(ctx context.Context, s session.Session) (resp session.Session, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("session",
				slog.String("id", resp.ID),
				slog.String("name", resp.Name),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Create session failed", args...)

			return
		}
		lm.logger.Info("Create session completed successfully", args...)
	}(time.Now())

	return lm.svc.CreateSession(ctx, s)
}

func (lm *loggingMiddleware) GetSession(ctx context.Context, id string) (resp session.Session, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("session",
				slog.String("id", id),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get session failed", args...)

			return
		}
		lm.logger.Info("Get session completed successfully", args...)
	}(time.Now())

	return lm.svc.GetSession(ctx, id)
}

func (lm *loggingMiddleware) ListSessions(ctx context.Context, offset, limit uint64) (resp session.SessionPage, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("page",
				slog.Uint64("offset", offset),
				slog.Uint64("limit", limit),
				slog.Uint64("total", resp.Total),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("List sessions failed", args...)

			return
		}
		lm.logger.Info("List sessions completed successfully", args...)
	}(time.Now())

	return lm.svc.ListSessions(ctx, offset, limit)
}

func (lm *loggingMiddleware) UpdateSession(ctx context.Context, s session.Session) (resp session.Session, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("session",
				slog.String("id", s.ID),
				slog.String("name", resp.Name),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Update session failed", args...)

			return
		}
		lm.logger.Info("Update session completed successfully", args...)
	}(time.Now())

	return lm.svc.UpdateSession(ctx, s)
}

func (lm *loggingMiddleware) DeleteSession(ctx context.Context, id string) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("session",
				slog.String("id", id),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Delete session failed", args...)

			return
		}
		lm.logger.Info("Delete session completed successfully", args...)
	}(time.Now())

	return lm.svc.DeleteSession(ctx, id)
}

func (lm *loggingMiddleware) StartSession(ctx context.Context, id string) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("session",
				slog.String("id", id),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Start session failed", args...)

			return
		}
		lm.logger.Info("Start session completed successfully", args...)
	}(time.Now())

	return lm.svc.StartSession(ctx, id)
}

func (lm *loggingMiddleware) CancelSession(ctx context.Context, id string) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("session",
				slog.String("id", id),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Cancel session failed", args...)

			return
		}
		lm.logger.Info("Cancel session completed successfully", args...)
	}(time.Now())

	return lm.svc.CancelSession(ctx, id)
}

func (lm *loggingMiddleware) GetRound(ctx context.Context, sessionID string, number uint64) (resp session.Round, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("round",
				slog.String("session_id", sessionID),
				slog.Uint64("number", number),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get round failed", args...)

			return
		}
		lm.logger.Info("Get round completed successfully", args...)
	}(time.Now())

	return lm.svc.GetRound(ctx, sessionID, number)
}

func (lm *loggingMiddleware) ListRounds(ctx context.Context, sessionID string, offset, limit uint64) (resp session.RoundPage, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("page",
				slog.String("session_id", sessionID),
				slog.Uint64("offset", offset),
				slog.Uint64("limit", limit),
				slog.Uint64("total", resp.Total),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("List rounds failed", args...)

			return
		}
		lm.logger.Info("List rounds completed successfully", args...)
	}(time.Now())

	return lm.svc.ListRounds(ctx, sessionID, offset, limit)
}

func (lm *loggingMiddleware) GetModelVersion(ctx context.Context, id string) (resp session.ModelVersion, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("model",
				slog.String("id", id),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get model version failed", args...)

			return
		}
		lm.logger.Info("Get model version completed successfully", args...)
	}(time.Now())

	return lm.svc.GetModelVersion(ctx, id)
}

func (lm *loggingMiddleware) ListModelVersions(ctx context.Context, sessionID string, offset, limit uint64) (resp session.ModelVersionPage, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("page",
				slog.String("session_id", sessionID),
				slog.Uint64("offset", offset),
				slog.Uint64("limit", limit),
				slog.Uint64("total", resp.Total),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("List model versions failed", args...)

			return
		}
		lm.logger.Info("List model versions completed successfully", args...)
	}(time.Now())

	return lm.svc.ListModelVersions(ctx, sessionID, offset, limit)
}

func (lm *loggingMiddleware) DeployModelVersion(ctx context.Context, sessionID, id string) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("model",
				slog.String("session_id", sessionID),
				slog.String("id", id),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Deploy model version failed", args...)

			return
		}
		lm.logger.Info("Deploy model version completed successfully", args...)
	}(time.Now())

	return lm.svc.DeployModelVersion(ctx, sessionID, id)
}

func (lm *loggingMiddleware) GetDeployedModel(ctx context.Context, sessionID string) (resp session.ModelVersion, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("model",
				slog.String("session_id", sessionID),
				slog.String("id", resp.ID),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get deployed model failed", args...)

			return
		}
		lm.logger.Info("Get deployed model completed successfully", args...)
	}(time.Now())

	return lm.svc.GetDeployedModel(ctx, sessionID)
}

func (lm *loggingMiddleware) GetTrainer(ctx context.Context, id string) (resp trainer.Trainer, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("trainer",
				slog.String("id", id),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get trainer failed", args...)

			return
		}
		lm.logger.Info("Get trainer completed successfully", args...)
	}(time.Now())

	return lm.svc.GetTrainer(ctx, id)
}

func (lm *loggingMiddleware) ListTrainers(ctx context.Context, offset, limit uint64) (resp trainer.TrainerPage, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("page",
				slog.Uint64("offset", offset),
				slog.Uint64("limit", limit),
				slog.Uint64("total", resp.Total),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("List trainers failed", args...)

			return
		}
		lm.logger.Info("List trainers completed successfully", args...)
	}(time.Now())

	return lm.svc.ListTrainers(ctx, offset, limit)
}

func (lm *loggingMiddleware) DeleteTrainer(ctx context.Context, id string) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("trainer",
				slog.String("id", id),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Delete trainer failed", args...)

			return
		}
		lm.logger.Info("Delete trainer completed successfully", args...)
	}(time.Now())

	return lm.svc.DeleteTrainer(ctx, id)
}

func (lm *loggingMiddleware) SubmitUpdate(ctx context.Context, u coordinator.TrainerUpdate) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("update",
				slog.String("session_id", u.SessionID),
				slog.String("trainer_id", u.TrainerID),
				slog.Uint64("round", u.Round),
				slog.String("phase", u.Phase),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Submit update failed", args...)

			return
		}
		lm.logger.Info("Submit update completed successfully", args...)
	}(time.Now())

	return lm.svc.SubmitUpdate(ctx, u)
}

func (lm *loggingMiddleware) SubmitUpdateCBOR(ctx context.Context, payload []byte) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Int("payload_size", len(payload)),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Submit CBOR update failed", args...)

			return
		}
		lm.logger.Info("Submit CBOR update completed successfully", args...)
	}(time.Now())

	return lm.svc.SubmitUpdateCBOR(ctx, payload)
}

func (lm *loggingMiddleware) Subscribe(ctx context.Context) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Subscribe failed", args...)

			return
		}
		lm.logger.Info("Subscribe completed successfully", args...)
	}(time.Now())

	return lm.svc.Subscribe(ctx)
}

func (lm *loggingMiddleware) Shutdown(ctx context.Context) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Shutdown failed", args...)

			return
		}
		lm.logger.Info("Shutdown completed successfully", args...)
	}(time.Now())

	return lm.svc.Shutdown(ctx)
}

func (lm *loggingMiddleware) RecoverInterruptedSessions(ctx context.Context) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Recover interrupted sessions failed", args...)

			return
		}
		lm.logger.Info("Recover interrupted sessions completed successfully", args...)
	}(time.Now())

	return lm.svc.RecoverInterruptedSessions(ctx)
}
