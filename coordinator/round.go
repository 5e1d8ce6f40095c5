package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/absmach/flock/pkg/fedavg"
	"github.com/absmach/flock/session"
	"github.com/absmach/flock/trainer"
	"github.com/google/uuid"
)

const quorumPollInterval = time.Second

// roundRunner is the in-memory handle of one running session. Updates
// submitted for the session are routed into the updates channel; done is
// closed when the round loop exits.
type roundRunner struct {
	sessionID string
	cancel    context.CancelFunc
	updates   chan TrainerUpdate
	done      chan struct{}
}

// runSession drives the round loop until the session completes, fails
// permanently or the context is cancelled. On cancellation the runner
// exits without touching session state; the canceller owns the final
// write.
func (svc *service) runSession(ctx context.Context, runner *roundRunner, s session.Session) {
	defer func() {
		svc.removeRunner(runner.sessionID)
		close(runner.done)
	}()

	strategy := fedavg.NewFedAvg(s.Config, s.ID, svc.recorder, svc.logger)
	logger := svc.logger.With(slog.String("session_id", s.ID), slog.String("session_name", s.Name))

	logger.Info("session started",
		slog.Uint64("rounds", s.Config.Rounds),
		slog.Uint64("min_available_clients", s.Config.MinAvailableClients))

	for round := s.CurrentRound + 1; round <= s.Config.Rounds; round++ {
		if err := svc.runRound(ctx, runner, &s, strategy, round); err != nil {
			if ctx.Err() != nil {
				logger.Info("session interrupted", slog.Uint64("round", round))

				return
			}
			svc.finishSession(ctx, &s, session.Failed, err.Error())

			return
		}

		if s.FailedRounds >= s.Config.MaxFailedRounds {
			svc.finishSession(ctx, &s, session.Failed,
				fmt.Sprintf("%d consecutive failed rounds", s.FailedRounds))

			return
		}
	}

	svc.finishSession(ctx, &s, session.Completed, "")
}

// runRound executes the fit phase and, when configured, the evaluate
// phase of a single round. It returns an error only when the session
// cannot continue; a failed round is absorbed into the session's
// consecutive-failure counter instead.
func (svc *service) runRound(ctx context.Context, runner *roundRunner, s *session.Session, strategy fedavg.Strategy, round uint64) error {
	logger := svc.logger.With(slog.String("session_id", s.ID), slog.Uint64("round", round))

	alive, err := svc.waitForQuorum(ctx, logger, s.Config.MinAvailableClients)
	if err != nil {
		return err
	}

	sample, _ := strategy.NumFitClients(uint64(len(alive)))
	selected, err := svc.selector.Select(alive, sample)
	if err != nil {
		return svc.failRound(ctx, s, round, logger, fmt.Errorf("fit selection: %w", err))
	}

	ids := trainerIDs(selected)
	instruction := RoundInstruction{
		SessionID:    s.ID,
		Round:        round,
		Phase:        PhaseFit,
		TrainerIDs:   ids,
		Parameters:   s.Parameters,
		ModelVersion: s.ModelVersion,
		Config: TrainConfig{
			Epochs:       s.Config.Epochs,
			BatchSize:    s.Config.BatchSize,
			LearningRate: s.Config.LearningRate,
		},
	}
	if err := svc.pubsub.Publish(ctx, svc.baseTopic+"/fl/rounds/start", instruction); err != nil {
		return svc.failRound(ctx, s, round, logger, fmt.Errorf("fit scatter: %w", err))
	}
	logger.Info("fit phase started", slog.Int("clients", len(ids)))

	updates, failures := svc.gather(ctx, runner, logger, round, PhaseFit, ids, s.Config.Timeout())
	if ctx.Err() != nil {
		return ctx.Err()
	}

	results := make([]fedavg.FitResult, 0, len(updates))
	for _, u := range updates {
		results = append(results, fedavg.FitResult{
			TrainerID:  u.TrainerID,
			NumSamples: u.NumSamples,
			Parameters: u.Parameters,
			Metrics:    u.Metrics,
		})
	}

	params, metrics, err := strategy.AggregateFit(ctx, round, results, failures)
	if err != nil {
		return svc.failRound(ctx, s, round, logger, fmt.Errorf("fit aggregation: %w", err))
	}

	now := time.Now()
	s.Parameters = params
	s.ModelVersion++
	s.CurrentRound = round
	s.FailedRounds = 0
	s.UpdatedAt = now
	if err := svc.sessions.Update(ctx, *s); err != nil {
		return err
	}

	version := session.ModelVersion{
		ID:         uuid.NewString(),
		SessionID:  s.ID,
		Version:    s.ModelVersion,
		Round:      round,
		Parameters: params,
		CreatedAt:  now,
	}
	if _, err := svc.models.Create(ctx, version); err != nil {
		return err
	}

	svc.bumpRoundCounts(ctx, logger, results)

	logger.Info("round completed",
		slog.Int("clients", len(results)),
		slog.Int("failures", len(failures)),
		slog.Uint64("model_version", s.ModelVersion),
		slog.Any("metrics", metrics))

	if s.Config.EvaluateEnabled() {
		svc.runEvaluation(ctx, runner, logger, s, strategy, round)
	}

	return ctx.Err()
}

// runEvaluation runs the evaluate phase for a round that just fitted.
// Evaluation problems are logged and never fail the round.
func (svc *service) runEvaluation(ctx context.Context, runner *roundRunner, logger *slog.Logger, s *session.Session, strategy fedavg.Strategy, round uint64) {
	alive, err := svc.aliveList(ctx)
	if err != nil {
		logger.Warn("evaluation skipped: listing trainers failed", slog.Any("error", err))

		return
	}
	if uint64(len(alive)) < s.Config.MinEvaluateClients {
		logger.Warn("evaluation skipped: not enough alive trainers",
			slog.Int("alive", len(alive)),
			slog.Uint64("required", s.Config.MinEvaluateClients))

		return
	}

	sample, _ := strategy.NumEvaluateClients(uint64(len(alive)))
	selected, err := svc.selector.Select(alive, sample)
	if err != nil {
		logger.Warn("evaluation skipped: selection failed", slog.Any("error", err))

		return
	}

	ids := trainerIDs(selected)
	instruction := RoundInstruction{
		SessionID:    s.ID,
		Round:        round,
		Phase:        PhaseEvaluate,
		TrainerIDs:   ids,
		Parameters:   s.Parameters,
		ModelVersion: s.ModelVersion,
		Config: TrainConfig{
			Epochs:       s.Config.Epochs,
			BatchSize:    s.Config.BatchSize,
			LearningRate: s.Config.LearningRate,
		},
	}
	if err := svc.pubsub.Publish(ctx, svc.baseTopic+"/fl/rounds/start", instruction); err != nil {
		logger.Warn("evaluation skipped: scatter failed", slog.Any("error", err))

		return
	}
	logger.Info("evaluate phase started", slog.Int("clients", len(ids)))

	updates, failures := svc.gather(ctx, runner, logger, round, PhaseEvaluate, ids, s.Config.Timeout())
	if ctx.Err() != nil {
		return
	}

	results := make([]fedavg.EvaluateResult, 0, len(updates))
	for _, u := range updates {
		results = append(results, fedavg.EvaluateResult{
			TrainerID:  u.TrainerID,
			NumSamples: u.NumSamples,
			Loss:       u.Loss,
			Metrics:    u.Metrics,
		})
	}

	loss, metrics, err := strategy.AggregateEvaluate(ctx, round, results, failures)
	if err != nil {
		logger.Warn("evaluation aggregation failed", slog.Any("error", err))

		return
	}

	logger.Info("round evaluated",
		slog.Int("clients", len(results)),
		slog.Int("failures", len(failures)),
		slog.Float64("loss", loss),
		slog.Any("metrics", metrics))
}

// gather collects updates from the selected trainers until every one has
// replied or the round timeout lapses. Trainers that never reply become
// failures with a timeout reason. Stale and duplicate updates are
// dropped.
func (svc *service) gather(ctx context.Context, runner *roundRunner, logger *slog.Logger, round uint64, phase string, selected []string, timeout time.Duration) ([]TrainerUpdate, []fedavg.Failure) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	pending := make(map[string]struct{}, len(selected))
	for _, id := range selected {
		pending[id] = struct{}{}
	}

	var updates []TrainerUpdate
	var failures []fedavg.Failure

	for len(pending) > 0 {
		select {
		case u := <-runner.updates:
			if u.Round != round || u.Phase != phase {
				logger.Warn("dropping stale update",
					slog.String("trainer_id", u.TrainerID),
					slog.Uint64("update_round", u.Round),
					slog.String("update_phase", u.Phase))

				continue
			}
			if _, ok := pending[u.TrainerID]; !ok {
				logger.Warn("dropping update from unselected or duplicate trainer",
					slog.String("trainer_id", u.TrainerID))

				continue
			}
			delete(pending, u.TrainerID)

			if u.Error != "" {
				failures = append(failures, fedavg.Failure{TrainerID: u.TrainerID, Reason: u.Error})

				continue
			}
			updates = append(updates, u)

		case <-timer.C:
			for id := range pending {
				failures = append(failures, fedavg.Failure{TrainerID: id, Reason: "round timeout"})
			}
			logger.Warn("round timeout", slog.Int("missing", len(pending)), slog.String("phase", phase))

			return updates, failures

		case <-ctx.Done():
			return nil, nil
		}
	}

	return updates, failures
}

// waitForQuorum blocks until at least required trainers are alive. The
// round loop never starts a round short of the availability minimum.
func (svc *service) waitForQuorum(ctx context.Context, logger *slog.Logger, required uint64) ([]trainer.Trainer, error) {
	ticker := time.NewTicker(quorumPollInterval)
	defer ticker.Stop()

	waiting := false
	for {
		alive, err := svc.aliveList(ctx)
		if err != nil {
			return nil, err
		}
		if uint64(len(alive)) >= required {
			return alive, nil
		}
		if !waiting {
			logger.Info("waiting for available trainers",
				slog.Int("alive", len(alive)),
				slog.Uint64("required", required))
			waiting = true
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// failRound books one failed round: the round counter still advances,
// the parameters stay unchanged and the consecutive-failure counter
// increments.
func (svc *service) failRound(ctx context.Context, s *session.Session, round uint64, logger *slog.Logger, cause error) error {
	s.CurrentRound = round
	s.FailedRounds++
	s.UpdatedAt = time.Now()
	if err := svc.sessions.Update(ctx, *s); err != nil {
		return err
	}

	logger.Warn("round failed",
		slog.Uint64("consecutive_failures", s.FailedRounds),
		slog.Any("error", cause))

	return ctx.Err()
}

func (svc *service) finishSession(ctx context.Context, s *session.Session, state session.State, reason string) {
	now := time.Now()
	s.State = state
	s.Error = reason
	s.FinishTime = now
	s.UpdatedAt = now
	if err := svc.sessions.Update(ctx, *s); err != nil {
		svc.logger.Warn("failed to persist final session state",
			slog.String("session_id", s.ID),
			slog.Any("error", err))

		return
	}

	svc.logger.Info("session finished",
		slog.String("session_id", s.ID),
		slog.String("session_name", s.Name),
		slog.String("state", state.String()),
		slog.Uint64("rounds", s.CurrentRound),
		slog.Uint64("model_version", s.ModelVersion))
}

// bumpRoundCounts increments the participation counter of every trainer
// whose update made it into the aggregate.
func (svc *service) bumpRoundCounts(ctx context.Context, logger *slog.Logger, results []fedavg.FitResult) {
	for _, r := range results {
		t, err := svc.trainers.Get(ctx, r.TrainerID)
		if err != nil {
			logger.Warn("failed to load trainer for round count",
				slog.String("trainer_id", r.TrainerID),
				slog.Any("error", err))

			continue
		}
		t.RoundCount++
		if err := svc.trainers.Update(ctx, t); err != nil {
			logger.Warn("failed to update trainer round count",
				slog.String("trainer_id", r.TrainerID),
				slog.Any("error", err))
		}
	}
}

// aliveList returns the trainers currently considered alive.
func (svc *service) aliveList(ctx context.Context) ([]trainer.Trainer, error) {
	trainers, _, err := svc.trainers.List(ctx, defOffset, listAllLimit)
	if err != nil {
		return nil, err
	}

	alive := make([]trainer.Trainer, 0, len(trainers))
	for i := range trainers {
		trainers[i].SetAlive()
		if trainers[i].Alive {
			alive = append(alive, trainers[i])
		}
	}

	return alive, nil
}

func trainerIDs(trainers []trainer.Trainer) []string {
	ids := make([]string, 0, len(trainers))
	for _, t := range trainers {
		ids = append(ids, t.ID)
	}

	return ids
}
