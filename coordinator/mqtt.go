package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/absmach/flock/pkg/storage"
	"github.com/absmach/flock/trainer"
)

const statusOffline = "offline"

// Subscribe attaches the coordinator to every topic under its base:
// trainer join announcements, heartbeats and round updates.
func (svc *service) Subscribe(ctx context.Context) error {
	return svc.pubsub.Subscribe(ctx, svc.baseTopic+"/#", svc.handle(ctx))
}

func (svc *service) handle(ctx context.Context) func(topic string, msg map[string]any) error {
	return func(topic string, msg map[string]any) error {
		switch topic {
		case svc.baseTopic + "/control/trainer/create":
			if err := svc.createTrainerHandler(ctx, msg); err != nil {
				return err
			}
			svc.logger.InfoContext(ctx, "successfully registered trainer")
		case svc.baseTopic + "/control/trainer/alive":
			return svc.updateLivenessHandler(ctx, msg)
		case svc.baseTopic + "/fl/rounds/updates":
			return svc.trainerUpdateHandler(ctx, msg)
		}

		return nil
	}
}

// createTrainerHandler registers a trainer from its join announcement.
// A re-join refreshes the sample count and marks the trainer alive.
func (svc *service) createTrainerHandler(ctx context.Context, msg map[string]any) error {
	trainerID, ok := msg["trainer_id"].(string)
	if !ok {
		return errors.New("invalid trainer_id")
	}
	if trainerID == "" {
		return errors.New("trainer id is empty")
	}
	numSamples, _ := msg["num_samples"].(float64)
	name, _ := msg["name"].(string)

	now := time.Now()

	t, err := svc.trainers.Get(ctx, trainerID)
	if errors.Is(err, storage.ErrTrainerNotFound) {
		if name == "" {
			name = namegen.Generate()
		}
		t = trainer.Trainer{
			ID:           trainerID,
			Name:         name,
			NumSamples:   int64(numSamples),
			Alive:        true,
			AliveHistory: []time.Time{now},
		}

		return svc.trainers.Create(ctx, t)
	}
	if err != nil {
		return err
	}

	if name != "" {
		t.Name = name
	}
	t.NumSamples = int64(numSamples)
	t.Alive = true
	t.AliveHistory = appendAlive(t.AliveHistory, now)

	return svc.trainers.Update(ctx, t)
}

// updateLivenessHandler records a heartbeat, or marks the trainer dead
// when the broker delivers its last-will offline message.
func (svc *service) updateLivenessHandler(ctx context.Context, msg map[string]any) error {
	trainerID, ok := msg["trainer_id"].(string)
	if !ok {
		return errors.New("invalid trainer_id")
	}
	if trainerID == "" {
		return errors.New("trainer id is empty")
	}
	status, _ := msg["status"].(string)

	t, err := svc.trainers.Get(ctx, trainerID)
	if errors.Is(err, storage.ErrTrainerNotFound) {
		if status == statusOffline {
			return nil
		}

		return svc.createTrainerHandler(ctx, msg)
	}
	if err != nil {
		return err
	}

	if status == statusOffline {
		// Void the heartbeat history so liveness reads stay false until
		// the trainer rejoins.
		t.Alive = false
		t.AliveHistory = nil

		return svc.trainers.Update(ctx, t)
	}

	t.Alive = true
	t.AliveHistory = appendAlive(t.AliveHistory, time.Now())

	return svc.trainers.Update(ctx, t)
}

// trainerUpdateHandler feeds a round update received over MQTT into the
// session's round in flight. Updates arriving after the round closed are
// dropped.
func (svc *service) trainerUpdateHandler(ctx context.Context, msg map[string]any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	var u TrainerUpdate
	if err := json.Unmarshal(data, &u); err != nil {
		return err
	}

	if err := svc.SubmitUpdate(ctx, u); err != nil {
		if errors.Is(err, ErrNoActiveRound) {
			svc.logger.WarnContext(ctx, "dropping update without active round",
				slog.String("session_id", u.SessionID),
				slog.String("trainer_id", u.TrainerID))

			return nil
		}

		return err
	}

	return nil
}

func appendAlive(history []time.Time, at time.Time) []time.Time {
	history = append(history, at)
	if len(history) > aliveHistoryLimit {
		history = history[1:]
	}

	return history
}
