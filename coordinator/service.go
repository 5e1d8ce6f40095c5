package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/0x6flab/namegenerator"
	"github.com/absmach/flock/pkg/fedavg"
	"github.com/absmach/flock/pkg/ledger"
	"github.com/absmach/flock/pkg/mqtt"
	"github.com/absmach/flock/pkg/selector"
	"github.com/absmach/flock/pkg/storage"
	"github.com/absmach/flock/session"
	"github.com/absmach/flock/trainer"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

const (
	defOffset         = 0
	defLimit          = 100
	listAllLimit      = 10000
	aliveHistoryLimit = 10
	updateBuffer      = 256
)

var (
	namegen   = namegenerator.NewGenerator()
	baseTopic = "m/%s/c/%s"
)

type service struct {
	sessions  storage.SessionRepository
	rounds    storage.RoundRepository
	models    storage.ModelRepository
	trainers  storage.TrainerRepository
	selector  selector.Selector
	pubsub    mqtt.PubSub
	recorder  fedavg.RoundRecorder
	baseTopic string
	logger    *slog.Logger

	runnersMu    sync.Mutex
	runners      map[string]*roundRunner
	shuttingDown bool
}

// NewService returns a coordinator backed by the given repositories. The
// pubsub client must already be connected; Subscribe attaches the MQTT
// handlers.
func NewService(repos *storage.Repositories, sel selector.Selector, pubsub mqtt.PubSub, domainID, channelID string, logger *slog.Logger) Service {
	return &service{
		sessions:  repos.Sessions,
		rounds:    repos.Rounds,
		models:    repos.Models,
		trainers:  repos.Trainers,
		selector:  sel,
		pubsub:    pubsub,
		recorder:  ledger.New(repos.Rounds),
		baseTopic: fmt.Sprintf(baseTopic, domainID, channelID),
		logger:    logger,
		runners:   make(map[string]*roundRunner),
	}
}

func (svc *service) CreateSession(ctx context.Context, s session.Session) (session.Session, error) {
	s.Config = s.Config.Normalized()
	if err := s.Config.Validate(); err != nil {
		return session.Session{}, err
	}

	s.ID = uuid.NewString()
	if s.Name == "" {
		s.Name = namegen.Generate()
	}
	s.State = session.Pending
	s.ModelVersion = 0
	s.CurrentRound = 0
	s.FailedRounds = 0
	s.Error = ""
	s.StartTime = time.Time{}
	s.FinishTime = time.Time{}
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt

	return svc.sessions.Create(ctx, s)
}

func (svc *service) GetSession(ctx context.Context, id string) (session.Session, error) {
	return svc.sessions.Get(ctx, id)
}

func (svc *service) ListSessions(ctx context.Context, offset, limit uint64) (session.SessionPage, error) {
	if limit == 0 {
		limit = defLimit
	}

	sessions, total, err := svc.sessions.List(ctx, offset, limit)
	if err != nil {
		return session.SessionPage{}, err
	}

	return session.SessionPage{
		Offset:   offset,
		Limit:    limit,
		Total:    total,
		Sessions: sessions,
	}, nil
}

// UpdateSession replaces the name, config and start schedule of a pending
// session. Zero-valued fields keep their current values.
func (svc *service) UpdateSession(ctx context.Context, s session.Session) (session.Session, error) {
	existing, err := svc.sessions.Get(ctx, s.ID)
	if err != nil {
		return session.Session{}, err
	}
	if existing.State != session.Pending {
		return session.Session{}, ErrSessionNotPending
	}

	if s.Name != "" {
		existing.Name = s.Name
	}
	if s.Config != (fedavg.Config{}) {
		existing.Config = s.Config.Normalized()
		if err := existing.Config.Validate(); err != nil {
			return session.Session{}, err
		}
	}
	if !s.StartAt.IsZero() {
		existing.StartAt = s.StartAt
	}
	existing.UpdatedAt = time.Now()

	if err := svc.sessions.Update(ctx, existing); err != nil {
		return session.Session{}, err
	}

	return existing, nil
}

func (svc *service) DeleteSession(ctx context.Context, id string) error {
	s, err := svc.sessions.Get(ctx, id)
	if err != nil {
		return err
	}
	if s.State == session.Running {
		return ErrSessionActive
	}

	return svc.sessions.Delete(ctx, id)
}

func (svc *service) StartSession(ctx context.Context, id string) error {
	s, err := svc.sessions.Get(ctx, id)
	if err != nil {
		return err
	}
	if s.State != session.Pending {
		return ErrSessionNotPending
	}

	svc.runnersMu.Lock()
	if svc.shuttingDown {
		svc.runnersMu.Unlock()

		return ErrShuttingDown
	}
	if _, ok := svc.runners[id]; ok {
		svc.runnersMu.Unlock()

		return ErrSessionNotPending
	}
	runCtx, cancel := context.WithCancel(context.Background())
	runner := &roundRunner{
		sessionID: id,
		cancel:    cancel,
		updates:   make(chan TrainerUpdate, updateBuffer),
		done:      make(chan struct{}),
	}
	svc.runners[id] = runner
	svc.runnersMu.Unlock()

	s.State = session.Running
	s.StartTime = time.Now()
	s.UpdatedAt = s.StartTime
	if err := svc.sessions.Update(ctx, s); err != nil {
		svc.removeRunner(id)
		cancel()
		close(runner.done)

		return err
	}

	go svc.runSession(runCtx, runner, s)

	return nil
}

// CancelSession stops the round loop of a running session, or directly
// cancels a pending one. The in-flight round is abandoned.
func (svc *service) CancelSession(ctx context.Context, id string) error {
	s, err := svc.sessions.Get(ctx, id)
	if err != nil {
		return err
	}
	if !s.Active() {
		return ErrSessionNotActive
	}

	svc.runnersMu.Lock()
	runner := svc.runners[id]
	svc.runnersMu.Unlock()

	if runner != nil {
		svc.publishStop(id)
		runner.cancel()
		select {
		case <-runner.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	// The runner exits without touching state on cancellation, but it may
	// have finished on its own in the meantime.
	s, err = svc.sessions.Get(ctx, id)
	if err != nil {
		return err
	}
	if !s.Active() {
		return nil
	}

	now := time.Now()
	s.State = session.Cancelled
	s.FinishTime = now
	s.UpdatedAt = now

	return svc.sessions.Update(ctx, s)
}

func (svc *service) GetRound(ctx context.Context, sessionID string, number uint64) (session.Round, error) {
	return svc.rounds.Get(ctx, sessionID, number)
}

func (svc *service) ListRounds(ctx context.Context, sessionID string, offset, limit uint64) (session.RoundPage, error) {
	if limit == 0 {
		limit = defLimit
	}

	rounds, total, err := svc.rounds.ListBySession(ctx, sessionID, offset, limit)
	if err != nil {
		return session.RoundPage{}, err
	}

	return session.RoundPage{
		Offset: offset,
		Limit:  limit,
		Total:  total,
		Rounds: rounds,
	}, nil
}

func (svc *service) GetModelVersion(ctx context.Context, id string) (session.ModelVersion, error) {
	return svc.models.Get(ctx, id)
}

func (svc *service) ListModelVersions(ctx context.Context, sessionID string, offset, limit uint64) (session.ModelVersionPage, error) {
	if limit == 0 {
		limit = defLimit
	}

	models, total, err := svc.models.ListBySession(ctx, sessionID, offset, limit)
	if err != nil {
		return session.ModelVersionPage{}, err
	}

	return session.ModelVersionPage{
		Offset: offset,
		Limit:  limit,
		Total:  total,
		Models: models,
	}, nil
}

func (svc *service) DeployModelVersion(ctx context.Context, sessionID, id string) error {
	return svc.models.Deploy(ctx, sessionID, id)
}

func (svc *service) GetDeployedModel(ctx context.Context, sessionID string) (session.ModelVersion, error) {
	return svc.models.GetDeployed(ctx, sessionID)
}

func (svc *service) GetTrainer(ctx context.Context, id string) (trainer.Trainer, error) {
	t, err := svc.trainers.Get(ctx, id)
	if err != nil {
		return trainer.Trainer{}, err
	}
	t.SetAlive()

	return t, nil
}

func (svc *service) ListTrainers(ctx context.Context, offset, limit uint64) (trainer.TrainerPage, error) {
	if limit == 0 {
		limit = defLimit
	}

	trainers, total, err := svc.trainers.List(ctx, offset, limit)
	if err != nil {
		return trainer.TrainerPage{}, err
	}
	for i := range trainers {
		trainers[i].SetAlive()
	}

	return trainer.TrainerPage{
		Offset:   offset,
		Limit:    limit,
		Total:    total,
		Trainers: trainers,
	}, nil
}

func (svc *service) DeleteTrainer(ctx context.Context, id string) error {
	return svc.trainers.Delete(ctx, id)
}

// SubmitUpdate validates a trainer update and hands it to the session's
// round in flight. Updates for unknown trainers, fit replies without a
// positive sample count and parameters containing NaN or Inf values are
// rejected before they reach the runner.
func (svc *service) SubmitUpdate(ctx context.Context, u TrainerUpdate) error {
	if u.SessionID == "" {
		return fmt.Errorf("%w: missing session_id", ErrInvalidUpdate)
	}
	if u.TrainerID == "" {
		return fmt.Errorf("%w: missing trainer_id", ErrInvalidUpdate)
	}
	if u.Phase != PhaseFit && u.Phase != PhaseEvaluate {
		return fmt.Errorf("%w: unknown phase %q", ErrInvalidUpdate, u.Phase)
	}
	if _, err := svc.trainers.Get(ctx, u.TrainerID); err != nil {
		return fmt.Errorf("%w: unknown trainer %s", ErrInvalidUpdate, u.TrainerID)
	}
	if u.Error == "" {
		if u.NumSamples <= 0 {
			return fmt.Errorf("%w: non-positive num_samples %d", ErrInvalidUpdate, u.NumSamples)
		}
		if err := validParameters(u.Parameters); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidUpdate, err)
		}
	}

	svc.runnersMu.Lock()
	runner := svc.runners[u.SessionID]
	svc.runnersMu.Unlock()
	if runner == nil {
		return ErrNoActiveRound
	}

	select {
	case runner.updates <- u:
		return nil
	case <-runner.done:
		return ErrNoActiveRound
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (svc *service) SubmitUpdateCBOR(ctx context.Context, payload []byte) error {
	var u TrainerUpdate
	if err := cbor.Unmarshal(payload, &u); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidUpdate, err)
	}

	return svc.SubmitUpdate(ctx, u)
}

// Shutdown signals every trainer to stop, cancels the round loops and
// marks the interrupted sessions failed. New sessions are rejected from
// this point on.
func (svc *service) Shutdown(ctx context.Context) error {
	svc.runnersMu.Lock()
	if svc.shuttingDown {
		svc.runnersMu.Unlock()

		return nil
	}
	svc.shuttingDown = true
	runners := make([]*roundRunner, 0, len(svc.runners))
	for _, r := range svc.runners {
		runners = append(runners, r)
	}
	svc.runnersMu.Unlock()

	for _, r := range runners {
		svc.publishStop(r.sessionID)
		r.cancel()
	}
	for _, r := range runners {
		select {
		case <-r.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	running, _, err := svc.sessions.ListByState(ctx, session.Running, defOffset, listAllLimit)
	if err != nil {
		return err
	}
	for _, s := range running {
		now := time.Now()
		s.State = session.Failed
		s.Error = "interrupted by shutdown"
		s.FinishTime = now
		s.UpdatedAt = now
		if err := svc.sessions.Update(ctx, s); err != nil {
			svc.logger.Warn("failed to mark session interrupted",
				slog.String("session_id", s.ID),
				slog.Any("error", err))
		}
	}

	svc.logger.Info("coordinator shutdown complete", slog.Int("interrupted_sessions", len(running)))

	return nil
}

// RecoverInterruptedSessions fails sessions left in the running state by
// a previous coordinator instance. Called once on startup, before any
// new session starts.
func (svc *service) RecoverInterruptedSessions(ctx context.Context) error {
	running, _, err := svc.sessions.ListByState(ctx, session.Running, defOffset, listAllLimit)
	if err != nil {
		return err
	}

	for _, s := range running {
		now := time.Now()
		s.State = session.Failed
		s.Error = "interrupted by restart"
		s.FinishTime = now
		s.UpdatedAt = now
		if err := svc.sessions.Update(ctx, s); err != nil {
			return err
		}
		svc.logger.Info("recovered interrupted session",
			slog.String("session_id", s.ID),
			slog.String("name", s.Name))
	}

	return nil
}

func (svc *service) removeRunner(id string) {
	svc.runnersMu.Lock()
	delete(svc.runners, id)
	svc.runnersMu.Unlock()
}

func (svc *service) publishStop(sessionID string) {
	topic := svc.baseTopic + "/fl/rounds/stop"
	if err := svc.pubsub.Publish(context.Background(), topic, map[string]any{"session_id": sessionID}); err != nil {
		svc.logger.Warn("failed to publish stop message",
			slog.String("session_id", sessionID),
			slog.Any("error", err))
	}
}

func validParameters(p fedavg.Parameters) error {
	for i, layer := range p {
		for _, v := range layer {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("layer %d contains a non-finite value", i)
			}
		}
	}

	return nil
}
