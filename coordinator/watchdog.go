package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/absmach/flock/pkg/storage"
	"github.com/absmach/flock/session"
)

const defCheckInterval = time.Minute

// Scheduler starts pending sessions whose scheduled start time has
// arrived.
type Scheduler interface {
	Start(ctx context.Context) error
	Stop()
}

type scheduler struct {
	sessions      storage.SessionRepository
	service       Service
	logger        *slog.Logger
	checkInterval time.Duration
	stopChan      chan struct{}
}

func NewScheduler(sessions storage.SessionRepository, service Service, logger *slog.Logger) Scheduler {
	return &scheduler{
		sessions:      sessions,
		service:       service,
		logger:        logger,
		checkInterval: defCheckInterval,
		stopChan:      make(chan struct{}),
	}
}

// Start sweeps once for overdue sessions, then keeps sweeping on the
// check interval until stopped.
func (sc *scheduler) Start(ctx context.Context) error {
	if err := sc.processDueSessions(ctx); err != nil {
		return err
	}

	go sc.run(ctx)

	return nil
}

func (sc *scheduler) Stop() {
	close(sc.stopChan)
}

func (sc *scheduler) run(ctx context.Context) {
	ticker := time.NewTicker(sc.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sc.stopChan:
			return
		case <-ticker.C:
			if err := sc.processDueSessions(ctx); err != nil {
				sc.logger.ErrorContext(ctx, "failed to process scheduled sessions", slog.Any("error", err))
			}
		}
	}
}

func (sc *scheduler) processDueSessions(ctx context.Context) error {
	pending, _, err := sc.sessions.ListByState(ctx, session.Pending, defOffset, listAllLimit)
	if err != nil {
		return err
	}

	now := time.Now()
	for _, s := range pending {
		if s.StartAt.IsZero() || s.StartAt.After(now) {
			continue
		}

		if err := sc.service.StartSession(ctx, s.ID); err != nil {
			if errors.Is(err, ErrShuttingDown) {
				return nil
			}
			sc.logger.WarnContext(ctx, "failed to start scheduled session",
				slog.String("session_id", s.ID),
				slog.Any("error", err))

			continue
		}

		sc.logger.InfoContext(ctx, "started scheduled session",
			slog.String("session_id", s.ID),
			slog.String("session_name", s.Name))
	}

	return nil
}
