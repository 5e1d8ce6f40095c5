// Package ledger persists per-round aggregation outcomes as metric
// documents keyed by session ID and round number.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/absmach/flock/pkg/fedavg"
	"github.com/absmach/flock/pkg/storage"
	"github.com/absmach/flock/session"
)

var _ fedavg.RoundRecorder = (*Ledger)(nil)

const listAllLimit = 10000

// Ledger records aggregation outcomes on top of a round repository.
// Fit records are created on first write and merged on rewrites, so a
// repeated fit never discards an evaluation attached in between.
type Ledger struct {
	rounds storage.RoundRepository
}

func New(rounds storage.RoundRepository) *Ledger {
	return &Ledger{rounds: rounds}
}

func (l *Ledger) RecordFit(ctx context.Context, sessionID string, round uint64, aggregated map[string]float64, clients []string) error {
	now := time.Now()

	r, err := l.rounds.Get(ctx, sessionID, round)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrRoundNotFound):
		r, err = l.rounds.Create(ctx, session.Round{
			SessionID: sessionID,
			Number:    round,
			Metrics:   map[string]any{},
			CreatedAt: now,
		})
		if err != nil {
			return err
		}
	default:
		return err
	}

	if r.Metrics == nil {
		r.Metrics = map[string]any{}
	}
	r.Metrics[session.MetricAggregated] = aggregated
	r.Metrics[session.MetricClients] = clients
	r.Metrics[session.MetricTimestamp] = now.UTC().Format(time.RFC3339)
	r.UpdatedAt = now

	return l.rounds.Update(ctx, r)
}

// RecordEvaluation attaches the evaluation outcome to an existing fit
// record. Evaluating a round that was never fitted returns
// storage.ErrRoundNotFound.
func (l *Ledger) RecordEvaluation(ctx context.Context, sessionID string, round uint64, loss float64, metrics map[string]float64) error {
	r, err := l.rounds.Get(ctx, sessionID, round)
	if err != nil {
		return err
	}

	if r.Metrics == nil {
		r.Metrics = map[string]any{}
	}
	r.Metrics[session.MetricEvaluation] = map[string]any{
		session.MetricLoss:    loss,
		session.MetricMetrics: metrics,
	}
	r.UpdatedAt = time.Now()

	return l.rounds.Update(ctx, r)
}

// Round returns one recorded round.
func (l *Ledger) Round(ctx context.Context, sessionID string, round uint64) (session.Round, error) {
	return l.rounds.Get(ctx, sessionID, round)
}

// List returns the recorded rounds of a session in ascending order.
func (l *Ledger) List(ctx context.Context, sessionID string) ([]session.Round, error) {
	rounds, _, err := l.rounds.ListBySession(ctx, sessionID, 0, listAllLimit)
	if err != nil {
		return nil, err
	}

	return rounds, nil
}
