// Package fedavg implements sample-weighted federated averaging: the
// aggregation math, the per-session strategy configuration and the
// Strategy interface the round orchestrator drives.
package fedavg

import (
	"context"
	"errors"
	"log/slog"
)

var ErrFailuresRejected = errors.New("round produced failures and the strategy does not accept them")

// FitResult is one trainer's reply to a fit instruction.
type FitResult struct {
	TrainerID  string
	NumSamples int64
	Parameters Parameters
	Metrics    map[string]float64
}

// EvaluateResult is one trainer's reply to an evaluate instruction.
type EvaluateResult struct {
	TrainerID  string
	NumSamples int64
	Loss       float64
	Metrics    map[string]float64
}

// Failure marks a trainer that was selected for a round but produced no
// usable result, whether it errored, timed out or disconnected.
type Failure struct {
	TrainerID string
	Reason    string
}

// RoundRecorder persists aggregation outcomes per round. Implementations
// must treat RecordFit as a get-or-create merge and RecordEvaluation as
// an attach to an existing fit record.
type RoundRecorder interface {
	RecordFit(ctx context.Context, sessionID string, round uint64, aggregated map[string]float64, clients []string) error
	RecordEvaluation(ctx context.Context, sessionID string, round uint64, loss float64, metrics map[string]float64) error
}

// Strategy decides how many trainers participate in each phase and folds
// their results into a new global state.
type Strategy interface {
	// NumFitClients returns the fit sample size for the given number of
	// available trainers and the registry size required to proceed.
	NumFitClients(available uint64) (sample, required uint64)
	// NumEvaluateClients is the evaluate-phase counterpart of NumFitClients.
	NumEvaluateClients(available uint64) (sample, required uint64)
	// AggregateFit folds fit results into new global parameters and
	// weight-averaged training metrics.
	AggregateFit(ctx context.Context, round uint64, results []FitResult, failures []Failure) (Parameters, map[string]float64, error)
	// AggregateEvaluate folds evaluate results into a weighted loss and
	// weight-averaged evaluation metrics.
	AggregateEvaluate(ctx context.Context, round uint64, results []EvaluateResult, failures []Failure) (float64, map[string]float64, error)
}

var _ Strategy = (*FedAvg)(nil)

// FedAvg is the reference strategy: plain federated averaging weighted by
// sample counts. One instance serves one session; aggregation outcomes
// are recorded through the RoundRecorder and recording failures are
// logged rather than surfaced, so a bookkeeping error never discards a
// finished aggregation.
type FedAvg struct {
	cfg       Config
	sessionID string
	recorder  RoundRecorder
	logger    *slog.Logger
}

func NewFedAvg(cfg Config, sessionID string, recorder RoundRecorder, logger *slog.Logger) *FedAvg {
	return &FedAvg{
		cfg:       cfg,
		sessionID: sessionID,
		recorder:  recorder,
		logger:    logger,
	}
}

func (f *FedAvg) NumFitClients(available uint64) (uint64, uint64) {
	sample := uint64(float64(available) * f.cfg.FractionFit)
	if sample < f.cfg.MinFitClients {
		sample = f.cfg.MinFitClients
	}

	return sample, f.cfg.MinAvailableClients
}

func (f *FedAvg) NumEvaluateClients(available uint64) (uint64, uint64) {
	sample := uint64(float64(available) * f.cfg.FractionEvaluate)
	if sample < f.cfg.MinEvaluateClients {
		sample = f.cfg.MinEvaluateClients
	}

	return sample, f.cfg.MinAvailableClients
}

func (f *FedAvg) AggregateFit(ctx context.Context, round uint64, results []FitResult, failures []Failure) (Parameters, map[string]float64, error) {
	if len(failures) > 0 && !f.cfg.AcceptFailures {
		return nil, nil, ErrFailuresRejected
	}
	if len(results) == 0 {
		return nil, nil, ErrNoUpdates
	}

	updates := make([]WeightedParameters, 0, len(results))
	entries := make([]MetricEntry, 0, len(results))
	clients := make([]string, 0, len(results))
	for _, r := range results {
		updates = append(updates, WeightedParameters{NumSamples: r.NumSamples, Parameters: r.Parameters})
		entries = append(entries, MetricEntry{NumSamples: r.NumSamples, Metrics: r.Metrics})
		clients = append(clients, r.TrainerID)
	}

	params, err := Aggregate(updates)
	if err != nil {
		return nil, nil, err
	}

	aggregated, err := WeightedMetrics(entries)
	if err != nil {
		return nil, nil, err
	}

	if f.recorder != nil {
		if err := f.recorder.RecordFit(ctx, f.sessionID, round, aggregated, clients); err != nil {
			f.logger.WarnContext(ctx, "Failed to record fit aggregation",
				slog.String("session_id", f.sessionID),
				slog.Uint64("round", round),
				slog.Any("error", err))
		}
	}

	return params, aggregated, nil
}

func (f *FedAvg) AggregateEvaluate(ctx context.Context, round uint64, results []EvaluateResult, failures []Failure) (float64, map[string]float64, error) {
	if len(failures) > 0 && !f.cfg.AcceptFailures {
		return 0, nil, ErrFailuresRejected
	}
	if len(results) == 0 {
		return 0, nil, ErrNoUpdates
	}

	var total int64
	for _, r := range results {
		if r.NumSamples > 0 {
			total += r.NumSamples
		}
	}
	if total == 0 {
		return 0, nil, ErrZeroWeight
	}

	var loss float64
	entries := make([]MetricEntry, 0, len(results))
	for _, r := range results {
		if r.NumSamples <= 0 {
			continue
		}
		loss += r.Loss * float64(r.NumSamples)
		entries = append(entries, MetricEntry{NumSamples: r.NumSamples, Metrics: r.Metrics})
	}
	loss /= float64(total)

	metrics, err := WeightedMetrics(entries)
	if err != nil {
		return 0, nil, err
	}

	if f.recorder != nil {
		if err := f.recorder.RecordEvaluation(ctx, f.sessionID, round, loss, metrics); err != nil {
			f.logger.WarnContext(ctx, "Failed to record evaluation",
				slog.String("session_id", f.sessionID),
				slog.Uint64("round", round),
				slog.Any("error", err))
		}
	}

	return loss, metrics, nil
}
