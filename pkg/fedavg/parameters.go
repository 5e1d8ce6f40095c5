package fedavg

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrNoUpdates     = errors.New("no updates to aggregate")
	ErrShapeMismatch = errors.New("parameter shape mismatch")
	ErrNotFinite     = errors.New("parameter value is not finite")
)

// Parameters holds model weights as ordered layers. The layer order is
// defined by the model owner and must be identical across all trainers
// in a session.
type Parameters [][]float64

func (p Parameters) Clone() Parameters {
	if p == nil {
		return nil
	}

	out := make(Parameters, len(p))
	for i, layer := range p {
		out[i] = make([]float64, len(layer))
		copy(out[i], layer)
	}

	return out
}

// Validate rejects parameters carrying NaN or infinite values. Updates are
// validated on ingest so a single bad trainer cannot poison an aggregate.
func (p Parameters) Validate() error {
	for i, layer := range p {
		for j, v := range layer {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: layer %d index %d", ErrNotFinite, i, j)
			}
		}
	}

	return nil
}

// WeightedParameters couples one trainer's parameters with the number of
// local samples they were trained on.
type WeightedParameters struct {
	NumSamples int64
	Parameters Parameters
}

// Aggregate computes the sample-weighted mean of the given updates.
// Updates with a non-positive sample count are excluded; if nothing
// remains the aggregation fails with ErrNoUpdates.
func Aggregate(updates []WeightedParameters) (Parameters, error) {
	valid := make([]WeightedParameters, 0, len(updates))
	var total int64
	for _, u := range updates {
		if u.NumSamples <= 0 {
			continue
		}
		valid = append(valid, u)
		total += u.NumSamples
	}
	if len(valid) == 0 {
		return nil, ErrNoUpdates
	}

	ref := valid[0].Parameters
	out := make(Parameters, len(ref))
	for i := range ref {
		out[i] = make([]float64, len(ref[i]))
	}

	for _, u := range valid {
		if len(u.Parameters) != len(out) {
			return nil, fmt.Errorf("%w: expected %d layers, got %d", ErrShapeMismatch, len(out), len(u.Parameters))
		}

		weight := float64(u.NumSamples)
		for i, layer := range u.Parameters {
			if len(layer) != len(out[i]) {
				return nil, fmt.Errorf("%w: layer %d expected %d values, got %d", ErrShapeMismatch, i, len(out[i]), len(layer))
			}
			for j, v := range layer {
				out[i][j] += v * weight
			}
		}
	}

	norm := float64(total)
	for i := range out {
		for j := range out[i] {
			out[i][j] /= norm
		}
	}

	return out, nil
}
