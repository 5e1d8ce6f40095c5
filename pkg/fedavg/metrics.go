package fedavg

import "errors"

var ErrZeroWeight = errors.New("total sample count is zero")

// MetricEntry pairs one trainer's reported metrics with its sample count.
type MetricEntry struct {
	NumSamples int64
	Metrics    map[string]float64
}

// WeightedMetrics averages metric maps weighted by sample count. The
// result keys are the union across entries; an entry missing a key
// contributes zero for its weight share. An empty input yields an empty
// map, while entries that sum to zero weight yield ErrZeroWeight.
func WeightedMetrics(entries []MetricEntry) (map[string]float64, error) {
	out := make(map[string]float64)
	if len(entries) == 0 {
		return out, nil
	}

	var total int64
	for _, e := range entries {
		if e.NumSamples > 0 {
			total += e.NumSamples
		}
	}
	if total == 0 {
		return nil, ErrZeroWeight
	}

	for _, e := range entries {
		if e.NumSamples <= 0 {
			continue
		}
		weight := float64(e.NumSamples)
		for k, v := range e.Metrics {
			out[k] += v * weight
		}
	}

	norm := float64(total)
	for k := range out {
		out[k] /= norm
	}

	return out, nil
}
