package fedavg_test

import (
	"math"
	"testing"

	"github.com/absmach/flock/pkg/fedavg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		desc    string
		updates []fedavg.WeightedParameters
		want    fedavg.Parameters
		err     error
	}{
		{
			desc: "single update returns its parameters",
			updates: []fedavg.WeightedParameters{
				{NumSamples: 10, Parameters: fedavg.Parameters{{0.5, 1.5}, {2.0}}},
			},
			want: fedavg.Parameters{{0.5, 1.5}, {2.0}},
		},
		{
			desc: "two updates blend by sample count",
			updates: []fedavg.WeightedParameters{
				{NumSamples: 100, Parameters: fedavg.Parameters{{0.1, 0.2}}},
				{NumSamples: 50, Parameters: fedavg.Parameters{{0.4, 0.5}}},
			},
			want: fedavg.Parameters{{0.2, 0.3}},
		},
		{
			desc: "zero-sample update is excluded",
			updates: []fedavg.WeightedParameters{
				{NumSamples: 10, Parameters: fedavg.Parameters{{1.0}}},
				{NumSamples: 0, Parameters: fedavg.Parameters{{100.0}}},
			},
			want: fedavg.Parameters{{1.0}},
		},
		{
			desc:    "empty input",
			updates: []fedavg.WeightedParameters{},
			err:     fedavg.ErrNoUpdates,
		},
		{
			desc: "all updates carry zero samples",
			updates: []fedavg.WeightedParameters{
				{NumSamples: 0, Parameters: fedavg.Parameters{{1.0}}},
				{NumSamples: 0, Parameters: fedavg.Parameters{{2.0}}},
			},
			err: fedavg.ErrNoUpdates,
		},
		{
			desc: "layer count mismatch",
			updates: []fedavg.WeightedParameters{
				{NumSamples: 10, Parameters: fedavg.Parameters{{1.0}, {2.0}}},
				{NumSamples: 10, Parameters: fedavg.Parameters{{1.0}}},
			},
			err: fedavg.ErrShapeMismatch,
		},
		{
			desc: "layer length mismatch",
			updates: []fedavg.WeightedParameters{
				{NumSamples: 10, Parameters: fedavg.Parameters{{1.0, 2.0}}},
				{NumSamples: 10, Parameters: fedavg.Parameters{{1.0}}},
			},
			err: fedavg.ErrShapeMismatch,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			got, err := fedavg.Aggregate(tc.updates)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)

				return
			}
			require.NoError(t, err)
			require.Len(t, got, len(tc.want))
			for i := range tc.want {
				require.Len(t, got[i], len(tc.want[i]))
				for j := range tc.want[i] {
					assert.InDelta(t, tc.want[i][j], got[i][j], 1e-9)
				}
			}
		})
	}
}

func TestAggregateOrderIndependent(t *testing.T) {
	t.Parallel()

	a := fedavg.WeightedParameters{NumSamples: 3, Parameters: fedavg.Parameters{{0.25, 0.75}}}
	b := fedavg.WeightedParameters{NumSamples: 7, Parameters: fedavg.Parameters{{0.5, 0.1}}}

	first, err := fedavg.Aggregate([]fedavg.WeightedParameters{a, b})
	require.NoError(t, err)
	second, err := fedavg.Aggregate([]fedavg.WeightedParameters{b, a})
	require.NoError(t, err)

	for i := range first {
		for j := range first[i] {
			assert.InDelta(t, first[i][j], second[i][j], 1e-12)
		}
	}
}

func TestParametersValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		desc   string
		params fedavg.Parameters
		err    error
	}{
		{
			desc:   "finite values",
			params: fedavg.Parameters{{0.0, -1.5, 42.0}},
		},
		{
			desc:   "nil parameters",
			params: nil,
		},
		{
			desc:   "NaN value",
			params: fedavg.Parameters{{0.1, math.NaN()}},
			err:    fedavg.ErrNotFinite,
		},
		{
			desc:   "positive infinity",
			params: fedavg.Parameters{{math.Inf(1)}},
			err:    fedavg.ErrNotFinite,
		},
		{
			desc:   "negative infinity in later layer",
			params: fedavg.Parameters{{1.0}, {math.Inf(-1)}},
			err:    fedavg.ErrNotFinite,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			err := tc.params.Validate()
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)

				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestParametersClone(t *testing.T) {
	t.Parallel()

	orig := fedavg.Parameters{{1.0, 2.0}, {3.0}}
	clone := orig.Clone()

	clone[0][0] = 99.0
	assert.Equal(t, 1.0, orig[0][0])

	assert.Nil(t, fedavg.Parameters(nil).Clone())
}
