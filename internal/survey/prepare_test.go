package survey

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/yieldgap-cli/internal/model"
)

func obsWith(ya float64, seed, n float64) *model.Observation {
	return &model.Observation{
		HouseholdID: "hh01", PlotID: "p1", SubplotID: "s1", Year: 2018,
		Ya: ya,
		Continuous: map[string]float64{
			"seed_rate": seed,
			"n_rate":    n,
		},
		Categorical: map[string]string{"soil_class": "clay"},
	}
}

func TestPrepare_KeepsValidRows(t *testing.T) {
	t.Parallel()

	spec := validSpec()
	require.NoError(t, spec.Validate())

	in := []*model.Observation{obsWith(2.5, 60, 45)}
	res := Prepare(in, spec)

	require.Len(t, res.Observations, 1)
	assert.Empty(t, res.Dropped)

	p := res.Observations[0]
	assert.Equal(t, 2.5, p.Ya)
	assert.InDelta(t, math.Log(60), p.LogInputs["seed_rate"], 1e-12)
	assert.InDelta(t, math.Log(45), p.LogInputs["n_rate"], 1e-12)
	assert.Equal(t, "clay", p.Categorical["soil_class"])
}

func TestPrepare_DropRules(t *testing.T) {
	t.Parallel()

	spec := validSpec()
	require.NoError(t, spec.Validate())

	tests := []struct {
		name   string
		obs    *model.Observation
		column string
	}{
		{name: "zero yield", obs: obsWith(0, 60, 45), column: "yield"},
		{name: "negative yield", obs: obsWith(-1.2, 60, 45), column: "yield"},
		{name: "NaN yield", obs: obsWith(math.NaN(), 60, 45), column: "yield"},
		{name: "infinite yield", obs: obsWith(math.Inf(1), 60, 45), column: "yield"},
		{name: "negative covariate", obs: obsWith(2.0, -5, 45), column: "seed_rate"},
		{name: "NaN covariate", obs: obsWith(2.0, math.NaN(), 45), column: "seed_rate"},
		{
			name: "missing required covariate",
			obs: &model.Observation{
				Ya:          2.0,
				Continuous:  map[string]float64{"n_rate": 45},
				Categorical: map[string]string{"soil_class": "clay"},
			},
			column: "seed_rate",
		},
		{
			name: "missing required label",
			obs: &model.Observation{
				Ya:          2.0,
				Continuous:  map[string]float64{"seed_rate": 60, "n_rate": 45},
				Categorical: map[string]string{},
			},
			column: "soil_class",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := Prepare([]*model.Observation{tt.obs}, spec)
			assert.Empty(t, res.Observations)
			require.Len(t, res.Dropped, 1)

			var dataErr *DataError
			require.ErrorAs(t, res.Dropped[0], &dataErr)
			assert.Equal(t, tt.column, dataErr.Column)
			assert.Equal(t, 1, dataErr.Row)
		})
	}
}

func TestPrepare_ZeroToEpsilon(t *testing.T) {
	t.Parallel()

	spec := validSpec()
	spec.Epsilon = 1e-3
	require.NoError(t, spec.Validate())

	// Zero optional covariate and absent optional covariate both land at
	// the epsilon floor before the log transform.
	withZero := obsWith(2.0, 60, 0)
	withoutOptional := &model.Observation{
		Ya:          2.0,
		Continuous:  map[string]float64{"seed_rate": 60},
		Categorical: map[string]string{"soil_class": "clay"},
	}

	res := Prepare([]*model.Observation{withZero, withoutOptional}, spec)
	require.Len(t, res.Observations, 2)
	for _, p := range res.Observations {
		assert.Equal(t, 1e-3, p.Continuous["n_rate"])
		assert.InDelta(t, math.Log(1e-3), p.LogInputs["n_rate"], 1e-12)
	}
}

func TestPrepare_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	spec := validSpec()
	require.NoError(t, spec.Validate())

	in := obsWith(2.0, 60, 0)
	res := Prepare([]*model.Observation{in}, spec)

	require.Len(t, res.Observations, 1)
	assert.Equal(t, 0.0, in.Continuous["n_rate"], "input must keep its recorded zero")
	assert.Nil(t, in.LogInputs)
	assert.NotSame(t, in, res.Observations[0])
}

func TestPrepare_MixedBatch(t *testing.T) {
	t.Parallel()

	spec := validSpec()
	require.NoError(t, spec.Validate())

	in := []*model.Observation{
		obsWith(2.5, 60, 45),
		obsWith(-1, 60, 45),
		obsWith(3.1, 70, 90),
	}
	res := Prepare(in, spec)
	assert.Len(t, res.Observations, 2)
	assert.Len(t, res.Dropped, 1)
}
