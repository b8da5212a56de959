package decompose

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/yieldgap-cli/internal/ceiling"
	"github.com/sells-group/yieldgap-cli/internal/model"
)

func fullInputs() Inputs {
	obs := &model.Observation{
		HouseholdID: "hh01", PlotID: "p1", SubplotID: "s1", Year: 2018,
		Ya:          2.0,
		Categorical: map[string]string{"soil_class": "clay"},
	}
	return Inputs{
		Observations: []*model.Observation{obs},
		Efficiency:   []*float64{model.Float(0.8)},
		Classes:      []model.YieldClass{model.ClassAverage},
		StratumKeys:  []string{"year=2018|soil_class=clay"},
		YHF:          []*float64{model.Float(4.0)},
		Resolutions: map[string]ceiling.Resolution{
			"hh01/p1/s1": {
				FieldID:    "hh01/p1/s1",
				Provenance: model.ProvenanceSameCZ,
				Series:     ceiling.Series{2018: 7.0},
			},
		},
	}
}

func TestDecompose_FullRecord(t *testing.T) {
	t.Parallel()

	records, err := Decompose(fullInputs())
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, "hh01/p1/s1", r.FieldID)
	assert.Equal(t, model.ProvenanceSameCZ, r.Provenance)
	assert.True(t, r.Complete())

	// Ya=2, TE=0.8 -> Y_TEx=2.5; Y_HF=4; Yw=7.
	assert.InDelta(t, 2.5, *r.YTEx, 1e-12)
	assert.InDelta(t, 5.0, *r.TotalGap, 1e-12)
	assert.InDelta(t, 0.5, *r.EfficiencyGap, 1e-12)
	assert.InDelta(t, 1.5, *r.ResourceGap, 1e-12)
	assert.InDelta(t, 3.0, *r.TechnologyGap, 1e-12)
}

func TestDecompose_GapsSumToTotal(t *testing.T) {
	t.Parallel()

	in := fullInputs()
	in.Efficiency = []*float64{model.Float(0.63)}
	in.YHF = []*float64{model.Float(4.7)}

	records, err := Decompose(in)
	require.NoError(t, err)
	r := records[0]
	require.True(t, r.Complete())

	sum := *r.EfficiencyGap + *r.ResourceGap + *r.TechnologyGap
	assert.InDelta(t, *r.TotalGap, sum, 1e-9)
}

func TestDecompose_RelativeGapsSumToOpenGap(t *testing.T) {
	t.Parallel()

	records, err := Decompose(fullInputs())
	require.NoError(t, err)
	r := records[0]

	require.NotNil(t, r.ClosurePct)
	sumPct := *r.EfficiencyGapPct + *r.ResourceGapPct + *r.TechnologyGapPct
	assert.InDelta(t, 100-*r.ClosurePct, sumPct, 1e-9)

	// Each relative component mirrors its absolute counterpart.
	assert.InDelta(t, 100**r.EfficiencyGap / *r.Yw, *r.EfficiencyGapPct, 1e-9)
	assert.InDelta(t, 100**r.ResourceGap / *r.Yw, *r.ResourceGapPct, 1e-9)
	assert.InDelta(t, 100**r.TechnologyGap / *r.Yw, *r.TechnologyGapPct, 1e-9)
}

func TestDecompose_MissingYwPropagates(t *testing.T) {
	t.Parallel()

	t.Run("year absent from series", func(t *testing.T) {
		t.Parallel()
		in := fullInputs()
		res := in.Resolutions["hh01/p1/s1"]
		res.Series = ceiling.Series{2017: 7.0}
		in.Resolutions["hh01/p1/s1"] = res

		records, err := Decompose(in)
		require.NoError(t, err)
		r := records[0]

		assert.Nil(t, r.Yw)
		assert.Nil(t, r.TotalGap)
		assert.Nil(t, r.TechnologyGap)
		assert.Nil(t, r.ClosurePct)
		assert.Nil(t, r.EfficiencyGapPct)
		assert.False(t, r.Complete())

		// Yw-independent quantities survive untouched.
		require.NotNil(t, r.EfficiencyGap)
		assert.InDelta(t, 0.5, *r.EfficiencyGap, 1e-12)
		require.NotNil(t, r.ResourceGap)
	})

	t.Run("field never resolved", func(t *testing.T) {
		t.Parallel()
		in := fullInputs()
		in.Resolutions = nil

		records, err := Decompose(in)
		require.NoError(t, err)
		r := records[0]
		assert.Nil(t, r.Yw)
		assert.Empty(t, string(r.Provenance))
		assert.Nil(t, r.TotalGap)
	})

	t.Run("missing value sentinel in series", func(t *testing.T) {
		t.Parallel()
		in := fullInputs()
		res := in.Resolutions["hh01/p1/s1"]
		res.Series = ceiling.Series{2018: 0}
		in.Resolutions["hh01/p1/s1"] = res

		records, err := Decompose(in)
		require.NoError(t, err)
		assert.Nil(t, records[0].Yw, "zero is a missing sentinel, never a ceiling")
	})
}

func TestDecompose_MissingEfficiency(t *testing.T) {
	t.Parallel()

	in := fullInputs()
	in.Efficiency = []*float64{nil}

	records, err := Decompose(in)
	require.NoError(t, err)
	r := records[0]

	assert.Nil(t, r.Efficiency)
	assert.Nil(t, r.YTEx)
	assert.Nil(t, r.EfficiencyGap)
	assert.Nil(t, r.ResourceGap)
	assert.Nil(t, r.EfficiencyGapPct)

	// The frontier-independent pieces still come out.
	require.NotNil(t, r.TotalGap)
	assert.InDelta(t, 5.0, *r.TotalGap, 1e-12)
	require.NotNil(t, r.TechnologyGap)
	assert.InDelta(t, 3.0, *r.TechnologyGap, 1e-12)
}

func TestDecompose_MissingYHF(t *testing.T) {
	t.Parallel()

	in := fullInputs()
	in.YHF = []*float64{nil}

	records, err := Decompose(in)
	require.NoError(t, err)
	r := records[0]

	assert.Nil(t, r.YHF)
	assert.Nil(t, r.ResourceGap)
	assert.Nil(t, r.TechnologyGap)
	require.NotNil(t, r.EfficiencyGap)
	require.NotNil(t, r.TotalGap)
}

func TestDecompose_MisalignedInputs(t *testing.T) {
	t.Parallel()

	in := fullInputs()
	in.Classes = nil
	_, err := Decompose(in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "misaligned")
}

func TestDecompose_CarriesTags(t *testing.T) {
	t.Parallel()

	records, err := Decompose(fullInputs())
	require.NoError(t, err)
	assert.Equal(t, "clay", records[0].Tags["soil_class"])
}
