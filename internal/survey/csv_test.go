package survey

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `household_id,plot_id,subplot_id,year,yield,seed_rate,n_rate,soil_class,ignored_col
hh01,p1,s1,2018,2.4,60,45,clay,x
hh01,p1,s2,2018,1.1,55,,sandy,y
hh02,p1,s1,2019,3.7,70,90,clay,z
`

func TestReadObservations(t *testing.T) {
	t.Parallel()

	spec := validSpec()
	obs, rowErrs, err := ReadObservations(strings.NewReader(sampleCSV), spec)
	require.NoError(t, err)
	assert.Empty(t, rowErrs)
	require.Len(t, obs, 3)

	first := obs[0]
	assert.Equal(t, "hh01", first.HouseholdID)
	assert.Equal(t, "p1", first.PlotID)
	assert.Equal(t, "s1", first.SubplotID)
	assert.Equal(t, 2018, first.Year)
	assert.Equal(t, 2.4, first.Ya)
	assert.Equal(t, 60.0, first.Continuous["seed_rate"])
	assert.Equal(t, 45.0, first.Continuous["n_rate"])
	assert.Equal(t, "clay", first.Categorical["soil_class"])

	// Undeclared columns never leak into the observation.
	assert.NotContains(t, first.Continuous, "ignored_col")
	assert.NotContains(t, first.Categorical, "ignored_col")

	// Empty optional covariate stays absent rather than zero.
	_, ok := obs[1].Continuous["n_rate"]
	assert.False(t, ok)
}

func TestReadObservations_BadCells(t *testing.T) {
	t.Parallel()

	csv := `household_id,plot_id,subplot_id,year,yield,seed_rate,n_rate,soil_class
hh01,p1,s1,2018,not-a-number,60,45,clay
hh02,p1,s1,2018,2.2,sixty,45,clay
hh03,p1,s1,2018,2.9,60,45,clay
`
	obs, rowErrs, err := ReadObservations(strings.NewReader(csv), validSpec())
	require.NoError(t, err)

	// Both bad rows are reported and excluded; the good row survives.
	require.Len(t, rowErrs, 2)
	require.Len(t, obs, 1)
	assert.Equal(t, "hh03", obs[0].HouseholdID)

	var dataErr *DataError
	require.ErrorAs(t, rowErrs[0], &dataErr)
	assert.Equal(t, 1, dataErr.Row)
	assert.Equal(t, "yield", dataErr.Column)

	require.ErrorAs(t, rowErrs[1], &dataErr)
	assert.Equal(t, "seed_rate", dataErr.Column)
}

func TestReadObservations_EmptyBody(t *testing.T) {
	t.Parallel()

	obs, rowErrs, err := ReadObservations(strings.NewReader(
		"household_id,plot_id,subplot_id,year,yield,seed_rate,n_rate,soil_class\n"), validSpec())
	require.NoError(t, err)
	assert.Empty(t, rowErrs)
	assert.Empty(t, obs)
}
