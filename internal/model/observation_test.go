package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObservation_FieldID(t *testing.T) {
	t.Parallel()

	o := &Observation{HouseholdID: "hh01", PlotID: "p2", SubplotID: "s1"}
	assert.Equal(t, "hh01/p2/s1", o.FieldID())
}

func TestObservation_StratumKey(t *testing.T) {
	t.Parallel()

	o := &Observation{
		Year: 2019,
		Categorical: map[string]string{
			"soil_class": "clay",
			"variety":    "improved",
		},
	}

	tests := []struct {
		name string
		keys []string
		want string
	}{
		{
			name: "year only",
			keys: nil,
			want: "year=2019",
		},
		{
			name: "single key",
			keys: []string{"soil_class"},
			want: "year=2019|soil_class=clay",
		},
		{
			name: "key order preserved",
			keys: []string{"variety", "soil_class"},
			want: "year=2019|variety=improved|soil_class=clay",
		},
		{
			name: "missing covariate yields empty label",
			keys: []string{"zone"},
			want: "year=2019|zone=",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, o.StratumKey(tt.keys))
		})
	}
}

func TestStratumKey_SameCovariatesDifferentYear(t *testing.T) {
	t.Parallel()

	a := &Observation{Year: 2018, Categorical: map[string]string{"soil_class": "clay"}}
	b := &Observation{Year: 2019, Categorical: map[string]string{"soil_class": "clay"}}
	assert.NotEqual(t, a.StratumKey([]string{"soil_class"}), b.StratumKey([]string{"soil_class"}))
}
