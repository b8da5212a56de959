package survey

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSpec() *Spec {
	return &Spec{
		Response: "yield",
		Continuous: []Variable{
			{Name: "seed_rate", Required: true},
			{Name: "n_rate"},
		},
		Categorical: []Variable{
			{Name: "soil_class", Required: true},
			{Name: "variety"},
		},
		StratumKeys: []string{"soil_class"},
	}
}

func TestSpec_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Spec)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(s *Spec) {},
		},
		{
			name:    "missing response",
			mutate:  func(s *Spec) { s.Response = "" },
			wantErr: "response",
		},
		{
			name:    "no continuous covariates",
			mutate:  func(s *Spec) { s.Continuous = nil },
			wantErr: "no continuous",
		},
		{
			name: "duplicate covariate",
			mutate: func(s *Spec) {
				s.Categorical = append(s.Categorical, Variable{Name: "seed_rate"})
			},
			wantErr: "duplicate",
		},
		{
			name:    "empty covariate name",
			mutate:  func(s *Spec) { s.Continuous[1].Name = "" },
			wantErr: "empty name",
		},
		{
			name:    "stratum key not categorical",
			mutate:  func(s *Spec) { s.StratumKeys = []string{"seed_rate"} },
			wantErr: "stratum key",
		},
		{
			name:    "negative epsilon",
			mutate:  func(s *Spec) { s.Epsilon = -1 },
			wantErr: "epsilon",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := validSpec()
			tt.mutate(s)
			err := s.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSpec_Validate_DefaultsEpsilon(t *testing.T) {
	t.Parallel()

	s := validSpec()
	require.NoError(t, s.Validate())
	assert.Equal(t, defaultEpsilon, s.Epsilon)

	s = validSpec()
	s.Epsilon = 0.5
	require.NoError(t, s.Validate())
	assert.Equal(t, 0.5, s.Epsilon)
}

func TestSpec_Names(t *testing.T) {
	t.Parallel()

	s := validSpec()
	assert.Equal(t, []string{"seed_rate", "n_rate"}, s.ContinuousNames())
	assert.Equal(t, []string{"soil_class", "variety"}, s.CategoricalNames())
}

func TestLoadSpec(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "spec.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
response: yield
continuous:
  - name: seed_rate
    required: true
  - name: n_rate
categorical:
  - name: soil_class
stratum_keys: [soil_class]
`), 0o644))

	s, err := LoadSpec(path)
	require.NoError(t, err)
	assert.Equal(t, "yield", s.Response)
	assert.True(t, s.Continuous[0].Required)
	assert.False(t, s.Continuous[1].Required)
	assert.Equal(t, []string{"soil_class"}, s.StratumKeys)
	assert.Equal(t, defaultEpsilon, s.Epsilon)
}

func TestLoadSpec_Invalid(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := LoadSpec(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})

	t.Run("invalid spec content", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "spec.yaml")
		require.NoError(t, os.WriteFile(path, []byte("response: yield\n"), 0o644))
		_, err := LoadSpec(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no continuous")
	})
}
