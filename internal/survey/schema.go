// Package survey turns raw farm-survey tables into the analysis-ready
// observation set the estimators consume.
package survey

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// defaultEpsilon replaces zero values in continuous covariates before the log
// transform so logs stay defined.
const defaultEpsilon = 1e-4

// Variable declares one covariate column of the survey table.
type Variable struct {
	Name     string `yaml:"name"`
	Required bool   `yaml:"required"`
}

// Spec declares the variable roles for an analysis run: which column holds
// the response, which continuous covariates enter the frontier in logs, which
// categorical covariates are carried, and which categoricals form the
// biophysical stratum (year is always part of the stratum key).
type Spec struct {
	Response    string     `yaml:"response"`
	Epsilon     float64    `yaml:"epsilon"`
	Continuous  []Variable `yaml:"continuous"`
	Categorical []Variable `yaml:"categorical"`
	StratumKeys []string   `yaml:"stratum_keys"`
}

// LoadSpec reads and validates a variable spec from a YAML file.
func LoadSpec(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "survey: read spec %s", path)
	}
	var s Spec
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, eris.Wrapf(err, "survey: parse spec %s", path)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks internal consistency of the spec.
func (s *Spec) Validate() error {
	if s.Response == "" {
		return eris.New("survey: spec is missing a response column")
	}
	if s.Epsilon == 0 {
		s.Epsilon = defaultEpsilon
	}
	if s.Epsilon < 0 {
		return eris.Errorf("survey: epsilon must be positive, got %g", s.Epsilon)
	}
	if len(s.Continuous) == 0 {
		return eris.New("survey: spec declares no continuous covariates")
	}
	seen := make(map[string]bool)
	for _, v := range append(append([]Variable{}, s.Continuous...), s.Categorical...) {
		if v.Name == "" {
			return eris.New("survey: covariate with empty name")
		}
		if seen[v.Name] {
			return eris.Errorf("survey: duplicate covariate %q", v.Name)
		}
		seen[v.Name] = true
	}
	categorical := make(map[string]bool, len(s.Categorical))
	for _, v := range s.Categorical {
		categorical[v.Name] = true
	}
	for _, k := range s.StratumKeys {
		if !categorical[k] {
			return eris.Errorf("survey: stratum key %q is not a declared categorical covariate", k)
		}
	}
	return nil
}

// ContinuousNames returns the continuous covariate names in declaration order.
func (s *Spec) ContinuousNames() []string {
	names := make([]string, len(s.Continuous))
	for i, v := range s.Continuous {
		names[i] = v.Name
	}
	return names
}

// CategoricalNames returns the categorical covariate names in declaration order.
func (s *Spec) CategoricalNames() []string {
	names := make([]string, len(s.Categorical))
	for i, v := range s.Categorical {
		names[i] = v.Name
	}
	return names
}
