package survey

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/sells-group/yieldgap-cli/internal/model"
)

// DataError flags a malformed or missing required input value on one survey
// row. Rows with data errors are dropped from the prepared set and counted;
// they are never zero-filled.
type DataError struct {
	Row    int
	Column string
	Reason string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("survey: row %d column %q: %s", e.Row, e.Column, e.Reason)
}

// Result is the analysis-ready table plus the per-row errors collected while
// building it.
type Result struct {
	Observations []*model.Observation
	Dropped      []error
}

// Prepare filters and transforms decoded observations into the analysis-ready
// set. It keeps rows with a strictly positive, finite yield and finite
// non-negative required covariates, remaps zeros to the spec epsilon, and
// fills LogInputs with the log-transformed continuous covariates. The input
// slice is not mutated; prepared observations are copies.
func Prepare(obs []*model.Observation, spec *Spec) *Result {
	res := &Result{}

	for i, o := range obs {
		row := i + 1
		if err := checkRow(row, o, spec); err != nil {
			res.Dropped = append(res.Dropped, err)
			continue
		}

		p := &model.Observation{
			HouseholdID: o.HouseholdID,
			PlotID:      o.PlotID,
			SubplotID:   o.SubplotID,
			Year:        o.Year,
			Ya:          o.Ya,
			Continuous:  make(map[string]float64, len(o.Continuous)),
			Categorical: make(map[string]string, len(o.Categorical)),
			LogInputs:   make(map[string]float64, len(spec.Continuous)),
		}
		for k, v := range o.Categorical {
			p.Categorical[k] = v
		}
		for _, v := range spec.Continuous {
			raw, ok := o.Continuous[v.Name]
			if !ok {
				// checkRow guarantees only optional covariates get here;
				// absent optionals enter the model at the epsilon floor.
				raw = 0
			}
			if raw == 0 {
				raw = spec.Epsilon
			}
			p.Continuous[v.Name] = raw
			p.LogInputs[v.Name] = math.Log(raw)
		}
		res.Observations = append(res.Observations, p)
	}

	if n := len(res.Dropped); n > 0 {
		zap.L().Warn("survey: rows dropped during preparation",
			zap.Int("dropped", n),
			zap.Int("kept", len(res.Observations)),
		)
	}
	return res
}

func checkRow(row int, o *model.Observation, spec *Spec) error {
	if math.IsNaN(o.Ya) || math.IsInf(o.Ya, 0) {
		return &DataError{Row: row, Column: spec.Response, Reason: "non-finite yield"}
	}
	if o.Ya <= 0 {
		return &DataError{Row: row, Column: spec.Response, Reason: fmt.Sprintf("non-positive yield %g", o.Ya)}
	}
	for _, v := range spec.Continuous {
		raw, ok := o.Continuous[v.Name]
		if !ok {
			if v.Required {
				return &DataError{Row: row, Column: v.Name, Reason: "missing required covariate"}
			}
			continue
		}
		if math.IsNaN(raw) || math.IsInf(raw, 0) {
			return &DataError{Row: row, Column: v.Name, Reason: "non-finite value"}
		}
		if raw < 0 {
			return &DataError{Row: row, Column: v.Name, Reason: fmt.Sprintf("negative value %g", raw)}
		}
	}
	for _, v := range spec.Categorical {
		if v.Required && o.Categorical[v.Name] == "" {
			return &DataError{Row: row, Column: v.Name, Reason: "missing required label"}
		}
	}
	return nil
}
