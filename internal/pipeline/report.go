package pipeline

import (
	"errors"

	"github.com/sells-group/yieldgap-cli/internal/ceiling"
	"github.com/sells-group/yieldgap-cli/internal/frontier"
	"github.com/sells-group/yieldgap-cli/internal/stratify"
	"github.com/sells-group/yieldgap-cli/internal/survey"
)

// Stage names for reporting.
const (
	StagePrepare   = "prepare"
	StageFrontier  = "frontier"
	StageClassify  = "classify"
	StageResolve   = "resolve"
	StageDecompose = "decompose"
)

// StageReport summarizes one stage: rows in, rows that came out usable, and
// a per-error-kind breakdown of everything dropped or flagged. Batch stages
// report failure rates instead of failing atomically.
type StageReport struct {
	Stage   string         `json:"stage"`
	RowsIn  int            `json:"rows_in"`
	RowsOut int            `json:"rows_out"`
	Errors  map[string]int `json:"errors,omitempty"`
}

func reportFor(stage string, in, out int, errs []error) StageReport {
	r := StageReport{Stage: stage, RowsIn: in, RowsOut: out}
	if len(errs) > 0 {
		r.Errors = make(map[string]int)
		for _, err := range errs {
			r.Errors[errorKind(err)]++
		}
	}
	return r
}

// errorKind maps an error to its reporting bucket.
func errorKind(err error) string {
	var dataErr *survey.DataError
	if errors.As(err, &dataErr) {
		return "data_error"
	}
	var designErr *frontier.DataError
	if errors.As(err, &designErr) {
		return "data_error"
	}
	var fitErr *frontier.ModelFitError
	if errors.As(err, &fitErr) {
		return "model_fit_error"
	}
	var stratumErr *stratify.StratumError
	if errors.As(err, &stratumErr) {
		return "stratum_error"
	}
	var resErr *ceiling.ResolutionError
	if errors.As(err, &resErr) {
		return "resolution_error"
	}
	return "error"
}
