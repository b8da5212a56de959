package frontier

import "fmt"

// ModelFitError means the frontier estimation itself failed: a rank-deficient
// design matrix or an optimizer that did not converge within its iteration
// budget. It is fatal for the whole frontier stage: a fit that did not
// converge yields no per-row scores.
type ModelFitError struct {
	Form   Form
	Reason string
	Err    error
}

func (e *ModelFitError) Error() string {
	msg := fmt.Sprintf("frontier: %s fit failed: %s", e.Form, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ModelFitError) Unwrap() error { return e.Err }

// DataError means a design-matrix cell was non-finite after transformation.
// Such rows must be excluded upstream, never fed into the likelihood.
type DataError struct {
	Row    int
	Column string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("frontier: non-finite value at row %d column %q", e.Row, e.Column)
}
