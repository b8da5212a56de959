// Package frontier fits stochastic production frontiers and derives
// per-observation technical-efficiency scores.
package frontier

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/mat"

	"github.com/sells-group/yieldgap-cli/internal/model"
	"github.com/sells-group/yieldgap-cli/internal/survey"
)

// Form selects the functional form of the frontier.
type Form string

const (
	// FormCobbDouglas uses first-order log terms plus categorical dummies.
	FormCobbDouglas Form = "cobb_douglas"
	// FormTranslog adds half-squared and pairwise interaction terms of the
	// log inputs, a strict superset of the Cobb-Douglas parameterization.
	FormTranslog Form = "translog"
)

// ParseForm validates a functional-form name.
func ParseForm(s string) (Form, error) {
	switch f := Form(s); f {
	case FormCobbDouglas, FormTranslog:
		return f, nil
	default:
		return "", eris.Errorf("frontier: unknown functional form %q", s)
	}
}

// Design is the response vector and design matrix for one frontier fit.
// Rows map one-to-one onto the prepared observations they were built from.
type Design struct {
	Form  Form
	Names []string // column names, intercept first
	X     *mat.Dense
	Y     []float64 // log yield
}

// N returns the number of observations.
func (d *Design) N() int { return len(d.Y) }

// P returns the number of parameters (columns).
func (d *Design) P() int { return len(d.Names) }

// BuildDesign assembles the design matrix for the given form. Continuous
// covariates enter as logs (already transformed by survey.Prepare); translog
// adds 0.5·xᵢ² terms and xᵢ·xⱼ pairs. Categorical covariates are one-hot
// encoded with the first level (sorted) as baseline; a row with an empty
// optional label carries zero dummies and therefore shares the baseline
// encoding, and a covariate with no observed labels contributes no columns.
// Any non-finite cell is a DataError: the caller must have excluded such
// rows already.
func BuildDesign(obs []*model.Observation, spec *survey.Spec, form Form) (*Design, error) {
	if len(obs) == 0 {
		return nil, eris.New("frontier: no observations to build design from")
	}

	cont := spec.ContinuousNames()
	names := []string{"intercept"}
	for _, c := range cont {
		names = append(names, "ln_"+c)
	}
	if form == FormTranslog {
		for _, c := range cont {
			names = append(names, "ln_"+c+"_sq")
		}
		for i := 0; i < len(cont); i++ {
			for j := i + 1; j < len(cont); j++ {
				names = append(names, "ln_"+cont[i]+"_x_ln_"+cont[j])
			}
		}
	}

	// Dummy columns: one per non-baseline level, levels sorted for
	// reproducibility.
	type dummy struct {
		covariate string
		level     string
	}
	var dummies []dummy
	for _, c := range spec.CategoricalNames() {
		levels := make(map[string]bool)
		for _, o := range obs {
			if v := o.Categorical[c]; v != "" {
				levels[v] = true
			}
		}
		sorted := make([]string, 0, len(levels))
		for l := range levels {
			sorted = append(sorted, l)
		}
		sort.Strings(sorted)
		// No observed labels means no columns; a single level is the
		// baseline and likewise needs none.
		if len(sorted) == 0 {
			continue
		}
		for _, l := range sorted[1:] {
			dummies = append(dummies, dummy{covariate: c, level: l})
			names = append(names, c+"="+l)
		}
	}

	d := &Design{
		Form:  form,
		Names: names,
		X:     mat.NewDense(len(obs), len(names), nil),
		Y:     make([]float64, len(obs)),
	}

	for r, o := range obs {
		d.Y[r] = math.Log(o.Ya)
		if !isFinite(d.Y[r]) {
			return nil, &DataError{Row: r, Column: "ln_" + spec.Response}
		}

		col := 0
		set := func(name string, v float64) error {
			if !isFinite(v) {
				return &DataError{Row: r, Column: name}
			}
			d.X.Set(r, col, v)
			col++
			return nil
		}

		if err := set("intercept", 1); err != nil {
			return nil, err
		}
		for _, c := range cont {
			if err := set("ln_"+c, o.LogInputs[c]); err != nil {
				return nil, err
			}
		}
		if form == FormTranslog {
			for _, c := range cont {
				x := o.LogInputs[c]
				if err := set("ln_"+c+"_sq", 0.5*x*x); err != nil {
					return nil, err
				}
			}
			for i := 0; i < len(cont); i++ {
				for j := i + 1; j < len(cont); j++ {
					v := o.LogInputs[cont[i]] * o.LogInputs[cont[j]]
					if err := set("ln_"+cont[i]+"_x_ln_"+cont[j], v); err != nil {
						return nil, err
					}
				}
			}
		}
		for _, dm := range dummies {
			v := 0.0
			if o.Categorical[dm.covariate] == dm.level {
				v = 1
			}
			if err := set(dm.covariate+"="+dm.level, v); err != nil {
				return nil, err
			}
		}
	}

	return d, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
