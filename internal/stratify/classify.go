package stratify

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/sells-group/yieldgap-cli/internal/model"
)

// StratumError means a stratum's yield-class split left Y_HF undefined,
// typically an empty "highest" class in a degenerate or tiny stratum. It is
// surfaced per stratum, never silently zero-filled.
type StratumError struct {
	Key    string
	Size   int
	Reason string
}

func (e *StratumError) Error() string {
	return fmt.Sprintf("stratify: stratum %q (n=%d): %s", e.Key, e.Size, e.Reason)
}

// Options configures the classifier.
type Options struct {
	// Keys are the categorical covariates that, together with year, form the
	// stratum key.
	Keys []string
	// LowerPct and UpperPct are the class thresholds. Zero values default to
	// the 10th and 90th percentile.
	LowerPct float64
	UpperPct float64
}

func (o *Options) defaults() {
	if o.LowerPct == 0 {
		o.LowerPct = 0.10
	}
	if o.UpperPct == 0 {
		o.UpperPct = 0.90
	}
}

// Stratum is one biophysical unit with its percentile thresholds and the
// highest-farmers' yield derived from its top class.
type Stratum struct {
	Key     string
	Members []int // indices into the classified observation slice
	PLow    float64
	PHigh   float64
	// YHF is the mean actual yield over "highest" members, nil when that
	// class is empty.
	YHF *float64
}

// Result holds per-observation classifications (aligned with the input
// slice) plus per-stratum detail and any stratum errors.
type Result struct {
	Strata  map[string]*Stratum
	Keys    []string           // per observation: stratum key
	Classes []model.YieldClass // per observation
	YHF     []*float64         // per observation: stratum Y_HF, broadcast
	Errors  []error            // StratumError values
}

// Classify groups observations by their composite stratum key and, within
// each stratum, labels every field highest (Ya >= upper percentile), lowest
// (Ya <= lower percentile) or average, then broadcasts the stratum Y_HF to
// all members. Strata are independent and processed concurrently.
func Classify(ctx context.Context, obs []*model.Observation, opts Options) (*Result, error) {
	opts.defaults()
	if opts.LowerPct >= opts.UpperPct {
		return nil, &StratumError{Reason: fmt.Sprintf("lower percentile %.2f must be below upper %.2f", opts.LowerPct, opts.UpperPct)}
	}

	res := &Result{
		Strata:  make(map[string]*Stratum),
		Keys:    make([]string, len(obs)),
		Classes: make([]model.YieldClass, len(obs)),
		YHF:     make([]*float64, len(obs)),
	}

	for i, o := range obs {
		key := o.StratumKey(opts.Keys)
		res.Keys[i] = key
		s, ok := res.Strata[key]
		if !ok {
			s = &Stratum{Key: key}
			res.Strata[key] = s
		}
		s.Members = append(s.Members, i)
	}

	// Each goroutine owns one stratum and writes only to disjoint index sets
	// of the shared per-observation slices.
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	errsCh := make(chan error, len(res.Strata))

	for _, s := range res.Strata {
		g.Go(func() error {
			yields := make([]float64, len(s.Members))
			for j, idx := range s.Members {
				yields[j] = obs[idx].Ya
			}
			sort.Float64s(yields)
			s.PLow = quantileSorted(yields, opts.LowerPct)
			s.PHigh = quantileSorted(yields, opts.UpperPct)

			var top []float64
			for _, idx := range s.Members {
				switch ya := obs[idx].Ya; {
				case ya >= s.PHigh:
					res.Classes[idx] = model.ClassHighest
					top = append(top, ya)
				case ya <= s.PLow:
					res.Classes[idx] = model.ClassLowest
				default:
					res.Classes[idx] = model.ClassAverage
				}
			}

			if len(top) == 0 {
				errsCh <- &StratumError{Key: s.Key, Size: len(s.Members), Reason: "no observations in the highest class, Y_HF undefined"}
				return nil
			}
			yhf := stat.Mean(top, nil)
			s.YHF = &yhf
			for _, idx := range s.Members {
				res.YHF[idx] = &yhf
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	close(errsCh)
	for err := range errsCh {
		res.Errors = append(res.Errors, err)
	}

	zap.L().Info("stratify: classification complete",
		zap.Int("observations", len(obs)),
		zap.Int("strata", len(res.Strata)),
		zap.Int("undefined_yhf", len(res.Errors)),
	)
	return res, nil
}
