// Package pipeline orchestrates the yield gap decomposition stages over one
// analysis run.
package pipeline

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/yieldgap-cli/internal/ceiling"
	"github.com/sells-group/yieldgap-cli/internal/decompose"
	"github.com/sells-group/yieldgap-cli/internal/frontier"
	"github.com/sells-group/yieldgap-cli/internal/model"
	"github.com/sells-group/yieldgap-cli/internal/stratify"
	"github.com/sells-group/yieldgap-cli/internal/survey"
)

// Options assembles the stage configurations for one run.
type Options struct {
	Spec        *survey.Spec
	Frontier    frontier.Options
	FitTranslog bool
	Stratify    stratify.Options
	ThresholdKM float64
	GroupBy     []string
}

// Pipeline runs the decomposition stages in order, collecting per-row errors
// batch-wise instead of aborting. Only a frontier ModelFitError voids a whole
// stage, and even then the classifier and resolver still run so the record
// set can be reported without efficiency scores.
type Pipeline struct {
	opts Options
}

// New builds a pipeline.
func New(opts Options) (*Pipeline, error) {
	if opts.Spec == nil {
		return nil, eris.New("pipeline: variable spec is required")
	}
	if opts.ThresholdKM <= 0 {
		opts.ThresholdKM = ceiling.DefaultThresholdKM
	}
	if len(opts.Stratify.Keys) == 0 {
		opts.Stratify.Keys = opts.Spec.StratumKeys
	}
	return &Pipeline{opts: opts}, nil
}

// Result is the output of one analysis run.
type Result struct {
	RunID      string                             `json:"run_id"`
	Records    []*model.GapRecord                 `json:"records"`
	Aggregates []decompose.GroupSummary           `json:"aggregates"`
	Frontier   map[frontier.Form]*frontier.Result `json:"-"`
	Stages     []StageReport                      `json:"stages"`
}

// Run executes the full pipeline on decoded survey rows and the ceiling
// candidates document.
func (p *Pipeline) Run(ctx context.Context, raw []*model.Observation, ceilings *ceiling.Input) (*Result, error) {
	runID := uuid.New().String()
	log := zap.L().With(zap.String("run_id", runID))
	res := &Result{RunID: runID}

	// Stage 1: preparation.
	prep := survey.Prepare(raw, p.opts.Spec)
	res.Stages = append(res.Stages, reportFor(StagePrepare, len(raw), len(prep.Observations), prep.Dropped))
	obs := prep.Observations
	if len(obs) == 0 {
		return res, eris.New("pipeline: no observations survived preparation")
	}

	// Stage 2: frontier fits. Cobb-Douglas feeds the decomposition; the
	// translog fit, when requested, runs alongside for comparison only.
	forms := []frontier.Form{frontier.FormCobbDouglas}
	if p.opts.FitTranslog {
		forms = append(forms, frontier.FormTranslog)
	}
	fits, fitErrs := p.fitFrontiers(ctx, obs, forms, log)
	res.Frontier = fits
	efficiency := make([]*float64, len(obs))
	if fit := fits[frontier.FormCobbDouglas]; fit != nil {
		for i := range obs {
			efficiency[i] = model.Float(fit.Efficiency[i])
		}
		res.Stages = append(res.Stages, reportFor(StageFrontier, len(obs), len(obs), fitErrs))
	} else {
		res.Stages = append(res.Stages, reportFor(StageFrontier, len(obs), 0, fitErrs))
	}

	// Stage 3: stratified classification.
	classes, err := stratify.Classify(ctx, obs, p.opts.Stratify)
	if err != nil {
		return res, eris.Wrap(err, "pipeline: classify")
	}
	res.Stages = append(res.Stages, reportFor(StageClassify, len(obs), len(obs)-countNil(classes.YHF), classes.Errors))

	// Stage 4: yield-ceiling resolution.
	resolver := ceiling.NewResolver(ceilings.National)
	resolver.ThresholdKM = p.opts.ThresholdKM
	resolutions, droppedFields := resolver.Resolve(ceilings.Fields)
	res.Stages = append(res.Stages, reportFor(StageResolve, len(ceilings.Fields), len(resolutions), droppedFields))

	// Stage 5: decomposition.
	records, err := decompose.Decompose(decompose.Inputs{
		Observations: obs,
		Efficiency:   efficiency,
		Classes:      classes.Classes,
		StratumKeys:  classes.Keys,
		YHF:          classes.YHF,
		Resolutions:  resolutions,
	})
	if err != nil {
		return res, eris.Wrap(err, "pipeline: decompose")
	}
	res.Records = records
	res.Stages = append(res.Stages, reportFor(StageDecompose, len(obs), len(records), nil))

	// Stage 6: aggregation.
	if len(p.opts.GroupBy) > 0 {
		res.Aggregates = decompose.Aggregate(records, p.opts.GroupBy)
	}

	log.Info("pipeline: run complete",
		zap.Int("records", len(records)),
		zap.Int("aggregates", len(res.Aggregates)),
	)
	return res, nil
}

// fitFrontiers runs the requested functional forms concurrently. A form that
// fails never aborts the run: its typed error comes back alongside the
// successful fits so the stage report can name the failure kind.
func (p *Pipeline) fitFrontiers(ctx context.Context, obs []*model.Observation, forms []frontier.Form, log *zap.Logger) (map[frontier.Form]*frontier.Result, []error) {
	type fitOut struct {
		form frontier.Form
		res  *frontier.Result
		err  error
	}
	out := make(chan fitOut, len(forms))

	g, _ := errgroup.WithContext(ctx)
	for _, form := range forms {
		g.Go(func() error {
			design, err := frontier.BuildDesign(obs, p.opts.Spec, form)
			if err != nil {
				log.Error("frontier: design build failed", zap.String("form", string(form)), zap.Error(err))
				out <- fitOut{form: form, err: err}
				return nil
			}
			fit, err := frontier.Fit(design, p.opts.Frontier)
			if err != nil {
				log.Error("frontier: fit failed", zap.String("form", string(form)), zap.Error(err))
				out <- fitOut{form: form, err: err}
				return nil
			}
			out <- fitOut{form: form, res: fit}
			return nil
		})
	}
	_ = g.Wait()
	close(out)

	fits := make(map[frontier.Form]*frontier.Result, len(forms))
	var errs []error
	for f := range out {
		if f.err != nil {
			errs = append(errs, f.err)
			continue
		}
		fits[f.form] = f.res
	}
	return fits, errs
}

func countNil(vs []*float64) int {
	n := 0
	for _, v := range vs {
		if v == nil {
			n++
		}
	}
	return n
}
