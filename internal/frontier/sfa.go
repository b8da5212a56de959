package frontier

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat/distuv"
)

// Options tunes the maximum-likelihood fit.
type Options struct {
	MaxIterations int     // optimizer budget; exceeding it is a ModelFitError
	Tolerance     float64 // absolute function-convergence tolerance
}

// DefaultOptions returns the fitting defaults.
func DefaultOptions() Options {
	return Options{MaxIterations: 5000, Tolerance: 1e-10}
}

// Result is a converged frontier fit: coefficients, the two variance
// components of the composed error, and per-observation efficiency scores
// aligned with the design rows.
type Result struct {
	Form          Form
	Names         []string
	Coefficients  []float64
	SigmaV2       float64 // symmetric noise variance
	SigmaU2       float64 // one-sided inefficiency variance
	Lambda        float64 // sigma_u / sigma_v
	LogLikelihood float64
	Iterations    int

	// Inefficiency is E[u|ε] per observation (JLMS conditional mean).
	Inefficiency []float64
	// Efficiency is exp(-E[u|ε]) per observation, strictly in (0, 1].
	Efficiency []float64
}

// Fit estimates the stochastic frontier y = Xβ + v − u with v ~ N(0, σv²)
// and u ~ half-normal(σu²) by maximum likelihood, then derives technical
// efficiency for every design row. The OLS fit supplies start values; its
// rank check also guards the likelihood against collinearity.
func Fit(d *Design, opts Options) (*Result, error) {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultOptions().MaxIterations
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultOptions().Tolerance
	}

	ols, err := FitOLS(d)
	if err != nil {
		return nil, err
	}

	p := d.P()
	// Parameter vector: β, log σv², log σu². The log transform keeps both
	// variances positive without constrained optimization.
	x0 := make([]float64, p+2)
	copy(x0, ols.Coefficients)
	halfVar := math.Max(ols.Sigma2/2, 1e-6)
	x0[p] = math.Log(halfVar)
	x0[p+1] = math.Log(halfVar)
	// The OLS intercept absorbs E[u] = σu·sqrt(2/π); shift it up so the
	// start point sits near the frontier rather than the conditional mean.
	x0[0] += math.Sqrt(2 / math.Pi * halfVar)

	problem := optimize.Problem{
		Func: func(theta []float64) float64 { return negLogLik(d, theta) },
	}
	settings := &optimize.Settings{
		MajorIterations: opts.MaxIterations,
		Converger: &optimize.FunctionConverge{
			Absolute:   opts.Tolerance,
			Iterations: 100,
		},
	}

	sol, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
	if err != nil {
		return nil, &ModelFitError{Form: d.Form, Reason: "likelihood maximization failed", Err: err}
	}
	if sol.Status == optimize.IterationLimit || sol.Status == optimize.Failure {
		return nil, &ModelFitError{
			Form:   d.Form,
			Reason: "optimizer did not converge within iteration budget",
		}
	}
	if math.IsNaN(sol.F) || math.IsInf(sol.F, 0) {
		return nil, &ModelFitError{Form: d.Form, Reason: "non-finite likelihood at solution"}
	}

	res := &Result{
		Form:          d.Form,
		Names:         append([]string(nil), d.Names...),
		Coefficients:  append([]float64(nil), sol.X[:p]...),
		SigmaV2:       math.Exp(sol.X[p]),
		SigmaU2:       math.Exp(sol.X[p+1]),
		LogLikelihood: -sol.F,
		Iterations:    sol.Stats.MajorIterations,
	}
	res.Lambda = math.Sqrt(res.SigmaU2 / res.SigmaV2)
	res.Inefficiency, res.Efficiency = conditionalEfficiency(d, res)

	zap.L().Info("frontier: fit converged",
		zap.String("form", string(d.Form)),
		zap.Int("n", d.N()),
		zap.Int("params", p),
		zap.Float64("loglik", res.LogLikelihood),
		zap.Float64("sigma_v2", res.SigmaV2),
		zap.Float64("sigma_u2", res.SigmaU2),
		zap.Int("iterations", res.Iterations),
	)
	return res, nil
}

// negLogLik is the negative ALS77 log-likelihood for the half-normal
// composed-error frontier.
func negLogLik(d *Design, theta []float64) float64 {
	p := d.P()
	beta := mat.NewVecDense(p, theta[:p])
	sigmaV2 := math.Exp(theta[p])
	sigmaU2 := math.Exp(theta[p+1])
	sigma2 := sigmaV2 + sigmaU2
	sigma := math.Sqrt(sigma2)
	lambda := math.Sqrt(sigmaU2 / sigmaV2)

	var fitted mat.VecDense
	fitted.MulVec(d.X, beta)

	ll := 0.0
	for i := 0; i < d.N(); i++ {
		eps := d.Y[i] - fitted.AtVec(i)
		z := eps / sigma
		ll += math.Ln2 - math.Log(sigma) +
			distuv.UnitNormal.LogProb(z) +
			logPhi(-z*lambda)
	}
	if math.IsNaN(ll) {
		return math.Inf(1)
	}
	return -ll
}

// logPhi is ln Φ(x) with an asymptotic guard for the deep left tail, where
// the CDF underflows to zero.
func logPhi(x float64) float64 {
	if x > -8 {
		return math.Log(distuv.UnitNormal.CDF(x))
	}
	// Mills-ratio asymptote: Φ(x) ≈ φ(x)/(-x) for x << 0.
	return distuv.UnitNormal.LogProb(x) - math.Log(-x)
}
