package frontier

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// conditionalEfficiency derives E[u|ε] for every design row via the JLMS
// conditional mean of the inefficiency term given the composed residual, and
// the technical-efficiency score exp(−E[u|ε]).
func conditionalEfficiency(d *Design, r *Result) (ineff, eff []float64) {
	p := d.P()
	beta := mat.NewVecDense(p, r.Coefficients)
	var fitted mat.VecDense
	fitted.MulVec(d.X, beta)

	sigma2 := r.SigmaV2 + r.SigmaU2
	// σ* is the conditional standard deviation of u given ε.
	sigmaStar := math.Sqrt(r.SigmaV2 * r.SigmaU2 / sigma2)

	n := d.N()
	ineff = make([]float64, n)
	eff = make([]float64, n)
	for i := 0; i < n; i++ {
		eps := d.Y[i] - fitted.AtVec(i)
		muStar := -eps * r.SigmaU2 / sigma2
		z := muStar / sigmaStar

		// Inverse Mills ratio φ(z)/Φ(z), computed in log space so deep-tail
		// residuals stay finite.
		mills := math.Exp(distuv.UnitNormal.LogProb(z) - logPhi(z))
		u := muStar + sigmaStar*mills
		if u < 0 {
			u = 0
		}
		ineff[i] = u
		// exp(-u) with u >= 0 lands in (0, 1]; clamp float spill.
		eff[i] = math.Min(math.Exp(-u), 1)
	}
	return ineff, eff
}
