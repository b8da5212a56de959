package frontier

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// rankTolerance is the relative singular-value cutoff for declaring a design
// matrix rank deficient.
const rankTolerance = 1e-10

// OLSResult holds the least-squares fit used for frontier start values and
// the optional collinearity diagnostic.
type OLSResult struct {
	Coefficients []float64 // aligned with Design.Names
	Residuals    []float64
	Sigma2       float64 // residual variance (n - p denominator)
	R2           float64
}

// FitOLS fits ordinary least squares on the design. It fails with a
// ModelFitError when the design matrix is rank deficient, the same condition
// that would make the frontier likelihood unidentifiable.
func FitOLS(d *Design) (*OLSResult, error) {
	n, p := d.N(), d.P()
	if n <= p {
		return nil, &ModelFitError{Form: d.Form, Reason: "fewer observations than parameters"}
	}
	if rank := matrixRank(d.X); rank < p {
		return nil, &ModelFitError{Form: d.Form, Reason: "rank-deficient design matrix (perfect collinearity)"}
	}

	var qr mat.QR
	qr.Factorize(d.X)

	y := mat.NewVecDense(n, d.Y)
	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, y); err != nil {
		return nil, &ModelFitError{Form: d.Form, Reason: "least-squares solve failed", Err: err}
	}

	res := &OLSResult{
		Coefficients: make([]float64, p),
		Residuals:    make([]float64, n),
	}
	for i := 0; i < p; i++ {
		res.Coefficients[i] = beta.AtVec(i)
	}

	var fitted mat.VecDense
	fitted.MulVec(d.X, &beta)

	rss := 0.0
	for i := 0; i < n; i++ {
		r := d.Y[i] - fitted.AtVec(i)
		res.Residuals[i] = r
		rss += r * r
	}
	res.Sigma2 = rss / float64(n-p)

	mean := stat.Mean(d.Y, nil)
	tss := 0.0
	for _, v := range d.Y {
		tss += (v - mean) * (v - mean)
	}
	if tss > 0 {
		res.R2 = 1 - rss/tss
	}
	return res, nil
}

// VIF computes variance-inflation factors for every non-intercept column by
// regressing it on the remaining columns. This is the recommended
// collinearity screen before a frontier fit; it is diagnostic only and not a
// pipeline dependency.
func VIF(d *Design) (map[string]float64, error) {
	n, p := d.N(), d.P()
	if rank := matrixRank(d.X); rank < p {
		return nil, &ModelFitError{Form: d.Form, Reason: "rank-deficient design matrix (perfect collinearity)"}
	}

	out := make(map[string]float64, p-1)
	for j := 1; j < p; j++ {
		target := mat.NewVecDense(n, nil)
		target.CopyVec(d.X.ColView(j))

		rest := mat.NewDense(n, p-1, nil)
		col := 0
		for k := 0; k < p; k++ {
			if k == j {
				continue
			}
			for i := 0; i < n; i++ {
				rest.Set(i, col, d.X.At(i, k))
			}
			col++
		}

		var qr mat.QR
		qr.Factorize(rest)
		var beta mat.VecDense
		if err := qr.SolveVecTo(&beta, false, target); err != nil {
			out[d.Names[j]] = math.Inf(1)
			continue
		}
		var fitted mat.VecDense
		fitted.MulVec(rest, &beta)

		mean := stat.Mean(target.RawVector().Data, nil)
		rss, tss := 0.0, 0.0
		for i := 0; i < n; i++ {
			r := target.AtVec(i) - fitted.AtVec(i)
			rss += r * r
			dev := target.AtVec(i) - mean
			tss += dev * dev
		}
		if tss == 0 || rss == 0 {
			out[d.Names[j]] = math.Inf(1)
			continue
		}
		r2 := 1 - rss/tss
		out[d.Names[j]] = 1 / (1 - r2)
	}
	return out, nil
}

func matrixRank(x *mat.Dense) int {
	var svd mat.SVD
	if ok := svd.Factorize(x, mat.SVDThin); !ok {
		return 0
	}
	vals := svd.Values(nil)
	if len(vals) == 0 {
		return 0
	}
	tol := vals[0] * rankTolerance * float64(len(vals))
	rank := 0
	for _, v := range vals {
		if v > tol {
			rank++
		}
	}
	return rank
}
