// Package stratify partitions observations into biophysical strata and
// classifies fields by their position in the stratum yield distribution.
package stratify

import "sort"

// Quantile returns the p-quantile (0 <= p <= 1) of values using linear
// interpolation between the closest order statistics: with n sorted values
// the target rank is h = (n-1)·p and the result interpolates between
// x[floor(h)] and x[floor(h)+1]. The rule is applied uniformly so repeated
// runs are bit-reproducible, and it returns a defined value for any
// non-empty input, however small.
func Quantile(values []float64, p float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return quantileSorted(sorted, p)
}

func quantileSorted(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}
	h := float64(n-1) * p
	lo := int(h)
	frac := h - float64(lo)
	if lo+1 >= n {
		return sorted[n-1]
	}
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
