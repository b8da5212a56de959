// Package ceiling resolves the water-limited yield (Yw) source for each
// field by tier-priority over externally supplied candidate stations.
package ceiling

import (
	"math"
	"sort"
)

// Series is a narrow (year -> Yw) mapping for one ceiling source. Missing
// years are simply absent; non-positive or non-finite values are treated as
// missing sentinels.
type Series map[int]float64

// Value returns the Yw for a harvest year, nil when the year is absent or
// holds a missing-value sentinel.
func (s Series) Value(year int) *float64 {
	v, ok := s[year]
	if !ok || !usable(v) {
		return nil
	}
	return &v
}

// LongRunMean averages over all years with usable data. Nil when the series
// has none.
func (s Series) LongRunMean() *float64 {
	sum, n := 0.0, 0
	for _, v := range s {
		if usable(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return nil
	}
	m := sum / float64(n)
	return &m
}

// Years returns the usable years in ascending order.
func (s Series) Years() []int {
	years := make([]int, 0, len(s))
	for y, v := range s {
		if usable(v) {
			years = append(years, y)
		}
	}
	sort.Ints(years)
	return years
}

func usable(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
