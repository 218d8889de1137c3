package analysis

import (
	"math"
	"sort"
)

// Quantile returns the q-th quantile of values using linear interpolation
// between order statistics. NaN inputs are ignored. It returns NaN when no
// values remain and the value itself when one remains.
func Quantile(values []float64, q float64) float64 {
	sorted := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			sorted = append(sorted, v)
		}
	}
	if len(sorted) == 0 {
		return math.NaN()
	}
	sort.Float64s(sorted)
	return sortedQuantile(sorted, q)
}

// Median is Quantile(values, 0.5).
func Median(values []float64) float64 {
	return Quantile(values, 0.5)
}

func sortedQuantile(sorted []float64, q float64) float64 {
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
