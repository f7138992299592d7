package domain

import (
	"math"
	"sort"
)

// PercentChange returns (new-old)/old*100. The result is undefined, not
// zero, when the base is zero or either input is missing.
func PercentChange(old, new *float64) *float64 {
	if old == nil || new == nil || *old == 0 {
		return nil
	}
	v := (*new - *old) / *old * 100
	return &v
}

// PerCapita scales a count to a rate per `per` residents (per-capita rates
// use per=1, the newsletter's maps mostly use per=10000). Undefined when the
// population is zero or missing.
func PerCapita(value, population *float64, per float64) *float64 {
	if value == nil || population == nil || *population == 0 {
		return nil
	}
	v := *value / *population * per
	return &v
}

// QuantileBins returns k-1 interior thresholds splitting values into k
// equal-count bins. Values are copied and sorted; nil entries must be
// filtered by the caller first. Returns nil when there is not enough data to
// form k bins.
func QuantileBins(values []float64, k int) []float64 {
	if k < 2 || len(values) < k {
		return nil
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	thresholds := make([]float64, 0, k-1)
	for i := 1; i < k; i++ {
		q := float64(i) / float64(k)
		thresholds = append(thresholds, quantile(sorted, q))
	}
	return thresholds
}

// quantile interpolates linearly between order statistics, matching the
// default quantile definition of the analysis tools the consolidated tables
// are cross-checked against.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// AssignBin places v into the bin index implied by ascending thresholds:
// v < thresholds[0] is bin 0, v >= thresholds[len-1] is the last bin.
func AssignBin(v float64, thresholds []float64) int {
	for i, t := range thresholds {
		if v < t {
			return i
		}
	}
	return len(thresholds)
}

// BivariateClass folds two tercile ranks (0..2) into the 0..8 cell index of
// a 3x3 bivariate palette, row-major with x fastest.
func BivariateClass(xTercile, yTercile int) int {
	return clampTercile(yTercile)*3 + clampTercile(xTercile)
}

func clampTercile(t int) int {
	if t < 0 {
		return 0
	}
	if t > 2 {
		return 2
	}
	return t
}
