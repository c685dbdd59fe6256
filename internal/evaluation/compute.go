package evaluation

import (
	"math"
	"sort"
)

// errorStats summarizes signed forecast errors (forecast - actual).
type errorStats struct {
	n      int
	mae    float64
	rmse   float64
	bias   float64
	p50    float64
	p90    float64
	maxAbs float64
}

func computeErrorStats(errs []float64) errorStats {
	n := len(errs)
	if n == 0 {
		return errorStats{}
	}

	abs := make([]float64, n)
	sq := make([]float64, n)
	for i, e := range errs {
		abs[i] = math.Abs(e)
		sq[i] = e * e
	}
	sortedAbs := make([]float64, n)
	copy(sortedAbs, abs)
	sort.Float64s(sortedAbs)

	return errorStats{
		n:      n,
		mae:    computeMean(abs),
		rmse:   math.Sqrt(computeMean(sq)),
		bias:   computeMean(errs),
		p50:    computePercentile(sortedAbs, 0.50),
		p90:    computePercentile(sortedAbs, 0.90),
		maxAbs: sortedAbs[n-1],
	}
}

// computeMean calculates the arithmetic mean. Empty input yields 0.
func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computePercentile uses linear interpolation.
// sorted must be pre-sorted ASC; p is a fraction (0.90 = 90th percentile).
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}
