// Package numeric provides the shared arithmetic helpers used by every metric
// component.  All ratio computations in the engine go through Ratio so that
// division by zero has a single, well-defined outcome, and all emitted values
// go through Round so that repeated runs produce byte-identical output.
package numeric

import "math"

// Ratio returns num/den, or 0 when den is zero.  Metric semantics treat an
// empty denominator set as contributing nothing, never as an error.
func Ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// RatioInt is the integer-argument convenience form of Ratio.
func RatioInt(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// Round rounds x half-away-from-zero to the given number of decimal places.
// Every value that crosses a record boundary (panel rows, artifacts, events)
// is rounded exactly once, at record construction.
func Round(x float64, places int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	pow := math.Pow(10, float64(places))
	return math.Round(x*pow) / pow
}

// Mean returns the arithmetic mean of xs, or 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// InRange reports whether x lies in [lo, hi] within tolerance eps.  The engine
// never alters out-of-bounds values; this predicate only drives validation
// warnings.
func InRange(x, lo, hi, eps float64) bool {
	return x >= lo-eps && x <= hi+eps
}
