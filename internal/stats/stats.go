package stats

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice. Returns 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// Sum adds all values.
func Sum(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return floats.Sum(values)
}

// Finite reports whether every value is neither NaN nor infinite.
func Finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// CAGR returns the compound annual growth rate, in percent, from start to end over years.
// The result is NaN when start is not positive or the ratio is negative.
func CAGR(start, end float64, years int) float64 {
	if start <= 0 || years <= 0 {
		return math.NaN()
	}
	return (math.Pow(end/start, 1/float64(years)) - 1) * 100
}
