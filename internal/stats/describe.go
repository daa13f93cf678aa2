package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Summary holds descriptive statistics for a sample. Fields are NaN when the
// sample is too small to define them.
type Summary struct {
	N    int
	Mean float64
	SEM  float64
	SD   float64
}

// Describe computes the mean, standard error (sample deviation) and population
// standard deviation of values.
func Describe(values []float64) Summary {
	s := Summary{N: len(values), Mean: math.NaN(), SEM: math.NaN(), SD: math.NaN()}
	if len(values) == 0 {
		return s
	}
	s.Mean = stat.Mean(values, nil)
	s.SD = stat.PopStdDev(values, nil)
	if len(values) > 1 {
		_, std := stat.MeanStdDev(values, nil)
		s.SEM = stat.StdErr(std, float64(len(values)))
	}
	return s
}

func isNumber(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
