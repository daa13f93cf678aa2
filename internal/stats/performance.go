package stats

import (
	"errors"
	"math"
	"sort"
)

// ErrNoZeroContrast is returned when graded images cannot be compared against
// a zero-contrast baseline because a non-zero image sorts first.
var ErrNoZeroContrast = errors.New("reward images out of order, need 0 contrast first")

// PerformanceRow summarises hits and latencies of one reward image.
type PerformanceRow struct {
	Name        string
	Contrast    int
	Appearances int
	Hits        int
	Misses      int
	// SuccessRate is a percentage, NaN when the image never appeared.
	SuccessRate float64
	True        Summary
	All         Summary
	// TrueRI and AllRI compare mean latency against the zero-contrast image.
	TrueRI float64
	AllRI  float64
	// DPrime is the sensitivity index against the timeout, NaN when undefined.
	DPrime float64
}

// ImagePerformance builds one row per reward image in natural name order.
// When first is set only first appearances (reward sequence 1) are counted.
// Relative indices are only computed when graded is set; graded rows must
// start with the zero-contrast image.
func ImagePerformance(rep LatencyReport, first, graded bool) ([]PerformanceRow, error) {
	images := append([]*ImageLatencies(nil), rep.Images...)
	sort.SliceStable(images, func(i, j int) bool {
		return NaturalLess(images[i].Name, images[j].Name)
	})
	timeout, hasTimeout := rep.Preset.Timeout()

	rows := make([]PerformanceRow, 0, len(images))
	var zero *PerformanceRow
	for _, il := range images {
		trueLat, allLat := il.True, il.All
		if first {
			trueLat, allLat = il.TrueFirst, il.AllFirst
		}
		row := PerformanceRow{
			Name:        il.Name,
			Contrast:    il.Contrast,
			Appearances: len(allLat),
			Hits:        len(trueLat),
			SuccessRate: math.NaN(),
			True:        Describe(trueLat),
			All:         Describe(allLat),
			TrueRI:      math.NaN(),
			AllRI:       math.NaN(),
			DPrime:      math.NaN(),
		}
		row.Misses = row.Appearances - row.Hits
		if row.Appearances > 0 {
			row.SuccessRate = float64(row.Hits) * 100 / float64(row.Appearances)
		}
		if hasTimeout {
			row.DPrime = dPrime(row.True.Mean, row.All.Mean, row.All.SD, timeout)
		}
		if graded {
			if zero == nil && row.Contrast != 0 {
				return nil, ErrNoZeroContrast
			}
			if row.Contrast == 0 {
				base := row
				zero = &base
			}
			row.TrueRI = relativeIndex(zero.True.Mean, row.True.Mean)
			row.AllRI = relativeIndex(zero.All.Mean, row.All.Mean)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func relativeIndex(baseline, mean float64) float64 {
	if !isNumber(baseline) || !isNumber(mean) || mean == 0 {
		return math.NaN()
	}
	return 1 - baseline/mean
}

// dPrime separates rewarded latencies from the timeout, both measured in
// standard deviations of all latencies.
func dPrime(trueMean, allMean, allSD, timeout float64) float64 {
	if !isNumber(trueMean) || !isNumber(allMean) || !isNumber(allSD) || allSD == 0 {
		return math.NaN()
	}
	z1 := (trueMean - allMean) / allSD
	z2 := (timeout - allMean) / allSD
	return z2 - z1
}
