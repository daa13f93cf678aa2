package stats

import (
	"math"
	"sort"

	"github.com/verte-zerg/wheelpoke/internal/events"
	"github.com/verte-zerg/wheelpoke/internal/model"
)

const (
	// DefaultLatencyStep is the bin width of latency distributions in seconds.
	DefaultLatencyStep = 0.1
	// defaultHistogramSpan is used when the preset defines no timeout.
	defaultHistogramSpan = 10.0
	// DefaultHours is the session length covered by the hourly poke table.
	DefaultHours = 12
)

// Histogram is a binned latency distribution.
type Histogram struct {
	// Edges has one more element than Counts.
	Edges    []float64
	Counts   []int
	Percents []float64
	Total    int
}

// LatencyHistogram bins latencies into [0, span] with the given step. The
// last bin is closed; values outside the range are not counted but still
// weigh in the relative frequencies.
func LatencyHistogram(latencies []float64, step, span float64) Histogram {
	if step <= 0 {
		step = DefaultLatencyStep
	}
	if span <= 0 {
		span = defaultHistogramSpan
	}
	n := int(math.Ceil((span+step)/step - 1e-9))
	if n < 2 {
		n = 2
	}
	edges := make([]float64, n)
	for i := range edges {
		edges[i] = float64(i) * step
	}
	h := Histogram{
		Edges:    edges,
		Counts:   make([]int, n-1),
		Percents: make([]float64, n-1),
	}
	last := edges[n-1]
	for _, v := range latencies {
		if v < 0 || v > last {
			continue
		}
		idx := int(v / step)
		if idx > n-2 {
			idx = n - 2
		}
		for idx > 0 && v < edges[idx] {
			idx--
		}
		for idx < n-2 && v >= edges[idx+1] {
			idx++
		}
		h.Counts[idx]++
		h.Total++
	}
	if len(latencies) > 0 {
		for i, c := range h.Counts {
			h.Percents[i] = float64(c) * 100 / float64(len(latencies))
		}
	}
	return h
}

// HistogramSpan is the upper edge used for a preset's latency distribution.
func HistogramSpan(preset model.Preset) float64 {
	if t, ok := preset.Timeout(); ok {
		return t
	}
	return defaultHistogramSpan
}

// PokesPerHour counts rewarded pokes in each hour of the session. Index 0 is
// the first hour.
func PokesPerHour(pokes []*events.PokeEvent, hours int) []int {
	if hours <= 0 {
		hours = DefaultHours
	}
	out := make([]int, hours)
	for _, pe := range pokes {
		for _, p := range pe.PumpSamples() {
			if p.State != model.PumpOn {
				continue
			}
			hr := int(p.Time / 3600)
			if hr >= 0 && hr < hours {
				out[hr]++
			}
		}
	}
	return out
}

// ImageRotations groups rotation speeds of one image.
type ImageRotations struct {
	Name       string
	Contrast   int
	AvgSpeeds  []float64
	StartTimes []float64
	Speed      Summary
}

// RotationSummary groups rotation intervals per image, ordered by contrast.
type RotationSummary struct {
	Images []ImageRotations
	Global Summary
}

// SummarizeRotations builds per-image and global speed statistics.
func SummarizeRotations(rotations []*events.RotationInterval) RotationSummary {
	var order []string
	byName := map[string]*ImageRotations{}
	global := make([]float64, 0, len(rotations))
	for _, ri := range rotations {
		name := ""
		if ri.Image() != nil {
			name = ri.Image().Name
		}
		ir, ok := byName[name]
		if !ok {
			ir = &ImageRotations{Name: name, Contrast: GetContrast(name)}
			byName[name] = ir
			order = append(order, name)
		}
		speed := ri.AvgSpeed()
		ir.AvgSpeeds = append(ir.AvgSpeeds, speed)
		ir.StartTimes = append(ir.StartTimes, ri.StartTime())
		global = append(global, speed)
	}
	sum := RotationSummary{Global: Describe(global)}
	for _, name := range order {
		ir := byName[name]
		ir.Speed = Describe(ir.AvgSpeeds)
		sum.Images = append(sum.Images, *ir)
	}
	sort.SliceStable(sum.Images, func(i, j int) bool {
		return sum.Images[i].Contrast < sum.Images[j].Contrast
	})
	return sum
}
