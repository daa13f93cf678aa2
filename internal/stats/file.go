package stats

import (
	"errors"
	"math"

	"github.com/verte-zerg/wheelpoke/internal/events"
	"github.com/verte-zerg/wheelpoke/internal/model"
	"github.com/verte-zerg/wheelpoke/internal/parser"
)

// Options tunes file report computation.
type Options struct {
	Grace       float64
	LatencyStep float64
	Hours       int
}

// DefaultOptions matches the apparatus defaults.
func DefaultOptions() Options {
	return Options{
		Grace:       events.DefaultGrace,
		LatencyStep: DefaultLatencyStep,
		Hours:       DefaultHours,
	}
}

// ImageDistribution is the latency histogram of one reward image.
type ImageDistribution struct {
	Name      string
	Contrast  int
	Histogram Histogram
}

// PokeTotals aggregates poke counts over a file.
type PokeTotals struct {
	Events       int
	Successful   int
	Pokes        int
	Unsuccessful int
	Ambiguous    int
	Drink        Summary
}

// FileReport holds every statistic derived from one analysed log.
type FileReport struct {
	Path       string
	Identifier string
	Preset     model.Preset

	Latency          LatencyReport
	Performance      []PerformanceRow
	FirstPerformance []PerformanceRow
	// PerformanceWarning is set when graded rows fell back to ungraded ones.
	PerformanceWarning string
	Distributions      []ImageDistribution
	Hourly             []int
	Pokes              PokeTotals
	Rotations          RotationSummary
	RPMTrace           []float64

	DroppedRotations int
	ShortRuns        int
}

// BuildFileReport derives the file report from a parse result.
func BuildFileReport(res *parser.Result, opts Options) FileReport {
	if opts.Grace <= 0 {
		opts.Grace = events.DefaultGrace
	}
	rep := FileReport{
		Path:             res.Path,
		Identifier:       res.Identifier,
		Preset:           res.Preset,
		Latency:          BuildLatencyReport(res.Registry, res.Preset),
		Hourly:           PokesPerHour(res.Pokes, opts.Hours),
		Pokes:            pokeTotals(res.Pokes, opts.Grace),
		Rotations:        SummarizeRotations(res.Rotations),
		DroppedRotations: res.DroppedRotations,
		ShortRuns:        res.ShortRuns,
	}
	for _, ri := range res.Rotations {
		rep.RPMTrace = append(rep.RPMTrace, ri.AvgSpeed())
	}

	graded := res.Preset.Graded()
	perf, err := ImagePerformance(rep.Latency, false, graded)
	if errors.Is(err, ErrNoZeroContrast) {
		rep.PerformanceWarning = err.Error()
		graded = false
		perf, _ = ImagePerformance(rep.Latency, false, false)
	}
	rep.Performance = perf
	if graded {
		rep.FirstPerformance, _ = ImagePerformance(rep.Latency, true, true)
	}

	span := HistogramSpan(res.Preset)
	for _, il := range SortLatenciesByContrast(rep.Latency.Images) {
		if len(il.True) == 0 {
			continue
		}
		rep.Distributions = append(rep.Distributions, ImageDistribution{
			Name:      il.Name,
			Contrast:  il.Contrast,
			Histogram: LatencyHistogram(il.True, opts.LatencyStep, span),
		})
	}
	return rep
}

// SortLatenciesByContrast orders image latencies by contrast, ties by first appearance.
func SortLatenciesByContrast(images []*ImageLatencies) []*ImageLatencies {
	out := append([]*ImageLatencies(nil), images...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Contrast < out[j-1].Contrast; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func pokeTotals(pokes []*events.PokeEvent, grace float64) PokeTotals {
	var t PokeTotals
	var drinks []float64
	for _, pe := range pokes {
		t.Events++
		t.Successful += len(pe.SuccessfulPokes())
		t.Pokes += pe.PokesExcludingTimeout(grace)
		t.Unsuccessful += len(pe.UnsuccessfulPokes())
		if pe.Ambiguous() {
			t.Ambiguous++
		}
		drinks = append(drinks, pe.DrinkDurations()...)
	}
	t.Drink = Describe(drinks)
	return t
}

// ImageStats flattens the report into per-image rows for storage. Reward
// images carry latency figures; every image that ran carries its mean RPM.
func (r FileReport) ImageStats(res *parser.Result) []model.ImageStats {
	rpm := map[string]ImageRotations{}
	for _, ir := range r.Rotations.Images {
		rpm[ir.Name] = ir
	}
	perf := map[string]PerformanceRow{}
	for _, row := range r.Performance {
		perf[row.Name] = row
	}
	var out []model.ImageStats
	for _, im := range res.Registry.Images() {
		row, hasPerf := perf[im.Name]
		ir, hasRPM := rpm[im.Name]
		if !hasPerf && !hasRPM && im.NumAppearances() == 0 {
			continue
		}
		st := model.ImageStats{
			Name:        im.Name,
			Type:        im.Type,
			Contrast:    GetContrast(im.Name),
			Appearances: im.NumAppearances(),
			TrueMean:    math.NaN(),
			TrueSEM:     math.NaN(),
			TrueSD:      math.NaN(),
			AllMean:     math.NaN(),
			AllSEM:      math.NaN(),
			AllSD:       math.NaN(),
			RPMMean:     math.NaN(),
		}
		if hasPerf {
			st.Hits = row.Hits
			st.TrueMean, st.TrueSEM, st.TrueSD = row.True.Mean, row.True.SEM, row.True.SD
			st.AllMean, st.AllSEM, st.AllSD = row.All.Mean, row.All.SEM, row.All.SD
		}
		if hasRPM {
			st.RPMMean = ir.Speed.Mean
			st.RPMCount = ir.Speed.N
		}
		out = append(out, st)
	}
	return out
}

// RotationRecords lists the surviving rotation intervals for storage.
func RotationRecords(rotations []*events.RotationInterval) []model.RotationRecord {
	out := make([]model.RotationRecord, 0, len(rotations))
	for _, ri := range rotations {
		name := ""
		if ri.Image() != nil {
			name = ri.Image().Name
		}
		out = append(out, model.RotationRecord{
			Image:     name,
			Contrast:  GetContrast(name),
			StartTime: ri.StartTime(),
			AvgSpeed:  ri.AvgSpeed(),
		})
	}
	return out
}

// Record bundles the report for storage.
func (r FileReport) Record(res *parser.Result) model.FileRecord {
	return model.FileRecord{
		Summary: model.FileSummary{
			Path:             res.Path,
			Identifier:       res.Identifier,
			DriveID:          res.DriveID,
			Preset:           res.Preset,
			Appearances:      len(res.Registry.Appearances()),
			PokeEvents:       len(res.Pokes),
			Rotations:        len(res.Rotations),
			DroppedRotations: res.DroppedRotations,
			AmbiguousPokes:   r.Pokes.Ambiguous,
		},
		Images:    r.ImageStats(res),
		Latencies: r.Latency.Records,
		Rotations: RotationRecords(res.Rotations),
	}
}

// FailedRecord stores a file that could not be analysed.
func FailedRecord(path string, err error) model.FileRecord {
	return model.FileRecord{Summary: model.FileSummary{Path: path, Err: err.Error()}}
}
