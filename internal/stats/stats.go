// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"
)

const sparkChars = " .:-=+*#%@"

// RPMWindow is the moving average window applied to the rotation speed trace.
const RPMWindow = 5

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = min(max(idx, 0), len(sparkChars)-1)
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderOptions controls terminal output of a file report.
type RenderOptions struct {
	// Width is the total terminal width; zero detects it.
	Width    int
	Height   int
	UseColor bool
	// Latencies lists every appearance latency when set.
	Latencies bool
	// FirstOnly keeps only first-appearance performance rows for graded presets.
	FirstOnly bool
}

// RenderFileReport prints every section of a file report.
func RenderFileReport(w io.Writer, rep FileReport, opts RenderOptions) error {
	steps := []func() error{
		func() error { return RenderHeader(w, rep) },
		func() error {
			if opts.FirstOnly && len(rep.FirstPerformance) > 0 {
				return nil
			}
			return RenderPerformance(w, "Image Performance", rep.Performance)
		},
		func() error {
			if len(rep.FirstPerformance) == 0 {
				return nil
			}
			return RenderPerformance(w, "Image Performance (First Appearance)", rep.FirstPerformance)
		},
		func() error {
			if !opts.Latencies {
				return nil
			}
			return RenderLatencies(w, rep.Latency)
		},
		func() error { return RenderDistributions(w, rep.Distributions) },
		func() error { return RenderPokesPerHour(w, rep.Hourly) },
		func() error { return RenderRotations(w, rep.Rotations) },
		func() error { return RenderRPMCurve(w, rep.RPMTrace, opts) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

// RenderHeader prints the file identity and poke totals.
func RenderHeader(w io.Writer, rep FileReport) error {
	lines := []string{
		rep.Identifier,
		fmt.Sprintf("File: %s", rep.Path),
		fmt.Sprintf("Preset: %s", rep.Preset),
		fmt.Sprintf("Poke events: %d (%d rewarded, %d ambiguous)", rep.Pokes.Events, rep.Pokes.Successful, rep.Pokes.Ambiguous),
		fmt.Sprintf("Pokes: %d (%d unrewarded)", rep.Pokes.Pokes, rep.Pokes.Unsuccessful),
		fmt.Sprintf("Drink time: %s s (SD %s)", fmtFloat(rep.Pokes.Drink.Mean, 2), fmtFloat(rep.Pokes.Drink.SD, 2)),
		fmt.Sprintf("Rotations: %d kept, %d pruned, %d too short", len(rep.RPMTrace), rep.DroppedRotations, rep.ShortRuns),
	}
	if rep.PerformanceWarning != "" {
		lines = append(lines, fmt.Sprintf("Warning: %s", rep.PerformanceWarning))
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderPerformance prints one row per reward image.
func RenderPerformance(w io.Writer, title string, rows []PerformanceRow) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintf(w, "%s\nNo reward images shown.\n\n", title)
		return err
	}
	headers := []string{"Image", "Contrast", "Shown", "Hits", "Success", "Latency", "SEM", "All", "All SEM", "RI", "All RI", "d'"}
	table := make([][]string, 0, len(rows))
	for _, r := range rows {
		table = append(table, []string{
			r.Name,
			fmt.Sprintf("%d", r.Contrast),
			fmt.Sprintf("%d", r.Appearances),
			fmt.Sprintf("%d", r.Hits),
			fmtPercent(r.SuccessRate),
			fmtFloat(r.True.Mean, 3),
			fmtFloat(r.True.SEM, 3),
			fmtFloat(r.All.Mean, 3),
			fmtFloat(r.All.SEM, 3),
			fmtFloat(r.TrueRI, 3),
			fmtFloat(r.AllRI, 3),
			fmtFloat(r.DPrime, 3),
		})
	}
	return writeTable(w, title, headers, table, rightAlignFrom(1, len(headers)))
}

// RenderLatencies lists every reward appearance with its latency.
func RenderLatencies(w io.Writer, rep LatencyReport) error {
	if len(rep.Records) == 0 {
		return nil
	}
	headers := []string{"Time", "Image", "Contrast", "Seq", "Latency"}
	table := make([][]string, 0, len(rep.Records))
	for _, rec := range rep.Records {
		lat := fmtFloat(rec.Latency, 3)
		if rec.TimedOut {
			lat += " (timeout)"
		}
		table = append(table, []string{
			fmtFloat(rec.Time, 2),
			rec.Image,
			fmt.Sprintf("%d", rec.Contrast),
			fmt.Sprintf("%d", rec.RewardSeq),
			lat,
		})
	}
	return writeTable(w, "Latencies", headers, table, map[int]bool{0: true, 2: true, 3: true})
}

// RenderDistributions prints the non-empty bins of each latency histogram.
func RenderDistributions(w io.Writer, dists []ImageDistribution) error {
	if len(dists) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "Latency Distributions"); err != nil {
		return err
	}
	for _, d := range dists {
		h := d.Histogram
		var table [][]string
		for i, c := range h.Counts {
			if c == 0 {
				continue
			}
			table = append(table, []string{
				fmt.Sprintf("%s-%s", fmtFloat(h.Edges[i], 1), fmtFloat(h.Edges[i+1], 1)),
				fmt.Sprintf("%d", c),
				fmtPercent(h.Percents[i]),
			})
		}
		title := fmt.Sprintf("%s (contrast %d, n=%d)", d.Name, d.Contrast, h.Total)
		if err := writeTable(w, title, []string{"Bin (s)", "Count", "Share"}, table, rightAlignFrom(1, 3)); err != nil {
			return err
		}
	}
	return nil
}

// RenderPokesPerHour prints rewarded pokes for each session hour.
func RenderPokesPerHour(w io.Writer, hourly []int) error {
	if len(hourly) == 0 {
		return nil
	}
	headers := make([]string, len(hourly))
	row := make([]string, len(hourly))
	values := make([]float64, len(hourly))
	for i, n := range hourly {
		headers[i] = fmt.Sprintf("%d", i+1)
		row[i] = fmt.Sprintf("%d", n)
		values[i] = float64(n)
	}
	if err := writeTable(w, "Rewarded Pokes per Hour", headers, [][]string{row}, rightAlignFrom(0, len(headers))); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "[%s]\n\n", Sparkline(values))
	return err
}

// RenderRotations prints per-image wheel speed statistics.
func RenderRotations(w io.Writer, sum RotationSummary) error {
	if len(sum.Images) == 0 {
		_, err := fmt.Fprint(w, "Wheel Running\nNo rotation intervals.\n\n")
		return err
	}
	headers := []string{"Image", "Contrast", "Runs", "Mean RPM", "SEM", "SD"}
	table := make([][]string, 0, len(sum.Images)+1)
	for _, ir := range sum.Images {
		table = append(table, summaryRow(ir.Name, fmt.Sprintf("%d", ir.Contrast), ir.Speed))
	}
	table = append(table, summaryRow("All", "", sum.Global))
	return writeTable(w, "Wheel Running", headers, table, rightAlignFrom(1, len(headers)))
}

func summaryRow(name, contrast string, s Summary) []string {
	return []string{
		name,
		contrast,
		fmt.Sprintf("%d", s.N),
		fmtFloat(s.Mean, 2),
		fmtFloat(s.SEM, 2),
		fmtFloat(s.SD, 2),
	}
}

// RenderRPMCurve plots interval speeds in time order with a moving average.
func RenderRPMCurve(w io.Writer, trace []float64, opts RenderOptions) error {
	if len(trace) == 0 {
		return nil
	}
	height := opts.Height
	if height <= 0 {
		height = defaultPlotHeight
	}
	width := 0
	if opts.Width > 0 {
		width = PlotWidthFor(opts.Width, len(fmtFloat(maxOf(trace), 1)))
	}
	return PlotSeries(w, "Rotation Speed (RPM)", []Series{
		{Name: "Interval", Values: trace},
		{Name: fmt.Sprintf("Avg %d", RPMWindow), Values: MovingAverage(trace, RPMWindow)},
	}, width, height, opts.UseColor)
}

func maxOf(values []float64) float64 {
	out := math.Inf(-1)
	for _, v := range values {
		out = math.Max(out, v)
	}
	return out
}
