package stats

import (
	"bytes"
	"strings"
	"testing"

	"github.com/verte-zerg/wheelpoke/internal/model"
	"github.com/verte-zerg/wheelpoke/internal/parser"
)

const contrastLog = `USB drive ID: 7
Control image set: [gray]
Reward image set: [grating0_negative, grating100]
preset: contrast
Start of experiment
Image Name: gray, Time: 0.5
Wheel State: High, Time: 1.0
Wheel State: Low, Time: 2.0
Wheel State: High, Time: 3.0
Wheel State: Low, Time: 4.0
Image Name: grating0_negative, Time: 5.0
Door State: Low, Time: 6.0
Pump State: On, Time: 6.003
Door State: High, Time: 6.2
Image Name: gray, Time: 6.5
Pump State: Off, Time: 8.0
Image Name: grating100, Time: 20.0
Image Name: gray, Time: 30.0
`

func parseLog(t *testing.T, log string) *parser.Result {
	t.Helper()
	res, err := parser.Parse(strings.NewReader(log), "Results_7.txt")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return res
}

func TestBuildFileReport(t *testing.T) {
	res := parseLog(t, contrastLog)
	rep := BuildFileReport(res, DefaultOptions())

	if rep.Identifier != "Mouse_7" || rep.Preset != model.Contrast {
		t.Fatalf("unexpected report identity %s %s", rep.Identifier, rep.Preset)
	}
	if rep.PerformanceWarning != "" {
		t.Fatalf("expected no warning, got %q", rep.PerformanceWarning)
	}
	if len(rep.Performance) != 2 || rep.Performance[0].Name != "grating0_negative" {
		t.Fatalf("unexpected performance rows %+v", rep.Performance)
	}
	if len(rep.FirstPerformance) != 2 {
		t.Fatalf("expected first-appearance rows for a graded preset, got %d", len(rep.FirstPerformance))
	}
	neg := rep.Performance[0]
	if neg.Hits != 1 || neg.Appearances != 1 {
		t.Fatalf("unexpected negative row %+v", neg)
	}
	grating := rep.Performance[1]
	if grating.Hits != 0 || grating.Appearances != 1 || grating.All.Mean != 10 {
		t.Fatalf("expected a timed out grating appearance, got %+v", grating)
	}
	if rep.Hourly[0] != 1 {
		t.Fatalf("expected one rewarded poke in the first hour, got %v", rep.Hourly)
	}
	if rep.Pokes.Events != 1 || rep.Pokes.Successful != 1 {
		t.Fatalf("unexpected poke totals %+v", rep.Pokes)
	}
	if len(rep.Distributions) != 1 || rep.Distributions[0].Histogram.Total != 1 {
		t.Fatalf("expected one latency distribution, got %+v", rep.Distributions)
	}
	if len(rep.RPMTrace) != 1 {
		t.Fatalf("expected one rotation interval, got %d", len(rep.RPMTrace))
	}
}

func TestBuildFileReportFallsBackWithoutZeroContrast(t *testing.T) {
	log := strings.Replace(contrastLog, "Image Name: grating0_negative, Time: 5.0", "Image Name: grating100, Time: 5.0", 1)
	rep := BuildFileReport(parseLog(t, log), DefaultOptions())
	if rep.PerformanceWarning == "" {
		t.Fatalf("expected a warning when no zero-contrast image was shown")
	}
	if len(rep.FirstPerformance) != 0 {
		t.Fatalf("expected no graded first-appearance rows after fallback")
	}
	if len(rep.Performance) != 1 {
		t.Fatalf("expected ungraded rows, got %+v", rep.Performance)
	}
}

func TestFileRecord(t *testing.T) {
	res := parseLog(t, contrastLog)
	rec := BuildFileReport(res, DefaultOptions()).Record(res)
	if rec.Summary.DriveID != 7 || rec.Summary.PokeEvents != 1 {
		t.Fatalf("unexpected summary %+v", rec.Summary)
	}
	if len(rec.Latencies) != 2 {
		t.Fatalf("expected 2 latency records, got %d", len(rec.Latencies))
	}
	byName := map[string]model.ImageStats{}
	for _, im := range rec.Images {
		byName[im.Name] = im
	}
	// The run ends on the door event, after the zero-contrast image came up.
	neg, ok := byName["grating0_negative"]
	if !ok || neg.Type != model.Reward || neg.RPMCount != 1 || neg.Hits != 1 {
		t.Fatalf("expected zero-contrast row with one rotation and one hit, got %+v", rec.Images)
	}
	if gray := byName["gray"]; gray.Type != model.Control || gray.RPMCount != 0 {
		t.Fatalf("expected gray control row without rotations, got %+v", gray)
	}
}

func TestRenderFileReport(t *testing.T) {
	rep := BuildFileReport(parseLog(t, contrastLog), DefaultOptions())
	var buf bytes.Buffer
	if err := RenderFileReport(&buf, rep, RenderOptions{Width: 60, Latencies: true}); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Mouse_7",
		"Preset: CONTRAST",
		"Image Performance",
		"Image Performance (First Appearance)",
		"Latencies",
		"(timeout)",
		"Latency Distributions",
		"Rewarded Pokes per Hour",
		"Wheel Running",
		"Rotation Speed (RPM)",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}
