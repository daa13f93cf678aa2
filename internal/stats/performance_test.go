package stats

import (
	"errors"
	"math"
	"testing"

	"github.com/verte-zerg/wheelpoke/internal/model"
)

func gradedReport() LatencyReport {
	return LatencyReport{
		Preset: model.Contrast,
		Images: []*ImageLatencies{
			{Name: "stim7", Contrast: 8, True: []float64{4}, All: []float64{4, 10}, TrueFirst: []float64{4}, AllFirst: []float64{4}},
			{Name: "negative", Contrast: 0, True: []float64{1, 3}, All: []float64{1, 3, 10}, TrueFirst: []float64{1}, AllFirst: []float64{1, 10}},
		},
	}
}

func TestImagePerformanceGraded(t *testing.T) {
	rows, err := ImagePerformance(gradedReport(), false, true)
	if err != nil {
		t.Fatalf("image performance: %v", err)
	}
	if len(rows) != 2 || rows[0].Name != "negative" || rows[1].Name != "stim7" {
		t.Fatalf("unexpected row order %+v", rows)
	}
	zero, stim := rows[0], rows[1]
	if zero.TrueRI != 0 {
		t.Fatalf("expected zero RI for baseline, got %f", zero.TrueRI)
	}
	if stim.Hits != 1 || stim.Appearances != 2 || stim.Misses != 1 {
		t.Fatalf("unexpected counts %+v", stim)
	}
	if math.Abs(stim.SuccessRate-50) > 1e-9 {
		t.Fatalf("expected 50%% success, got %f", stim.SuccessRate)
	}
	if math.Abs(stim.TrueRI-0.5) > 1e-9 {
		t.Fatalf("expected true RI 0.5, got %f", stim.TrueRI)
	}
	wantAllRI := 1 - (14.0/3.0)/7.0
	if math.Abs(stim.AllRI-wantAllRI) > 1e-9 {
		t.Fatalf("expected all RI %f, got %f", wantAllRI, stim.AllRI)
	}
	if math.Abs(stim.DPrime-2) > 1e-9 {
		t.Fatalf("expected d' 2, got %f", stim.DPrime)
	}
}

func TestImagePerformanceFirstAppearance(t *testing.T) {
	rows, err := ImagePerformance(gradedReport(), true, true)
	if err != nil {
		t.Fatalf("image performance: %v", err)
	}
	if rows[0].Appearances != 2 || rows[0].Hits != 1 {
		t.Fatalf("expected first-appearance counts for baseline, got %+v", rows[0])
	}
	if rows[1].Appearances != 1 || rows[1].Hits != 1 {
		t.Fatalf("expected first-appearance counts for stim7, got %+v", rows[1])
	}
}

func TestImagePerformanceNeedsZeroContrast(t *testing.T) {
	rep := gradedReport()
	rep.Images = rep.Images[:1]
	if _, err := ImagePerformance(rep, false, true); !errors.Is(err, ErrNoZeroContrast) {
		t.Fatalf("expected ErrNoZeroContrast, got %v", err)
	}
	rows, err := ImagePerformance(rep, false, false)
	if err != nil {
		t.Fatalf("ungraded performance: %v", err)
	}
	if !math.IsNaN(rows[0].TrueRI) {
		t.Fatalf("expected NaN RI without grading, got %f", rows[0].TrueRI)
	}
}

func TestImagePerformanceWithoutTimeout(t *testing.T) {
	rep := gradedReport()
	rep.Preset = model.Night1
	rows, err := ImagePerformance(rep, false, false)
	if err != nil {
		t.Fatalf("image performance: %v", err)
	}
	for _, row := range rows {
		if !math.IsNaN(row.DPrime) {
			t.Fatalf("expected NaN d' without timeout, got %f", row.DPrime)
		}
	}
}
