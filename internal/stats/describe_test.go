package stats

import (
	"math"
	"testing"
)

func TestDescribe(t *testing.T) {
	s := Describe([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if s.N != 8 || s.Mean != 5 {
		t.Fatalf("expected n=8 mean=5, got %+v", s)
	}
	if math.Abs(s.SD-2) > 1e-9 {
		t.Fatalf("expected population SD 2, got %f", s.SD)
	}
	wantSEM := math.Sqrt(32.0/7.0) / math.Sqrt(8)
	if math.Abs(s.SEM-wantSEM) > 1e-9 {
		t.Fatalf("expected SEM %f, got %f", wantSEM, s.SEM)
	}
}

func TestDescribeSmallSamples(t *testing.T) {
	empty := Describe(nil)
	if empty.N != 0 || !math.IsNaN(empty.Mean) || !math.IsNaN(empty.SD) || !math.IsNaN(empty.SEM) {
		t.Fatalf("expected NaN summary for empty sample, got %+v", empty)
	}
	one := Describe([]float64{3})
	if one.Mean != 3 || one.SD != 0 || !math.IsNaN(one.SEM) {
		t.Fatalf("unexpected single sample summary %+v", one)
	}
}

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{2, 4, 6, 8}, 2)
	want := []float64{2, 3, 5, 7}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
