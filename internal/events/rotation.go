// Package events reconstructs wheel rotation intervals and poke events from
// buffered hardware samples.
package events

import (
	"errors"

	"github.com/verte-zerg/wheelpoke/internal/registry"
)

const (
	// MinTicks is the smallest run of half-ticks that forms an interval.
	MinTicks = 3
	// ErraticRPM is the instantaneous speed above which a sample is a sensor artifact.
	ErraticRPM = 200.0
	// minViableTicks is the number of surviving ticks an interval needs to be kept.
	minViableTicks = 2
)

// ErrTooFewTicks is returned when a wheel run is too short to form an interval.
var ErrTooFewTicks = errors.New("too few wheel ticks for a rotation interval")

// RotationInterval is one contiguous bout of wheel running.
type RotationInterval struct {
	image    *registry.Image
	ticks    []float64
	speeds   []float64
	rawSpeed []float64
	viable   bool
}

// NewRotationInterval builds an interval from half-rotation tick times.
//
// Each tick gets an instantaneous speed: interior ticks use the two
// neighbouring ticks (one full rotation, 60/dt RPM), the two boundary ticks
// only see half a rotation (30/dt RPM). Boundary ticks are never kept as
// samples. Interior samples faster than ErraticRPM are dropped together with
// their tick time.
func NewRotationInterval(ticks []float64, img *registry.Image) (*RotationInterval, error) {
	n := len(ticks)
	if n < MinTicks {
		return nil, ErrTooFewTicks
	}
	raw := make([]float64, n)
	raw[0] = 30 / (ticks[1] - ticks[0])
	for i := 1; i < n-1; i++ {
		raw[i] = 60 / (ticks[i+1] - ticks[i-1])
	}
	raw[n-1] = 30 / (ticks[n-1] - ticks[n-2])

	ri := &RotationInterval{
		image:    img,
		rawSpeed: raw,
		ticks:    make([]float64, 0, n-2),
		speeds:   make([]float64, 0, n-2),
	}
	for i := 1; i < n-1; i++ {
		if raw[i] > ErraticRPM {
			continue
		}
		ri.ticks = append(ri.ticks, ticks[i])
		ri.speeds = append(ri.speeds, raw[i])
	}
	ri.viable = len(ri.ticks) >= minViableTicks
	return ri, nil
}

// Viable reports whether enough ticks survived filtering.
func (ri *RotationInterval) Viable() bool {
	return ri.viable
}

// Image is the image current when the run ended.
func (ri *RotationInterval) Image() *registry.Image {
	return ri.image
}

// Ticks returns the surviving tick times.
func (ri *RotationInterval) Ticks() []float64 {
	return append([]float64(nil), ri.ticks...)
}

// Speeds returns the surviving instantaneous speeds in RPM, aligned with Ticks.
func (ri *RotationInterval) Speeds() []float64 {
	return append([]float64(nil), ri.speeds...)
}

// RawSpeeds returns the unfiltered per-tick speeds, boundaries included.
func (ri *RotationInterval) RawSpeeds() []float64 {
	return append([]float64(nil), ri.rawSpeed...)
}

// StartTime is the first surviving tick.
func (ri *RotationInterval) StartTime() float64 {
	if len(ri.ticks) == 0 {
		return 0
	}
	return ri.ticks[0]
}

// MidTime is halfway between the first and last surviving tick.
func (ri *RotationInterval) MidTime() float64 {
	if len(ri.ticks) == 0 {
		return 0
	}
	return (ri.ticks[0] + ri.ticks[len(ri.ticks)-1]) / 2
}

// NumRotations counts whole rotations among the surviving half-ticks.
func (ri *RotationInterval) NumRotations() int {
	return len(ri.ticks) / 2
}

// AvgSpeed is the mean speed of the interval in RPM.
func (ri *RotationInterval) AvgSpeed() float64 {
	if len(ri.ticks) < minViableTicks {
		return 0
	}
	elapsed := ri.ticks[len(ri.ticks)-1] - ri.ticks[0]
	if elapsed <= 0 {
		return 0
	}
	return float64(ri.NumRotations()) * 60 / elapsed
}

// PruneRotationIntervals returns the viable intervals, preserving order.
func PruneRotationIntervals(intervals []*RotationInterval) []*RotationInterval {
	out := make([]*RotationInterval, 0, len(intervals))
	for _, ri := range intervals {
		if ri == nil || !ri.viable {
			continue
		}
		out = append(out, ri)
	}
	return out
}
