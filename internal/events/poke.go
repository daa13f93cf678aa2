package events

import (
	"math"
	"sort"

	"github.com/verte-zerg/wheelpoke/internal/model"
	"github.com/verte-zerg/wheelpoke/internal/registry"
)

const (
	// PumpLatency is the delay between a poke and the pump it triggers.
	PumpLatency = 0.003
	// DefaultGrace is the window after a rewarded poke in which further pokes
	// belong to the same reward.
	DefaultGrace = 30.0
)

// DoorSample is one door sensor transition.
type DoorSample struct {
	State model.DoorState
	Time  float64
}

// PumpSample is one pump transition.
type PumpSample struct {
	State model.PumpState
	Time  float64
}

// PokeEvent is one contiguous bout of poking at the reward port.
type PokeEvent struct {
	image      *registry.Image
	appearance *registry.Appearance
	doors      []DoorSample
	pumps      []PumpSample

	successTimes []float64
	latency      float64
	hasLatency   bool
}

// NewPokeEvent seals a poke episode and attaches it to the latest appearance
// of img. The sample slices are owned by the event after the call.
func NewPokeEvent(doors []DoorSample, pumps []PumpSample, img *registry.Image) *PokeEvent {
	pe := &PokeEvent{
		image: img,
		doors: doors,
		pumps: pumps,
	}
	for _, p := range pumps {
		if p.State == model.PumpOn {
			pe.successTimes = append(pe.successTimes, p.Time-PumpLatency)
		}
	}
	if img != nil {
		pe.appearance = img.Latest()
	}
	if pe.appearance != nil {
		pe.appearance.AddPokeEvent(pe)
		if len(pe.successTimes) == 1 {
			pe.latency = pe.successTimes[0] - pe.appearance.Time
			pe.hasLatency = true
		}
	}
	return pe
}

// Image is the image the episode is attributed to.
func (pe *PokeEvent) Image() *registry.Image {
	return pe.image
}

// Appearance is the appearance that was current when the episode was sealed.
func (pe *PokeEvent) Appearance() *registry.Appearance {
	return pe.appearance
}

// AppearanceTime is the onset of the attributed appearance.
func (pe *PokeEvent) AppearanceTime() (float64, bool) {
	if pe.appearance == nil {
		return 0, false
	}
	return pe.appearance.Time, true
}

// DoorSamples returns the door transitions of the episode.
func (pe *PokeEvent) DoorSamples() []DoorSample {
	return append([]DoorSample(nil), pe.doors...)
}

// PumpSamples returns the pump transitions of the episode.
func (pe *PokeEvent) PumpSamples() []PumpSample {
	return append([]PumpSample(nil), pe.pumps...)
}

// StartTime is the first door transition, or the first pump transition when
// the episode recorded no door activity.
func (pe *PokeEvent) StartTime() float64 {
	if len(pe.doors) > 0 {
		return pe.doors[0].Time
	}
	if len(pe.pumps) > 0 {
		return pe.pumps[0].Time
	}
	return 0
}

// Success reports whether the pump fired during the episode.
func (pe *PokeEvent) Success() bool {
	return len(pe.successTimes) > 0
}

// SuccessfulPokes returns the corrected times of pokes that triggered the pump.
func (pe *PokeEvent) SuccessfulPokes() []float64 {
	return append([]float64(nil), pe.successTimes...)
}

// AllPokes returns the times of every door-low transition.
func (pe *PokeEvent) AllPokes() []float64 {
	var out []float64
	for _, d := range pe.doors {
		if d.State == model.DoorLow {
			out = append(out, d.Time)
		}
	}
	return out
}

// UnsuccessfulPokes returns poke times not matched by a rewarded poke, sorted.
func (pe *PokeEvent) UnsuccessfulPokes() []float64 {
	rewarded := make(map[float64]struct{}, len(pe.successTimes))
	for _, t := range pe.successTimes {
		rewarded[t] = struct{}{}
	}
	seen := map[float64]struct{}{}
	var out []float64
	for _, t := range pe.AllPokes() {
		if _, ok := rewarded[t]; ok {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Float64s(out)
	return out
}

// PokesExcludingTimeout counts pokes, leaving out door activity inside the
// grace window that follows a single rewarded poke. Only door openings are
// reliably logged per physical poke, so the door count is halved and rounded up.
func (pe *PokeEvent) PokesExcludingTimeout(grace float64) int {
	var pumpOn float64
	found := false
	for _, p := range pe.pumps {
		if p.State == model.PumpOn {
			pumpOn = p.Time
			found = true
		}
	}
	if !found || len(pe.successTimes) > 1 {
		return len(pe.AllPokes())
	}
	count := 0
	for _, d := range pe.doors {
		if d.Time <= pumpOn || d.Time > pumpOn+grace {
			count++
		}
	}
	return int(math.Ceil(float64(count) / 2))
}

// Latency is the delay from image onset to the rewarded poke. It is only
// defined when the episode holds exactly one rewarded poke.
func (pe *PokeEvent) Latency() (float64, bool) {
	return pe.latency, pe.hasLatency
}

// Ambiguous reports more than one rewarded poke in a single episode, which
// points at a wheel/poke misattribution upstream.
func (pe *PokeEvent) Ambiguous() bool {
	return len(pe.successTimes) > 1
}

// DrinkDurations returns, for each pump-off, the time since the preceding pump-on.
func (pe *PokeEvent) DrinkDurations() []float64 {
	var start float64
	var out []float64
	for _, p := range pe.pumps {
		if p.State == model.PumpOn {
			start = p.Time
			continue
		}
		out = append(out, p.Time-start)
	}
	return out
}
