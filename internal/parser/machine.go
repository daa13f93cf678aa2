package parser

import (
	"fmt"
	"strings"

	"github.com/verte-zerg/wheelpoke/internal/events"
	"github.com/verte-zerg/wheelpoke/internal/model"
	"github.com/verte-zerg/wheelpoke/internal/registry"
)

// Machine folds classified body lines into rotation intervals and poke events.
// A Machine serves exactly one file.
type Machine struct {
	reg *registry.Registry

	activity       model.Activity
	current        *registry.Image
	lastName       string
	pokeImage      *registry.Image
	pokeInProgress bool
	skipWheel      bool

	ticks []float64
	doors []events.DoorSample
	pumps []events.PumpSample

	rotations []*events.RotationInterval
	pokes     []*events.PokeEvent
	short     int
}

// NewMachine starts a machine over reg. Activity logged before the first
// image announcement is charged to the registry's default image.
func NewMachine(reg *registry.Registry) *Machine {
	def := reg.DefaultImage()
	return &Machine{
		reg:       reg,
		activity:  model.Idle,
		current:   def,
		pokeImage: def,
	}
}

// Activity reports what the machine currently believes the animal is doing.
func (m *Machine) Activity() model.Activity {
	return m.activity
}

// CurrentImage is the most recently announced image.
func (m *Machine) CurrentImage() *registry.Image {
	return m.current
}

// Step consumes one body line.
func (m *Machine) Step(line string) error {
	kind := Classify(line)
	switch kind {
	case KindStarting:
		return nil
	case KindImage:
		if err := m.onImage(line); err != nil {
			return err
		}
	case KindWheel:
		if m.pokeInProgress {
			break
		}
		if m.skipWheel {
			// The logger repeats the tick that follows a "revolution" line.
			m.skipWheel = false
			return nil
		}
		if err := m.onWheel(line); err != nil {
			return err
		}
		if strings.Contains(line, "revolution") {
			m.skipWheel = true
			return nil
		}
	case KindPump:
		if err := m.onPump(line); err != nil {
			return err
		}
	case KindDoor:
		if err := m.onDoor(line); err != nil {
			return err
		}
	case KindOther:
	}
	m.skipWheel = false
	return nil
}

func (m *Machine) onImage(line string) error {
	name := imageName(line)
	if name == m.lastName {
		// Same image announced twice in a row; the logger does this occasionally.
		return nil
	}
	t, err := imageTime(line)
	if err != nil {
		return err
	}
	ap, err := m.reg.Announce(name, t, m.current)
	if err != nil {
		return err
	}
	m.lastName = name
	m.current = ap.Image
	return nil
}

func (m *Machine) onWheel(line string) error {
	if m.activity == model.Poking {
		m.sealPoke()
	}
	m.activity = model.Running
	if strings.Contains(line, "State:") {
		t, err := FirstNumber(line)
		if err != nil {
			return err
		}
		m.ticks = append(m.ticks, t)
	}
	return nil
}

func (m *Machine) onPump(line string) error {
	state, err := pumpState(line)
	if err != nil {
		return err
	}
	t, err := FirstNumber(line)
	if err != nil {
		return err
	}
	switch state {
	case model.PumpOn:
		// A rewarded poke belongs to the image that triggered the pump.
		m.pokeImage = m.current
		m.pokeInProgress = true
	case model.PumpOff:
		m.pokeInProgress = false
	}
	m.pumps = append(m.pumps, events.PumpSample{State: state, Time: t})
	return nil
}

func (m *Machine) onDoor(line string) error {
	state, err := doorState(line)
	if err != nil {
		return err
	}
	t, err := FirstNumber(line)
	if err != nil {
		return err
	}
	if m.activity == model.Running {
		m.sealRotation()
	}
	if m.activity != model.Poking && !m.pokeInProgress {
		m.pokeImage = m.current
	}
	m.activity = model.Poking
	m.doors = append(m.doors, events.DoorSample{State: state, Time: t})
	return nil
}

func (m *Machine) sealRotation() {
	ticks := m.ticks
	m.ticks = nil
	if len(ticks) == 0 {
		return
	}
	ri, err := events.NewRotationInterval(ticks, m.current)
	if err != nil {
		m.short++
		return
	}
	m.rotations = append(m.rotations, ri)
}

func (m *Machine) sealPoke() {
	doors, pumps := m.doors, m.pumps
	m.doors, m.pumps = nil, nil
	m.pokes = append(m.pokes, events.NewPokeEvent(doors, pumps, m.pokeImage))
}

// Finish seals the open episode and returns everything reconstructed. The
// rotation list is not pruned.
func (m *Machine) Finish() ([]*events.RotationInterval, []*events.PokeEvent) {
	if m.activity == model.Poking {
		m.sealPoke()
	} else {
		m.sealRotation()
	}
	return m.rotations, m.pokes
}

// ShortRuns counts wheel runs discarded for having too few ticks.
func (m *Machine) ShortRuns() int {
	return m.short
}

func lineError(path string, lineNo int, err error) error {
	return fmt.Errorf("%s:%d: %w", path, lineNo, err)
}
