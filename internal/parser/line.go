// Package parser turns apparatus result logs into rotation intervals and poke events.
package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/verte-zerg/wheelpoke/internal/model"
)

// ErrMalformedLine is returned when a body line lacks a field its channel requires.
var ErrMalformedLine = errors.New("malformed log line")

// LineKind is the hardware channel a log line belongs to.
type LineKind int

const (
	KindOther LineKind = iota
	KindStarting
	KindImage
	KindWheel
	KindPump
	KindDoor
)

func (k LineKind) String() string {
	switch k {
	case KindStarting:
		return "starting"
	case KindImage:
		return "image"
	case KindWheel:
		return "wheel"
	case KindPump:
		return "pump"
	case KindDoor:
		return "door"
	default:
		return "other"
	}
}

var (
	numberPattern = regexp.MustCompile(`[+-]?([0-9]*[.])?[0-9]+`)
	timePattern   = regexp.MustCompile(`Time:\s*([+-]?([0-9]*[.])?[0-9]+)`)
	statePattern  = regexp.MustCompile(`State: (.*), Time`)
)

// Classify returns the channel of a log line. Checks run in a fixed order so a
// line matching several keywords resolves the same way every time.
func Classify(line string) LineKind {
	switch {
	case strings.Contains(line, "starting"):
		return KindStarting
	case strings.Contains(line, "Image") && strings.Contains(line, "Name:"):
		return KindImage
	case strings.Contains(line, "Wheel"):
		return KindWheel
	case strings.Contains(line, "Pump"):
		return KindPump
	case strings.Contains(line, "Door"):
		return KindDoor
	default:
		return KindOther
	}
}

// FirstNumber returns the first decimal number embedded in line.
func FirstNumber(line string) (float64, error) {
	match := numberPattern.FindString(line)
	if match == "" {
		return 0, fmt.Errorf("%w: no number in %q", ErrMalformedLine, line)
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedLine, err)
	}
	return v, nil
}

func imageName(line string) string {
	start := strings.Index(line, "Name:")
	if start < 0 {
		return ""
	}
	rest := line[start+len("Name:"):]
	if end := strings.Index(rest, ","); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

func imageTime(line string) (float64, error) {
	m := timePattern.FindStringSubmatch(line)
	if m == nil {
		return 0, fmt.Errorf("%w: no image time in %q", ErrMalformedLine, line)
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedLine, err)
	}
	return v, nil
}

func stateField(line string) (string, error) {
	m := statePattern.FindStringSubmatch(line)
	if m == nil {
		return "", fmt.Errorf("%w: no state in %q", ErrMalformedLine, line)
	}
	return strings.TrimSpace(m[1]), nil
}

func pumpState(line string) (model.PumpState, error) {
	s, err := stateField(line)
	if err != nil {
		return model.PumpOff, err
	}
	if s == "On" {
		return model.PumpOn, nil
	}
	return model.PumpOff, nil
}

func doorState(line string) (model.DoorState, error) {
	s, err := stateField(line)
	if err != nil {
		return model.DoorLow, err
	}
	if s == "High" {
		return model.DoorHigh, nil
	}
	return model.DoorLow, nil
}
