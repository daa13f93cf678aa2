package model

import "strings"

// Preset is the experiment protocol named in a log header.
type Preset int

const (
	NoPreset Preset = iota
	Night1
	Night2
	Night3
	Night4
	Contrast
	Spatial
)

var presetTimeouts = map[Preset]float64{
	Night3:   30,
	Night4:   10,
	Contrast: 10,
	Spatial:  10,
}

func (p Preset) String() string {
	switch p {
	case Night1:
		return "NIGHT_1"
	case Night2:
		return "NIGHT_2"
	case Night3:
		return "NIGHT_3"
	case Night4:
		return "NIGHT_4"
	case Contrast:
		return "CONTRAST"
	case Spatial:
		return "SPATIAL"
	default:
		return "NONE"
	}
}

// Timeout returns the seconds a reward image stays up when never poked.
func (p Preset) Timeout() (float64, bool) {
	t, ok := presetTimeouts[p]
	return t, ok
}

// Graded reports whether the preset varies stimulus contrast or spatial frequency.
func (p Preset) Graded() bool {
	return p == Contrast || p == Spatial
}

// PresetFromHeader maps the free-text preset header value to a Preset.
func PresetFromHeader(text string) Preset {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "contrast"):
		return Contrast
	case strings.Contains(lower, "spatial"):
		return Spatial
	case strings.Contains(text, "1"):
		return Night1
	case strings.Contains(text, "2"):
		return Night2
	case strings.Contains(text, "3"):
		return Night3
	case strings.Contains(text, "4"):
		return Night4
	default:
		return NoPreset
	}
}

// ParsePreset maps a stored preset label back to a Preset.
func ParsePreset(s string) Preset {
	for _, p := range []Preset{Night1, Night2, Night3, Night4, Contrast, Spatial} {
		if p.String() == s {
			return p
		}
	}
	return NoPreset
}
