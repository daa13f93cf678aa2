package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/verte-zerg/wheelpoke/internal/model"
)

const startSentinel = "Start of experiment"

var (
	// ErrNoStart is returned when a log never reaches its body.
	ErrNoStart = errors.New("missing \"Start of experiment\" line")
	// ErrNoPreset is returned when the header names no recognised preset.
	ErrNoPreset = errors.New("missing or unrecognised preset")
)

// Header holds the metadata written before the experiment starts.
type Header struct {
	DriveID       int
	ControlImages []string
	RewardImages  []string
	Preset        model.Preset
	// BodyStart is the index of the first line after the start sentinel.
	BodyStart int
}

// Identifier names the animal the same way report files are named.
func (h Header) Identifier() string {
	return fmt.Sprintf("Mouse_%d", h.DriveID)
}

// ParseHeader reads header fields up to the start sentinel.
func ParseHeader(lines []string) (Header, error) {
	var h Header
	for i, line := range lines {
		switch {
		case strings.Contains(line, "USB drive ID: "):
			v, err := FirstNumber(line)
			if err != nil {
				return Header{}, fmt.Errorf("line %d: %w", i+1, err)
			}
			h.DriveID = int(v)
		case strings.Contains(line, "Control image set:"):
			h.ControlImages = append(h.ControlImages, imageSet(line)...)
		case strings.Contains(line, "Reward image set:"):
			h.RewardImages = append(h.RewardImages, imageSet(line)...)
		case strings.Contains(line, "preset: "):
			h.Preset = model.PresetFromHeader(strings.SplitN(line, "preset: ", 2)[1])
		case strings.Contains(line, startSentinel):
			if h.Preset == model.NoPreset {
				return Header{}, ErrNoPreset
			}
			h.BodyStart = i + 1
			return h, nil
		}
	}
	return Header{}, ErrNoStart
}

func imageSet(line string) []string {
	open := strings.Index(line, "[")
	end := strings.LastIndex(line, "]")
	if open < 0 || end <= open {
		return nil
	}
	parts := strings.Split(line[open+1:end], ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
