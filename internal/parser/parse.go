package parser

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/verte-zerg/wheelpoke/internal/events"
	"github.com/verte-zerg/wheelpoke/internal/model"
	"github.com/verte-zerg/wheelpoke/internal/registry"
)

const maxLineSize = 1 << 20

// Result is everything reconstructed from one log file.
type Result struct {
	Path       string
	Identifier string
	DriveID    int
	Preset     model.Preset
	Registry   *registry.Registry
	// Rotations holds the viable rotation intervals in log order.
	Rotations []*events.RotationInterval
	Pokes     []*events.PokeEvent
	// DroppedRotations counts intervals removed as non-viable.
	DroppedRotations int
	// ShortRuns counts wheel runs too short to form an interval.
	ShortRuns int
}

// AmbiguousPokes counts poke events holding more than one rewarded poke.
func (r *Result) AmbiguousPokes() int {
	n := 0
	for _, pe := range r.Pokes {
		if pe.Ambiguous() {
			n++
		}
	}
	return n
}

// ParseFile reads and analyses the log at path.
func ParseFile(path string) (*Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only log.
			_ = cerr
		}
	}()
	return Parse(file, path)
}

// Parse analyses a log read from r. name is used in errors and the result.
func Parse(r io.Reader, name string) (*Result, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return ParseLines(lines, name)
}

// ParseLines analyses an already split log.
func ParseLines(lines []string, name string) (*Result, error) {
	header, err := ParseHeader(lines)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	reg := registry.New(header.ControlImages, header.RewardImages)
	m := NewMachine(reg)
	for i := header.BodyStart; i < len(lines); i++ {
		if err := m.Step(lines[i]); err != nil {
			return nil, lineError(name, i+1, err)
		}
	}
	rotations, pokes := m.Finish()
	viable := events.PruneRotationIntervals(rotations)
	return &Result{
		Path:             name,
		Identifier:       header.Identifier(),
		DriveID:          header.DriveID,
		Preset:           header.Preset,
		Registry:         reg,
		Rotations:        viable,
		Pokes:            pokes,
		DroppedRotations: len(rotations) - len(viable),
		ShortRuns:        m.ShortRuns(),
	}, nil
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
