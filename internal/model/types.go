// Package model defines shared data structures.
package model

import "time"

// ImageType distinguishes rewarded stimuli from control stimuli.
type ImageType int

const (
	Control ImageType = iota
	Reward
)

func (t ImageType) String() string {
	switch t {
	case Control:
		return "CONTROL"
	case Reward:
		return "REWARD"
	default:
		return "UNKNOWN"
	}
}

// ParseImageType maps a stored type label back to an ImageType.
func ParseImageType(s string) (ImageType, bool) {
	switch s {
	case "CONTROL":
		return Control, true
	case "REWARD":
		return Reward, true
	default:
		return Control, false
	}
}

// Activity is what the animal is doing between log lines.
type Activity int

const (
	Idle Activity = iota
	Running
	Poking
)

func (a Activity) String() string {
	switch a {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Poking:
		return "poking"
	default:
		return "unknown"
	}
}

// DoorState is the reward port door sensor level.
type DoorState int

const (
	DoorHigh DoorState = iota
	DoorLow
)

// PumpState is the reward pump level.
type PumpState int

const (
	PumpOff PumpState = iota
	PumpOn
)

// Config defines analysis settings.
type Config struct {
	Workers     int
	Grace       float64
	LatencyStep float64
	Pattern     string
	DBPath      string
	Store       bool
	FirstOnly   bool
	Latencies   bool
	Quiet       bool
}

// FileSummary describes one analysed log file for reporting.
type FileSummary struct {
	FileID           int64
	Path             string
	Identifier       string
	DriveID          int
	Preset           Preset
	Appearances      int
	PokeEvents       int
	Rotations        int
	DroppedRotations int
	AmbiguousPokes   int
	Err              string
}

// RunSummary describes one stored batch analysis.
type RunSummary struct {
	RunID     string
	CreatedAt time.Time
	Files     int
	Failed    int
}

// ImageStats stores per-image latency and performance figures.
type ImageStats struct {
	Name        string
	Type        ImageType
	Contrast    int
	Appearances int
	Hits        int
	TrueMean    float64
	TrueSEM     float64
	TrueSD      float64
	AllMean     float64
	AllSEM      float64
	AllSD       float64
	RPMMean     float64
	RPMCount    int
}

// LatencyRecord is one reward appearance latency, measured or timed out.
type LatencyRecord struct {
	Time      float64
	Image     string
	Contrast  int
	Latency   float64
	RewardSeq int
	TimedOut  bool
}

// RotationRecord is one stored rotation interval.
type RotationRecord struct {
	Image     string
	Contrast  int
	StartTime float64
	AvgSpeed  float64
}

// FileRecord bundles everything persisted for one analysed file.
type FileRecord struct {
	Summary   FileSummary
	Images    []ImageStats
	Latencies []LatencyRecord
	Rotations []RotationRecord
}
