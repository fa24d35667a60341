package simulate

import (
	"time"

	"github.com/okian/randommarket/internal/domain/schedule"
)

// Mode selects what Run does.
type Mode string

// Modes.
const (
	ModeUniformity Mode = "uniformity"
	ModeSchedule   Mode = "schedule"
	ModeRemote     Mode = "remote"
)

// Config holds configuration for a simulation run.
type Config struct {
	Mode            Mode            // What to run
	Events          int             // Synthetic events when EventsFile is empty
	EventsFile      string          // YAML or JSON events file
	Trials          int             // Spins per uniformity run
	Seed            uint64          // RNG seed; zero picks a random one
	WorkingListSize int             // Working list cap
	Params          schedule.Params // Spin pacing
	Length          int             // Schedule mode: working list length
	Winner          int             // Schedule mode: winner index
	BaseURL         string          // Remote mode: base URL of the service
	Spins           int             // Remote mode: spins to request
	Timeout         time.Duration   // Remote mode: HTTP request timeout
	Verbose         bool            // Enable verbose logging
}

// UniformityReport is the outcome of a uniformity run.
type UniformityReport struct {
	Trials     int
	Events     int
	Counts     map[string]int
	ChiSquare  float64
	Critical   float64
	Uniform    bool
	Violations int // spins that broke a landing invariant
	Duration   time.Duration
}

// RemoteReport is the outcome of a remote run.
type RemoteReport struct {
	Spins     int
	Completed int
	Failed    int
	Winners   map[string]int
	Duration  time.Duration
}
