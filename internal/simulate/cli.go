// Package simulate checks the spinner offline and against a running server.
package simulate

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/randommarket/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging sends logs to stderr and, when logFile is set, to that file too.
func SetupLogging(logFile string, verbose bool) (io.Closer, error) {
	var (
		w      io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
	)
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return nil, fmt.Errorf("failed to create log file: %w", err)
		}
		w = io.MultiWriter(os.Stderr, file)
		closer = file
	}
	if err := logger.InitWith(w, logger.FormatText); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	return closer, nil
}

// ShowHelp prints usage information for the simulator.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `randommarket spin simulator
===========================

Checks the fairness and pacing of the spinner.

Usage:
  go run ./cmd/spin-sim [options]

Options:
  -mode string
        uniformity, schedule or remote (default "uniformity")
  -events int
        Number of synthetic events when -file is empty (default 10)
  -file string
        YAML or JSON events file
  -trials int
        Spins per uniformity run (default 20000)
  -seed uint
        RNG seed, 0 for a random one
  -working-list int
        Working list size (default 24)
  -length int
        Schedule mode: working list length (default 24)
  -winner int
        Schedule mode: winner index (default 0)
  -url string
        Remote mode: base URL of the service (default "http://localhost:9080")
  -spins int
        Remote mode: spins to request (default 10)
  -timeout duration
        Remote mode: HTTP request timeout (default 10s)
  -log string
        Also write logs to this file
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Chi-square check over 10 synthetic events
  go run ./cmd/spin-sim -events 10 -trials 20000 -seed 42

  # Tick plan of a 5 slot wheel landing on index 3
  go run ./cmd/spin-sim -mode schedule -length 5 -winner 3

  # Ten spins against a local server
  go run ./cmd/spin-sim -mode remote -spins 10
`)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
