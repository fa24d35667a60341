package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/okian/randommarket/internal/domain/schedule"
	"github.com/okian/randommarket/internal/simulate"
)

// Default configuration constants.
const (
	defaultEvents      = 10
	defaultTrials      = 20000
	defaultWorkingList = 24
	defaultSpins       = 10
	defaultTimeout     = 10 * time.Second
	defaultRunTimeout  = 10 * time.Minute
)

func main() {
	var (
		mode        = flag.String("mode", string(simulate.ModeUniformity), "uniformity, schedule or remote")
		numEvents   = flag.Int("events", defaultEvents, "Number of synthetic events when -file is empty")
		eventsFile  = flag.String("file", "", "YAML or JSON events file")
		trials      = flag.Int("trials", defaultTrials, "Spins per uniformity run")
		seed        = flag.Uint64("seed", 0, "RNG seed, 0 for a random one")
		workingList = flag.Int("working-list", defaultWorkingList, "Working list size")
		length      = flag.Int("length", defaultWorkingList, "Schedule mode: working list length")
		winner      = flag.Int("winner", 0, "Schedule mode: winner index")
		baseURL     = flag.String("url", "http://localhost:9080", "Remote mode: base URL of the service")
		spins       = flag.Int("spins", defaultSpins, "Remote mode: spins to request")
		timeout     = flag.Duration("timeout", defaultTimeout, "Remote mode: HTTP request timeout")
		logFile     = flag.String("log", "", "Also write logs to this file")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulate.ShowHelp(os.Stdout)
		return
	}

	// Setup logging
	closer, err := simulate.SetupLogging(*logFile, *verbose)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = closer.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := &simulate.Config{
		Mode:            simulate.Mode(*mode),
		Events:          *numEvents,
		EventsFile:      *eventsFile,
		Trials:          *trials,
		Seed:            *seed,
		WorkingListSize: *workingList,
		Params:          schedule.DefaultParams(),
		Length:          *length,
		Winner:          *winner,
		BaseURL:         *baseURL,
		Spins:           *spins,
		Timeout:         *timeout,
		Verbose:         *verbose,
	}

	if err := simulate.Run(ctx, config, os.Stdout); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		cancel()
		_ = closer.Close()
		os.Exit(1) //nolint:gocritic // deferred calls already run above
	}
}
