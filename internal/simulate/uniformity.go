package simulate

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/okian/randommarket/internal/domain/engine"
	"github.com/okian/randommarket/internal/domain/model"
	"github.com/okian/randommarket/internal/domain/selector"
	"github.com/okian/randommarket/pkg/logger"
)

// upper 0.1% point of the standard normal distribution
const z999 = 3.0902

// ChiSquare is Pearson's statistic of counts against a uniform expectation
// over trials.
func ChiSquare(counts []int, trials int) float64 {
	if len(counts) == 0 || trials == 0 {
		return 0
	}
	expected := float64(trials) / float64(len(counts))
	var sum float64
	for _, c := range counts {
		d := float64(c) - expected
		sum += d * d / expected
	}
	return sum
}

// CriticalValue approximates the 0.999 quantile of the chi-square
// distribution with df degrees of freedom (Wilson-Hilferty).
func CriticalValue(df int) float64 {
	if df < 1 {
		return 0
	}
	k := float64(df)
	a := 2 / (9 * k)
	return k * math.Pow(1-a+z999*math.Sqrt(a), 3)
}

// RunUniformity spins cfg.Trials times over events on an engine whose timers
// fire at once, tallies the winners and checks every landing.
func RunUniformity(ctx context.Context, cfg *Config, events []model.Event) (UniformityReport, error) {
	if len(events) == 0 {
		return UniformityReport{}, selector.ErrEmptySelection
	}
	seed := cfg.Seed
	if seed == 0 {
		var b [8]byte
		_, _ = rand.Read(b[:])
		seed = binary.LittleEndian.Uint64(b[:])
	}
	log := logger.Get().Named("simulate")
	log.Info(ctx, "starting uniformity run",
		logger.Int("events", len(events)),
		logger.Int("trials", cfg.Trials),
		logger.Any("seed", seed))

	var (
		mu     sync.Mutex
		result *model.SpinResult
	)
	eng, err := engine.New(
		engine.WithParams(cfg.Params),
		engine.WithWorkingListSize(cfg.WorkingListSize),
		engine.WithClock(engine.InstantClock(time.Now())),
		engine.WithRNG(selector.Seeded(seed)),
		engine.WithListener(engine.Callbacks{
			OnComplete: func(r model.SpinResult) {
				mu.Lock()
				result = &r
				mu.Unlock()
			},
		}),
	)
	if err != nil {
		return UniformityReport{}, fmt.Errorf("build engine: %w", err)
	}
	defer eng.Close(ctx)

	start := time.Now()
	report := UniformityReport{Trials: cfg.Trials, Events: len(events), Counts: make(map[string]int, len(events))}
	for i := range cfg.Trials {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		spin, err := eng.StartSpin(ctx, events)
		if err != nil {
			return report, fmt.Errorf("trial %d: %w", i, err)
		}
		<-spin.Done()

		mu.Lock()
		r := result
		result = nil
		mu.Unlock()
		if r == nil || !landed(spin, r) {
			report.Violations++
			continue
		}
		report.Counts[r.Winner.ID]++

		if cfg.Verbose && (i+1)%1000 == 0 {
			log.Debug(ctx, "progress", logger.Int("trials", i+1))
		}
	}

	counts := make([]int, len(events))
	for i, e := range events {
		counts[i] = report.Counts[e.ID]
	}
	report.ChiSquare = ChiSquare(counts, cfg.Trials-report.Violations)
	report.Critical = CriticalValue(len(events) - 1)
	report.Uniform = report.ChiSquare < report.Critical && report.Violations == 0
	report.Duration = time.Since(start)

	log.Info(ctx, "uniformity run finished",
		logger.Float64("chiSquare", report.ChiSquare),
		logger.Float64("critical", report.Critical),
		logger.Bool("uniform", report.Uniform),
		logger.Int("violations", report.Violations),
		logger.Duration("took", report.Duration))
	return report, nil
}

// landed checks that the result matches the spin's working list and that
// the highlight went round enough times.
func landed(spin engine.Spin, r *model.SpinResult) bool {
	if r.SpinID != spin.ID || r.WinnerIndex < 0 || r.WinnerIndex >= len(spin.WorkingList) {
		return false
	}
	n := len(spin.WorkingList)
	return spin.WorkingList[r.WinnerIndex].ID == r.Winner.ID &&
		r.Steps >= r.MinSteps &&
		r.Steps%n == r.WinnerIndex
}
