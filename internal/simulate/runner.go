package simulate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/okian/randommarket/internal/domain/model"
)

// ErrNotUniform is returned when a uniformity run rejects the hypothesis.
var ErrNotUniform = errors.New("winner distribution is not uniform")

// Run executes the configured mode and writes a human readable report to out.
func Run(ctx context.Context, cfg *Config, out io.Writer) error {
	switch cfg.Mode {
	case ModeSchedule:
		return PrintSchedule(out, cfg.Length, cfg.Winner, cfg.Params)
	case ModeRemote:
		report, err := RunRemote(ctx, cfg)
		if err != nil {
			return err
		}
		writeRemote(out, report)
		return nil
	case ModeUniformity, "":
		events, err := loadEvents(ctx, cfg)
		if err != nil {
			return fmt.Errorf("load events: %w", err)
		}
		report, err := RunUniformity(ctx, cfg, events)
		if err != nil {
			return err
		}
		writeUniformity(out, report, events)
		if !report.Uniform {
			return ErrNotUniform
		}
		return nil
	default:
		return fmt.Errorf("unknown mode %q", cfg.Mode)
	}
}

func writeUniformity(out io.Writer, r UniformityReport, events []model.Event) {
	fmt.Fprintf(out, "%d trials over %d events in %s\n", r.Trials, r.Events, r.Duration)
	expected := float64(r.Trials) / float64(max(r.Events, 1))
	for _, e := range events {
		c := r.Counts[e.ID]
		fmt.Fprintf(out, "  %-40.40s %7d  (%+.2f%%)\n", e.Title, c, (float64(c)-expected)/expected*100)
	}
	verdict := "uniform"
	if !r.Uniform {
		verdict = "NOT uniform"
	}
	fmt.Fprintf(out, "chi-square %.3f, critical %.3f (df %d, p=0.001): %s\n",
		r.ChiSquare, r.Critical, r.Events-1, verdict)
	if r.Violations > 0 {
		fmt.Fprintf(out, "%d spins did not land on their winner\n", r.Violations)
	}
}

func writeRemote(out io.Writer, r RemoteReport) {
	fmt.Fprintf(out, "%d/%d spins completed (%d failed) in %s\n", r.Completed, r.Spins, r.Failed, r.Duration)
	ids := make([]string, 0, len(r.Winners))
	for id := range r.Winners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if r.Winners[ids[i]] != r.Winners[ids[j]] {
			return r.Winners[ids[i]] > r.Winners[ids[j]]
		}
		return ids[i] < ids[j]
	})
	for _, id := range ids {
		fmt.Fprintf(out, "  %-40s %d\n", id, r.Winners[id])
	}
}
