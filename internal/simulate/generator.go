package simulate

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/okian/randommarket/internal/adapters/source"
	"github.com/okian/randommarket/internal/domain/model"
)

// SyntheticEvents creates n selectable events with random ids.
func SyntheticEvents(n int) []model.Event {
	events := make([]model.Event, n)
	for i := range events {
		id := uuid.NewString()
		events[i] = model.Event{
			ID:     id,
			Title:  fmt.Sprintf("Synthetic event %d", i+1),
			Slug:   fmt.Sprintf("synthetic-%d", i+1),
			Active: true,
			Markets: []model.Market{{
				ID:            id + "-m",
				Question:      fmt.Sprintf("Will synthetic event %d resolve yes?", i+1),
				OutcomePrices: []string{"0.5", "0.5"},
				Active:        true,
			}},
		}
	}
	return events
}

// loadEvents reads cfg.EventsFile or falls back to synthetic events.
func loadEvents(ctx context.Context, cfg *Config) ([]model.Event, error) {
	if cfg.EventsFile == "" {
		return SyntheticEvents(cfg.Events), nil
	}
	src, err := source.NewFile(cfg.EventsFile)
	if err != nil {
		return nil, err
	}
	events, err := src.Events(ctx)
	if err != nil {
		return nil, err
	}
	out := events[:0]
	for _, e := range events {
		if e.ID != "" && e.Selectable() {
			out = append(out, e)
		}
	}
	return out, nil
}
