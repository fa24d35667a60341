// Package config defines service configuration and how it is loaded.
package config

import (
	"context"
	"fmt"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// EventsFile is the YAML or JSON file the primary event source reads.
	EventsFile string `koanf:"events_file"`

	// FallbackEventsFile is read when the primary source fails or is empty.
	FallbackEventsFile string `koanf:"fallback_events_file"`

	// RefreshIntervalMS is how often the catalog is refreshed. Zero disables it.
	RefreshIntervalMS int `koanf:"refresh_interval_ms"`

	// MaxEvents caps the catalog. Zero keeps every event.
	MaxEvents int `koanf:"max_events"`

	// WorkingListSize is how many events the highlight cycles over.
	WorkingListSize int `koanf:"working_list_size"`

	// Spin pacing.
	BaseDelayMS        int `koanf:"base_delay_ms"`
	MidStepMS          int `koanf:"mid_step_ms"`
	FinalStepMS        int `koanf:"final_step_ms"`
	FinalApproachSteps int `koanf:"final_approach_steps"`
	MinPasses          int `koanf:"min_passes"`

	// NotificationQueueSize bounds the queue between the engine and subscribers.
	NotificationQueueSize int `koanf:"notification_queue_size"`

	// SubscriberBuffer is the per-subscriber channel size of the stream.
	SubscriberBuffer int `koanf:"subscriber_buffer"`

	// HistorySize is how many finished spins are kept for /spins/recent.
	HistorySize int `koanf:"history_size"`

	// MaxWinnersLimit caps GET /winners?limit.
	MaxWinnersLimit int `koanf:"max_winners_limit"`
}

// New returns a Config holding the defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":9080",
		RefreshIntervalMS:     60_000,
		EventsFile:            "events.yaml",
		MaxEvents:             0,
		WorkingListSize:       24,
		BaseDelayMS:           50,
		MidStepMS:             5,
		FinalStepMS:           30,
		FinalApproachSteps:    10,
		MinPasses:             2,
		NotificationQueueSize: 1024,
		SubscriberBuffer:      64,
		HistorySize:           100,
		MaxWinnersLimit:       100,
	}
}

// RefreshInterval is RefreshIntervalMS as a duration.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalMS) * time.Millisecond
}

// Validate checks the values that would otherwise fail late.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.EventsFile == "" && c.FallbackEventsFile == "":
		return fmt.Errorf("%w: events_file or fallback_events_file must be set", ErrInvalidConfig)
	case c.RefreshIntervalMS < 0:
		return fmt.Errorf("%w: refresh_interval_ms must not be negative", ErrInvalidConfig)
	case c.MaxEvents < 0:
		return fmt.Errorf("%w: max_events must not be negative", ErrInvalidConfig)
	case c.BaseDelayMS <= 0:
		return fmt.Errorf("%w: base_delay_ms must be positive", ErrInvalidConfig)
	case c.MidStepMS < 0 || c.FinalStepMS <= c.MidStepMS:
		return fmt.Errorf("%w: final_step_ms must exceed mid_step_ms >= 0", ErrInvalidConfig)
	case c.FinalApproachSteps < 0:
		return fmt.Errorf("%w: final_approach_steps must not be negative", ErrInvalidConfig)
	case c.MinPasses < 1:
		return fmt.Errorf("%w: min_passes must be at least 1", ErrInvalidConfig)
	case c.NotificationQueueSize < 1:
		return fmt.Errorf("%w: notification_queue_size must be positive", ErrInvalidConfig)
	case c.SubscriberBuffer < 1:
		return fmt.Errorf("%w: subscriber_buffer must be positive", ErrInvalidConfig)
	case c.HistorySize < 1:
		return fmt.Errorf("%w: history_size must be positive", ErrInvalidConfig)
	case c.MaxWinnersLimit < 1:
		return fmt.Errorf("%w: max_winners_limit must be positive", ErrInvalidConfig)
	}
	return nil
}
