package service

import (
	"time"

	"github.com/okian/randommarket/internal/config"
	"github.com/okian/randommarket/internal/domain/engine"
	"github.com/okian/randommarket/internal/domain/schedule"
	"github.com/okian/randommarket/internal/domain/selector"
	"github.com/okian/randommarket/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithParams sets the spin pacing.
func WithParams(p schedule.Params) Option {
	return func(s *Service) { s.params = p }
}

// WithWorkingListSize sets how many events a spin cycles over.
func WithWorkingListSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workingListSize = n
		}
	}
}

// WithQueueSize sets the capacity of the notification queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithSubscriberBuffer sets the per-subscriber buffer of the stream hub.
func WithSubscriberBuffer(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.subscriberBuffer = n
		}
	}
}

// WithHistorySize sets how many finished spins are remembered.
func WithHistorySize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.historySize = n
		}
	}
}

// WithMaxEvents caps the catalog. Zero keeps every event.
func WithMaxEvents(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxEvents = n
		}
	}
}

// WithRefreshInterval sets how often the catalog is refreshed. Zero disables it.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.refreshInterval = d
		}
	}
}

// WithClock sets the clock the engine paces ticks with.
func WithClock(c engine.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithRNG sets the random source of the engine.
func WithRNG(r selector.RNG) Option {
	return func(s *Service) {
		if r != nil {
			s.rng = r
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// OptionsFromConfig translates the process configuration.
func OptionsFromConfig(cfg *config.Config) []Option {
	return []Option{
		WithParams(schedule.Params{
			BaseDelay:          time.Duration(cfg.BaseDelayMS) * time.Millisecond,
			MidStep:            time.Duration(cfg.MidStepMS) * time.Millisecond,
			FinalStep:          time.Duration(cfg.FinalStepMS) * time.Millisecond,
			FinalApproachSteps: cfg.FinalApproachSteps,
			MinPasses:          cfg.MinPasses,
		}),
		WithWorkingListSize(cfg.WorkingListSize),
		WithQueueSize(cfg.NotificationQueueSize),
		WithSubscriberBuffer(cfg.SubscriberBuffer),
		WithHistorySize(cfg.HistorySize),
		WithMaxEvents(cfg.MaxEvents),
		WithRefreshInterval(cfg.RefreshInterval()),
	}
}
