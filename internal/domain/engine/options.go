package engine

import (
	"github.com/okian/randommarket/internal/domain/schedule"
	"github.com/okian/randommarket/internal/domain/selector"
	"github.com/okian/randommarket/pkg/logger"
)

// DefaultWorkingListSize is how many events the highlight cycles over.
const DefaultWorkingListSize = 24

// Option configures an Engine.
type Option func(*Engine)

// WithParams sets the schedule pacing.
func WithParams(p schedule.Params) Option {
	return func(e *Engine) { e.params = p }
}

// WithWorkingListSize caps the working list. Zero or less uses every event.
func WithWorkingListSize(n int) Option {
	return func(e *Engine) { e.workingListSize = n }
}

// WithClock sets the time source.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithRNG sets the random source used for selection and layout.
func WithRNG(r selector.RNG) Option {
	return func(e *Engine) {
		if r != nil {
			e.rng = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithListener registers a listener. May be given more than once.
func WithListener(l Listener) Option {
	return func(e *Engine) {
		if l != nil {
			e.listeners = append(e.listeners, l)
		}
	}
}

// WithIDGenerator overrides how spin ids are minted.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) {
		if gen != nil {
			e.newID = gen
		}
	}
}
