// Package schedule produces the decelerating tick sequence of a spin.
//
// The highlight walks the working list in order, wrapping around. It keeps
// going for at least MinPasses full passes and stops the first time it sits
// on the winner after that. The wait between ticks grows by MidStep once the
// first pass is over and by FinalStep during the last FinalApproachSteps
// steps before the minimum is reached (and after it).
package schedule

import (
	"fmt"
	"time"

	"github.com/okian/randommarket/internal/domain/model"
)

// Defaults reproduce the classic wheel feel.
const (
	DefaultBaseDelay          = 50 * time.Millisecond
	DefaultMidStep            = 5 * time.Millisecond
	DefaultFinalStep          = 30 * time.Millisecond
	DefaultFinalApproachSteps = 10
	DefaultMinPasses          = 2
)

// Params tune the pacing of a schedule.
type Params struct {
	BaseDelay          time.Duration
	MidStep            time.Duration
	FinalStep          time.Duration
	FinalApproachSteps int
	MinPasses          int
}

// DefaultParams returns the standard pacing.
func DefaultParams() Params {
	return Params{
		BaseDelay:          DefaultBaseDelay,
		MidStep:            DefaultMidStep,
		FinalStep:          DefaultFinalStep,
		FinalApproachSteps: DefaultFinalApproachSteps,
		MinPasses:          DefaultMinPasses,
	}
}

// Validate checks the pacing. The final increment must exceed the mid one
// so the wheel visibly brakes before it stops.
func (p Params) Validate() error {
	switch {
	case p.BaseDelay <= 0:
		return fmt.Errorf("%w: base delay must be positive", ErrInvalidParams)
	case p.MidStep < 0:
		return fmt.Errorf("%w: mid step must not be negative", ErrInvalidParams)
	case p.FinalStep <= p.MidStep:
		return fmt.Errorf("%w: final step must be greater than mid step", ErrInvalidParams)
	case p.FinalApproachSteps < 0:
		return fmt.Errorf("%w: final approach steps must not be negative", ErrInvalidParams)
	case p.MinPasses < 1:
		return fmt.Errorf("%w: min passes must be at least 1", ErrInvalidParams)
	}
	return nil
}

// Schedule yields ticks lazily. It is finite and not restartable, and it is
// not safe for concurrent use; the spin goroutine owns it.
type Schedule struct {
	params   Params
	length   int
	winner   int
	minSteps int

	step    int
	delay   time.Duration // running delay, grows after every non-terminal tick
	wait    time.Duration // delay preceding the next tick
	emitted int
	done    bool
}

// New builds a schedule for a working list of the given length.
// All size-dependent values are captured here.
func New(length, winnerIndex int, p Params) (*Schedule, error) {
	if length <= 0 {
		return nil, ErrEmptyList
	}
	if winnerIndex < 0 || winnerIndex >= length {
		return nil, fmt.Errorf("%w: %d not in [0,%d)", ErrWinnerOutOfRange, winnerIndex, length)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Schedule{
		params:   p,
		length:   length,
		winner:   winnerIndex,
		minSteps: length * p.MinPasses,
		delay:    p.BaseDelay,
	}, nil
}

// Next returns the next tick. The boolean is false once the terminal tick
// has been handed out.
func (s *Schedule) Next() (model.Tick, bool) {
	if s.done {
		return model.Tick{}, false
	}
	t := model.Tick{Step: s.step, Index: s.step % s.length, Delay: s.wait}
	s.emitted++

	if s.step >= s.minSteps && t.Index == s.winner {
		s.done = true
		return t, true
	}

	s.step++
	switch {
	case s.step > s.minSteps-s.params.FinalApproachSteps:
		s.delay += s.params.FinalStep
	case s.step > s.length:
		s.delay += s.params.MidStep
	}
	s.wait = s.delay
	return t, true
}

// Done reports whether the terminal tick has been emitted.
func (s *Schedule) Done() bool { return s.done }

// MinSteps is the number of steps the highlight runs before it may stop.
func (s *Schedule) MinSteps() int { return s.minSteps }

// Length is the working list length the schedule was built for.
func (s *Schedule) Length() int { return s.length }

// WinnerIndex is the slot the schedule stops on.
func (s *Schedule) WinnerIndex() int { return s.winner }

// Total is the exact number of ticks the schedule yields.
func (s *Schedule) Total() int { return s.minSteps + s.winner + 1 }

// Duration is the sum of every wait the schedule yields, from the first
// tick to the terminal one. It does not advance s.
func (s *Schedule) Duration() time.Duration {
	fresh := Schedule{
		params:   s.params,
		length:   s.length,
		winner:   s.winner,
		minSteps: s.minSteps,
		delay:    s.params.BaseDelay,
	}
	var d time.Duration
	for t, ok := fresh.Next(); ok; t, ok = fresh.Next() {
		d += t.Delay
	}
	return d
}

// Remaining is the number of ticks not yet handed out.
func (s *Schedule) Remaining() int { return s.Total() - s.emitted }

// Plan materializes a whole schedule.
func Plan(length, winnerIndex int, p Params) ([]model.Tick, error) {
	s, err := New(length, winnerIndex, p)
	if err != nil {
		return nil, err
	}
	ticks := make([]model.Tick, 0, s.Total())
	for {
		t, ok := s.Next()
		if !ok {
			return ticks, nil
		}
		ticks = append(ticks, t)
	}
}

// TotalDuration sums the waits of a planned schedule.
func TotalDuration(ticks []model.Tick) time.Duration {
	var d time.Duration
	for _, t := range ticks {
		d += t.Delay
	}
	return d
}
