package engine

import "time"

// Timer is the part of time.Timer the engine needs.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

// Clock creates timers and tells the time. Tests swap it to drive ticks by hand.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) Timer
}

type systemClock struct{}

type systemTimer struct{ t *time.Timer }

func (t systemTimer) C() <-chan time.Time { return t.t.C }
func (t systemTimer) Stop() bool          { return t.t.Stop() }

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) NewTimer(d time.Duration) Timer { return systemTimer{t: time.NewTimer(d)} }

// SystemClock is the wall clock.
func SystemClock() Clock { return systemClock{} }

// instantClock fires every timer immediately and advances a virtual time
// by the requested duration, so a whole spin plays out without waiting.
type instantClock struct {
	now chan time.Time
}

type firedTimer struct{ c chan time.Time }

func (t firedTimer) C() <-chan time.Time { return t.c }
func (t firedTimer) Stop() bool          { return false }

// InstantClock returns a clock whose timers have already fired.
// Now starts at start and moves forward by every timer duration.
func InstantClock(start time.Time) Clock {
	c := &instantClock{now: make(chan time.Time, 1)}
	c.now <- start
	return c
}

func (c *instantClock) Now() time.Time {
	t := <-c.now
	c.now <- t
	return t
}

func (c *instantClock) NewTimer(d time.Duration) Timer {
	t := <-c.now
	t = t.Add(d)
	c.now <- t
	ch := make(chan time.Time, 1)
	ch <- t
	return firedTimer{c: ch}
}
