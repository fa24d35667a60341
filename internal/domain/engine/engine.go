// Package engine runs spins: it picks a winner, lays out the working list
// and drives the highlight along a decelerating schedule until it lands on
// the winner.
//
// One spin is in flight at a time. Ticks are emitted from a dedicated
// goroutine paced by Clock timers. Cancel and Close stop the timers and
// guarantee that no tick or completion is delivered for the cancelled spin
// once they return. Both may be called from inside a listener; the
// emission that made the call is cut short instead of waited for.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/randommarket/internal/domain/model"
	"github.com/okian/randommarket/internal/domain/schedule"
	"github.com/okian/randommarket/internal/domain/selector"
	"github.com/okian/randommarket/pkg/logger"
	"github.com/okian/randommarket/pkg/metrics"
)

// Spin describes a spin that has just been started.
// The winner is not part of it; listeners learn it on completion.
type Spin struct {
	ID                string        `json:"spin_id"`
	WorkingList       []model.Event `json:"working_list"`
	MinSteps          int           `json:"min_steps"`
	TotalTicks        int           `json:"total_ticks"`
	EstimatedDuration time.Duration `json:"estimated_duration_ns"`
	StartedAt         time.Time     `json:"started_at"`

	done <-chan struct{}
}

// Done is closed when the spin goroutine has finished, whether the spin
// completed or was cancelled.
func (s Spin) Done() <-chan struct{} { return s.done }

// Snapshot is a point-in-time view of the engine.
type Snapshot struct {
	State          string            `json:"state"`
	SpinID         string            `json:"spin_id,omitempty"`
	HighlightIndex int               `json:"highlight_index"`
	Step           int               `json:"step"`
	MinSteps       int               `json:"min_steps,omitempty"`
	TotalTicks     int               `json:"total_ticks,omitempty"`
	WorkingList    []model.Event     `json:"working_list,omitempty"`
	Result         *model.SpinResult `json:"result,omitempty"`
}

type spin struct {
	id          string
	list        []model.Event
	winner      model.Event
	winnerIndex int
	sched       *schedule.Schedule
	startedAt   time.Time

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// emitMu is held for the whole of every emission. Cancel takes it once
	// after cancelling ctx to wait out an emission already in progress,
	// unless it runs on the emitting goroutine itself.
	emitMu    sync.Mutex
	cancelled bool   // guarded by Engine.mu
	emitter   uint64 // goroutine inside an emission, 0 when none; guarded by Engine.mu
}

// Engine owns the spin state machine.
type Engine struct {
	params          schedule.Params
	workingListSize int
	clock           Clock
	rng             selector.RNG
	log             logger.Logger
	listeners       []Listener
	newID           func() string

	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup

	mu        sync.Mutex
	state     State
	current   *spin // spin whose goroutine may still emit
	view      *spin // spin shown by Snapshot: current or last completed
	highlight int
	step      int
	last      *model.SpinResult
	closed    bool
}

// New builds an engine.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		params:          schedule.DefaultParams(),
		workingListSize: DefaultWorkingListSize,
		clock:           SystemClock(),
		rng:             selector.DefaultRNG(),
		log:             logger.Nop(),
		newID:           uuid.NewString,
		state:           Idle,
		highlight:       -1,
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.params.Validate(); err != nil {
		return nil, err
	}
	e.baseCtx, e.baseCancel = context.WithCancel(context.Background())
	return e, nil
}

// StartSpin selects a winner from events and starts animating towards it.
//
// The first tick fires right away on the spin goroutine. An empty list
// yields selector.ErrEmptySelection with no state change. A spin already
// in flight yields ErrAlreadySpinning.
func (e *Engine) StartSpin(ctx context.Context, events []model.Event) (Spin, error) {
	if len(events) == 0 {
		metrics.RecordSpinRejected("no_events")
		return Spin{}, selector.ErrEmptySelection
	}

	sp := &spin{done: make(chan struct{})}
	sp.emitMu.Lock()
	defer sp.emitMu.Unlock()

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return Spin{}, ErrClosed
	}
	if e.current != nil {
		e.mu.Unlock()
		metrics.RecordSpinRejected("already_spinning")
		return Spin{}, ErrAlreadySpinning
	}
	next, err := Transition(e.state, TriggerStart)
	if err != nil {
		e.mu.Unlock()
		return Spin{}, err
	}
	if err := e.prepare(sp, events); err != nil {
		e.mu.Unlock()
		metrics.RecordSpinRejected("invalid_events")
		return Spin{}, err
	}

	sp.ctx, sp.cancel = context.WithCancel(e.baseCtx)
	sp.emitter = goroutineID()
	e.state = next
	e.current = sp
	e.view = sp
	e.highlight = -1
	e.step = 0
	e.last = nil
	e.wg.Add(1)
	e.mu.Unlock()

	out := Spin{
		ID:                sp.id,
		WorkingList:       model.CloneEvents(sp.list),
		MinSteps:          sp.sched.MinSteps(),
		TotalTicks:        sp.sched.Total(),
		EstimatedDuration: sp.sched.Duration(),
		StartedAt:         sp.startedAt,
		done:              sp.done,
	}

	metrics.RecordSpinStarted(len(sp.list))
	e.log.Info(ctx, "spin started",
		logger.String("spin_id", sp.id),
		logger.Int("events", len(events)),
		logger.Int("working_list", len(sp.list)),
		logger.Int("total_ticks", out.TotalTicks),
		logger.Duration("estimated", out.EstimatedDuration))

	e.deliver(sp, model.Notification{
		Kind:        model.KindStarted,
		SpinID:      sp.id,
		State:       Spinning.String(),
		WorkingList: out.WorkingList,
		At:          sp.startedAt,
	})
	e.leaveEmission(sp)

	go e.run(sp)
	return out, nil
}

// prepare picks the winner and lays out the working list. Caller holds e.mu.
func (e *Engine) prepare(sp *spin, events []model.Event) error {
	winner, err := selector.Select(events, e.rng)
	if err != nil {
		return err
	}
	list, idx, err := selector.BuildWorkingList(events, winner, e.workingListSize, e.rng)
	if err != nil {
		return fmt.Errorf("build working list: %w", err)
	}
	sched, err := schedule.New(len(list), idx, e.params)
	if err != nil {
		return fmt.Errorf("build schedule: %w", err)
	}
	sp.id = e.newID()
	sp.list = list
	sp.winner = winner
	sp.winnerIndex = idx
	sp.sched = sched
	sp.startedAt = e.clock.Now()
	return nil
}

func (e *Engine) run(sp *spin) {
	defer e.wg.Done()
	defer close(sp.done)

	gid := goroutineID()
	for {
		tick, ok := sp.sched.Next()
		if !ok {
			return
		}
		if tick.Delay > 0 {
			t := e.clock.NewTimer(tick.Delay)
			select {
			case <-sp.ctx.Done():
				t.Stop()
				return
			case <-t.C():
			}
		}
		if !e.emit(sp, tick, gid) {
			return
		}
	}
}

// emit publishes one tick and, on the terminal one, the result.
// It reports whether the spin goroutine should keep going.
func (e *Engine) emit(sp *spin, tick model.Tick, gid uint64) bool {
	sp.emitMu.Lock()
	defer sp.emitMu.Unlock()

	if sp.ctx.Err() != nil {
		return false
	}

	e.mu.Lock()
	if e.current != sp || sp.cancelled {
		e.mu.Unlock()
		return false
	}
	terminal := sp.sched.Done()
	trigger := TriggerTick
	if terminal {
		trigger = TriggerComplete
	}
	next, err := Transition(e.state, trigger)
	if err != nil {
		e.mu.Unlock()
		e.log.Error(sp.ctx, "spin state corrupted", logger.String("spin_id", sp.id), logger.Error(err))
		metrics.RecordErrorByComponent("engine", "invalid_transition")
		return false
	}
	e.state = next
	e.highlight = tick.Index
	e.step = tick.Step
	sp.emitter = gid

	var result *model.SpinResult
	if terminal {
		result = &model.SpinResult{
			SpinID:      sp.id,
			Winner:      sp.winner,
			WinnerIndex: sp.winnerIndex,
			Steps:       tick.Step,
			MinSteps:    sp.sched.MinSteps(),
			StartedAt:   sp.startedAt,
			CompletedAt: e.clock.Now(),
		}
		e.last = result
	}
	e.mu.Unlock()
	defer e.leaveEmission(sp)

	metrics.RecordTick(float64(tick.Delay) / float64(time.Millisecond))
	t := tick
	delivered := e.deliver(sp, model.Notification{
		Kind:   model.KindTick,
		SpinID: sp.id,
		State:  next.String(),
		Tick:   &t,
		At:     e.clock.Now(),
	})
	if !terminal {
		return delivered
	}
	if !delivered {
		e.release(sp)
		return false
	}

	metrics.RecordSpinCompleted(sp.winner.ID, result.Steps, result.Duration().Seconds())
	e.log.Info(sp.ctx, "spin completed",
		logger.String("spin_id", sp.id),
		logger.String("winner_id", sp.winner.ID),
		logger.Int("winner_index", sp.winnerIndex),
		logger.Int("steps", result.Steps),
		logger.Duration("took", result.Duration()))
	e.deliver(sp, model.Notification{
		Kind:   model.KindCompleted,
		SpinID: sp.id,
		State:  Completed.String(),
		Result: result,
		At:     result.CompletedAt,
	})

	e.release(sp)
	return false
}

// release frees the engine for the next spin once sp has finished.
func (e *Engine) release(sp *spin) {
	e.mu.Lock()
	if e.current == sp {
		e.current = nil
	}
	e.mu.Unlock()
	sp.cancel()
}

// Cancel stops the spin in flight and reports whether there was one.
// Once it returns no further tick or completion of that spin is delivered.
// The state stays Spinning until the cancellation has been announced, so a
// StartSpin racing with Cancel sees a consistent ErrAlreadySpinning.
func (e *Engine) Cancel(ctx context.Context) bool {
	e.mu.Lock()
	sp := e.current
	if sp == nil || sp.cancelled {
		e.mu.Unlock()
		return false
	}
	next, err := Transition(e.state, TriggerCancel)
	if err != nil {
		// Already completed; the goroutine is finishing its last notification.
		e.mu.Unlock()
		return false
	}
	sp.cancelled = true
	reentrant := e.emittingHere(sp)
	e.mu.Unlock()

	sp.cancel()
	if !reentrant {
		// Wait out an emission that may have started before the cancel.
		sp.emitMu.Lock()
		defer sp.emitMu.Unlock()
	}

	metrics.RecordSpinCancelled()
	e.log.Info(ctx, "spin cancelled", logger.String("spin_id", sp.id), logger.Bool("from_listener", reentrant))
	e.notify(ctx, model.Notification{
		Kind:   model.KindCancelled,
		SpinID: sp.id,
		State:  next.String(),
		At:     e.clock.Now(),
	})

	e.mu.Lock()
	if e.current == sp {
		e.current = nil
		e.state = next
		e.view = nil
		e.highlight = -1
		e.step = 0
	}
	e.mu.Unlock()
	return true
}

// Close cancels any spin in flight, waits for the spin goroutine and
// refuses further spins. Called from a listener it does not wait, since the
// goroutine it would wait for is the caller.
func (e *Engine) Close(ctx context.Context) {
	e.mu.Lock()
	e.closed = true
	reentrant := e.current != nil && e.emittingHere(e.current)
	e.mu.Unlock()

	e.Cancel(ctx)
	e.baseCancel()
	if reentrant {
		return
	}
	e.wg.Wait()
}

// emittingHere reports whether the caller is the goroutine currently
// delivering a notification of sp. Caller holds e.mu.
func (e *Engine) emittingHere(sp *spin) bool {
	return sp.emitter != 0 && sp.emitter == goroutineID()
}

// leaveEmission marks the end of an emission of sp.
func (e *Engine) leaveEmission(sp *spin) {
	e.mu.Lock()
	sp.emitter = 0
	e.mu.Unlock()
}

// State returns the current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Snapshot returns the current view. The result of the last spin is only
// shown once it has completed.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := Snapshot{
		State:          e.state.String(),
		HighlightIndex: e.highlight,
		Step:           e.step,
	}
	if e.state == Idle {
		return s
	}
	if sp := e.view; sp != nil {
		s.SpinID = sp.id
		s.MinSteps = sp.sched.MinSteps()
		s.TotalTicks = sp.sched.Total()
		s.WorkingList = model.CloneEvents(sp.list)
	}
	if e.state == Completed && e.last != nil {
		r := *e.last
		s.SpinID = r.SpinID
		s.Result = &r
	}
	return s
}

func (e *Engine) notify(ctx context.Context, n model.Notification) {
	for _, l := range e.listeners {
		l.Notify(ctx, n)
	}
}

// deliver hands a notification of sp to the listeners and stops as soon as
// the spin is cancelled, including by one of those listeners. It reports
// whether every listener got it.
func (e *Engine) deliver(sp *spin, n model.Notification) bool {
	for _, l := range e.listeners {
		if sp.ctx.Err() != nil {
			return false
		}
		l.Notify(sp.ctx, n)
	}
	return sp.ctx.Err() == nil
}
