package engine

import "fmt"

// State is the lifecycle state of the engine.
type State int

// Engine states.
const (
	Idle State = iota
	Spinning
	Completed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Spinning:
		return "spinning"
	case Completed:
		return "completed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Trigger moves the engine between states.
type Trigger string

// Triggers.
const (
	TriggerStart    Trigger = "start"
	TriggerTick     Trigger = "tick"
	TriggerComplete Trigger = "complete"
	TriggerCancel   Trigger = "cancel"
)

type edge struct {
	from State
	on   Trigger
}

var transitions = map[edge]State{ //nolint:gochecknoglobals // fixed transition table
	{Idle, TriggerStart}:        Spinning,
	{Completed, TriggerStart}:   Spinning,
	{Spinning, TriggerTick}:     Spinning,
	{Spinning, TriggerComplete}: Completed,
	{Spinning, TriggerCancel}:   Idle,
}

// Transition returns the state reached from `from` on trigger t.
func Transition(from State, t Trigger) (State, error) {
	to, ok := transitions[edge{from, t}]
	if !ok {
		return from, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, from, t)
	}
	return to, nil
}
