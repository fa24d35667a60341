// Package selector picks the winning event and lays out the working list
// the highlight runs over.
package selector

import (
	"fmt"
	"math/rand/v2"

	"github.com/okian/randommarket/internal/domain/model"
)

// RNG abstracts random number generation for deterministic testing.
type RNG interface {
	// Intn returns a non-negative random int in [0, n). n must be > 0.
	Intn(n int) int
}

type defaultRNG struct{}

func (defaultRNG) Intn(n int) int { return rand.IntN(n) }

// DefaultRNG returns the process-wide generator. It is safe for concurrent use.
func DefaultRNG() RNG { return defaultRNG{} }

// Seeded returns a deterministic generator. Not safe for concurrent use.
func Seeded(seed uint64) RNG {
	return seeded{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

type seeded struct{ r *rand.Rand }

func (s seeded) Intn(n int) int { return s.r.IntN(n) }

// Select returns one event drawn uniformly from events.
func Select(events []model.Event, rng RNG) (model.Event, error) {
	if len(events) == 0 {
		return model.Event{}, ErrEmptySelection
	}
	if rng == nil {
		rng = DefaultRNG()
	}
	return events[rng.Intn(len(events))], nil
}

// Shuffle permutes events in place (Fisher-Yates).
func Shuffle(events []model.Event, rng RNG) {
	if rng == nil {
		rng = DefaultRNG()
	}
	for i := len(events) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		events[i], events[j] = events[j], events[i]
	}
}

// BuildWorkingList lays out the list the highlight cycles over.
//
// The winner is always present exactly once. The other slots are a random
// sample of the universe without the winner, capped at size-1 when size is
// positive. The winner lands on a uniformly random position. The returned
// index is where the winner sits.
func BuildWorkingList(universe []model.Event, winner model.Event, size int, rng RNG) ([]model.Event, int, error) {
	if len(universe) == 0 {
		return nil, -1, ErrEmptySelection
	}
	if rng == nil {
		rng = DefaultRNG()
	}

	others := make([]model.Event, 0, len(universe))
	for _, e := range universe {
		if e.ID != winner.ID {
			others = append(others, e)
		}
	}
	if len(others) == len(universe) {
		return nil, -1, fmt.Errorf("%w: %q", ErrWinnerNotInList, winner.ID)
	}

	Shuffle(others, rng)
	if size > 0 && len(others) > size-1 {
		others = others[:size-1]
	}

	pos := rng.Intn(len(others) + 1)
	list := make([]model.Event, 0, len(others)+1)
	list = append(list, others[:pos]...)
	list = append(list, winner)
	list = append(list, others[pos:]...)

	if err := ValidateUnique(list); err != nil {
		return nil, -1, err
	}
	idx, err := LocateByID(list, winner.ID)
	if err != nil {
		return nil, -1, err
	}
	return list, idx, nil
}

// LocateByID returns the position of the event with the given id.
func LocateByID(list []model.Event, id string) (int, error) {
	for i := range list {
		if list[i].ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrWinnerNotInList, id)
}

// ValidateUnique checks that every event has a non-empty id used only once.
func ValidateUnique(list []model.Event) error {
	seen := make(map[string]struct{}, len(list))
	for i := range list {
		id := list[i].ID
		if id == "" {
			return fmt.Errorf("%w: position %d", ErrMissingEventID, i)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateEventID, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
