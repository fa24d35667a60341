// Package model contains domain models passed between layers.
package model

import "time"

// Market is one tradable question inside an event.
type Market struct {
	ID            string   `json:"id" koanf:"id" yaml:"id"`
	Question      string   `json:"question" koanf:"question" yaml:"question"`
	Slug          string   `json:"slug,omitempty" koanf:"slug" yaml:"slug"`
	OutcomePrices []string `json:"outcome_prices,omitempty" koanf:"outcome_prices" yaml:"outcome_prices"`
	Volume        float64  `json:"volume,omitempty" koanf:"volume" yaml:"volume"`
	Liquidity     float64  `json:"liquidity,omitempty" koanf:"liquidity" yaml:"liquidity"`
	Active        bool     `json:"active" koanf:"active" yaml:"active"`
	Closed        bool     `json:"closed" koanf:"closed" yaml:"closed"`
	EndDate       string   `json:"end_date,omitempty" koanf:"end_date" yaml:"end_date"`
}

// Event is a prediction-market event, the unit the spinner selects.
// ID is the identity used to locate the winner in a working list.
type Event struct {
	ID          string   `json:"id" koanf:"id" yaml:"id"`
	Title       string   `json:"title" koanf:"title" yaml:"title"`
	Slug        string   `json:"slug,omitempty" koanf:"slug" yaml:"slug"`
	Image       string   `json:"image,omitempty" koanf:"image" yaml:"image"`
	Icon        string   `json:"icon,omitempty" koanf:"icon" yaml:"icon"`
	Description string   `json:"description,omitempty" koanf:"description" yaml:"description"`
	TopicID     string   `json:"topic_id,omitempty" koanf:"topic_id" yaml:"topic_id"`
	Tags        []string `json:"tags,omitempty" koanf:"tags" yaml:"tags"`
	Markets     []Market `json:"markets" koanf:"markets" yaml:"markets"`
	Volume      float64  `json:"volume,omitempty" koanf:"volume" yaml:"volume"`
	Liquidity   float64  `json:"liquidity,omitempty" koanf:"liquidity" yaml:"liquidity"`
	Active      bool     `json:"active" koanf:"active" yaml:"active"`
	Closed      bool     `json:"closed" koanf:"closed" yaml:"closed"`
}

// Selectable reports whether the event can be offered to the spinner:
// it needs a title and at least one market.
func (e Event) Selectable() bool {
	return e.Title != "" && len(e.Markets) > 0
}

// CloneEvents returns a shallow copy of the slice so callers can reorder it freely.
func CloneEvents(events []Event) []Event {
	if events == nil {
		return nil
	}
	out := make([]Event, len(events))
	copy(out, events)
	return out
}

// Tick is one highlight step of a spin.
// Delay is the wait that preceded the tick; the first tick has none.
type Tick struct {
	Step  int           `json:"step"`
	Index int           `json:"index"`
	Delay time.Duration `json:"delay_ns"`
}

// SpinResult is the outcome of a completed spin.
// WorkingList[WinnerIndex].ID always equals Winner.ID.
type SpinResult struct {
	SpinID      string    `json:"spin_id"`
	Winner      Event     `json:"winner"`
	WinnerIndex int       `json:"winner_index"`
	Steps       int       `json:"steps"`
	MinSteps    int       `json:"min_steps"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// Duration is the wall clock time the spin took.
func (r SpinResult) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// NotificationKind names what happened in an engine notification.
type NotificationKind string

// Notification kinds.
const (
	KindStarted   NotificationKind = "started"
	KindTick      NotificationKind = "tick"
	KindCompleted NotificationKind = "completed"
	KindCancelled NotificationKind = "cancelled"
)

// Notification is what the engine tells its listeners.
// Tick is set for tick notifications, Result for completed ones and
// WorkingList for started ones.
type Notification struct {
	Kind        NotificationKind `json:"kind"`
	SpinID      string           `json:"spin_id"`
	State       string           `json:"state"`
	Tick        *Tick            `json:"tick,omitempty"`
	Result      *SpinResult      `json:"result,omitempty"`
	WorkingList []Event          `json:"working_list,omitempty"`
	At          time.Time        `json:"at"`
}
