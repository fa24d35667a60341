package source

import (
	"context"

	"github.com/okian/randommarket/internal/domain/model"
)

// Static serves a fixed list held in memory.
type Static struct {
	events []model.Event
}

// NewStatic copies events into a new static source.
func NewStatic(events []model.Event) *Static {
	return &Static{events: model.CloneEvents(events)}
}

// Events returns a copy of the list.
func (s *Static) Events(context.Context) ([]model.Event, error) {
	return model.CloneEvents(s.events), nil
}
