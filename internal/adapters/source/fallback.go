package source

import (
	"context"
	"fmt"

	"github.com/okian/randommarket/internal/domain/catalog"
	"github.com/okian/randommarket/internal/domain/model"
	"github.com/okian/randommarket/pkg/logger"
	"github.com/okian/randommarket/pkg/metrics"
)

// Fallback asks the primary source first and the fallback when the
// primary fails or comes back empty.
type Fallback struct {
	primary  catalog.Source
	fallback catalog.Source
	log      logger.Logger
}

// NewFallback composes two sources. Either may be nil, not both.
func NewFallback(primary, fallback catalog.Source, log logger.Logger) (*Fallback, error) {
	if primary == nil && fallback == nil {
		return nil, ErrNoSource
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Fallback{primary: primary, fallback: fallback, log: log}, nil
}

// Events implements catalog.Source.
func (f *Fallback) Events(ctx context.Context) ([]model.Event, error) {
	var primaryErr error
	if f.primary != nil {
		events, err := f.primary.Events(ctx)
		if err == nil && len(events) > 0 {
			return events, nil
		}
		primaryErr = err
		if primaryErr == nil {
			primaryErr = ErrEmptySource
		}
		if f.fallback == nil {
			return nil, primaryErr
		}
		f.log.Warn(ctx, "primary event source unavailable, using fallback", logger.Error(primaryErr))
	}

	metrics.RecordSourceFallback()
	events, err := f.fallback.Events(ctx)
	if err != nil {
		if primaryErr != nil {
			return nil, fmt.Errorf("primary: %w; fallback: %w", primaryErr, err)
		}
		return nil, err
	}
	return events, nil
}
