// Package catalog keeps the list of events the spinner may select from.
//
// A refresh pulls from a Source, drops events that cannot be shown (no
// title or no market) and repeated ids, and swaps the list in atomically.
// A failed or empty refresh keeps the previous list.
package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/randommarket/internal/domain/dedupe"
	"github.com/okian/randommarket/internal/domain/model"
	"github.com/okian/randommarket/pkg/logger"
	"github.com/okian/randommarket/pkg/metrics"
)

const defaultRefreshTimeout = 10 * time.Second

// Source supplies the raw event list.
type Source interface {
	Events(ctx context.Context) ([]model.Event, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]model.Event, error)

// Events calls f.
func (f SourceFunc) Events(ctx context.Context) ([]model.Event, error) { return f(ctx) }

// Catalog holds the current selectable events.
type Catalog struct {
	source    Source
	log       logger.Logger
	seen      dedupe.Deduper
	maxEvents int
	timeout   time.Duration

	refreshMu sync.Mutex // one refresh at a time; guards seen

	mu          sync.RWMutex
	events      []model.Event
	lastRefresh time.Time
	lastErr     error
}

// New creates a catalog reading from source.
func New(source Source, opts ...Option) (*Catalog, error) {
	if source == nil {
		return nil, ErrNilSource
	}
	c := &Catalog{
		source:  source,
		log:     logger.Nop(),
		seen:    dedupe.NewInMemoryDeduper(),
		timeout: defaultRefreshTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Refresh pulls a new list from the source.
func (c *Catalog) Refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	fetchCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.source.Events(fetchCtx)
	if err != nil {
		return c.fail(ctx, fmt.Errorf("fetch events: %w", err))
	}

	events := c.filter(ctx, raw)
	if len(events) == 0 {
		return c.fail(ctx, ErrNoEvents)
	}

	c.mu.Lock()
	c.events = events
	c.lastRefresh = time.Now()
	c.lastErr = nil
	c.mu.Unlock()

	metrics.RecordCatalogRefresh()
	metrics.UpdateCatalogSize(len(events))
	c.log.Debug(ctx, "catalog refreshed", logger.Int("received", len(raw)), logger.Int("kept", len(events)))
	return nil
}

func (c *Catalog) filter(ctx context.Context, raw []model.Event) []model.Event {
	c.seen.Reset()
	out := make([]model.Event, 0, len(raw))
	var unusable, duplicate, capped int
	for _, e := range raw {
		if e.ID == "" || !e.Selectable() {
			unusable++
			continue
		}
		if c.seen.SeenAndRecord(ctx, e.ID) {
			duplicate++
			continue
		}
		if c.maxEvents > 0 && len(out) >= c.maxEvents {
			// Forget it again; a deduper bounded to maxEvents then only
			// evicts once the list is full and nothing more is kept.
			c.seen.Unrecord(ctx, e.ID)
			capped++
			continue
		}
		out = append(out, e)
	}
	metrics.RecordCatalogDropped("unusable", unusable)
	metrics.RecordCatalogDropped("duplicate", duplicate)
	metrics.RecordCatalogDropped("capped", capped)
	return out
}

func (c *Catalog) fail(ctx context.Context, err error) error {
	c.mu.Lock()
	c.lastErr = err
	kept := len(c.events)
	c.mu.Unlock()

	metrics.RecordCatalogRefreshError()
	c.log.Warn(ctx, "catalog refresh failed, keeping previous events",
		logger.Error(err), logger.Int("kept", kept))
	return err
}

// Run refreshes every interval until ctx is done. Failures are logged and
// otherwise ignored.
func (c *Catalog) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = c.Refresh(ctx)
		}
	}
}

// Events returns a copy of the current list.
func (c *Catalog) Events() []model.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return model.CloneEvents(c.events)
}

// Len is the number of current events.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.events)
}

// Status reports when the list was last replaced and the last refresh error.
func (c *Catalog) Status() (time.Time, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastRefresh, c.lastErr
}
