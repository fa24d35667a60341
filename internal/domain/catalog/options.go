package catalog

import (
	"time"

	"github.com/okian/randommarket/internal/domain/dedupe"
	"github.com/okian/randommarket/pkg/logger"
)

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Catalog) {
		if l != nil {
			c.log = l
		}
	}
}

// WithMaxEvents caps how many events are kept after filtering. Zero keeps all.
func WithMaxEvents(n int) Option {
	return func(c *Catalog) {
		if n >= 0 {
			c.maxEvents = n
		}
	}
}

// WithDeduper replaces the id tracker used while refreshing.
func WithDeduper(d dedupe.Deduper) Option {
	return func(c *Catalog) {
		if d != nil {
			c.seen = d
		}
	}
}

// WithRefreshTimeout bounds a single fetch from the source.
func WithRefreshTimeout(d time.Duration) Option {
	return func(c *Catalog) {
		if d > 0 {
			c.timeout = d
		}
	}
}
