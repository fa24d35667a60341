package broadcast

import "github.com/okian/randommarket/pkg/logger"

// Option configures a Hub.
type Option func(*Hub)

// WithSubscriberBuffer sets how many notifications a subscriber may lag behind.
func WithSubscriberBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// WithLogger sets the hub logger.
func WithLogger(l logger.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}
