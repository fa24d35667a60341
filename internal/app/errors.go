package service

import "errors"

var (
	// ErrNotStarted is returned by operations that need a running service.
	ErrNotStarted = errors.New("service not started")

	// ErrNilSource is returned when the service is built without an event source.
	ErrNilSource = errors.New("event source is required")
)
