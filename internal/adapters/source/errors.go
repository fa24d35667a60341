package source

import "errors"

// Sentinel errors returned by event sources.
var (
	ErrEmptyPath   = errors.New("events file path must not be empty")
	ErrLoadEvents  = errors.New("load events failed")
	ErrNoSource    = errors.New("no event source configured")
	ErrEmptySource = errors.New("source returned no events")
)
