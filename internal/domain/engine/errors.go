package engine

import "errors"

// Sentinel errors returned by the engine.
var (
	ErrAlreadySpinning   = errors.New("a spin is already in progress")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrClosed            = errors.New("engine closed")
)
