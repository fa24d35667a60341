package repository

import "errors"

// Sentinel kinds for history errors.
var (
	ErrNotFound      = errors.New("event never won")
	ErrInvalidLimit  = errors.New("invalid limit")
	ErrInvalidRecord = errors.New("spin record needs spin and event ids")
)
