package schedule

import "errors"

// Sentinel errors returned when building a schedule.
var (
	ErrEmptyList        = errors.New("schedule needs at least one slot")
	ErrWinnerOutOfRange = errors.New("winner index out of range")
	ErrInvalidParams    = errors.New("invalid schedule parameters")
)
