package selector

import "errors"

// Sentinel errors returned by the selector.
var (
	ErrEmptySelection   = errors.New("no events to select from")
	ErrWinnerNotInList  = errors.New("winner not present in working list")
	ErrDuplicateEventID = errors.New("duplicate event id")
	ErrMissingEventID   = errors.New("event id must not be empty")
)
