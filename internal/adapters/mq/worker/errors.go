package worker

import "errors"

// ErrMissingResult is returned when a completed notification carries no result.
var ErrMissingResult = errors.New("completed notification without result")
