package catalog

import "errors"

// Sentinel errors returned by the catalog.
var (
	ErrNoEvents  = errors.New("source returned no selectable events")
	ErrNilSource = errors.New("catalog source must not be nil")
)
