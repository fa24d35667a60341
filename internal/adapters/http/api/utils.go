package api

import (
	"net/http"
	"strconv"
)

// parseLimit reads ?limit=N. A missing value gives def; anything that is
// not an integer in [1, limitMax] is an error.
func parseLimit(r *http.Request, def, limitMax int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return min(def, limitMax), nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, ErrBadRequest
	}
	if n > limitMax {
		return 0, ErrLimitExceeded
	}
	return n, nil
}
