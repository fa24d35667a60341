package engine

import (
	"bytes"
	"runtime"
	"strconv"
)

// goroutineID returns the id the runtime prints in stack traces for the
// calling goroutine. It is only compared for equality, never stored past
// the emission it identifies.
func goroutineID() uint64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i > 0 {
		b = b[:i]
	}
	id, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
