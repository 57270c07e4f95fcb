package domain

import "errors"

// Fatal error classes. Callers match them with errors.Is; the wrapped message
// carries the detail.
var (
	ErrTransport     = errors.New("transport error")
	ErrIO            = errors.New("io error")
	ErrSchema        = errors.New("schema error")
	ErrConsistency   = errors.New("consistency error")
	ErrUnknownRegion = errors.New("unknown region")
)
