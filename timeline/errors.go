package timeline

import "errors"

// All timeline and registry errors are synchronous and recoverable; an editor
// is expected to surface them as a transient message, never crash. They are
// never raised across the playback goroutine boundary.
var (
	ErrInvalidTime     = errors.New("time must be non-negative")
	ErrInvalidDuration = errors.New("duration must be positive")
	ErrInvalidVelocity = errors.New("velocity out of range")
	ErrDuplicateEvent  = errors.New("event already in timeline")
	ErrNotFound        = errors.New("event not in timeline")
	ErrUnpairedNote    = errors.New("note has no pair")
	ErrNoFreeChannel   = errors.New("no free channel available")
)
