package clock

import "sync/atomic"

// ShutdownSignal is a process-wide, monotonic running->draining flag.
// Any in-flight Extract/Transform/Load stage checks IsDraining() at its
// boundary (spec.md §5) and stops cleanly instead of starting new work.
type ShutdownSignal struct {
	draining atomic.Bool
}

// NewShutdownSignal returns a signal in the running state.
func NewShutdownSignal() *ShutdownSignal {
	return &ShutdownSignal{}
}

// Drain transitions the signal to draining. Idempotent; the only state
// transition is running -> draining, never the reverse.
func (s *ShutdownSignal) Drain() {
	s.draining.Store(true)
}

// IsDraining reports whether Drain has been called.
func (s *ShutdownSignal) IsDraining() bool {
	return s.draining.Load()
}
