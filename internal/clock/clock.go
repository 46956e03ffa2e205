// Package clock provides the monotonic time source and process-wide shutdown
// signal shared by the scheduler and pipeline engine (spec.md §2.1, §5).
package clock

import "time"

// Clock abstracts time.Now so tests can inject a fixed or steppable clock
// without sleeping real wall-clock time.
type Clock interface {
	Now() time.Time
}

// Real is the production Clock, backed by time.Now.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

// System is the shared Real clock instance.
var System Clock = Real{}
