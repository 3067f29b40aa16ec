package kvlite

import "time"

// Clock is the core's only contract with wall-clock time — a monotonic,
// UTC, seconds-since-epoch source. It's an external collaborator on
// purpose: tests substitute a fake clock to exercise expiry/sliding-refresh
// behavior without sleeping.
type Clock interface {
	NowUTC() int64
}

// systemClock is the default Clock, backed by the real wall clock.
type systemClock struct{}

func (systemClock) NowUTC() int64 { return time.Now().UTC().Unix() }

// SystemClock returns the default, real-time Clock.
func SystemClock() Clock { return systemClock{} }
