package types

import "time"

// Clock supplies the current instant. The engine reads the wall clock through
// one injected Clock per call chain instead of re-reading ambient time at
// each step, so rollups and queries see a consistent "now".
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a plain function to a Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock returns a Clock backed by the system wall clock in UTC.
func SystemClock() Clock {
	return ClockFunc(func() time.Time { return time.Now().UTC() })
}
