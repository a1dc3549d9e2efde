package core

import "github.com/facebookgo/clock"

// Clock is the time source for join/leave timestamps, settlement periods and snapshots.
type Clock = clock.Clock

// SystemClock returns the wall clock.
func SystemClock() Clock { return clock.New() }

// ClockOrSystem returns c, or the wall clock when c is nil.
func ClockOrSystem(c Clock) Clock {
	if c == nil {
		return clock.New()
	}
	return c
}
