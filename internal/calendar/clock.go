package calendar

import "time"

// Clock supplies the current time so "today" can be pinned in tests.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always reports the same instant.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }

// Today returns the current calendar day of c in UTC.
// A nil clock falls back to the system clock.
func Today(c Clock) time.Time {
	if c == nil {
		c = SystemClock{}
	}
	return Day(c.Now().UTC())
}
