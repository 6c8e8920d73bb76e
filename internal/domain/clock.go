package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock stamps import and creation times. Tests freeze it via SetClock.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Now returns the current time in UTC, truncated to microseconds so values
// survive a round trip through the record store unchanged.
func Now() time.Time {
	return clock.Now().UTC().Truncate(time.Microsecond)
}
