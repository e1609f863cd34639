package domain

import "github.com/jonboulle/clockwork"

// clock is the package time source used to stamp ProcessedAt. Tests and the
// fixture generator freeze it via SetClock for reproducible records.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}
