package domain

import "github.com/jonboulle/clockwork"

// clock stamps report generation times. Tests freeze it via SetClock so
// rendered reports are byte-comparable.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source used for report generation. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}
