// Package clock abstracts the wall clock so the sweeper, the timer manager
// and tests can agree on what "now" means.
package clock

import "time"

// Clock supplies the current instant, always in UTC.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// NewSystem returns a clock backed by time.Now.
func NewSystem() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}
