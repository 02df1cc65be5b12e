package throttle

import "time"

// Clock supplies the current time. Operations take one reading per call so a
// check and a follow-up record in the same request see a consistent now.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall clock.
func SystemClock() Clock { return systemClock{} }
