package service

import "time"

// RealClock implements ports.Clock on the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now().UTC()
}
