package common

import "time"

// Clock abstracts timer waits so interval logic can run against a fake
// clock in tests.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

func RealClock() Clock {
	return realClock{}
}
