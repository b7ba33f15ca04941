// ABOUTME: Injectable timer source for the search debounce.
// ABOUTME: Production uses time.AfterFunc; tests fire callbacks by hand.
package board

import "time"

// Timer is a pending callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks. The engine only needs AfterFunc, which lets
// tests fire the search debounce by hand instead of sleeping.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealClock is the wall-clock implementation backed by time.AfterFunc.
var RealClock Clock = realClock{}
