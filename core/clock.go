package core

import "time"

type (
	Timer interface {
		// Stop prevents the Timer from firing. It returns false if the timer already fired or was stopped.
		Stop() bool
	}

	Clock interface {
		Now() time.Time
		AfterFunc(d time.Duration, f func()) Timer
	}
)

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
