package utils

import "time"

type (
	// Clock abstracts the subset of package time the recorder and scheduler
	// use, so tests can control apparent time.
	Clock interface {
		Now() time.Time
		NewTimer(d time.Duration) Timer
		NewTicker(d time.Duration) Ticker
	}

	// Timer abstracts the functionality of time.Timer.
	Timer interface {
		C() <-chan time.Time
		Reset(d time.Duration) bool
		Stop() bool
	}

	// Ticker abstracts the functionality of time.Ticker.
	Ticker interface {
		C() <-chan time.Time
		Stop()
	}

	wallClock struct{}

	timer struct {
		*time.Timer
	}

	ticker struct {
		*time.Ticker
	}
)

// WallClock is the Clock backed by package time.
var WallClock Clock = wallClock{}

// Now indirects time.Now.
func (wallClock) Now() time.Time {
	return time.Now()
}

// NewTimer indirects time.NewTimer.
func (wallClock) NewTimer(d time.Duration) Timer {
	return timer{Timer: time.NewTimer(d)}
}

// NewTicker indirects time.NewTicker.
func (wallClock) NewTicker(d time.Duration) Ticker {
	return ticker{Ticker: time.NewTicker(d)}
}

// C indirects time.Timer.C.
func (t timer) C() <-chan time.Time {
	return t.Timer.C
}

// C indirects time.Ticker.C.
func (t ticker) C() <-chan time.Time {
	return t.Ticker.C
}
