package chain

import "time"

// Clock abstracts timers so block production can be driven by hand in tests.
type Clock interface {
	After(d time.Duration) <-chan time.Time
	Now() time.Time
}

// WallClock is the real-time Clock.
type WallClock struct{}

func (WallClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
func (WallClock) Now() time.Time                         { return time.Now() }
