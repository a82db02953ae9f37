package loop

import "time"

// Clock abstracts monotonic time so scheduler deadline arithmetic is
// testable without real sleeps.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// SystemClock is the wall Clock used outside tests.
type SystemClock struct{}

func (SystemClock) Now() time.Time        { return time.Now() }
func (SystemClock) Sleep(d time.Duration) { time.Sleep(d) }
