package loop

import (
	"context"
	"time"
)

// DefaultPeriod is the control cycle period.
const DefaultPeriod = 100 * time.Millisecond

// Scheduler drives a cycle function at a fixed period using absolute
// deadlines: each deadline is the previous one plus the period, never
// "now plus the period", so compute-time jitter cannot accumulate
// into drift. The k-th deadline is exactly start + k*period.
//
// When a cycle runs longer than the period the scheduler reports the
// overrun and proceeds immediately to the next cycle; it never sleeps
// a negative duration and never skips a tick silently.
type Scheduler struct {
	clock  Clock
	period time.Duration
	next   time.Time

	// OnOverrun, if set, is called with how late the deadline was.
	OnOverrun func(late time.Duration)
}

func NewScheduler(clock Clock, period time.Duration) *Scheduler {
	if period <= 0 {
		period = DefaultPeriod
	}
	return &Scheduler{clock: clock, period: period}
}

func (s *Scheduler) Period() time.Duration { return s.period }

// Deadline returns the most recently computed absolute deadline.
func (s *Scheduler) Deadline() time.Time { return s.next }

// Run executes cycle once per period until ctx is canceled. The stop
// signal is polled once per cycle, before the cycle body runs; Run
// never aborts a cycle midway.
func (s *Scheduler) Run(ctx context.Context, cycle func()) {
	s.next = s.clock.Now()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		cycle()

		s.next = s.next.Add(s.period)
		now := s.clock.Now()
		// Finishing exactly on the deadline is on time, not an overrun.
		if now.Before(s.next) {
			s.clock.Sleep(s.next.Sub(now))
		} else if now.After(s.next) && s.OnOverrun != nil {
			s.OnOverrun(now.Sub(s.next))
		}
	}
}
