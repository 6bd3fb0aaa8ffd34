package app

import "time"

// nextDelay returns the time until the next multiple of interval so ticks
// line up with the wall clock.
func nextDelay(now time.Time, interval time.Duration) time.Duration {
	if interval <= 0 {
		return time.Second
	}
	next := now.Truncate(interval).Add(interval)
	return next.Sub(now)
}
