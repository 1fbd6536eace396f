// Package util provides small runtime helpers.
package util

import "time"

// SkipThrottler rate limits an action by skipping invocations that come too
// soon after the last admitted one. It is used to throttle progress logging
// inside parameter sweep loops.
type SkipThrottler struct {
	d    time.Duration
	last time.Time
}

func NewSkipThrottler(d time.Duration) *SkipThrottler {
	return &SkipThrottler{d: d}
}

// Ok reports whether at least the configured duration has passed since the
// last admitted call, admitting the current one if so.
func (tt *SkipThrottler) Ok() bool {
	now := time.Now()
	if now.Before(tt.last.Add(tt.d)) {
		return false
	}

	tt.last = now
	return true
}
