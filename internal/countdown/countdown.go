// Package countdown decomposes the time left until a target instant into
// days, hours, minutes and seconds, and publishes it on a fixed interval.
package countdown

import (
	"fmt"
	"time"
)

const (
	secondsPerMinute = 60
	secondsPerHour   = 60 * secondsPerMinute
	secondsPerDay    = 24 * secondsPerHour
)

// Remaining is the countdown state handed to the render sink.
// All fields are non-negative; only Days is unbounded.
type Remaining struct {
	Days    int64 `json:"days"`
	Hours   int64 `json:"hours"`
	Minutes int64 `json:"minutes"`
	Seconds int64 `json:"seconds"`
}

// Compute returns max(0, target-now) decomposed. Sub-second remainders are
// truncated. The result depends only on its inputs, so a skipped tick is
// corrected by the next call.
func Compute(target, now time.Time) Remaining {
	return FromDuration(target.Sub(now))
}

// FromDuration decomposes d, clamping negative durations to zero.
func FromDuration(d time.Duration) Remaining {
	if d <= 0 {
		return Remaining{}
	}
	delta := int64(d / time.Second)

	var r Remaining
	r.Days = delta / secondsPerDay
	delta %= secondsPerDay
	r.Hours = delta / secondsPerHour
	delta %= secondsPerHour
	r.Minutes = delta / secondsPerMinute
	r.Seconds = delta % secondsPerMinute
	return r
}

// IsZero reports whether the target has been reached.
func (r Remaining) IsZero() bool {
	return r == Remaining{}
}

// Duration converts back to a time.Duration.
func (r Remaining) Duration() time.Duration {
	total := r.Days*secondsPerDay + r.Hours*secondsPerHour + r.Minutes*secondsPerMinute + r.Seconds
	return time.Duration(total) * time.Second
}

// String renders "1d 01:01:01".
func (r Remaining) String() string {
	return fmt.Sprintf("%dd %02d:%02d:%02d", r.Days, r.Hours, r.Minutes, r.Seconds)
}

// Clock provides the current instant. It allows time to be fixed in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the host clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time {
	return time.Now()
}

// FixedClock always returns the same instant.
type FixedClock struct {
	CurrentTime time.Time
}

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time {
	return c.CurrentTime
}
