// Package schedule resolves the next instant of the monthly move-day rule
// ("day 27 of the month at 10:45:00").
package schedule

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRule is returned by Rule.Validate.
var ErrInvalidRule = errors.New("schedule: invalid rule")

// Rule is a fixed day-of-month and time-of-day repeating every calendar month.
type Rule struct {
	Day    int
	Hour   int
	Minute int
	Second int

	// Location pins the rule to one zone. If nil, the zone of the instant
	// passed to Next is used, so each caller sees the rule in its own local
	// time.
	Location *time.Location
}

// DefaultRule is the office move-day rule: the 27th at 10:45:00 local time.
var DefaultRule = Rule{Day: 27, Hour: 10, Minute: 45, Second: 0}

// NextOccurrence returns DefaultRule.Next(now).
func NextOccurrence(now time.Time) time.Time {
	return DefaultRule.Next(now)
}

// Next returns the first instant matching the rule that is not before now.
// This month's occurrence is returned while now is at or before it;
// otherwise the occurrence in the following month. Month overflow (December
// + 1) is normalized by time.Date.
func (r Rule) Next(now time.Time) time.Time {
	loc := r.location(now)
	local := now.In(loc)

	candidate := r.at(local.Year(), local.Month(), loc)
	if !now.After(candidate) {
		return candidate
	}
	return r.at(local.Year(), local.Month()+1, loc)
}

// Validate checks field ranges. Days beyond 28 are rejected because
// time.Date would roll them into the next month in short months.
func (r Rule) Validate() error {
	switch {
	case r.Day < 1 || r.Day > 28:
		return fmt.Errorf("%w: day %d outside 1..28", ErrInvalidRule, r.Day)
	case r.Hour < 0 || r.Hour > 23:
		return fmt.Errorf("%w: hour %d outside 0..23", ErrInvalidRule, r.Hour)
	case r.Minute < 0 || r.Minute > 59:
		return fmt.Errorf("%w: minute %d outside 0..59", ErrInvalidRule, r.Minute)
	case r.Second < 0 || r.Second > 59:
		return fmt.Errorf("%w: second %d outside 0..59", ErrInvalidRule, r.Second)
	}
	return nil
}

// String renders the rule as "day 27 at 10:45:00".
func (r Rule) String() string {
	s := fmt.Sprintf("day %d at %02d:%02d:%02d", r.Day, r.Hour, r.Minute, r.Second)
	if r.Location != nil {
		s += " " + r.Location.String()
	}
	return s
}

func (r Rule) at(year int, month time.Month, loc *time.Location) time.Time {
	return time.Date(year, month, r.Day, r.Hour, r.Minute, r.Second, 0, loc)
}

func (r Rule) location(now time.Time) *time.Location {
	if r.Location != nil {
		return r.Location
	}
	return now.Location()
}
