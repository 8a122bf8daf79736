package schedule

import (
	"time"

	"github.com/teambition/rrule-go"
)

// maxUpcoming caps Upcoming so a bad caller cannot ask for an unbounded list.
const maxUpcoming = 120

// RRule returns the rule as an RFC 5545 monthly recurrence anchored at the
// first day of dtstart's month, in the rule's location (or dtstart's).
func (r Rule) RRule(dtstart time.Time) (*rrule.RRule, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	loc := r.location(dtstart)
	local := dtstart.In(loc)
	anchor := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)

	return rrule.NewRRule(rrule.ROption{
		Freq:       rrule.MONTHLY,
		Dtstart:    anchor,
		Bymonthday: []int{r.Day},
		Byhour:     []int{r.Hour},
		Byminute:   []int{r.Minute},
		Bysecond:   []int{r.Second},
	})
}

// RRuleString returns the RRULE value, e.g.
// "FREQ=MONTHLY;BYMONTHDAY=27;BYHOUR=10;BYMINUTE=45;BYSECOND=0".
func (r Rule) RRuleString() (string, error) {
	rr, err := r.RRule(time.Now())
	if err != nil {
		return "", err
	}
	return rr.OrigOptions.RRuleString(), nil
}

// Upcoming lists the next n occurrences not before now. The first element
// equals Next(now) for second-precision instants.
func (r Rule) Upcoming(now time.Time, n int) ([]time.Time, error) {
	if n <= 0 {
		return nil, nil
	}
	if n > maxUpcoming {
		n = maxUpcoming
	}

	rr, err := r.RRule(now)
	if err != nil {
		return nil, err
	}

	out := make([]time.Time, 0, n)
	t := rr.After(now, true)
	for len(out) < n && !t.IsZero() {
		out = append(out, t)
		t = rr.After(t, false)
	}
	return out, nil
}
