package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrEndBeforeStart is returned when an event would end before it starts.
var ErrEndBeforeStart = errors.New("event end is before start")

// CalendarEvent is the single event offered for export. It is built right
// before each export and never stored.
type CalendarEvent struct {
	Title       string
	Description string // may contain newlines
	Location    string

	// Start / End are absolute instants; the serializer renders them in UTC.
	Start time.Time
	End   time.Time
}

// NewCalendarEvent builds a CalendarEvent and rejects end < start.
// end == start is accepted.
func NewCalendarEvent(title, description, location string, start, end time.Time) (CalendarEvent, error) {
	ev := CalendarEvent{
		Title:       title,
		Description: description,
		Location:    location,
		Start:       start,
		End:         end,
	}
	if err := ev.Validate(); err != nil {
		return CalendarEvent{}, err
	}
	return ev, nil
}

// Validate checks the ordering invariant.
func (e CalendarEvent) Validate() error {
	if e.End.Before(e.Start) {
		return fmt.Errorf("%w: start=%s end=%s", ErrEndBeforeStart,
			e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339))
	}
	return nil
}

// Duration returns End - Start.
func (e CalendarEvent) Duration() time.Duration {
	return e.End.Sub(e.Start)
}
