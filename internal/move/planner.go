// Package move composes the move-day announcement from configuration:
// the resolved target instant, the exported calendar event and the page copy.
package move

import (
	"fmt"
	"time"

	"officemove/internal/config"
	"officemove/internal/countdown"
	"officemove/internal/model"
	"officemove/internal/schedule"
)

// LabelLayout renders the target like "Wednesday, August 27, 2025 at 10:45 AM".
const LabelLayout = "Monday, January 2, 2006 at 03:04 PM"

// Announcement is everything the page shows about one move day.
type Announcement struct {
	Title        string
	Description  string
	Location     string
	MapURL       string
	ContactEmail string
	Capacity     int
	Agenda       []config.AgendaItem

	Target time.Time
	End    time.Time
	Label  string
}

// Event returns the calendar event for this announcement.
func (a Announcement) Event() (model.CalendarEvent, error) {
	return model.NewCalendarEvent(a.Title, a.Description, a.Location, a.Target, a.End)
}

// Remaining returns the countdown to Target at now.
func (a Announcement) Remaining(now time.Time) countdown.Remaining {
	return countdown.Compute(a.Target, now)
}

// Planner resolves announcements from a rule and the event copy.
type Planner struct {
	Rule     schedule.Rule
	Duration time.Duration
	Event    config.EventConfig
}

// NewPlanner builds a Planner from a validated config.
func NewPlanner(cfg *config.Config) (*Planner, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("move: timezone: %w", err)
	}
	h, m, s, err := cfg.ClockTime()
	if err != nil {
		return nil, err
	}
	rule := schedule.Rule{Day: cfg.MoveDay, Hour: h, Minute: m, Second: s, Location: loc}
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	return &Planner{
		Rule:     rule,
		Duration: cfg.Duration(),
		Event:    cfg.Event,
	}, nil
}

// Plan resolves the next move day not before now.
func (p *Planner) Plan(now time.Time) (Announcement, error) {
	target := p.Rule.Next(now)
	a := Announcement{
		Title:        p.Event.Title,
		Description:  p.Event.Description,
		Location:     p.Event.Location,
		MapURL:       p.Event.MapURL,
		ContactEmail: p.Event.ContactEmail,
		Capacity:     p.Event.Capacity,
		Agenda:       p.Event.Agenda,
		Target:       target,
		End:          target.Add(p.Duration),
		Label:        target.Format(LabelLayout),
	}
	if _, err := a.Event(); err != nil {
		return Announcement{}, err
	}
	return a, nil
}

// Upcoming lists the next n move days not before now.
func (p *Planner) Upcoming(now time.Time, n int) ([]time.Time, error) {
	return p.Rule.Upcoming(now, n)
}
