package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "officemove/internal/log"
	"officemove/internal/model"
)

// ParsedEvent is a VEVENT read back from an exported calendar.
type ParsedEvent struct {
	ProdID string

	UID     string
	Stamp   time.Time
	Summary string

	Description string
	Location    string

	Start time.Time
	End   time.Time
}

// Event converts the parsed VEVENT into a CalendarEvent, enforcing the
// start/end ordering.
func (p ParsedEvent) Event() (model.CalendarEvent, error) {
	return model.NewCalendarEvent(p.Summary, p.Description, p.Location, p.Start, p.End)
}

// Parse decodes an iCalendar payload and returns its VEVENTs.
//
//   - TEXT values are unescaped by the library, so a DESCRIPTION written as
//     "Line1\nLine2" comes back with a real newline.
//   - DTSTART/DTEND/DTSTAMP must be present on every event.
func Parse(body []byte) ([]ParsedEvent, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("ics: empty body")
	}
	// Exports carry no trailing CRLF; give the line reader a terminator.
	if !bytes.HasSuffix(body, []byte("\n")) {
		body = append(append([]byte{}, body...), '\r', '\n')
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err)
		return nil, err
	}

	prodID := ""
	for _, p := range cal.CalendarProperties {
		if p.IANAToken == string(ical.PropertyProductId) {
			prodID = p.Value
		}
	}

	events := make([]ParsedEvent, 0)
	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(comp)
		if perr != nil {
			appLog.Error("ics vevent parse failed", perr)
			return nil, perr
		}
		ev.ProdID = prodID
		events = append(events, ev)
	}

	appLog.Debug("ics parse completed", "event_count", len(events))
	return events, nil
}

func parseVEvent(ve *ical.VEvent) (ParsedEvent, error) {
	var out ParsedEvent

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("ics: missing UID")
	}
	out.UID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Location = p.Value
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return out, err
	}
	end, err := ve.GetEndAt()
	if err != nil {
		return out, err
	}
	out.Start = start
	out.End = end

	stampProp := ve.GetProperty(ical.ComponentPropertyDtstamp)
	if stampProp == nil {
		return out, errors.New("ics: missing DTSTAMP")
	}
	stamp, err := parseICSTime(stampProp.Value)
	if err != nil {
		return out, err
	}
	out.Stamp = stamp

	return out, nil
}

// parseICSTime parses the basic DATE-TIME forms: UTC (20250101T090000Z)
// and floating local (20250101T090000).
func parseICSTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("ics: empty time value")
	}
	if strings.HasSuffix(v, "Z") {
		return time.Parse(utcLayout, v)
	}
	return time.ParseInLocation("20060102T150405", v, time.Local)
}
