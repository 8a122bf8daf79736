// Package ics exports the move-day event as an iCalendar file and reads
// such files back.
package ics

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"officemove/internal/model"
)

const (
	DefaultProdID    = "-//Company//Office Move//EN"
	DefaultNamespace = "company-move"

	// utcLayout is the iCalendar UTC basic format, e.g. 20250827T051500Z.
	utcLayout = "20060102T150405Z"

	crlf = "\r\n"
)

// Encoder turns a CalendarEvent into iCalendar text.
//
// By default only newlines in DESCRIPTION are escaped, which keeps the
// output byte-compatible with the original page export. Strict enables
// RFC 5545 TEXT escaping (backslash, semicolon, comma, newline) in
// SUMMARY, DESCRIPTION and LOCATION.
type Encoder struct {
	ProdID    string
	Namespace string
	Strict    bool

	// NewID returns the random part of the UID. If nil, uuid.NewString is used.
	NewID func() string
}

// NewEncoder returns an Encoder with the default product id and namespace.
func NewEncoder(strict bool) *Encoder {
	return &Encoder{
		ProdID:    DefaultProdID,
		Namespace: DefaultNamespace,
		Strict:    strict,
	}
}

// Serialize renders ev as a VCALENDAR with one VEVENT. Lines are joined
// with CRLF and there is no trailing line break.
func (e *Encoder) Serialize(ev model.CalendarEvent, exportedAt time.Time) string {
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:" + e.prodID(),
		"CALSCALE:GREGORIAN",
		"METHOD:PUBLISH",
		"BEGIN:VEVENT",
		"UID:" + e.UID(exportedAt),
		"DTSTAMP:" + FormatUTC(exportedAt),
		"DTSTART:" + FormatUTC(ev.Start),
		"DTEND:" + FormatUTC(ev.End),
		"SUMMARY:" + e.text(ev.Title),
		"DESCRIPTION:" + e.description(ev.Description),
		"LOCATION:" + e.text(ev.Location),
		"END:VEVENT",
		"END:VCALENDAR",
	}
	return strings.Join(lines, crlf)
}

// UID returns "<unix millis>-<id>@<namespace>". The millisecond prefix makes
// UIDs from different export instants differ even with a fixed NewID.
func (e *Encoder) UID(exportedAt time.Time) string {
	newID := e.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return strconv.FormatInt(exportedAt.UnixMilli(), 10) + "-" + newID() + "@" + e.namespace()
}

// FormatUTC renders t as YYYYMMDDTHHMMSSZ in UTC.
func FormatUTC(t time.Time) string {
	return t.UTC().Format(utcLayout)
}

// Serialize renders ev with a default, non-strict Encoder.
func Serialize(ev model.CalendarEvent, exportedAt time.Time) string {
	return NewEncoder(false).Serialize(ev, exportedAt)
}

var newlineNormalizer = strings.NewReplacer("\r\n", "\n", "\r", "\n")

var strictEscaper = strings.NewReplacer(
	`\`, `\\`,
	";", `\;`,
	",", `\,`,
	"\n", `\n`,
)

func (e *Encoder) description(s string) string {
	s = newlineNormalizer.Replace(s)
	if e.Strict {
		return strictEscaper.Replace(s)
	}
	return strings.ReplaceAll(s, "\n", `\n`)
}

func (e *Encoder) text(s string) string {
	if !e.Strict {
		return s
	}
	return strictEscaper.Replace(newlineNormalizer.Replace(s))
}

func (e *Encoder) prodID() string {
	if e.ProdID == "" {
		return DefaultProdID
	}
	return e.ProdID
}

func (e *Encoder) namespace() string {
	if e.Namespace == "" {
		return DefaultNamespace
	}
	return e.Namespace
}
