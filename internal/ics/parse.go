package ics

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"calpin/internal/event"
	appLog "calpin/internal/log"
	"calpin/internal/validate"
)

// seriesProperty carries the event series id through an export/import
// round trip.
const seriesProperty = "X-CALPIN-SERIES-ID"

// ParsedEvent is one VEVENT read from an iCalendar document. Fields are
// kept close to the wire; Changes turns them into an event candidate.
type ParsedEvent struct {
	Source Source

	UID string

	Summary     string
	Description string
	Location    string

	Start  time.Time
	End    *time.Time
	AllDay bool

	RawRRule string
	ExDates  []time.Time
	SeriesID *int64
}

// ParseICS reads every VEVENT in body. A VEVENT that cannot be read is
// logged and skipped; a document that cannot be read at all is an error.
func ParseICS(src Source, body []byte) ([]ParsedEvent, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Warn("ics parse failed", "source", src.Name(), "err", err)
		return nil, err
	}

	events := make([]ParsedEvent, 0)
	for _, ve := range cal.Events() {
		ev, perr := parseVEvent(src, ve)
		if perr != nil {
			appLog.Warn("ics vevent skipped", "source", src.Name(), "err", perr)
			continue
		}
		events = append(events, ev)
	}

	appLog.Info("ics parse completed", "source", src.Name(), "event_count", len(events))
	return events, nil
}

func parseVEvent(src Source, ve *ical.VEvent) (ParsedEvent, error) {
	out := ParsedEvent{Source: src}

	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uid.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Location = p.Value
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return out, errors.New("missing DTSTART")
	}
	out.AllDay = isDateValue(dtStart)

	start, err := parseICSTime(dtStart.Value, paramValue(dtStart, "TZID"))
	if err != nil {
		return out, err
	}
	out.Start = start

	if dtEnd := ve.GetProperty(ical.ComponentPropertyDtEnd); dtEnd != nil {
		if end, err := parseICSTime(dtEnd.Value, paramValue(dtEnd, "TZID")); err == nil {
			out.End = &end
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RawRRule = p.Value
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			t, err := parseICSTime(part, paramValue(p, "TZID"))
			if err != nil {
				return out, err
			}
			out.ExDates = append(out.ExDates, t)
		}
	}

	if p := ve.GetProperty(ical.ComponentProperty(seriesProperty)); p != nil {
		if n, err := strconv.ParseInt(strings.TrimSpace(p.Value), 10, 64); err == nil {
			out.SeriesID = &n
		}
	}

	return out, nil
}

// Changes converts the parsed VEVENT into a create candidate. Empty text
// properties are left unset; an empty SUMMARY still becomes the title so
// the validator can report it.
func (p ParsedEvent) Changes() event.Changes {
	c := event.Changes{
		Title:  validate.Value(p.Summary),
		AllDay: validate.Value(p.AllDay),
	}
	if !p.Start.IsZero() {
		c.Start = validate.Value(p.Start)
	}
	if p.End != nil {
		c.End = validate.Value(*p.End)
	}
	if p.Location != "" {
		c.Location = validate.Value(p.Location)
	}
	if p.Description != "" {
		c.Notes = validate.Value(p.Description)
	}
	if p.RawRRule != "" {
		c.RRule = validate.Value(p.RawRRule)
	}
	if len(p.ExDates) > 0 {
		c.ExDates = validate.Value(append([]time.Time(nil), p.ExDates...))
	}
	if p.SeriesID != nil {
		c.SeriesID = validate.Value(*p.SeriesID)
	}
	return c
}

func isDateValue(p *ical.IANAProperty) bool {
	if strings.EqualFold(paramValue(p, "VALUE"), "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

func paramValue(p *ical.IANAProperty, name string) string {
	if p == nil || p.ICalParameters == nil {
		return ""
	}
	if vs, ok := p.ICalParameters[name]; ok && len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// parseICSTime reads a DATE or DATE-TIME value. Floating and TZID
// DATE-TIMEs are resolved in tzid when it names a known zone, UTC
// otherwise. A DATE is always UTC midnight so the day never shifts.
func parseICSTime(v, tzid string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}

	loc := time.UTC
	if tzid != "" {
		if l, err := time.LoadLocation(tzid); err == nil {
			loc = l
		}
	}

	switch {
	case strings.HasSuffix(v, "Z"):
		t, err := time.Parse("20060102T150405Z", v)
		return t.UTC(), err
	case strings.Contains(v, "T"):
		t, err := time.ParseInLocation("20060102T150405", v, loc)
		return t.UTC(), err
	default:
		return time.Parse("20060102", v)
	}
}
