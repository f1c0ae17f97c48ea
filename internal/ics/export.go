// Package ics converts between stored events and iCalendar documents.
// Recurrence rules travel verbatim in both directions; nothing is expanded.
package ics

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"calpin/internal/model"
)

const (
	utcLayout  = "20060102T150405Z"
	dateLayout = "20060102"
)

// ExportOptions controls the calendar-level properties of a feed.
type ExportOptions struct {
	Name      string
	ProductID string
	// Domain is the right-hand side of generated UIDs.
	Domain string
}

func (o ExportOptions) withDefaults() ExportOptions {
	if o.Name == "" {
		o.Name = "calpin"
	}
	if o.ProductID == "" {
		o.ProductID = "-//calpin//calendar//EN"
	}
	if o.Domain == "" {
		o.Domain = "calpin"
	}
	return o
}

// UID is the stable iCalendar UID of a stored event.
func UID(id int64, domain string) string {
	return fmt.Sprintf("event-%d@%s", id, domain)
}

// Export renders events as a VCALENDAR with one VEVENT per record.
func Export(events []model.Event, opts ExportOptions) string {
	opts = opts.withDefaults()

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(opts.ProductID)
	cal.SetXWRCalName(opts.Name)

	for _, ev := range events {
		ve := cal.AddEvent(UID(ev.ID, opts.Domain))
		if ev.UpdatedAt.IsZero() {
			ve.SetDtStampTime(time.Now().UTC())
		} else {
			ve.SetDtStampTime(ev.UpdatedAt.UTC())
			ve.SetModifiedAt(ev.UpdatedAt.UTC())
		}
		if !ev.CreatedAt.IsZero() {
			ve.SetCreatedTime(ev.CreatedAt.UTC())
		}
		ve.SetSummary(ev.Title)

		if ev.AllDay {
			ve.SetAllDayStartAt(ev.Start.UTC())
			if ev.End != nil {
				ve.SetAllDayEndAt(ev.End.UTC())
			}
		} else {
			ve.SetStartAt(ev.Start.UTC())
			if ev.End != nil {
				ve.SetEndAt(ev.End.UTC())
			}
		}

		if ev.Location != nil {
			ve.SetLocation(*ev.Location)
		}
		if ev.Notes != nil {
			ve.SetDescription(*ev.Notes)
		}
		if ev.RRule != nil && *ev.RRule != "" {
			ve.AddRrule(strings.TrimPrefix(*ev.RRule, "RRULE:"))
		}
		if len(ev.ExDates) > 0 {
			// EXDATE must share the value type of DTSTART.
			if ev.AllDay {
				ve.AddExdate(formatExDates(ev.ExDates, dateLayout), ical.WithValue(string(ical.ValueDataTypeDate)))
			} else {
				ve.AddExdate(formatExDates(ev.ExDates, utcLayout))
			}
		}
		if ev.SeriesID != nil {
			ve.SetProperty(ical.ComponentProperty(seriesProperty), strconv.FormatInt(*ev.SeriesID, 10))
		}
	}

	return cal.Serialize()
}

func formatExDates(ts []time.Time, layout string) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.UTC().Format(layout)
	}
	return strings.Join(parts, ",")
}
