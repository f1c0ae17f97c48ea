package event

import (
	"time"

	"calpin/internal/validate"
)

// Changes is a sparse set of event field values. It is the candidate for a
// create (unset fields take their defaults) and the patch for an update
// (unset fields keep the stored value, null clears a nullable field).
//
// There are no entries for id, createdAt or updatedAt: storage owns those,
// and a request that names them simply has the keys ignored.
type Changes struct {
	Title    validate.Field[string]
	Start    validate.Field[time.Time]
	End      validate.Field[time.Time]
	AllDay   validate.Field[bool]
	Location validate.Field[string]
	Notes    validate.Field[string]
	RRule    validate.Field[string]
	ExDates  validate.Field[[]time.Time]
	SeriesID validate.Field[int64]
}

// JSON keys of the mutable event fields.
const (
	fieldTitle    = "title"
	fieldStart    = "start"
	fieldEnd      = "end"
	fieldAllDay   = "allDay"
	fieldLocation = "location"
	fieldNotes    = "notes"
	fieldRRule    = "rrule"
	fieldExDates  = "exdates"
	fieldSeriesID = "seriesId"
)

// DecodeChanges coerces a JSON request body into Changes. Type problems are
// returned as violations alongside whatever did decode; unknown keys and
// the storage-owned keys are dropped.
func DecodeChanges(body []byte) (Changes, validate.Violations) {
	d := validate.NewDecoder(body)
	c := Changes{
		Title:    d.Text(fieldTitle, false),
		Start:    d.Time(fieldStart, false),
		End:      d.Time(fieldEnd, true),
		AllDay:   d.Bool(fieldAllDay, false),
		Location: d.String(fieldLocation, true),
		Notes:    d.String(fieldNotes, true),
		RRule:    d.String(fieldRRule, true),
		ExDates:  d.UTCTimes(fieldExDates, true),
		SeriesID: d.Int(fieldSeriesID, true),
	}
	return c, d.Violations()
}
