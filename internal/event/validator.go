package event

import (
	"strconv"
	"time"

	"calpin/internal/model"
	"calpin/internal/validate"
)

const (
	maxTitleLen    = 200
	maxLocationLen = 200
)

// ValidateForCreate decodes a create request body and checks the resulting
// record. title and start are required; allDay defaults to false. On
// failure the returned error is a *validate.Error listing every problem.
func ValidateForCreate(body []byte) (model.Event, error) {
	c, vs := DecodeChanges(body)
	return validateCreate(c, vs)
}

// ValidateCandidate checks an already typed create candidate, as produced
// by importers that do not go through JSON.
func ValidateCandidate(c Changes) (model.Event, error) {
	return validateCreate(c, nil)
}

func validateCreate(c Changes, vs validate.Violations) (model.Event, error) {
	// An unreadable body has no fields to report on.
	if vs.Has("") {
		return model.Event{}, vs.Err()
	}
	if !c.Title.IsSet() && !vs.Has(fieldTitle) {
		vs.Type(fieldTitle, "title is required")
	}
	if !c.Start.IsSet() && !vs.Has(fieldStart) {
		vs.Type(fieldStart, "start is required")
	}

	ev := Merge(model.Event{}, c)
	vs = append(vs, checkInvariants(ev, vs)...)
	if err := vs.Err(); err != nil {
		return model.Event{}, err
	}
	return ev, nil
}

// ValidateForUpdate decodes a patch body, merges it over existing and
// checks the merged record, so a patch that only touches one side of the
// start/end pair is still held to the ordering rule.
func ValidateForUpdate(existing model.Event, body []byte) (model.Event, error) {
	c, vs := DecodeChanges(body)
	return validateUpdate(existing, c, vs)
}

// ValidatePatch is ValidateForUpdate for an already typed patch.
func ValidatePatch(existing model.Event, c Changes) (model.Event, error) {
	return validateUpdate(existing, c, nil)
}

func validateUpdate(existing model.Event, c Changes, vs validate.Violations) (model.Event, error) {
	if vs.Has("") {
		return model.Event{}, vs.Err()
	}
	ev := Merge(existing, c)
	vs = append(vs, checkInvariants(ev, vs)...)
	if err := vs.Err(); err != nil {
		return model.Event{}, err
	}
	return ev, nil
}

// ValidateIdentifier parses an external id token into a positive key.
func ValidateIdentifier(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		var vs validate.Violations
		vs.Type("id", "id must be a positive integer")
		return 0, vs.Err()
	}
	return id, nil
}

// Merge overlays c onto existing and returns the merged record. Times are
// normalized to UTC. existing is not modified.
func Merge(existing model.Event, c Changes) model.Event {
	ev := existing.Clone()

	ev.Title = c.Title.ApplyValue(ev.Title)
	ev.Start = c.Start.ApplyValue(ev.Start).UTC()
	ev.End = c.End.Apply(ev.End)
	if ev.End != nil {
		utc := ev.End.UTC()
		ev.End = &utc
	}
	ev.AllDay = c.AllDay.ApplyValue(ev.AllDay)
	ev.Location = c.Location.Apply(ev.Location)
	ev.Notes = c.Notes.Apply(ev.Notes)
	ev.RRule = c.RRule.Apply(ev.RRule)
	ev.SeriesID = c.SeriesID.Apply(ev.SeriesID)

	switch {
	case c.ExDates.IsNull():
		ev.ExDates = nil
	case c.ExDates.HasValue():
		src, _ := c.ExDates.Get()
		ev.ExDates = make([]time.Time, len(src))
		for i, t := range src {
			ev.ExDates[i] = t.UTC()
		}
	}
	return ev
}

// CheckInvariants returns every invariant the record breaks.
func CheckInvariants(ev model.Event) validate.Violations {
	return checkInvariants(ev, nil)
}

// checkInvariants skips rules whose inputs already failed to decode, so a
// bad value is reported once as a type problem rather than again as a
// broken invariant on the fallback value.
func checkInvariants(ev model.Event, prior validate.Violations) validate.Violations {
	var vs validate.Violations

	if !prior.Has(fieldTitle) {
		switch n := validate.CodeUnits(ev.Title); {
		case n == 0:
			vs.Invariant(fieldTitle, "title must not be empty")
		case n > maxTitleLen:
			vs.Invariant(fieldTitle, "title must be at most 200 characters")
		}
	}

	if !prior.Has(fieldStart) && !prior.Has(fieldEnd) && !prior.Has(fieldAllDay) &&
		!ev.AllDay && ev.End != nil {
		if !ev.End.After(ev.Start) {
			vs.Invariant(fieldEnd, "end must be after start when allDay is false")
		}
	}

	if !prior.Has(fieldLocation) && ev.Location != nil {
		if validate.CodeUnits(*ev.Location) > maxLocationLen {
			vs.Invariant(fieldLocation, "location must be at most 200 characters")
		}
	}

	if !prior.Has(fieldExDates) {
		for i, t := range ev.ExDates {
			if t.IsZero() {
				vs.Invariant(fieldExDates, "exdates["+strconv.Itoa(i)+"] must be a valid instant")
			}
		}
	}

	return vs
}
