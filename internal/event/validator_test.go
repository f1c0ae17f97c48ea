package event

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calpin/internal/model"
	"calpin/internal/validate"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.Parse(time.RFC3339Nano, s)
	require.NoError(t, err)
	return v.UTC()
}

func ptr[T any](v T) *T { return &v }

func violationsOf(t *testing.T, err error) validate.Violations {
	t.Helper()
	require.Error(t, err)
	verr, ok := validate.AsError(err)
	require.True(t, ok, "expected *validate.Error, got %T", err)
	return verr.Violations
}

func storedStandup(t *testing.T) model.Event {
	return model.Event{
		ID:        7,
		Title:     "Standup",
		Start:     mustTime(t, "2025-01-06T09:00:00Z"),
		End:       ptr(mustTime(t, "2025-01-06T09:30:00Z")),
		Location:  ptr("X"),
		Notes:     ptr("bring coffee"),
		CreatedAt: mustTime(t, "2025-01-01T00:00:00Z"),
		UpdatedAt: mustTime(t, "2025-01-02T00:00:00Z"),
	}
}

func TestValidateForCreate_DefaultsAllDay(t *testing.T) {
	ev, err := ValidateForCreate([]byte(`{"title":"Standup","start":"2025-01-06T09:00:00Z","end":"2025-01-06T09:30:00Z"}`))
	require.NoError(t, err)

	assert.False(t, ev.AllDay)
	assert.Equal(t, "Standup", ev.Title)
	assert.Equal(t, mustTime(t, "2025-01-06T09:00:00Z"), ev.Start)
	require.NotNil(t, ev.End)
	assert.Equal(t, mustTime(t, "2025-01-06T09:30:00Z"), *ev.End)
	assert.Nil(t, ev.Location)
	assert.Nil(t, ev.Notes)
	assert.Nil(t, ev.RRule)
	assert.Nil(t, ev.ExDates)
	assert.Nil(t, ev.SeriesID)
	assert.Zero(t, ev.ID)
}

func TestValidateForCreate_EndBeforeStart(t *testing.T) {
	_, err := ValidateForCreate([]byte(`{"title":"Standup","start":"2025-01-06T09:00:00Z","end":"2025-01-06T08:00:00Z"}`))

	vs := violationsOf(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, "end", vs[0].Field)
	assert.Equal(t, validate.KindInvariant, vs[0].Kind)
}

func TestValidateForCreate_EndEqualsStart(t *testing.T) {
	_, err := ValidateForCreate([]byte(`{"title":"Standup","start":"2025-01-06T09:00:00Z","end":"2025-01-06T09:00:00Z"}`))

	vs := violationsOf(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, validate.KindInvariant, vs[0].Kind)
}

func TestValidateForCreate_SubMillisecondOrdering(t *testing.T) {
	// Both instants land on the same millisecond once stored.
	_, err := ValidateForCreate([]byte(`{"title":"x","start":"2025-01-06T09:00:00.0001Z","end":"2025-01-06T09:00:00.0002Z"}`))
	vs := violationsOf(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, "end", vs[0].Field)
	assert.Equal(t, validate.KindInvariant, vs[0].Kind)

	ev, err := ValidateForCreate([]byte(`{"title":"x","start":"2025-01-06T09:00:00.0009Z","end":"2025-01-06T09:00:00.001Z","exdates":["2025-01-13T09:00:00.0005Z"]}`))
	require.NoError(t, err)
	assert.Equal(t, mustTime(t, "2025-01-06T09:00:00Z"), ev.Start)
	assert.Equal(t, []time.Time{mustTime(t, "2025-01-13T09:00:00Z")}, ev.ExDates)
}

func TestValidateForCreate_AllDayExemptsOrdering(t *testing.T) {
	ev, err := ValidateForCreate([]byte(`{"title":"Conference","start":"2025-02-01T00:00:00Z","end":"2025-01-31T00:00:00Z","allDay":true}`))
	require.NoError(t, err)
	assert.True(t, ev.AllDay)
	require.NotNil(t, ev.End)
	assert.True(t, ev.End.Before(ev.Start))
}

func TestValidateForCreate_AbsentEndNeverChecked(t *testing.T) {
	ev, err := ValidateForCreate([]byte(`{"title":"Reminder","start":"2025-01-06T09:00:00Z","end":null}`))
	require.NoError(t, err)
	assert.Nil(t, ev.End)
}

func TestValidateForCreate_RequiredFields(t *testing.T) {
	_, err := ValidateForCreate([]byte(`{"notes":"no title, no start"}`))

	vs := violationsOf(t, err)
	assert.Len(t, vs, 2)
	assert.True(t, vs.Has("title"))
	assert.True(t, vs.Has("start"))
	for _, v := range vs {
		assert.Equal(t, validate.KindType, v.Kind)
	}
}

func TestValidateForCreate_CollectsEveryProblem(t *testing.T) {
	body := `{
		"title": 5,
		"start": "yesterday",
		"allDay": "maybe",
		"location": "",
		"seriesId": 1.5,
		"exdates": ["2025-01-01T00:00:00Z", "nope", 3]
	}`
	_, err := ValidateForCreate([]byte(body))

	vs := violationsOf(t, err)
	for _, field := range []string{"title", "start", "allDay", "location", "seriesId", "exdates"} {
		assert.True(t, vs.Has(field), "missing violation for %s", field)
	}
	// Two bad exdates elements are reported individually.
	n := 0
	for _, v := range vs {
		if v.Field == "exdates" {
			n++
		}
	}
	assert.Equal(t, 2, n)
}

func TestValidateForCreate_DropsUnknownAndStorageFields(t *testing.T) {
	ev, err := ValidateForCreate([]byte(`{
		"id": 999,
		"createdAt": "1999-01-01T00:00:00Z",
		"updatedAt": "not even a date",
		"colour": "red",
		"title": "Standup",
		"start": "2025-01-06T09:00:00Z"
	}`))
	require.NoError(t, err)
	assert.Zero(t, ev.ID)
	assert.True(t, ev.CreatedAt.IsZero())
	assert.True(t, ev.UpdatedAt.IsZero())
}

func TestValidateForCreate_MalformedBody(t *testing.T) {
	for _, body := range []string{`[1,2]`, `{"title":`, `"x"`} {
		_, err := ValidateForCreate([]byte(body))
		vs := violationsOf(t, err)
		require.Len(t, vs, 1, body)
		assert.Equal(t, "", vs[0].Field)
	}
}

func TestValidateForCreate_EmptyBodyNeedsRequiredFields(t *testing.T) {
	_, err := ValidateForCreate(nil)
	vs := violationsOf(t, err)
	assert.True(t, vs.Has("title"))
	assert.True(t, vs.Has("start"))
}

func TestValidateForCreate_Coercion(t *testing.T) {
	ev, err := ValidateForCreate([]byte(`{
		"title": "Offsets",
		"start": "2025-01-06T10:00:00+01:00",
		"end": "2025-01-06T10:30:00.250+01:00",
		"allDay": "false",
		"seriesId": "42",
		"rrule": "FREQ=WEEKLY;BYDAY=MO",
		"exdates": ["2025-01-13T09:00:00Z", "2025-01-20T09:00:00.123Z"]
	}`))
	require.NoError(t, err)

	assert.Equal(t, mustTime(t, "2025-01-06T09:00:00Z"), ev.Start)
	assert.Equal(t, time.UTC, ev.Start.Location())
	assert.Equal(t, mustTime(t, "2025-01-06T09:30:00.250Z"), *ev.End)
	assert.False(t, ev.AllDay)
	assert.Equal(t, int64(42), *ev.SeriesID)
	assert.Equal(t, "FREQ=WEEKLY;BYDAY=MO", *ev.RRule)
	require.Len(t, ev.ExDates, 2)
	assert.Equal(t, mustTime(t, "2025-01-20T09:00:00.123Z"), ev.ExDates[1])
}

func TestValidateForCreate_DateOnlyStart(t *testing.T) {
	ev, err := ValidateForCreate([]byte(`{"title":"Holiday","start":"2025-12-25","allDay":true}`))
	require.NoError(t, err)
	assert.Equal(t, mustTime(t, "2025-12-25T00:00:00Z"), ev.Start)
}

func TestValidateForCreate_NumbersAreNotTimestamps(t *testing.T) {
	_, err := ValidateForCreate([]byte(`{"title":"Epoch","start":1736154000000}`))
	vs := violationsOf(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, "start", vs[0].Field)
	assert.Equal(t, validate.KindType, vs[0].Kind)
}

func TestValidateForCreate_ExDates(t *testing.T) {
	_, err := ValidateForCreate([]byte(`{"title":"x","start":"2025-01-01T00:00:00Z","exdates":["not-a-date"]}`))
	vs := violationsOf(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, "exdates", vs[0].Field)

	ev, err := ValidateForCreate([]byte(`{"title":"x","start":"2025-01-01T00:00:00Z","exdates":["2025-01-01T00:00:00Z"]}`))
	require.NoError(t, err)
	assert.Equal(t, []time.Time{mustTime(t, "2025-01-01T00:00:00Z")}, ev.ExDates)

	// Offsets are not accepted for exception dates, only Z.
	_, err = ValidateForCreate([]byte(`{"title":"x","start":"2025-01-01T00:00:00Z","exdates":["2025-01-01T00:00:00+00:00"]}`))
	assert.True(t, violationsOf(t, err).Has("exdates"))

	// Order and duplicates are not constrained.
	_, err = ValidateForCreate([]byte(`{"title":"x","start":"2025-01-01T00:00:00Z","exdates":["2025-03-01T00:00:00Z","2025-01-01T00:00:00Z","2025-01-01T00:00:00Z"]}`))
	assert.NoError(t, err)

	ev, err = ValidateForCreate([]byte(`{"title":"x","start":"2025-01-01T00:00:00Z","exdates":[]}`))
	require.NoError(t, err)
	assert.NotNil(t, ev.ExDates)
	assert.Empty(t, ev.ExDates)
}

func TestValidateForCreate_TextLimits(t *testing.T) {
	ok := strings.Repeat("a", 200)
	_, err := ValidateForCreate([]byte(`{"title":"` + ok + `","start":"2025-01-01T00:00:00Z","location":"` + ok + `"}`))
	assert.NoError(t, err)

	_, err = ValidateForCreate([]byte(`{"title":"` + ok + `a","start":"2025-01-01T00:00:00Z","location":"` + ok + `b"}`))
	vs := violationsOf(t, err)
	assert.True(t, vs.Has("title"))
	assert.True(t, vs.Has("location"))

	// Astral characters count as two code units.
	emoji := strings.Repeat("😀", 101)
	_, err = ValidateForCreate([]byte(`{"title":"` + emoji + `","start":"2025-01-01T00:00:00Z"}`))
	assert.True(t, violationsOf(t, err).Has("title"))

	// Notes are unbounded.
	_, err = ValidateForCreate([]byte(`{"title":"x","start":"2025-01-01T00:00:00Z","notes":"` + strings.Repeat("n", 5000) + `"}`))
	assert.NoError(t, err)
}

func TestValidateForCreate_EmptyTitleIsInvariant(t *testing.T) {
	_, err := ValidateForCreate([]byte(`{"title":"","start":"2025-01-01T00:00:00Z"}`))
	vs := violationsOf(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, "title", vs[0].Field)
	assert.Equal(t, validate.KindInvariant, vs[0].Kind)
}

func TestValidateForUpdate_EmptyTitleRejected(t *testing.T) {
	existing := storedStandup(t)

	_, err := ValidateForUpdate(existing, []byte(`{"title":""}`))
	vs := violationsOf(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, "title", vs[0].Field)
}

func TestValidateForUpdate_MergedOrderingChecked(t *testing.T) {
	existing := storedStandup(t)

	_, err := ValidateForUpdate(existing, []byte(`{"start":"2025-01-06T10:00:00Z"}`))
	vs := violationsOf(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, "end", vs[0].Field)
	assert.Equal(t, validate.KindInvariant, vs[0].Kind)

	// Moving both ends together is fine.
	ev, err := ValidateForUpdate(existing, []byte(`{"start":"2025-01-06T10:00:00Z","end":"2025-01-06T10:30:00Z"}`))
	require.NoError(t, err)
	assert.Equal(t, mustTime(t, "2025-01-06T10:30:00Z"), *ev.End)

	// Flipping to all-day lifts the ordering rule for the stored pair.
	ev, err = ValidateForUpdate(existing, []byte(`{"start":"2025-01-06T10:00:00Z","allDay":true}`))
	require.NoError(t, err)
	assert.True(t, ev.AllDay)

	// Clearing end removes the pair entirely.
	ev, err = ValidateForUpdate(existing, []byte(`{"start":"2025-01-06T10:00:00Z","end":null}`))
	require.NoError(t, err)
	assert.Nil(t, ev.End)
}

func TestValidateForUpdate_NullVersusOmitted(t *testing.T) {
	existing := storedStandup(t)

	ev, err := ValidateForUpdate(existing, []byte(`{"notes":null}`))
	require.NoError(t, err)

	assert.Nil(t, ev.Notes)
	require.NotNil(t, ev.Location)
	assert.Equal(t, "X", *ev.Location)
	assert.Equal(t, existing.Title, ev.Title)
	assert.Equal(t, existing.Start, ev.Start)
	assert.Equal(t, *existing.End, *ev.End)

	// The stored snapshot is not aliased.
	require.NotNil(t, existing.Notes)
	assert.Equal(t, "bring coffee", *existing.Notes)
}

func TestValidateForUpdate_IgnoresImmutableFields(t *testing.T) {
	existing := storedStandup(t)

	ev, err := ValidateForUpdate(existing, []byte(`{"id":999,"createdAt":"2030-01-01T00:00:00Z","updatedAt":"garbage","title":"Daily"}`))
	require.NoError(t, err)

	assert.Equal(t, int64(7), ev.ID)
	assert.Equal(t, existing.CreatedAt, ev.CreatedAt)
	assert.Equal(t, existing.UpdatedAt, ev.UpdatedAt)
	assert.Equal(t, "Daily", ev.Title)
}

func TestValidateForUpdate_NonNullableNull(t *testing.T) {
	existing := storedStandup(t)

	_, err := ValidateForUpdate(existing, []byte(`{"title":null,"start":null,"allDay":null}`))
	vs := violationsOf(t, err)
	assert.Len(t, vs, 3)
	for _, v := range vs {
		assert.Equal(t, validate.KindType, v.Kind)
	}
}

func TestValidateForUpdate_BadStartReportedOnce(t *testing.T) {
	existing := storedStandup(t)

	_, err := ValidateForUpdate(existing, []byte(`{"start":"soon","end":"2025-01-06T08:00:00Z"}`))
	vs := violationsOf(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, "start", vs[0].Field)
}

func TestValidateForUpdate_ClearsRecurrence(t *testing.T) {
	existing := storedStandup(t)
	existing.RRule = ptr("FREQ=DAILY")
	existing.ExDates = []time.Time{mustTime(t, "2025-01-07T09:00:00Z")}
	existing.SeriesID = ptr(int64(3))

	ev, err := ValidateForUpdate(existing, []byte(`{"rrule":null,"exdates":null,"seriesId":null}`))
	require.NoError(t, err)
	assert.Nil(t, ev.RRule)
	assert.Nil(t, ev.ExDates)
	assert.Nil(t, ev.SeriesID)

	ev, err = ValidateForUpdate(existing, []byte(`{"exdates":["2025-01-08T09:00:00Z"]}`))
	require.NoError(t, err)
	assert.Equal(t, "FREQ=DAILY", *ev.RRule)
	assert.Equal(t, []time.Time{mustTime(t, "2025-01-08T09:00:00Z")}, ev.ExDates)
	assert.Equal(t, []time.Time{mustTime(t, "2025-01-07T09:00:00Z")}, existing.ExDates)
}

func TestValidateIdentifier(t *testing.T) {
	id, err := ValidateIdentifier("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, raw := range []string{"", "0", "-3", "abc", "1.5", "99999999999999999999"} {
		_, err := ValidateIdentifier(raw)
		vs := violationsOf(t, err)
		assert.True(t, vs.Has("id"), raw)
	}
}

func TestValidateCandidate_NormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	start := time.Date(2025, 1, 6, 10, 0, 0, 0, loc)

	ev, err := ValidateCandidate(Changes{
		Title:   validate.Value("Imported"),
		Start:   validate.Value(start),
		End:     validate.Value(start.Add(time.Hour)),
		ExDates: validate.Value([]time.Time{start.AddDate(0, 0, 7)}),
	})
	require.NoError(t, err)
	assert.Equal(t, time.UTC, ev.Start.Location())
	assert.Equal(t, time.UTC, ev.End.Location())
	assert.Equal(t, time.UTC, ev.ExDates[0].Location())
	assert.True(t, ev.Start.Equal(start))

	_, err = ValidateCandidate(Changes{
		Title:   validate.Value("Imported"),
		Start:   validate.Value(start),
		ExDates: validate.Value([]time.Time{{}}),
	})
	assert.True(t, violationsOf(t, err).Has("exdates"))
}

func TestCheckInvariants(t *testing.T) {
	ev := storedStandup(t)
	assert.Empty(t, CheckInvariants(ev))

	ev.Title = ""
	ev.End = ptr(ev.Start)
	vs := CheckInvariants(ev)
	assert.Len(t, vs, 2)

	ev.AllDay = true
	assert.Len(t, CheckInvariants(ev), 1)
}
