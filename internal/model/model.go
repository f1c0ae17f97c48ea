package model

import "time"

// Event is a stored calendar entry. Optional fields are pointers (nil means
// absent); ExDates is nil when absent. Start, End and ExDates are UTC.
type Event struct {
	ID    int64
	Title string

	Start  time.Time
	End    *time.Time
	AllDay bool

	Location *string
	Notes    *string

	// RRule is an opaque recurrence descriptor. It is stored and exported
	// verbatim and never expanded.
	RRule   *string
	ExDates []time.Time

	SeriesID *int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy so callers can merge without aliasing the
// stored snapshot.
func (e Event) Clone() Event {
	out := e
	if e.End != nil {
		v := *e.End
		out.End = &v
	}
	if e.Location != nil {
		v := *e.Location
		out.Location = &v
	}
	if e.Notes != nil {
		v := *e.Notes
		out.Notes = &v
	}
	if e.RRule != nil {
		v := *e.RRule
		out.RRule = &v
	}
	if e.SeriesID != nil {
		v := *e.SeriesID
		out.SeriesID = &v
	}
	if e.ExDates != nil {
		out.ExDates = append([]time.Time(nil), e.ExDates...)
		if out.ExDates == nil {
			out.ExDates = []time.Time{}
		}
	}
	return out
}

// Location is a user-pinned point on the map.
type Location struct {
	ID   int64
	Name string

	// Center is [longitude, latitude].
	Center [2]float64
	UserID int64

	// Date is stamped by storage when the pin is created.
	Date time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Lng returns the longitude of the pin.
func (l Location) Lng() float64 { return l.Center[0] }

// Lat returns the latitude of the pin.
func (l Location) Lat() float64 { return l.Center[1] }
