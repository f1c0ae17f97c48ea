package postgres

import (
	"context"
	"database/sql"

	"calpin/internal/model"
	"calpin/internal/store"
)

const eventColumns = `id, title, start, "end", all_day, location, notes, rrule, exdates, series_id, created_at, updated_at`

const (
	listEventsQuery = `SELECT ` + eventColumns + ` FROM events ORDER BY start ASC, id ASC`

	loadEventQuery = `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	insertEventQuery = `INSERT INTO events (title, start, "end", all_day, location, notes, rrule, exdates, series_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id, created_at, updated_at`

	replaceEventQuery = `UPDATE events SET title = $1, start = $2, "end" = $3, all_day = $4, location = $5,
notes = $6, rrule = $7, exdates = $8, series_id = $9, updated_at = NOW()
WHERE id = $10
RETURNING created_at, updated_at`

	deleteEventQuery = `DELETE FROM events WHERE id = $1`
)

func scanEvent(row rowScanner) (model.Event, error) {
	var (
		ev       model.Event
		end      sql.NullTime
		location sql.NullString
		notes    sql.NullString
		rrule    sql.NullString
		exdates  []byte
		seriesID sql.NullInt64
	)
	err := row.Scan(&ev.ID, &ev.Title, &ev.Start, &end, &ev.AllDay, &location, &notes, &rrule,
		&exdates, &seriesID, &ev.CreatedAt, &ev.UpdatedAt)
	if err != nil {
		return model.Event{}, err
	}
	ev.ExDates, err = decodeExDates(exdates)
	if err != nil {
		return model.Event{}, err
	}
	ev.Start = ev.Start.UTC()
	ev.End = timePtr(end)
	ev.Location = stringPtr(location)
	ev.Notes = stringPtr(notes)
	ev.RRule = stringPtr(rrule)
	ev.SeriesID = intPtr(seriesID)
	ev.CreatedAt = ev.CreatedAt.UTC()
	ev.UpdatedAt = ev.UpdatedAt.UTC()
	return ev, nil
}

func eventArgs(ev model.Event) ([]any, error) {
	exdates, err := encodeExDates(ev.ExDates)
	if err != nil {
		return nil, err
	}
	return []any{
		ev.Title,
		ev.Start.UTC(),
		nullTime(ev.End),
		ev.AllDay,
		nullString(ev.Location),
		nullString(ev.Notes),
		nullString(ev.RRule),
		exdates,
		nullInt(ev.SeriesID),
	}, nil
}

// ListEvents returns every event ordered by start.
func (s *Store) ListEvents(ctx context.Context) ([]model.Event, error) {
	rows, err := s.db.QueryContext(ctx, listEventsQuery)
	if err != nil {
		return nil, classify("list events", err)
	}
	defer rows.Close()

	out := make([]model.Event, 0)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, classify("list events", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list events", err)
	}
	return out, nil
}

func (s *Store) LoadEvent(ctx context.Context, id int64) (model.Event, error) {
	ev, err := scanEvent(s.db.QueryRowContext(ctx, loadEventQuery, id))
	if err != nil {
		return model.Event{}, classify("load event", err)
	}
	return ev, nil
}

// InsertEvent writes ev and returns it with the id and timestamps the
// database assigned.
func (s *Store) InsertEvent(ctx context.Context, ev model.Event) (model.Event, error) {
	args, err := eventArgs(ev)
	if err != nil {
		return model.Event{}, store.Unavailable("insert event", err)
	}
	out := ev.Clone()
	err = s.db.QueryRowContext(ctx, insertEventQuery, args...).Scan(&out.ID, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return model.Event{}, classify("insert event", err)
	}
	out.CreatedAt = out.CreatedAt.UTC()
	out.UpdatedAt = out.UpdatedAt.UTC()
	return out, nil
}

// ReplaceEvent overwrites every mutable column of event id.
func (s *Store) ReplaceEvent(ctx context.Context, id int64, ev model.Event) (model.Event, error) {
	args, err := eventArgs(ev)
	if err != nil {
		return model.Event{}, store.Unavailable("replace event", err)
	}
	args = append(args, id)
	out := ev.Clone()
	out.ID = id
	err = s.db.QueryRowContext(ctx, replaceEventQuery, args...).Scan(&out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return model.Event{}, classify("replace event", err)
	}
	out.CreatedAt = out.CreatedAt.UTC()
	out.UpdatedAt = out.UpdatedAt.UTC()
	return out, nil
}

func (s *Store) DeleteEvent(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, deleteEventQuery, id)
	if err != nil {
		return classify("delete event", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify("delete event", err)
	}
	if n == 0 {
		return store.NotFound("delete event")
	}
	return nil
}
