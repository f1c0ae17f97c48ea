package postgres

import (
	"context"

	"calpin/internal/model"
	"calpin/internal/store"
)

const locationColumns = `id, name, center_lng, center_lat, user_id, date, created_at, updated_at`

const (
	listLocationsQuery = `SELECT ` + locationColumns + ` FROM locations ORDER BY date ASC, id ASC`

	loadLocationQuery = `SELECT ` + locationColumns + ` FROM locations WHERE id = $1`

	insertLocationQuery = `INSERT INTO locations (name, center_lng, center_lat, user_id)
VALUES ($1, $2, $3, $4)
RETURNING id, date, created_at, updated_at`

	replaceLocationQuery = `UPDATE locations SET name = $1, center_lng = $2, center_lat = $3, user_id = $4, updated_at = NOW()
WHERE id = $5
RETURNING date, created_at, updated_at`

	deleteLocationQuery = `DELETE FROM locations WHERE id = $1`
)

func scanLocation(row rowScanner) (model.Location, error) {
	var loc model.Location
	err := row.Scan(&loc.ID, &loc.Name, &loc.Center[0], &loc.Center[1], &loc.UserID,
		&loc.Date, &loc.CreatedAt, &loc.UpdatedAt)
	if err != nil {
		return model.Location{}, err
	}
	loc.Date = loc.Date.UTC()
	loc.CreatedAt = loc.CreatedAt.UTC()
	loc.UpdatedAt = loc.UpdatedAt.UTC()
	return loc, nil
}

func (s *Store) ListLocations(ctx context.Context) ([]model.Location, error) {
	rows, err := s.db.QueryContext(ctx, listLocationsQuery)
	if err != nil {
		return nil, classify("list locations", err)
	}
	defer rows.Close()

	out := make([]model.Location, 0)
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, classify("list locations", err)
		}
		out = append(out, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list locations", err)
	}
	return out, nil
}

func (s *Store) LoadLocation(ctx context.Context, id int64) (model.Location, error) {
	loc, err := scanLocation(s.db.QueryRowContext(ctx, loadLocationQuery, id))
	if err != nil {
		return model.Location{}, classify("load location", err)
	}
	return loc, nil
}

func (s *Store) InsertLocation(ctx context.Context, loc model.Location) (model.Location, error) {
	err := s.db.QueryRowContext(ctx, insertLocationQuery, loc.Name, loc.Lng(), loc.Lat(), loc.UserID).
		Scan(&loc.ID, &loc.Date, &loc.CreatedAt, &loc.UpdatedAt)
	if err != nil {
		return model.Location{}, classify("insert location", err)
	}
	loc.Date = loc.Date.UTC()
	loc.CreatedAt = loc.CreatedAt.UTC()
	loc.UpdatedAt = loc.UpdatedAt.UTC()
	return loc, nil
}

func (s *Store) ReplaceLocation(ctx context.Context, id int64, loc model.Location) (model.Location, error) {
	loc.ID = id
	err := s.db.QueryRowContext(ctx, replaceLocationQuery, loc.Name, loc.Lng(), loc.Lat(), loc.UserID, id).
		Scan(&loc.Date, &loc.CreatedAt, &loc.UpdatedAt)
	if err != nil {
		return model.Location{}, classify("replace location", err)
	}
	loc.Date = loc.Date.UTC()
	loc.CreatedAt = loc.CreatedAt.UTC()
	loc.UpdatedAt = loc.UpdatedAt.UTC()
	return loc, nil
}

func (s *Store) DeleteLocation(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, deleteLocationQuery, id)
	if err != nil {
		return classify("delete location", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify("delete location", err)
	}
	if n == 0 {
		return store.NotFound("delete location")
	}
	return nil
}
