// Package postgres stores events and locations in PostgreSQL through
// database/sql and lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"calpin/internal/store"
)

// uniqueViolation is the SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

// exDateLayout is how exception dates are written into the JSONB column.
const exDateLayout = "2006-01-02T15:04:05.000Z"

// Store implements the event and location stores on a *sql.DB.
type Store struct {
	db *sql.DB
}

// New wraps an open database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to the database at url and checks the connection.
func Open(ctx context.Context, url string) (*Store, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// classify maps a driver error onto the shared storage categories.
func classify(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.NotFound(op)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return store.Conflict(op, err)
	}
	return store.Unavailable(op, err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt(n *int64) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *n, Valid: true}
}

func timePtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time.UTC()
	return &t
}

func stringPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	s := n.String
	return &s
}

func intPtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

// encodeExDates renders exception dates as a JSON array of UTC strings.
// nil stays SQL NULL.
func encodeExDates(ts []time.Time) (sql.NullString, error) {
	if ts == nil {
		return sql.NullString{}, nil
	}
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.UTC().Format(exDateLayout)
	}
	data, err := json.Marshal(out)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func decodeExDates(raw []byte) ([]time.Time, error) {
	if raw == nil {
		return nil, nil
	}
	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode exdates: %w", err)
	}
	out := make([]time.Time, len(items))
	for i, item := range items {
		t, err := time.Parse(time.RFC3339Nano, item)
		if err != nil {
			return nil, fmt.Errorf("decode exdates: %w", err)
		}
		out[i] = t.UTC()
	}
	return out, nil
}
