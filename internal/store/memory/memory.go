// Package memory is an in-process store for events and locations. It backs
// the `memory` database driver and the HTTP tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"calpin/internal/model"
	"calpin/internal/store"
)

// Store keeps records in maps guarded by a single RWMutex.
type Store struct {
	mu        sync.RWMutex
	events    map[int64]model.Event
	locations map[int64]model.Location
	nextEvent int64
	nextLoc   int64
	now       func() time.Time
}

// New returns an empty store stamping records with the wall clock.
func New() *Store {
	return NewWithClock(time.Now)
}

// NewWithClock returns an empty store that reads timestamps from now.
func NewWithClock(now func() time.Time) *Store {
	return &Store{
		events:    make(map[int64]model.Event),
		locations: make(map[int64]model.Location),
		now:       now,
	}
}

func (s *Store) stamp() time.Time {
	return s.now().UTC()
}

// ListEvents returns events ordered by start, then id.
func (s *Store) ListEvents(_ context.Context) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Event, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) LoadEvent(_ context.Context, id int64) (model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ev, ok := s.events[id]
	if !ok {
		return model.Event{}, store.NotFound("load event")
	}
	return ev.Clone(), nil
}

// InsertEvent assigns an id and timestamps.
func (s *Store) InsertEvent(_ context.Context, ev model.Event) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextEvent++
	now := s.stamp()
	ev = ev.Clone()
	ev.ID = s.nextEvent
	ev.CreatedAt = now
	ev.UpdatedAt = now
	s.events[ev.ID] = ev
	return ev.Clone(), nil
}

// ReplaceEvent overwrites every mutable field of event id.
func (s *Store) ReplaceEvent(_ context.Context, id int64, ev model.Event) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.events[id]
	if !ok {
		return model.Event{}, store.NotFound("replace event")
	}
	ev = ev.Clone()
	ev.ID = id
	ev.CreatedAt = cur.CreatedAt
	ev.UpdatedAt = s.stamp()
	s.events[id] = ev
	return ev.Clone(), nil
}

func (s *Store) DeleteEvent(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[id]; !ok {
		return store.NotFound("delete event")
	}
	delete(s.events, id)
	return nil
}

// ListLocations returns locations ordered by date, then id.
func (s *Store) ListLocations(_ context.Context) ([]model.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Location, 0, len(s.locations))
	for _, loc := range s.locations {
		out = append(out, loc)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) LoadLocation(_ context.Context, id int64) (model.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loc, ok := s.locations[id]
	if !ok {
		return model.Location{}, store.NotFound("load location")
	}
	return loc, nil
}

// InsertLocation assigns an id, the pin date and timestamps.
func (s *Store) InsertLocation(_ context.Context, loc model.Location) (model.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextLoc++
	now := s.stamp()
	loc.ID = s.nextLoc
	loc.Date = now
	loc.CreatedAt = now
	loc.UpdatedAt = now
	s.locations[loc.ID] = loc
	return loc, nil
}

func (s *Store) ReplaceLocation(_ context.Context, id int64, loc model.Location) (model.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.locations[id]
	if !ok {
		return model.Location{}, store.NotFound("replace location")
	}
	loc.ID = id
	loc.Date = cur.Date
	loc.CreatedAt = cur.CreatedAt
	loc.UpdatedAt = s.stamp()
	s.locations[id] = loc
	return loc, nil
}

func (s *Store) DeleteLocation(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.locations[id]; !ok {
		return store.NotFound("delete location")
	}
	delete(s.locations, id)
	return nil
}
