package event

import (
	"context"

	appLog "calpin/internal/log"
	"calpin/internal/model"
)

// Store is the persistence collaborator for events. Implementations report
// failures wrapped with the categories in calpin/internal/store.
type Store interface {
	ListEvents(ctx context.Context) ([]model.Event, error)
	LoadEvent(ctx context.Context, id int64) (model.Event, error)
	InsertEvent(ctx context.Context, ev model.Event) (model.Event, error)
	ReplaceEvent(ctx context.Context, id int64, ev model.Event) (model.Event, error)
	DeleteEvent(ctx context.Context, id int64) error
}

// Service runs requests through the validator before they reach the store.
// It holds no state besides the store handle and is safe for concurrent use.
//
// Update does a plain load-then-replace; detecting a stale snapshot is left
// to the store.
type Service struct {
	store Store
}

// NewService constructs a Service over store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// List returns every event ordered by start.
func (s *Service) List(ctx context.Context) ([]model.Event, error) {
	return s.store.ListEvents(ctx)
}

// Get loads one event.
func (s *Service) Get(ctx context.Context, id int64) (model.Event, error) {
	return s.store.LoadEvent(ctx, id)
}

// Create validates a JSON create body and inserts the record.
func (s *Service) Create(ctx context.Context, body []byte) (model.Event, error) {
	ev, err := ValidateForCreate(body)
	if err != nil {
		return model.Event{}, err
	}
	return s.insert(ctx, ev)
}

// CreateCandidate validates a typed candidate and inserts the record.
func (s *Service) CreateCandidate(ctx context.Context, c Changes) (model.Event, error) {
	ev, err := ValidateCandidate(c)
	if err != nil {
		return model.Event{}, err
	}
	return s.insert(ctx, ev)
}

func (s *Service) insert(ctx context.Context, ev model.Event) (model.Event, error) {
	created, err := s.store.InsertEvent(ctx, ev)
	if err != nil {
		return model.Event{}, err
	}
	appLog.Debug("event created", "id", created.ID, "all_day", created.AllDay)
	return created, nil
}

// Update applies a JSON patch body to event id. The merged record is
// validated as a whole before anything is written.
func (s *Service) Update(ctx context.Context, id int64, body []byte) (model.Event, error) {
	existing, err := s.store.LoadEvent(ctx, id)
	if err != nil {
		return model.Event{}, err
	}
	merged, err := ValidateForUpdate(existing, body)
	if err != nil {
		return model.Event{}, err
	}
	merged.ID = existing.ID
	updated, err := s.store.ReplaceEvent(ctx, id, merged)
	if err != nil {
		return model.Event{}, err
	}
	appLog.Debug("event updated", "id", updated.ID)
	return updated, nil
}

// Delete removes event id.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteEvent(ctx, id); err != nil {
		return err
	}
	appLog.Debug("event deleted", "id", id)
	return nil
}
