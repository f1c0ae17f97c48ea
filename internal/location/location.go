// Package location validates and stores user-pinned map points.
package location

import (
	"context"

	appLog "calpin/internal/log"
	"calpin/internal/model"
	"calpin/internal/validate"
)

const maxNameLen = 255

// Changes is a sparse set of location field values. None of the fields is
// nullable; an omitted field keeps its stored value on update.
type Changes struct {
	Name   validate.Field[string]
	Center validate.Field[[]float64]
	UserID validate.Field[int64]
}

// DecodeChanges reads a JSON body. Unknown keys are ignored.
func DecodeChanges(body []byte) (Changes, validate.Violations) {
	d := validate.NewDecoder(body)
	c := Changes{
		Name:   d.String("name", false),
		Center: d.Floats("center", 2, false),
		UserID: d.Int("userId", false),
	}
	return c, d.Violations()
}

// ValidateForCreate requires name, center and userId.
func ValidateForCreate(body []byte) (model.Location, error) {
	c, vs := DecodeChanges(body)
	if vs.Has("") {
		return model.Location{}, vs.Err()
	}
	if !c.Name.IsSet() && !vs.Has("name") {
		vs.Type("name", "name is required")
	}
	if !c.Center.IsSet() && !vs.Has("center") {
		vs.Type("center", "center is required")
	}
	if !c.UserID.IsSet() && !vs.Has("userId") {
		vs.Type("userId", "userId is required")
	}
	loc := Merge(model.Location{}, c)
	vs = append(vs, checkInvariants(loc, vs)...)
	if err := vs.Err(); err != nil {
		return model.Location{}, err
	}
	return loc, nil
}

// ValidateForUpdate merges a patch over existing and checks the result.
func ValidateForUpdate(existing model.Location, body []byte) (model.Location, error) {
	c, vs := DecodeChanges(body)
	if vs.Has("") {
		return model.Location{}, vs.Err()
	}
	loc := Merge(existing, c)
	vs = append(vs, checkInvariants(loc, vs)...)
	if err := vs.Err(); err != nil {
		return model.Location{}, err
	}
	return loc, nil
}

// Merge overlays c onto existing.
func Merge(existing model.Location, c Changes) model.Location {
	loc := existing
	loc.Name = c.Name.ApplyValue(loc.Name)
	if center, ok := c.Center.Get(); ok && len(center) == 2 {
		loc.Center = [2]float64{center[0], center[1]}
	}
	loc.UserID = c.UserID.ApplyValue(loc.UserID)
	return loc
}

func checkInvariants(loc model.Location, prior validate.Violations) validate.Violations {
	var vs validate.Violations
	if !prior.Has("name") {
		switch n := validate.CodeUnits(loc.Name); {
		case n == 0:
			vs.Invariant("name", "name must not be empty")
		case n > maxNameLen:
			vs.Invariant("name", "name must be at most 255 characters")
		}
	}
	if !prior.Has("center") {
		if loc.Lng() < -180 || loc.Lng() > 180 {
			vs.Invariant("center", "longitude must be between -180 and 180")
		}
		if loc.Lat() < -90 || loc.Lat() > 90 {
			vs.Invariant("center", "latitude must be between -90 and 90")
		}
	}
	if !prior.Has("userId") && loc.UserID <= 0 {
		vs.Invariant("userId", "userId must be a positive integer")
	}
	return vs
}

// Store is the persistence collaborator for locations.
type Store interface {
	ListLocations(ctx context.Context) ([]model.Location, error)
	LoadLocation(ctx context.Context, id int64) (model.Location, error)
	InsertLocation(ctx context.Context, loc model.Location) (model.Location, error)
	ReplaceLocation(ctx context.Context, id int64, loc model.Location) (model.Location, error)
	DeleteLocation(ctx context.Context, id int64) error
}

// Service validates location requests before they reach the store.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) List(ctx context.Context) ([]model.Location, error) {
	return s.store.ListLocations(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (model.Location, error) {
	return s.store.LoadLocation(ctx, id)
}

func (s *Service) Create(ctx context.Context, body []byte) (model.Location, error) {
	loc, err := ValidateForCreate(body)
	if err != nil {
		return model.Location{}, err
	}
	created, err := s.store.InsertLocation(ctx, loc)
	if err != nil {
		return model.Location{}, err
	}
	appLog.Debug("location created", "id", created.ID, "user_id", created.UserID)
	return created, nil
}

func (s *Service) Update(ctx context.Context, id int64, body []byte) (model.Location, error) {
	existing, err := s.store.LoadLocation(ctx, id)
	if err != nil {
		return model.Location{}, err
	}
	merged, err := ValidateForUpdate(existing, body)
	if err != nil {
		return model.Location{}, err
	}
	return s.store.ReplaceLocation(ctx, id, merged)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.store.DeleteLocation(ctx, id)
}
