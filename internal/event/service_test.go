package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calpin/internal/model"
	"calpin/internal/store"
	"calpin/internal/store/memory"
	"calpin/internal/validate"
)

// recordingStore fails the test if a write reaches it.
type recordingStore struct {
	*memory.Store
	writes int
	failOn error
}

func (r *recordingStore) InsertEvent(ctx context.Context, ev model.Event) (model.Event, error) {
	r.writes++
	if r.failOn != nil {
		return model.Event{}, r.failOn
	}
	return r.Store.InsertEvent(ctx, ev)
}

func (r *recordingStore) ReplaceEvent(ctx context.Context, id int64, ev model.Event) (model.Event, error) {
	r.writes++
	if r.failOn != nil {
		return model.Event{}, r.failOn
	}
	return r.Store.ReplaceEvent(ctx, id, ev)
}

func TestServiceCreateAndUpdate(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.New())

	created, err := svc.Create(ctx, []byte(`{"title":"Standup","start":"2025-01-06T09:00:00Z","end":"2025-01-06T09:30:00Z","location":"X"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	updated, err := svc.Update(ctx, created.ID, []byte(`{"notes":"agenda","id":999}`))
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "agenda", *updated.Notes)
	assert.Equal(t, "X", *updated.Location)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	_, err = svc.Get(ctx, 999)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestServiceRejectsBeforeStorage(t *testing.T) {
	ctx := context.Background()
	rs := &recordingStore{Store: memory.New()}
	svc := NewService(rs)

	_, err := svc.Create(ctx, []byte(`{"title":"Standup","start":"2025-01-06T09:00:00Z","end":"2025-01-06T08:00:00Z"}`))
	_, ok := validate.AsError(err)
	assert.True(t, ok)
	assert.Equal(t, 0, rs.writes)

	created, err := rs.Store.InsertEvent(ctx, model.Event{
		Title: "Standup",
		Start: time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC),
		End:   ptr(time.Date(2025, 1, 6, 9, 30, 0, 0, time.UTC)),
	})
	require.NoError(t, err)

	_, err = svc.Update(ctx, created.ID, []byte(`{"start":"2025-01-06T10:00:00Z"}`))
	_, ok = validate.AsError(err)
	assert.True(t, ok)
	assert.Equal(t, 0, rs.writes)

	stored, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Start, stored.Start)
}

func TestServicePassesStorageErrorsThrough(t *testing.T) {
	ctx := context.Background()
	conflict := store.Conflict("insert event", errors.New("duplicate key"))
	rs := &recordingStore{Store: memory.New(), failOn: conflict}
	svc := NewService(rs)

	_, err := svc.Create(ctx, []byte(`{"title":"Standup","start":"2025-01-06T09:00:00Z"}`))
	assert.Same(t, conflict, err)
	assert.Equal(t, 1, rs.writes)

	_, err = svc.Update(ctx, 404, []byte(`{"title":"x"}`))
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, 404), store.ErrNotFound)
}

func TestServiceCreateCandidate(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.New())

	ev, err := svc.CreateCandidate(ctx, Changes{
		Title: validate.Value("Imported"),
		Start: validate.Value(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)),
		RRule: validate.Value("FREQ=YEARLY"),
	})
	require.NoError(t, err)
	assert.Equal(t, "FREQ=YEARLY", *ev.RRule)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
