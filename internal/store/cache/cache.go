// Package cache puts a Redis read-through cache in front of an event store.
// Only LoadEvent is cached; every write drops the cached copy.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"calpin/internal/event"
	appLog "calpin/internal/log"
	"calpin/internal/model"
)

const keyPrefix = "calpin:event:"

// DefaultTTL bounds how long a cached event may lag behind the store when
// another process writes around the cache.
const DefaultTTL = 5 * time.Minute

// EventStore decorates an event.Store. Redis failures are logged and the
// call falls through to the wrapped store.
type EventStore struct {
	next   event.Store
	client redis.Cmdable
	ttl    time.Duration
}

var _ event.Store = (*EventStore)(nil)

// New wraps next. A non-positive ttl selects DefaultTTL.
func New(next event.Store, client redis.Cmdable, ttl time.Duration) *EventStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &EventStore{next: next, client: client, ttl: ttl}
}

// NewClient opens a go-redis client for addr.
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func key(id int64) string {
	return keyPrefix + strconv.FormatInt(id, 10)
}

func (c *EventStore) ListEvents(ctx context.Context) ([]model.Event, error) {
	return c.next.ListEvents(ctx)
}

func (c *EventStore) LoadEvent(ctx context.Context, id int64) (model.Event, error) {
	data, err := c.client.Get(ctx, key(id)).Bytes()
	switch {
	case err == nil:
		var ev model.Event
		if err := json.Unmarshal(data, &ev); err == nil {
			return ev, nil
		}
		appLog.Warn("event cache entry unreadable", "id", id)
	case !errors.Is(err, redis.Nil):
		appLog.Warn("event cache read failed", "id", id, "err", err)
	}

	ev, err := c.next.LoadEvent(ctx, id)
	if err != nil {
		return model.Event{}, err
	}
	c.put(ctx, ev)
	return ev, nil
}

func (c *EventStore) InsertEvent(ctx context.Context, ev model.Event) (model.Event, error) {
	return c.next.InsertEvent(ctx, ev)
}

func (c *EventStore) ReplaceEvent(ctx context.Context, id int64, ev model.Event) (model.Event, error) {
	c.drop(ctx, id)
	out, err := c.next.ReplaceEvent(ctx, id, ev)
	c.drop(ctx, id)
	return out, err
}

func (c *EventStore) DeleteEvent(ctx context.Context, id int64) error {
	err := c.next.DeleteEvent(ctx, id)
	c.drop(ctx, id)
	return err
}

func (c *EventStore) put(ctx context.Context, ev model.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		appLog.Warn("event cache encode failed", "id", ev.ID, "err", err)
		return
	}
	if err := c.client.Set(ctx, key(ev.ID), data, c.ttl).Err(); err != nil {
		appLog.Warn("event cache write failed", "id", ev.ID, "err", err)
	}
}

func (c *EventStore) drop(ctx context.Context, id int64) {
	if err := c.client.Del(ctx, key(id)).Err(); err != nil {
		appLog.Warn("event cache invalidate failed", "id", id, "err", err)
	}
}
