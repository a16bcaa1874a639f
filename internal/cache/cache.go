// Package cache provides a Redis read cache for event listings.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/campusbridge/exchange-events/internal/model"
)

const listKey = "events:all"

// EventCache caches event listings and single events in Redis. A nil
// *EventCache (or one built from a nil client) is a safe no-op, so
// callers never branch on whether caching is configured.
type EventCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New constructs an EventCache. client may be nil to disable caching.
func New(client *redis.Client, ttl time.Duration) *EventCache {
	if client == nil {
		return nil
	}
	return &EventCache{client: client, ttl: ttl}
}

func (c *EventCache) enabled() bool {
	return c != nil && c.client != nil
}

// GetList returns the cached event list, or (nil, false) on miss.
func (c *EventCache) GetList(ctx context.Context) ([]model.Event, bool) {
	if !c.enabled() {
		return nil, false
	}
	data, err := c.client.Get(ctx, listKey).Bytes()
	if err != nil {
		return nil, false
	}
	var events []model.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, false
	}
	return events, true
}

// SetList stores the event list.
func (c *EventCache) SetList(ctx context.Context, events []model.Event) error {
	if !c.enabled() {
		return nil
	}
	data, err := json.Marshal(events)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, listKey, data, c.ttl).Err()
}

// GetEvent returns a cached event by id, or (nil, false) on miss.
func (c *EventCache) GetEvent(ctx context.Context, id string) (*model.Event, bool) {
	if !c.enabled() {
		return nil, false
	}
	data, err := c.client.Get(ctx, "event:"+id).Bytes()
	if err != nil {
		return nil, false
	}
	var e model.Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, false
	}
	return &e, true
}

// SetEvent stores a single event.
func (c *EventCache) SetEvent(ctx context.Context, e *model.Event) error {
	if !c.enabled() {
		return nil
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, "event:"+e.ID, data, c.ttl).Err()
}

// Invalidate drops the list key and, when id is non-empty, the event
// key. Registration and cancellation change current_participants, so
// both write paths call this.
func (c *EventCache) Invalidate(ctx context.Context, id string) error {
	if !c.enabled() {
		return nil
	}
	keys := []string{listKey}
	if id != "" {
		keys = append(keys, "event:"+id)
	}
	err := c.client.Del(ctx, keys...).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}
