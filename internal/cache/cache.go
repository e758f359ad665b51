// Package cache keeps a short-lived snapshot of the resource list in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/openverse/openverse/internal/model"
)

// SnapshotKey is the Redis key holding the JSON resource list.
const SnapshotKey = "aral:resources"

// ErrMiss is returned by a KV when the key is absent.
var ErrMiss = errors.New("cache miss")

// Provider returns the full resource collection.
type Provider interface {
	ListResources(ctx context.Context) ([]model.Resource, error)
}

// KV is the key/value store backing the cache.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Cached serves ListResources from the KV and falls back to the wrapped
// provider on a miss. KV failures are logged and never returned.
type Cached struct {
	next Provider
	kv   KV
	ttl  time.Duration
}

// New wraps next with a snapshot cache.
func New(next Provider, kv KV, ttl time.Duration) *Cached {
	return &Cached{next: next, kv: kv, ttl: ttl}
}

// ListResources returns the cached snapshot or loads and stores a fresh one.
func (c *Cached) ListResources(ctx context.Context) ([]model.Resource, error) {
	data, err := c.kv.Get(ctx, SnapshotKey)
	switch {
	case err == nil:
		var resources []model.Resource
		if err := json.Unmarshal(data, &resources); err == nil {
			return resources, nil
		}
		log.Warn().Err(err).Msg("Discarding corrupt resource snapshot")
	case !errors.Is(err, ErrMiss):
		log.Warn().Err(err).Msg("Resource cache unavailable")
	}

	resources, err := c.next.ListResources(ctx)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(resources); err == nil {
		if err := c.kv.Set(ctx, SnapshotKey, data, c.ttl); err != nil {
			log.Warn().Err(err).Msg("Failed to store resource snapshot")
		}
	}
	return resources, nil
}

// Invalidate drops the snapshot so the next read hits the provider.
func (c *Cached) Invalidate(ctx context.Context) error {
	return c.kv.Delete(ctx, SnapshotKey)
}
