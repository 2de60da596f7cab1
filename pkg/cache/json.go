package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/matzehuels/taskgraph/pkg/observability"
)

// GetJSON decodes the entry at key into v. It returns ErrCacheMiss on a miss
// and reports hits and misses to the cache hooks under keyType.
func GetJSON(ctx context.Context, c Cache, keyType, key string, v any) error {
	data, ok, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		observability.Cache().OnCacheMiss(ctx, keyType)
		return ErrCacheMiss
	}
	if err := json.Unmarshal(data, v); err != nil {
		_ = c.Delete(ctx, key)
		observability.Cache().OnCacheMiss(ctx, keyType)
		return ErrCacheMiss
	}
	observability.Cache().OnCacheHit(ctx, keyType)
	return nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, c Cache, keyType, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := c.Set(ctx, key, data, ttl); err != nil {
		return err
	}
	observability.Cache().OnCacheSet(ctx, keyType, len(data))
	return nil
}
