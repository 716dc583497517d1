package cachestore

import (
	"context"
)

// String key/value cache with a fixed TTL. A missing key is reported as an empty string, not an error.
type CacheStore interface {
	Get(ctx context.Context, name, key string) (string, error)
	Set(ctx context.Context, name, key string, val string) error
	Purge(ctx context.Context, name, key string) error
}
