package cachestore

import (
	"context"
	"encoding/json"
	"fmt"
)

// Result of a Typed lookup.
type Lookup int

const (
	// Nothing cached; the caller reads the backing store
	Miss Lookup = iota
	Hit
	// The backing store was known to have no record for the key
	Absent
)

func (l Lookup) String() string {
	switch l {
	case Hit:
		return "hit"
	case Absent:
		return "absent"
	default:
		return "miss"
	}
}

// stored for cached absence; a present record always encodes as a JSON object
const absentMarker = "null"

// Records of a single type, stored JSON-encoded under one cache name. Used for read-through caches in front of a database, like per-server policy. Absence is cached too, so lookups for servers which were never configured stay off the database.
type Typed[T any] struct {
	Store CacheStore
	Name  string
}

func NewTyped[T any](store CacheStore, name string) *Typed[T] {
	return &Typed[T]{Store: store, Name: name}
}

// Every Hit returns a freshly decoded value, which the caller may modify.
func (c *Typed[T]) Get(ctx context.Context, key string) (*T, Lookup, error) {
	raw, err := c.Store.Get(ctx, c.Name, key)
	if err != nil {
		cacheLookups.WithLabelValues(c.Name, "error").Inc()
		return nil, Miss, err
	}
	res := Hit
	switch raw {
	case "":
		res = Miss
	case absentMarker:
		res = Absent
	}
	if res != Hit {
		cacheLookups.WithLabelValues(c.Name, res.String()).Inc()
		return nil, res, nil
	}
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		cacheLookups.WithLabelValues(c.Name, "error").Inc()
		return nil, Miss, fmt.Errorf("decoding cached %s %q: %w", c.Name, key, err)
	}
	cacheLookups.WithLabelValues(c.Name, res.String()).Inc()
	return &v, Hit, nil
}

// Caches a record. A nil value records that the backing store has none.
func (c *Typed[T]) Set(ctx context.Context, key string, v *T) error {
	if v == nil {
		return c.Store.Set(ctx, c.Name, key, absentMarker)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Store.Set(ctx, c.Name, key, string(b))
}

func (c *Typed[T]) Purge(ctx context.Context, key string) error {
	return c.Store.Purge(ctx, c.Name, key)
}
