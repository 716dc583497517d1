package policy

import (
	"context"
	"errors"
	"log/slog"

	"github.com/chatguard/chatguard/automod/cachestore"

	"golang.org/x/sync/singleflight"
)

const policyCacheName = "policy"

// Read-through cache in front of another policy store. Concurrent misses for the same server are coalesced in to a single backing read.
//
// The cache is an optimization only: if it can not be read or written, lookups still succeed from the backing store.
type CachedPolicyStore struct {
	Inner  PolicyStore
	Cache  *cachestore.Typed[ServerPolicy]
	Logger *slog.Logger

	group singleflight.Group
}

var _ PolicyStore = (*CachedPolicyStore)(nil)

func NewCachedPolicyStore(inner PolicyStore, cache cachestore.CacheStore) *CachedPolicyStore {
	return &CachedPolicyStore{
		Inner:  inner,
		Cache:  cachestore.NewTyped[ServerPolicy](cache, policyCacheName),
		Logger: slog.Default().With("system", "policy-cache"),
	}
}

func (s *CachedPolicyStore) Get(ctx context.Context, server string) (*ServerPolicy, error) {
	cached, res, err := s.Cache.Get(ctx, server)
	if err != nil {
		s.Logger.Warn("policy cache read failed, reading through", "server", server, "err", err)
	}
	switch res {
	case cachestore.Hit:
		return cached, nil
	case cachestore.Absent:
		return nil, ErrNoPolicy
	}

	v, err, _ := s.group.Do(server, func() (any, error) {
		p, err := s.Inner.Get(ctx, server)
		if errors.Is(err, ErrNoPolicy) {
			p = nil
		} else if err != nil {
			return nil, err
		}
		if err := s.Cache.Set(ctx, server, p); err != nil {
			s.Logger.Warn("failed to cache server policy", "server", server, "err", err)
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	p, ok := v.(*ServerPolicy)
	if !ok || p == nil {
		return nil, ErrNoPolicy
	}
	// each caller gets its own snapshot
	out := *p
	return &out, nil
}

func (s *CachedPolicyStore) Put(ctx context.Context, p *ServerPolicy) error {
	if err := s.Inner.Put(ctx, p); err != nil {
		return err
	}
	return s.Invalidate(ctx, p.ServerID)
}

func (s *CachedPolicyStore) Delete(ctx context.Context, server string) error {
	if err := s.Inner.Delete(ctx, server); err != nil {
		return err
	}
	return s.Invalidate(ctx, server)
}

// Drops any cached policy for the server; the next Get reads through.
func (s *CachedPolicyStore) Invalidate(ctx context.Context, server string) error {
	return s.Cache.Purge(ctx, server)
}
