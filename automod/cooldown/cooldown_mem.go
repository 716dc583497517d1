package cooldown

import (
	"context"
	"log/slog"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

type bucket struct {
	count uint32
	start time.Time
}

type serverBuckets = xsync.MapOf[string, bucket]

// In-process cooldown store. Each server gets its own concurrent map, and updates to a single bucket are atomic, so no global lock is held on the hot path.
type MemCooldownStore struct {
	Window time.Duration
	// Time source; overridden in tests
	Now func() time.Time

	servers *xsync.MapOf[string, *serverBuckets]
}

var _ CooldownStore = (*MemCooldownStore)(nil)

func NewMemCooldownStore() *MemCooldownStore {
	return &MemCooldownStore{
		Window:  DefaultWindow,
		Now:     time.Now,
		servers: xsync.NewMapOf[string, *serverBuckets](),
	}
}

func (s *MemCooldownStore) Check(ctx context.Context, server, author, channel string, limit uint32) (bool, error) {
	buckets, _ := s.servers.LoadOrCompute(server, func() *serverBuckets {
		return xsync.NewMapOf[string, bucket]()
	})
	now := s.Now()
	exceeded := false
	buckets.Compute(bucketName(author, channel), func(old bucket, loaded bool) (bucket, bool) {
		if !loaded || now.Sub(old.start) >= s.Window {
			exceeded = false
			return bucket{count: 1, start: now}, false
		}
		old.count++
		exceeded = old.count > limit
		return old, false
	})
	return exceeded, nil
}

// Drops buckets whose window has elapsed as of `now`, returning how many were removed. An expired bucket would be reset on its next Check anyway; sweeping keeps authors who never post again from holding memory until the server is torn down.
func (s *MemCooldownStore) Sweep(now time.Time) int {
	removed := 0
	s.servers.Range(func(server string, buckets *serverBuckets) bool {
		buckets.Range(func(name string, _ bucket) bool {
			buckets.Compute(name, func(old bucket, loaded bool) (bucket, bool) {
				// re-checked under the entry lock, a concurrent Check may have just reset it
				if loaded && now.Sub(old.start) >= s.Window {
					removed++
					return old, true
				}
				return old, !loaded
			})
			return true
		})
		return true
	})
	return removed
}

// Sweeps expired buckets on every interval until the context is cancelled.
func (s *MemCooldownStore) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(s.Now()); n > 0 {
				slog.Debug("swept expired cooldown buckets", "count", n)
			}
		}
	}
}

func (s *MemCooldownStore) Teardown(ctx context.Context, server string) error {
	s.servers.Delete(server)
	return nil
}

// Number of buckets currently held for a server.
func (s *MemCooldownStore) BucketCount(server string) int {
	buckets, ok := s.servers.Load(server)
	if !ok {
		return 0
	}
	return buckets.Size()
}

// Number of servers which currently have any buckets allocated.
func (s *MemCooldownStore) ServerCount() int {
	return s.servers.Size()
}
