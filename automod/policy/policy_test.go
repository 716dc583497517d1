package policy

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chatguard/chatguard/automod/cachestore"
	"github.com/chatguard/chatguard/util/cliutil"

	"github.com/stretchr/testify/assert"
)

func examplePolicy() *ServerPolicy {
	return &ServerPolicy{
		ServerID:           "srv1",
		ServerSlug:         "coolserver",
		Enabled:            true,
		SpamLimit:          5,
		FilterInvites:      true,
		ToxicityThreshold:  250,
		WordBlacklist:      []string{"bad", "worse"},
		DefaultProfanities: []string{"en"},
		AutomodLogChannel:  "logs",
		Restrictions: map[RuleName]RestrictionSet{
			RuleInvites: {AllowChannels: []string{"partners"}},
		},
	}
}

func TestNormalize(t *testing.T) {
	assert := assert.New(t)
	p := examplePolicy().Normalize()
	assert.Equal(uint8(100), p.ToxicityThreshold)
	assert.Equal(uint8(0), p.NSFWThreshold)
}

func TestLogChannel(t *testing.T) {
	assert := assert.New(t)
	p := examplePolicy()
	assert.Equal("logs", p.LogChannel(RuleNSFW))
	p.NSFWLogChannel = "nsfw-logs"
	assert.Equal("nsfw-logs", p.LogChannel(RuleNSFW))
	assert.Equal("logs", p.LogChannel(RuleInvites))
}

func TestApplyRoles(t *testing.T) {
	assert := assert.New(t)
	p := examplePolicy()
	p.BypassRoles = []string{"mods"}
	p.TrustedRoles = []string{"regulars"}

	perms := p.ApplyRoles(AuthorPermissions{RoleIDs: []string{"everyone"}})
	assert.False(perms.BypassFilter)
	assert.False(perms.Trusted)

	perms = p.ApplyRoles(AuthorPermissions{RoleIDs: []string{"regulars"}})
	assert.False(perms.BypassFilter)
	assert.True(perms.Trusted)

	perms = p.ApplyRoles(AuthorPermissions{RoleIDs: []string{"mods"}})
	assert.True(perms.BypassFilter)
	assert.True(perms.Trusted)

	perms = p.ApplyRoles(AuthorPermissions{IsOwner: true})
	assert.True(perms.BypassFilter)
}

func testPolicyStore(t *testing.T, ps PolicyStore) {
	assert := assert.New(t)
	ctx := context.Background()

	_, err := ps.Get(ctx, "srv1")
	assert.ErrorIs(err, ErrNoPolicy)

	assert.NoError(ps.Put(ctx, examplePolicy()))
	p, err := ps.Get(ctx, "srv1")
	assert.NoError(err)
	assert.Equal("coolserver", p.ServerSlug)
	assert.Equal(uint32(5), p.SpamLimit)
	assert.Equal(uint8(100), p.ToxicityThreshold)
	assert.Equal([]string{"bad", "worse"}, p.WordBlacklist)
	assert.Equal([]string{"partners"}, p.Restrictions[RuleInvites].AllowChannels)

	updated := examplePolicy()
	updated.SpamLimit = 9
	assert.NoError(ps.Put(ctx, updated))
	p, err = ps.Get(ctx, "srv1")
	assert.NoError(err)
	assert.Equal(uint32(9), p.SpamLimit)

	assert.NoError(ps.Delete(ctx, "srv1"))
	_, err = ps.Get(ctx, "srv1")
	assert.ErrorIs(err, ErrNoPolicy)
}

func TestMemPolicyStore(t *testing.T) {
	testPolicyStore(t, NewMemPolicyStore())
}

func TestGormPolicyStore(t *testing.T) {
	db, err := cliutil.SetupDatabase("sqlite://:memory:", 1)
	if err != nil {
		t.Fatal(err)
	}
	ps, err := NewGormPolicyStore(db)
	if err != nil {
		t.Fatal(err)
	}
	testPolicyStore(t, ps)
}

func TestCachedPolicyStore(t *testing.T) {
	testPolicyStore(t, NewCachedPolicyStore(NewMemPolicyStore(), cachestore.NewMemCacheStore(100, time.Hour)))
}

type countingStore struct {
	PolicyStore
	reads atomic.Int64
}

func (s *countingStore) Get(ctx context.Context, server string) (*ServerPolicy, error) {
	s.reads.Add(1)
	return s.PolicyStore.Get(ctx, server)
}

func TestCachedPolicyStoreReadThrough(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	inner := &countingStore{PolicyStore: NewMemPolicyStore()}
	assert.NoError(inner.Put(ctx, examplePolicy()))
	ps := NewCachedPolicyStore(inner, cachestore.NewMemCacheStore(100, time.Hour))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := ps.Get(ctx, "srv1")
			assert.NoError(err)
			assert.Equal("srv1", p.ServerID)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(inner.reads.Load(), int64(10))

	before := inner.reads.Load()
	_, err := ps.Get(ctx, "srv1")
	assert.NoError(err)
	assert.Equal(before, inner.reads.Load())

	// misses are cached too
	_, err = ps.Get(ctx, "srv-none")
	assert.ErrorIs(err, ErrNoPolicy)
	_, err = ps.Get(ctx, "srv-none")
	assert.ErrorIs(err, ErrNoPolicy)
	assert.Equal(before+1, inner.reads.Load())

	// writes through the cache invalidate
	updated := examplePolicy()
	updated.FilterAPIKeys = true
	assert.NoError(ps.Put(ctx, updated))
	p, err := ps.Get(ctx, "srv1")
	assert.NoError(err)
	assert.True(p.FilterAPIKeys)
}

type unavailableCache struct{}

func (unavailableCache) Get(ctx context.Context, name, key string) (string, error) {
	return "", errors.New("redis: connection refused")
}

func (unavailableCache) Set(ctx context.Context, name, key string, val string) error {
	return errors.New("redis: connection refused")
}

func (unavailableCache) Purge(ctx context.Context, name, key string) error {
	return nil
}

func TestCachedPolicyStoreCacheUnavailable(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	inner := &countingStore{PolicyStore: NewMemPolicyStore()}
	assert.NoError(inner.Put(ctx, examplePolicy()))
	ps := NewCachedPolicyStore(inner, unavailableCache{})

	p, err := ps.Get(ctx, "srv1")
	assert.NoError(err)
	assert.Equal("coolserver", p.ServerSlug)

	_, err = ps.Get(ctx, "srv-none")
	assert.ErrorIs(err, ErrNoPolicy)

	// every lookup reads through
	_, err = ps.Get(ctx, "srv1")
	assert.NoError(err)
	assert.Equal(int64(3), inner.reads.Load())
}
