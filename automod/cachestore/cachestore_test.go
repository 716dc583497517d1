package cachestore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemCacheStoreBasics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewMemCacheStore(10, time.Hour)

	v, err := cs.Get(ctx, "policy", "srv1")
	assert.NoError(err)
	assert.Empty(v)

	assert.NoError(cs.Set(ctx, "policy", "srv1", `{"enabled":true}`))
	v, err = cs.Get(ctx, "policy", "srv1")
	assert.NoError(err)
	assert.Equal(`{"enabled":true}`, v)

	// names are separate namespaces
	v, err = cs.Get(ctx, "other", "srv1")
	assert.NoError(err)
	assert.Empty(v)

	assert.NoError(cs.Purge(ctx, "policy", "srv1"))
	assert.NoError(cs.Purge(ctx, "policy", "srv1"))
	v, err = cs.Get(ctx, "policy", "srv1")
	assert.NoError(err)
	assert.Empty(v)
}

func TestMemCacheStoreExpiry(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewMemCacheStore(10, 10*time.Millisecond)
	assert.NoError(cs.Set(ctx, "policy", "srv1", "val"))
	time.Sleep(50 * time.Millisecond)
	v, err := cs.Get(ctx, "policy", "srv1")
	assert.NoError(err)
	assert.Empty(v)
}
