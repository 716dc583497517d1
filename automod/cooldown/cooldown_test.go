package cooldown

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	lk  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.lk.Lock()
	defer c.lk.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.lk.Lock()
	defer c.lk.Unlock()
	c.now = c.now.Add(d)
}

func TestMemCooldownStoreBasics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	cs := NewMemCooldownStore()
	cs.Now = clock.Now

	// limit of 2: third message within the window is over
	for _, expected := range []bool{false, false, true, true} {
		over, err := cs.Check(ctx, "srv1", "alice", "chan1", 2)
		assert.NoError(err)
		assert.Equal(expected, over)
		clock.Advance(5 * time.Second)
	}

	// other channels and authors have independent buckets
	over, err := cs.Check(ctx, "srv1", "alice", "chan2", 2)
	assert.NoError(err)
	assert.False(over)
	over, err = cs.Check(ctx, "srv1", "bob", "chan1", 2)
	assert.NoError(err)
	assert.False(over)

	// window expires, counter resets to one
	clock.Advance(61 * time.Second)
	over, err = cs.Check(ctx, "srv1", "alice", "chan1", 2)
	assert.NoError(err)
	assert.False(over)
	over, err = cs.Check(ctx, "srv1", "alice", "chan1", 2)
	assert.NoError(err)
	assert.False(over)
	over, err = cs.Check(ctx, "srv1", "alice", "chan1", 2)
	assert.NoError(err)
	assert.True(over)
}

func TestMemCooldownStoreFixedWindow(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	cs := NewMemCooldownStore()
	cs.Now = clock.Now

	over, _ := cs.Check(ctx, "srv1", "alice", "chan1", 1)
	assert.False(over)
	// activity does not extend the window
	clock.Advance(59 * time.Second)
	over, _ = cs.Check(ctx, "srv1", "alice", "chan1", 1)
	assert.True(over)
	clock.Advance(1 * time.Second)
	over, _ = cs.Check(ctx, "srv1", "alice", "chan1", 1)
	assert.False(over)
}

func TestMemCooldownStoreTeardown(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewMemCooldownStore()
	assert.NoError(cs.Teardown(ctx, "srv-missing"))

	for i := 0; i < 3; i++ {
		_, err := cs.Check(ctx, "srv1", "alice", "chan1", 1)
		assert.NoError(err)
	}
	_, err := cs.Check(ctx, "srv2", "alice", "chan1", 1)
	assert.NoError(err)
	assert.Equal(2, cs.ServerCount())

	assert.NoError(cs.Teardown(ctx, "srv1"))
	assert.NoError(cs.Teardown(ctx, "srv1"))
	assert.Equal(1, cs.ServerCount())

	// fresh bucket after teardown
	over, err := cs.Check(ctx, "srv1", "alice", "chan1", 1)
	assert.NoError(err)
	assert.False(over)
}

func TestMemCooldownStoreSweep(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	cs := NewMemCooldownStore()
	cs.Now = clock.Now

	for i := 0; i < 1000; i++ {
		_, err := cs.Check(ctx, "srv1", fmt.Sprintf("author-%d", i), "chan1", 5)
		assert.NoError(err)
	}
	assert.Equal(1000, cs.BucketCount("srv1"))

	// nothing has expired yet
	clock.Advance(30 * time.Second)
	assert.Equal(0, cs.Sweep(clock.Now()))
	_, err := cs.Check(ctx, "srv1", "late", "chan1", 5)
	assert.NoError(err)

	clock.Advance(24 * time.Hour)
	_, err = cs.Check(ctx, "srv1", "fresh", "chan1", 5)
	assert.NoError(err)
	assert.Equal(1001, cs.Sweep(clock.Now()))
	assert.Equal(1, cs.BucketCount("srv1"))
	assert.Equal(0, cs.BucketCount("srv-missing"))

	// the surviving bucket keeps counting
	for _, expected := range []bool{false, false, false, false, true} {
		over, err := cs.Check(ctx, "srv1", "fresh", "chan1", 5)
		assert.NoError(err)
		assert.Equal(expected, over)
	}
}

func TestMemCooldownStoreConcurrent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewMemCooldownStore()

	// run with `-race`
	var wg sync.WaitGroup
	var lk sync.Mutex
	exceeded := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				over, err := cs.Check(ctx, "srv1", "alice", "chan1", 50)
				assert.NoError(err)
				if over {
					lk.Lock()
					exceeded++
					lk.Unlock()
				}
				_, err = cs.Check(ctx, fmt.Sprintf("srv-%d", i), "bob", "chan1", 50)
				assert.NoError(err)
			}
		}(i)
	}
	wg.Wait()

	// 80 messages against a limit of 50, all within one window
	assert.Equal(30, exceeded)
}

func TestRedisCooldownStoreBasics(t *testing.T) {
	t.Skip("live test, need redis running locally")
	assert := assert.New(t)
	ctx := context.Background()

	cs, err := NewRedisCooldownStore("redis://localhost:6379/0")
	if err != nil {
		t.Fail()
	}
	assert.NoError(cs.Teardown(ctx, "srv-test"))

	for _, expected := range []bool{false, false, true} {
		over, err := cs.Check(ctx, "srv-test", "alice", "chan1", 2)
		assert.NoError(err)
		assert.Equal(expected, over)
	}
	assert.NoError(cs.Teardown(ctx, "srv-test"))
	assert.NoError(cs.Teardown(ctx, "srv-test"))
	over, err := cs.Check(ctx, "srv-test", "alice", "chan1", 2)
	assert.NoError(err)
	assert.False(over)
}
