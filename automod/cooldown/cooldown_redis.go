package cooldown

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisCooldownPrefix string = "cooldown/"

// Cooldown store backed by redis, for when several processes share the same servers. Each bucket is a single integer key which expires at the end of its window.
type RedisCooldownStore struct {
	Client *redis.Client
	Window time.Duration
}

var _ CooldownStore = (*RedisCooldownStore)(nil)

func NewRedisCooldownStore(redisURL string) (*RedisCooldownStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	_, err = rdb.Ping(context.TODO()).Result()
	if err != nil {
		return nil, err
	}
	return &RedisCooldownStore{
		Client: rdb,
		Window: DefaultWindow,
	}, nil
}

func redisServerPrefix(server string) string {
	return redisCooldownPrefix + server + "/"
}

func (s *RedisCooldownStore) Check(ctx context.Context, server, author, channel string, limit uint32) (bool, error) {
	key := redisServerPrefix(server) + bucketName(author, channel)

	// the expiry is only set when the key is created, which makes this a fixed (not sliding) window
	multi := s.Client.TxPipeline()
	incr := multi.Incr(ctx, key)
	multi.ExpireNX(ctx, key, s.Window)
	if _, err := multi.Exec(ctx); err != nil {
		return false, fmt.Errorf("cooldown check: %w", err)
	}
	count := incr.Val()
	if count <= 1 {
		return false, nil
	}
	return count > int64(limit), nil
}

func (s *RedisCooldownStore) Teardown(ctx context.Context, server string) error {
	var keys []string
	iter := s.Client.Scan(ctx, 0, redisServerPrefix(server)+"*", 500).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cooldown teardown scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return s.Client.Del(ctx, keys...).Err()
}
