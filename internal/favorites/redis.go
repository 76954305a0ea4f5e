package favorites

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "favorites:"

// RedisStore keeps favorites as one JSON value per tender code. SetNX gives
// the duplicate-add rejection the Store contract requires.
type RedisStore struct {
	ctx    context.Context
	client *redis.Client
}

// NewRedisStore parses redisURL and verifies connectivity.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL(%q): %w", redisURL, err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisStore{ctx: ctx, client: client}, nil
}

func (s *RedisStore) Add(f *Favorite) (bool, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return false, err
	}

	ok, err := s.client.SetNX(s.ctx, redisKeyPrefix+f.Code, data, 0).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}

	return ok, nil
}

func (s *RedisStore) List() ([]*Favorite, error) {
	var items []*Favorite

	iter := s.client.Scan(s.ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(s.ctx) {
		data, err := s.client.Get(s.ctx, iter.Val()).Bytes()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			return nil, fmt.Errorf("redis get %s: %w", iter.Val(), err)
		}

		var f Favorite
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("decoding favorite %s: %w", iter.Val(), err)
		}
		items = append(items, &f)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}

	return items, nil
}

func (s *RedisStore) Remove(code string) error {
	return s.client.Del(s.ctx, redisKeyPrefix+code).Err()
}
