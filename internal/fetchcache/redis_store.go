package fetchcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/wonny/finscore/internal/contracts"
	"github.com/wonny/finscore/pkg/redis"
)

// RedisStore keeps each entry under finscore:cache:<dataset>:<key> with a
// native key expiry equal to the dataset ttl.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a store over a redis client
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func redisKey(dataset, key string) string {
	return redis.Key("cache", dataset, key)
}

// FindOne implements Store
func (s *RedisStore) FindOne(ctx context.Context, dataset, key string) (*contracts.CacheEntry, error) {
	if !s.client.Enabled() {
		return nil, nil
	}

	data, err := s.client.Redis().Get(ctx, redisKey(dataset, key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cache entry %s/%s: %w", dataset, key, err)
	}

	var entry contracts.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("decode cache entry %s/%s: %w", dataset, key, err)
	}

	return &entry, nil
}

// InsertOne implements Store
func (s *RedisStore) InsertOne(ctx context.Context, entry contracts.CacheEntry, ttl time.Duration) error {
	if !s.client.Enabled() {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	if err := s.client.Redis().Set(ctx, redisKey(entry.Dataset, entry.Key), string(data), ttl).Err(); err != nil {
		return fmt.Errorf("set cache entry %s/%s: %w", entry.Dataset, entry.Key, err)
	}

	return nil
}
