package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	errUtils "github.com/cloudposse/weave/errors"
)

// RedisClient is the subset of the redis client used by RedisStore.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisStoreOptions configures a RedisStore.
type RedisStoreOptions struct {
	URL    *string `mapstructure:"url"`
	Prefix *string `mapstructure:"prefix"`
}

// RedisStore caches values in Redis under a common key prefix.
type RedisStore struct {
	prefix      string
	redisClient RedisClient
}

// Ensure RedisStore implements the Cache interface.
var _ Cache = (*RedisStore)(nil)

// NewRedisStore connects lazily to the Redis server at options.URL.
func NewRedisStore(options RedisStoreOptions) (Cache, error) {
	if options.URL == nil || *options.URL == "" {
		return nil, errUtils.Build(errUtils.ErrInvalidConfiguration).
			WithExplanation("redis cache requires a url").
			WithHint("set settings.retrieval.cache.url, e.g. redis://localhost:6379/0").
			Err()
	}

	opts, err := redis.ParseURL(*options.URL)
	if err != nil {
		return nil, errUtils.Build(errUtils.ErrInvalidConfiguration).
			WithCause(err).
			WithContext("setting", "settings.retrieval.cache.url").
			Err()
	}

	prefix := ""
	if options.Prefix != nil {
		prefix = *options.Prefix
	}

	return &RedisStore{
		prefix:      prefix,
		redisClient: redis.NewClient(opts),
	}, nil
}

func (s *RedisStore) key(key string) string {
	return s.prefix + key
}

// Get retrieves a value from Redis. redis.Nil is reported as a cache miss.
func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.redisClient.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", errUtils.ErrCacheMiss
	}
	if err != nil {
		return "", errUtils.Build(errUtils.ErrCacheFailed).WithCause(err).WithContext("op", "get").Err()
	}
	return value, nil
}

// Set stores a value in Redis.
func (s *RedisStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := s.redisClient.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return errUtils.Build(errUtils.ErrCacheFailed).WithCause(err).WithContext("op", "set").Err()
	}
	return nil
}
