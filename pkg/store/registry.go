package store

import (
	"fmt"

	errUtils "github.com/cloudposse/weave/errors"
	"github.com/cloudposse/weave/pkg/schema"
)

// NewCache builds the cache selected by the settings.
func NewCache(settings *schema.CacheSettings) (Cache, error) {
	switch settings.Backend {
	case schema.CacheBackendRedis:
		return NewRedisStore(RedisStoreOptions{
			URL:    &settings.URL,
			Prefix: &settings.Prefix,
		})

	case schema.CacheBackendMemory, "":
		return NewInMemoryStore(), nil

	default:
		return nil, fmt.Errorf("%w: %s", errUtils.ErrInvalidCacheBackend, settings.Backend)
	}
}
